package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// MistPerSUI is the number of base units in one SUI
const MistPerSUI = 9

// FormatMist renders a base-unit amount as a grouped SUI string with up to
// three fraction digits, e.g. "1500000000" -> "1.5 SUI".
func FormatMist(mist string) (string, error) {
	d, err := decimal.NewFromString(mist)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidAmount, mist)
	}
	return formatSUI(d.Shift(-MistPerSUI), 0) + " SUI", nil
}

// FormatBalance renders a base-unit balance with at least two fraction digits
func FormatBalance(mist string) (string, error) {
	d, err := decimal.NewFromString(mist)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidAmount, mist)
	}
	return formatSUI(d.Shift(-MistPerSUI), 2), nil
}

// ParseSUI reads back a display amount such as "1,250.5 SUI"
func ParseSUI(display string) decimal.Decimal {
	s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(display), "SUI"))
	s = strings.ReplaceAll(s, ",", "")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func formatSUI(d decimal.Decimal, minFrac int) string {
	d = d.Round(3)
	neg := d.IsNegative()
	s := d.Abs().String()

	intPart, frac, _ := strings.Cut(s, ".")
	for len(frac) < minFrac {
		frac += "0"
	}

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	if frac != "" {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return b.String()
}

package core

import "strings"

// SameAddress compares two chain addresses ignoring case, the 0x prefix and
// leading zero padding. Addresses without any digits match nothing.
func SameAddress(a, b string) bool {
	ca, cb := canonical(a), canonical(b)
	if ca == "" || cb == "" {
		return false
	}
	return ca == cb
}

func canonical(addr string) string {
	s := strings.ToLower(strings.TrimSpace(addr))
	s = strings.TrimPrefix(s, "0x")
	if s == "" {
		return ""
	}
	if s = strings.TrimLeft(s, "0"); s == "" {
		return "0"
	}
	return s
}

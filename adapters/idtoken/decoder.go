package idtoken

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/layer-3/dealguard/core"
)

// Decoder reads identity tokens without checking their signature. The proof
// service verifies the token against the provider keys downstream.
type Decoder struct {
	parser *jwt.Parser
}

// NewDecoder creates a new identity token decoder
func NewDecoder() *Decoder {
	return &Decoder{parser: jwt.NewParser()}
}

// Decode parses the token and requires a subject and an audience
func (d *Decoder) Decode(token string) (core.IDClaims, error) {
	claims := &Claims{}
	if _, _, err := d.parser.ParseUnverified(token, claims); err != nil {
		return core.IDClaims{}, fmt.Errorf("%w: %v", core.ErrInvalidIDToken, err)
	}

	if claims.Subject == "" || len(claims.Audience) == 0 {
		return core.IDClaims{}, fmt.Errorf("%w: missing sub or aud", core.ErrInvalidIDToken)
	}

	out := core.IDClaims{
		Subject:  claims.Subject,
		Issuer:   claims.Issuer,
		Audience: claims.Audience,
		Nonce:    claims.Nonce,
		Email:    claims.Email,
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

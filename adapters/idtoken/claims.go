package idtoken

import "github.com/golang-jwt/jwt/v5"

// Claims combines the registered claims with the OpenID ones the login uses
type Claims struct {
	jwt.RegisteredClaims
	Nonce string `json:"nonce,omitempty"`
	Email string `json:"email,omitempty"`
}

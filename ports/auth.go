package ports

import (
	"context"

	"github.com/layer-3/dealguard/core"
)

// Wallet is the browser wallet connection as seen by this process
type Wallet interface {
	Account(ctx context.Context) (address string, connected bool)
	Disconnect(ctx context.Context) error
}

// IdentityProvider prepares the redirect to the external identity provider
type IdentityProvider interface {
	NewAttempt() (core.LoginAttempt, error)
	AuthorizationURL(attempt core.LoginAttempt) (string, error)
}

// IDTokenDecoder decodes an identity token without verifying its signature
type IDTokenDecoder interface {
	Decode(token string) (core.IDClaims, error)
}

// AddressDeriver turns an identity token into a chain address and salt
type AddressDeriver interface {
	Derive(ctx context.Context, idToken string, claims core.IDClaims) (core.Derivation, error)
}

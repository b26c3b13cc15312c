package core

import "time"

// SourceKind names the login path that produced an identity
type SourceKind string

const (
	SourceNone   SourceKind = "none"
	SourceWallet SourceKind = "wallet"
	SourceToken  SourceKind = "zk"
)

// Identity is the single authentication result visible to the rest of the app.
// The zero value is the signed-out identity.
type Identity struct {
	Address string     // Chain account address, empty when signed out
	Source  SourceKind // Which login path produced the address
}

// WalletIdentity returns the identity of a connected wallet
func WalletIdentity(address string) Identity {
	return Identity{Address: address, Source: SourceWallet}
}

// TokenIdentity returns the identity restored from an identity-token login
func TokenIdentity(address string) Identity {
	return Identity{Address: address, Source: SourceToken}
}

// IsAuthenticated reports whether the identity carries an address from a known source
func (i Identity) IsAuthenticated() bool {
	if i.Address == "" {
		return false
	}
	return i.Source == SourceWallet || i.Source == SourceToken
}

// Kind returns the source, treating the zero value as SourceNone
func (i Identity) Kind() SourceKind {
	if !i.IsAuthenticated() {
		return SourceNone
	}
	return i.Source
}

// SessionRecord is the durable form of a login kept in client-local storage
type SessionRecord struct {
	Address       string     // Chain account address
	IdentityToken string     // Raw identity token, empty for wallet bookkeeping
	Salt          string     // Derivation salt paired with IdentityToken
	ExpiresAt     time.Time  // When the record stops being honoured
	AuthType      SourceKind // wallet or zk
}

// Expired reports whether the record is no longer valid at now
func (r SessionRecord) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// LoginAttempt is the tab-scoped state of an in-flight identity-token login
type LoginAttempt struct {
	EphemeralKey string // Hex encoded ephemeral private key seed
	Randomness   string // Decimal randomness bound into the nonce
	Nonce        string // Nonce sent to the identity provider
}

// Complete reports whether all three values survived the redirect
func (a LoginAttempt) Complete() bool {
	return a.EphemeralKey != "" && a.Randomness != "" && a.Nonce != ""
}

// IDClaims are the identity-token claims the login flow relies on
type IDClaims struct {
	Subject   string
	Issuer    string
	Audience  []string
	Nonce     string
	Email     string
	ExpiresAt time.Time
}

// Derivation is the result of turning an identity token into a chain address
type Derivation struct {
	Address string
	Salt    string
}

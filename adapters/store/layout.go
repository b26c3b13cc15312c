package store

import (
	"fmt"
	"strconv"
	"time"

	"github.com/layer-3/dealguard/core"
)

// Persisted session layout
const (
	KeyAddress = "sui_address"
	KeyJWT     = "zklogin_jwt"
	KeySalt    = "zklogin_user_salt"
	KeyExpiry  = "auth_expiry"
	KeyType    = "auth_type"
)

// Ephemeral login attempt layout
const (
	KeyEphemeralKey = "zklogin_ephemeral_key"
	KeyRandomness   = "zklogin_randomness"
	KeyNonce        = "zklogin_nonce"
)

// SessionKeys lists every persisted key, written and cleared together
var SessionKeys = []string{KeyAddress, KeyJWT, KeySalt, KeyExpiry, KeyType}

// AttemptKeys lists every ephemeral key
var AttemptKeys = []string{KeyEphemeralKey, KeyRandomness, KeyNonce}

func encodeSession(r core.SessionRecord) map[string]string {
	authType := r.AuthType
	if authType == "" {
		authType = core.SourceToken
	}
	return map[string]string{
		KeyAddress: r.Address,
		KeyJWT:     r.IdentityToken,
		KeySalt:    r.Salt,
		KeyExpiry:  strconv.FormatInt(r.ExpiresAt.UnixMilli(), 10),
		KeyType:    string(authType),
	}
}

// decodeSession needs an address and a parseable expiry. Without any session
// key it reports core.ErrNoSession; stray keys that do not form a record
// report core.ErrIncompleteSession so the caller can clear them.
func decodeSession(values map[string]string) (core.SessionRecord, error) {
	if !hasAnyKey(values, SessionKeys) {
		return core.SessionRecord{}, core.ErrNoSession
	}

	address := values[KeyAddress]
	rawExpiry := values[KeyExpiry]
	if address == "" || rawExpiry == "" {
		return core.SessionRecord{}, core.ErrIncompleteSession
	}
	millis, err := strconv.ParseInt(rawExpiry, 10, 64)
	if err != nil {
		return core.SessionRecord{}, fmt.Errorf("%w: bad expiry %q", core.ErrIncompleteSession, rawExpiry)
	}

	authType := core.SourceKind(values[KeyType])
	if authType != core.SourceWallet {
		authType = core.SourceToken
	}

	return core.SessionRecord{
		Address:       address,
		IdentityToken: values[KeyJWT],
		Salt:          values[KeySalt],
		ExpiresAt:     time.UnixMilli(millis),
		AuthType:      authType,
	}, nil
}

func encodeAttempt(a core.LoginAttempt) map[string]string {
	return map[string]string{
		KeyEphemeralKey: a.EphemeralKey,
		KeyRandomness:   a.Randomness,
		KeyNonce:        a.Nonce,
	}
}

func decodeAttempt(values map[string]string) (core.LoginAttempt, error) {
	a := core.LoginAttempt{
		EphemeralKey: values[KeyEphemeralKey],
		Randomness:   values[KeyRandomness],
		Nonce:        values[KeyNonce],
	}
	if !a.Complete() {
		return core.LoginAttempt{}, core.ErrMissingLoginAttempt
	}
	return a, nil
}

func hasAnyKey(values map[string]string, keys []string) bool {
	for _, k := range keys {
		if values[k] != "" {
			return true
		}
	}
	return false
}

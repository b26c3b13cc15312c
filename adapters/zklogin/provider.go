package zklogin

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math/big"
	"net/url"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/layer-3/dealguard/core"
	"golang.org/x/crypto/blake2b"
)

// GoogleAuthEndpoint is the default OAuth2 authorization endpoint
const GoogleAuthEndpoint = "https://accounts.google.com/o/oauth2/v2/auth"

// CallbackPath is where the identity provider sends the browser back to
const CallbackPath = "/auth/callback"

const (
	randomnessBytes = 16
	nonceLength     = 27
)

// Config configures the identity provider redirect
type Config struct {
	ClientID    string
	RedirectURI string
	Endpoint    string
	MaxEpoch    uint64
}

// Provider builds login attempts and authorization URLs for an OpenID provider
type Provider struct {
	cfg Config
}

// NewProvider creates a new provider, defaulting to Google
func NewProvider(cfg Config) *Provider {
	if cfg.Endpoint == "" {
		cfg.Endpoint = GoogleAuthEndpoint
	}
	return &Provider{cfg: cfg}
}

// NewAttempt generates an ephemeral keypair and randomness and binds them
// into a nonce
func (p *Provider) NewAttempt() (core.LoginAttempt, error) {
	if p.cfg.ClientID == "" {
		return core.LoginAttempt{}, core.ErrMissingClientID
	}

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return core.LoginAttempt{}, fmt.Errorf("failed to generate ephemeral key: %w", err)
	}

	r := make([]byte, randomnessBytes)
	if _, err := rand.Read(r); err != nil {
		return core.LoginAttempt{}, fmt.Errorf("failed to generate randomness: %w", err)
	}
	randomness := new(big.Int).SetBytes(r).String()

	return core.LoginAttempt{
		EphemeralKey: hexutil.Encode(priv.Seed()),
		Randomness:   randomness,
		Nonce:        Nonce(pub, p.cfg.MaxEpoch, randomness),
	}, nil
}

// AuthorizationURL returns the provider URL the browser is redirected to
func (p *Provider) AuthorizationURL(attempt core.LoginAttempt) (string, error) {
	if p.cfg.ClientID == "" {
		return "", core.ErrMissingClientID
	}

	params := url.Values{}
	params.Set("client_id", p.cfg.ClientID)
	params.Set("response_type", "id_token")
	params.Set("redirect_uri", p.cfg.RedirectURI)
	params.Set("scope", "openid email profile")
	params.Set("nonce", attempt.Nonce)

	return p.cfg.Endpoint + "?" + params.Encode(), nil
}

// Nonce binds the ephemeral public key, the max epoch and the randomness
func Nonce(pub ed25519.PublicKey, maxEpoch uint64, randomness string) string {
	h, _ := blake2b.New256(nil)
	h.Write(pub)
	var epoch [8]byte
	binary.BigEndian.PutUint64(epoch[:], maxEpoch)
	h.Write(epoch[:])
	h.Write([]byte(randomness))

	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))[:nonceLength]
}

// EphemeralPublicKey recovers the public key from a stored attempt
func EphemeralPublicKey(attempt core.LoginAttempt) (ed25519.PublicKey, error) {
	seed, err := hexutil.Decode(attempt.EphemeralKey)
	if err != nil || len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("%w: bad ephemeral key", core.ErrMissingLoginAttempt)
	}
	return ed25519.NewKeyFromSeed(seed).Public().(ed25519.PublicKey), nil
}

package zklogin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/layer-3/dealguard/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvider_NewAttemptAndURL(t *testing.T) {
	p := NewProvider(Config{
		ClientID:    "client-123",
		RedirectURI: "http://localhost:3000" + CallbackPath,
		MaxEpoch:    10,
	})

	attempt, err := p.NewAttempt()
	require.NoError(t, err)
	require.True(t, attempt.Complete())
	assert.Len(t, attempt.Nonce, nonceLength)

	pub, err := EphemeralPublicKey(attempt)
	require.NoError(t, err)
	assert.Equal(t, attempt.Nonce, Nonce(pub, 10, attempt.Randomness))

	raw, err := p.AuthorizationURL(attempt)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "accounts.google.com", u.Host)
	q := u.Query()
	assert.Equal(t, "client-123", q.Get("client_id"))
	assert.Equal(t, "id_token", q.Get("response_type"))
	assert.Equal(t, "openid email profile", q.Get("scope"))
	assert.Equal(t, "http://localhost:3000/auth/callback", q.Get("redirect_uri"))
	assert.Equal(t, attempt.Nonce, q.Get("nonce"))
}

func TestProvider_AttemptsDiffer(t *testing.T) {
	p := NewProvider(Config{ClientID: "c"})
	a, err := p.NewAttempt()
	require.NoError(t, err)
	b, err := p.NewAttempt()
	require.NoError(t, err)
	assert.NotEqual(t, a.Nonce, b.Nonce)
	assert.NotEqual(t, a.EphemeralKey, b.EphemeralKey)
}

func TestProvider_MissingClientID(t *testing.T) {
	p := NewProvider(Config{})

	_, err := p.NewAttempt()
	assert.ErrorIs(t, err, core.ErrMissingClientID)

	_, err = p.AuthorizationURL(core.LoginAttempt{Nonce: "n"})
	assert.ErrorIs(t, err, core.ErrMissingClientID)
}

func TestTokenFromFragment(t *testing.T) {
	token, err := TokenFromFragment("#id_token=abc.def.ghi&authuser=0")
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", token)

	token, err = TokenFromFragment("http://localhost:3000/auth/callback#id_token=xyz")
	require.NoError(t, err)
	assert.Equal(t, "xyz", token)

	_, err = TokenFromFragment("#state=1")
	assert.ErrorIs(t, err, core.ErrMissingIDToken)

	// query string is not the fragment
	_, err = TokenFromFragment("http://localhost:3000/auth/callback?id_token=xyz")
	assert.ErrorIs(t, err, core.ErrMissingIDToken)
}

func TestSaltService_Derive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req saltRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token != "good-token" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(saltResponse{Salt: "129390038577185583942388216820280642146", Address: "0xAB12"})
	}))
	defer srv.Close()

	s := NewSaltService(srv.URL, srv.Client())

	d, err := s.Derive(context.Background(), "good-token", core.IDClaims{Subject: "sub"})
	require.NoError(t, err)
	assert.Equal(t, "0xAB12", d.Address)
	assert.Equal(t, "129390038577185583942388216820280642146", d.Salt)

	_, err = s.Derive(context.Background(), "bad-token", core.IDClaims{Subject: "sub"})
	assert.ErrorIs(t, err, core.ErrDerivationFailed)
}

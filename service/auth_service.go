package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/layer-3/dealguard/core"
	"github.com/layer-3/dealguard/ports"
	"github.com/rs/zerolog"
)

// SessionTTL is how long a persisted login is honoured
const SessionTTL = 24 * time.Hour

// AuthDeps are the collaborators of the session manager
type AuthDeps struct {
	Sessions  ports.SessionStore
	Attempts  ports.AttemptStore
	Wallet    ports.Wallet
	Provider  ports.IdentityProvider
	Decoder   ports.IDTokenDecoder
	Deriver   ports.AddressDeriver
	Publisher ports.EventPublisher
	Logger    zerolog.Logger
}

// AuthService reconciles wallet and token logins into one identity
type AuthService struct {
	sessions ports.SessionStore
	attempts ports.AttemptStore
	wallet   ports.Wallet
	provider ports.IdentityProvider
	decoder  ports.IDTokenDecoder
	deriver  ports.AddressDeriver
	eventPub ports.EventPublisher
	log      zerolog.Logger
	now      func() time.Time
	ttl      time.Duration

	mu         sync.RWMutex
	identity   core.Identity
	listeners  []func(core.Identity)
	loggingOut int
}

// NewAuthService creates a new session manager
func NewAuthService(deps AuthDeps) *AuthService {
	return &AuthService{
		sessions: deps.Sessions,
		attempts: deps.Attempts,
		wallet:   deps.Wallet,
		provider: deps.Provider,
		decoder:  deps.Decoder,
		deriver:  deps.Deriver,
		eventPub: deps.Publisher,
		log:      deps.Logger.With().Str("component", "auth").Logger(),
		now:      time.Now,
		ttl:      SessionTTL,
	}
}

// Identity returns the current identity
func (s *AuthService) Identity() core.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.identity
}

// OnIdentityChange registers a listener called after every identity replacement
func (s *AuthService) OnIdentityChange(fn func(core.Identity)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.listeners = append(s.listeners, fn)
}

// LoginWithToken persists a token login for the next 24 hours and makes it
// the current identity
func (s *AuthService) LoginWithToken(ctx context.Context, address, idToken, salt string) error {
	record := core.SessionRecord{
		Address:       address,
		IdentityToken: idToken,
		Salt:          salt,
		ExpiresAt:     s.now().Add(s.ttl),
		AuthType:      core.SourceToken,
	}

	if err := s.sessions.SaveSession(ctx, record); err != nil {
		s.log.Error().Err(err).Msg("failed to persist session")
		s.setIdentity(core.Identity{})
		return fmt.Errorf("failed to persist session: %w", err)
	}

	s.setIdentity(core.TokenIdentity(address))
	s.log.Info().Str("address", address).Msg("token login")
	return nil
}

// Logout ends every login. The identity is cleared first, then the wallet is
// disconnected and the stored session removed, whatever its type. Reconcile
// calls made while this runs, such as wallet change hooks, see no session.
func (s *AuthService) Logout(ctx context.Context) error {
	s.mu.Lock()
	current := s.identity
	s.loggingOut++
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.loggingOut--
		s.mu.Unlock()
	}()

	s.setIdentity(core.Identity{})

	var result *multierror.Error
	if _, connected := s.wallet.Account(ctx); connected || current.Kind() == core.SourceWallet {
		if err := s.wallet.Disconnect(ctx); err != nil {
			result = multierror.Append(result, fmt.Errorf("wallet disconnect: %w", err))
		}
	}
	if err := s.sessions.DeleteSession(ctx); err != nil {
		result = multierror.Append(result, err)
	}
	if err := s.attempts.ClearAttempt(ctx); err != nil {
		result = multierror.Append(result, err)
	}

	if current.IsAuthenticated() {
		// The session is already gone, a lost notification is only logged
		if err := s.eventPub.PublishLogout(ctx, current); err != nil {
			s.log.Warn().Err(err).Msg("failed to publish logout event")
		}
	}

	s.log.Info().Str("address", current.Address).Str("source", string(current.Kind())).Msg("logout")
	return result.ErrorOrNil()
}

// Reconcile recomputes the identity from the wallet and the stored session.
// A connected wallet always wins and is never checked against the stored
// expiry. Calling it again without state changes yields the same identity.
func (s *AuthService) Reconcile(ctx context.Context) core.Identity {
	s.mu.RLock()
	inLogout := s.loggingOut > 0
	s.mu.RUnlock()
	if inLogout {
		return core.Identity{}
	}

	if address, connected := s.wallet.Account(ctx); connected {
		s.refreshWalletRecord(ctx, address)
		id := core.WalletIdentity(address)
		s.setIdentity(id)
		return id
	}

	record, err := s.sessions.LoadSession(ctx)
	switch {
	case errors.Is(err, core.ErrNoSession):
		s.setIdentity(core.Identity{})
		return core.Identity{}
	case errors.Is(err, core.ErrIncompleteSession):
		s.log.Warn().Err(err).Msg("clearing incomplete stored session")
		s.clearSession(ctx)
		s.setIdentity(core.Identity{})
		return core.Identity{}
	case err != nil:
		s.log.Warn().Err(err).Msg("failed to read stored session")
		s.setIdentity(core.Identity{})
		return core.Identity{}
	}

	// A wallet record without a connected wallet has nothing to restore
	if record.AuthType == core.SourceWallet || record.Expired(s.now()) {
		s.clearSession(ctx)
		s.setIdentity(core.Identity{})
		return core.Identity{}
	}

	id := core.TokenIdentity(record.Address)
	s.setIdentity(id)
	return id
}

func (s *AuthService) clearSession(ctx context.Context) {
	if err := s.sessions.DeleteSession(ctx); err != nil {
		s.log.Warn().Err(err).Msg("failed to delete stale session")
	}
}

// refreshWalletRecord keeps the expiry bookkeeping of a wallet session fresh.
// A stored token session is left alone so it resumes after the wallet leaves.
func (s *AuthService) refreshWalletRecord(ctx context.Context, address string) {
	rec, err := s.sessions.LoadSession(ctx)
	if err == nil && rec.AuthType == core.SourceToken && !rec.Expired(s.now()) {
		return
	}

	err = s.sessions.SaveSession(ctx, core.SessionRecord{
		Address:   address,
		ExpiresAt: s.now().Add(s.ttl),
		AuthType:  core.SourceWallet,
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to refresh wallet session")
	}
}

// BeginLogin stores a fresh login attempt and returns the identity provider
// URL to redirect the browser to
func (s *AuthService) BeginLogin(ctx context.Context) (string, error) {
	attempt, err := s.provider.NewAttempt()
	if err != nil {
		return "", err
	}

	authURL, err := s.provider.AuthorizationURL(attempt)
	if err != nil {
		return "", err
	}

	if err := s.attempts.SaveAttempt(ctx, attempt); err != nil {
		return "", fmt.Errorf("failed to store login attempt: %w", err)
	}

	return authURL, nil
}

// CompleteLogin finishes a token login from the identity token returned by
// the provider
func (s *AuthService) CompleteLogin(ctx context.Context, idToken string) (core.Identity, error) {
	if idToken == "" {
		return core.Identity{}, core.ErrMissingIDToken
	}

	claims, err := s.decoder.Decode(idToken)
	if err != nil {
		return core.Identity{}, err
	}

	attempt, err := s.attempts.LoadAttempt(ctx)
	if err != nil {
		return core.Identity{}, core.ErrMissingLoginAttempt
	}
	if claims.Nonce != "" && claims.Nonce != attempt.Nonce {
		return core.Identity{}, fmt.Errorf("%w: nonce mismatch", core.ErrInvalidIDToken)
	}

	if s.deriver == nil {
		return core.Identity{}, fmt.Errorf("%w: no derivation service configured", core.ErrDerivationFailed)
	}
	derived, err := s.deriver.Derive(ctx, idToken, claims)
	if err != nil {
		return core.Identity{}, err
	}

	if err := s.LoginWithToken(ctx, derived.Address, idToken, derived.Salt); err != nil {
		return core.Identity{}, err
	}

	if err := s.attempts.ClearAttempt(ctx); err != nil {
		s.log.Warn().Err(err).Msg("failed to clear login attempt")
	}

	return s.Identity(), nil
}

func (s *AuthService) setIdentity(id core.Identity) {
	s.mu.Lock()
	changed := s.identity != id
	s.identity = id
	listeners := append([]func(core.Identity){}, s.listeners...)
	s.mu.Unlock()

	if !changed {
		return
	}
	for _, fn := range listeners {
		fn(id)
	}
}

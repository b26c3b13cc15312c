package core

import "errors"

var (
	ErrNoSession           = errors.New("no stored session")
	ErrSessionExpired      = errors.New("session has expired")
	ErrIncompleteSession   = errors.New("stored session is incomplete")
	ErrMissingClientID     = errors.New("identity provider client id is not configured")
	ErrMissingIDToken      = errors.New("no identity token found")
	ErrInvalidIDToken      = errors.New("invalid identity token")
	ErrMissingLoginAttempt = errors.New("missing login attempt data, please login again")
	ErrDerivationFailed    = errors.New("address derivation failed")
	ErrInvalidAddress      = errors.New("invalid chain address")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrSourceNotReady      = errors.New("event source is not ready")
)

package ports

import (
	"context"

	"github.com/layer-3/dealguard/core"
)

// SessionStore keeps the persisted session record. A record is always read,
// written and deleted as one unit.
type SessionStore interface {
	// LoadSession returns core.ErrNoSession when nothing is stored and
	// core.ErrIncompleteSession when stray keys do not form a record
	LoadSession(ctx context.Context) (core.SessionRecord, error)
	SaveSession(ctx context.Context, record core.SessionRecord) error
	DeleteSession(ctx context.Context) error
}

// AttemptStore keeps the ephemeral state of an in-flight token login
type AttemptStore interface {
	// LoadAttempt returns core.ErrMissingLoginAttempt when any value is missing
	LoadAttempt(ctx context.Context) (core.LoginAttempt, error)
	SaveAttempt(ctx context.Context, attempt core.LoginAttempt) error
	ClearAttempt(ctx context.Context) error
}

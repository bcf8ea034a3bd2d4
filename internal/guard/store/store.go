package store

import (
	"context"
	"errors"
	"time"

	"github.com/nekohouse/doorcode/internal/guard/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite for
// deployments, memory for tests) implement this. Sub-repositories are
// exposed as methods so transaction scoping stays explicit.
type Store interface {
	Grants() Grants

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed. This is the
	// recommended way to run multi-step operations that must be atomic
	// (e.g. get-or-issue).
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources (optional for sqlite).
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds
// Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Grants interface {
	// Create inserts a new grant. Returns ErrAlreadyExists if a grant for
	// the same (subject, scheme) pair is already present.
	Create(ctx context.Context, g domain.Grant) error

	// Get returns the grant for a (subject, scheme) pair, or ErrNotFound.
	Get(ctx context.Context, subject, scheme string) (domain.Grant, error)

	// Replace upserts the grant for its (subject, scheme) pair.
	Replace(ctx context.Context, g domain.Grant) error

	// Delete removes the grant for a (subject, scheme) pair. Deleting an
	// absent grant is not an error.
	Delete(ctx context.Context, subject, scheme string) error

	// PurgeOlderThan removes grants under the given scheme issued before
	// the cutoff and reports how many were removed. It is issue-time
	// based and must stay scoped to schemes whose grants are reissued,
	// so it never drops a live single-issuance grant.
	PurgeOlderThan(ctx context.Context, scheme string, cutoff time.Time) (int64, error)

	// PurgeExpired removes grants whose expiry instant has passed and
	// reports how many were removed.
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// Package memory is an in-process store driver. It exists for tests and
// for running the guard without a database file; nothing survives a
// restart. Transactions take a store-wide lock and operate on a snapshot,
// so Rollback genuinely discards changes.
package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/nekohouse/doorcode/internal/guard/domain"
	"github.com/nekohouse/doorcode/internal/guard/store"
)

type grantKey struct {
	subject string
	scheme  string
}

type Store struct {
	mu     sync.Mutex
	grants map[grantKey]domain.Grant
}

func NewStore() *Store {
	return &Store{grants: make(map[grantKey]domain.Grant)}
}

func (s *Store) Grants() store.Grants { return &grantsRepo{s: s} }

func (s *Store) ApplyMigrations() error { return nil }

func (s *Store) Close() error { return nil }

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

// Tx locks the store and hands out a snapshot copy. Commit swaps the
// snapshot back in; Rollback just drops it.
func (s *Store) Tx(ctx context.Context) (store.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	snap := make(map[grantKey]domain.Grant, len(s.grants))
	for k, v := range s.grants {
		snap[k] = v
	}
	return &tx{parent: s, grants: snap}, nil
}

func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	t, err := s.Tx(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = t.Rollback()
	}()
	if err := fn(t); err != nil {
		return err
	}
	return t.Commit()
}

type tx struct {
	parent *Store
	grants map[grantKey]domain.Grant
	done   bool
}

func (t *tx) Grants() store.Grants { return &grantsRepo{tx: t} }

func (t *tx) ApplyMigrations() error { return nil }

func (t *tx) Close() error { return nil }

func (t *tx) Ping(ctx context.Context) error { return ctx.Err() }

var errNestedTx = errors.New("memory: nested transactions are not supported")

func (t *tx) Tx(ctx context.Context) (store.Tx, error) {
	return nil, errNestedTx
}

func (t *tx) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return fn(t)
}

func (t *tx) Commit() error {
	if t.done {
		return nil
	}
	t.done = true
	t.parent.grants = t.grants
	t.parent.mu.Unlock()
	return nil
}

func (t *tx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.parent.mu.Unlock()
	return nil
}

// grantsRepo serves either the root store (locking per call) or a live
// transaction (already holding the lock).
type grantsRepo struct {
	s  *Store
	tx *tx
}

func (r *grantsRepo) data() map[grantKey]domain.Grant {
	if r.tx != nil {
		return r.tx.grants
	}
	return r.s.grants
}

func (r *grantsRepo) lock() func() {
	if r.tx != nil {
		return func() {}
	}
	r.s.mu.Lock()
	return r.s.mu.Unlock
}

func (r *grantsRepo) Create(ctx context.Context, g domain.Grant) error {
	defer r.lock()()
	k := grantKey{subject: g.Subject, scheme: g.Scheme}
	if _, ok := r.data()[k]; ok {
		return store.ErrAlreadyExists
	}
	r.data()[k] = g
	return nil
}

func (r *grantsRepo) Get(ctx context.Context, subject, scheme string) (domain.Grant, error) {
	defer r.lock()()
	g, ok := r.data()[grantKey{subject: subject, scheme: scheme}]
	if !ok {
		return domain.Grant{}, store.ErrNotFound
	}
	return g, nil
}

func (r *grantsRepo) Replace(ctx context.Context, g domain.Grant) error {
	defer r.lock()()
	r.data()[grantKey{subject: g.Subject, scheme: g.Scheme}] = g
	return nil
}

func (r *grantsRepo) Delete(ctx context.Context, subject, scheme string) error {
	defer r.lock()()
	delete(r.data(), grantKey{subject: subject, scheme: scheme})
	return nil
}

func (r *grantsRepo) PurgeOlderThan(ctx context.Context, scheme string, cutoff time.Time) (int64, error) {
	defer r.lock()()
	var n int64
	for k, g := range r.data() {
		if g.Scheme == scheme && g.IssuedAt.Before(cutoff) {
			delete(r.data(), k)
			n++
		}
	}
	return n, nil
}

func (r *grantsRepo) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	defer r.lock()()
	var n int64
	for k, g := range r.data() {
		if g.Expired(now) {
			delete(r.data(), k)
			n++
		}
	}
	return n, nil
}

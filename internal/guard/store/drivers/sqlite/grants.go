package sqlite

import (
	"context"
	"time"

	"github.com/nekohouse/doorcode/internal/guard/domain"
	"github.com/nekohouse/doorcode/internal/guard/store"
	"github.com/nekohouse/doorcode/pkg/idx"
)

type grantsRepo struct {
	db dbtx
}

// Timestamps are stored as unix seconds; the schemes never resolve finer
// than a second.

func (r *grantsRepo) Create(ctx context.Context, g domain.Grant) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO grants (id, subject, scheme, sealed_code, issued_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (subject, scheme) DO NOTHING;`,
		g.ID.String(), g.Subject, g.Scheme, g.SealedCode, g.IssuedAt.Unix(), g.ExpiresAt.Unix(),
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrAlreadyExists
	}
	return nil
}

func (r *grantsRepo) Get(ctx context.Context, subject, scheme string) (domain.Grant, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, subject, scheme, sealed_code, issued_at, expires_at
		FROM grants
		WHERE subject = ? AND scheme = ?;`,
		subject, scheme,
	)

	var (
		id        string
		g         domain.Grant
		issuedAt  int64
		expiresAt int64
	)
	if err := row.Scan(&id, &g.Subject, &g.Scheme, &g.SealedCode, &issuedAt, &expiresAt); err != nil {
		return domain.Grant{}, mapNotFound(err)
	}

	parsed, err := idx.Parse(id)
	if err != nil {
		return domain.Grant{}, err
	}
	g.ID = parsed
	g.IssuedAt = time.Unix(issuedAt, 0).UTC()
	g.ExpiresAt = time.Unix(expiresAt, 0).UTC()
	return g, nil
}

func (r *grantsRepo) Replace(ctx context.Context, g domain.Grant) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO grants (id, subject, scheme, sealed_code, issued_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (subject, scheme) DO UPDATE SET
			id = excluded.id,
			sealed_code = excluded.sealed_code,
			issued_at = excluded.issued_at,
			expires_at = excluded.expires_at;`,
		g.ID.String(), g.Subject, g.Scheme, g.SealedCode, g.IssuedAt.Unix(), g.ExpiresAt.Unix(),
	)
	return err
}

func (r *grantsRepo) Delete(ctx context.Context, subject, scheme string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM grants WHERE subject = ? AND scheme = ?;`,
		subject, scheme,
	)
	return err
}

func (r *grantsRepo) PurgeOlderThan(ctx context.Context, scheme string, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM grants WHERE scheme = ? AND issued_at < ?;`,
		scheme, cutoff.Unix(),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *grantsRepo) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM grants WHERE expires_at <= ?;`,
		now.Unix(),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

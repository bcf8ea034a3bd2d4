// Package service is the issuance guard around the passcode engine. It
// enforces one live code per subject and scheme, a minimum interval
// between repeatable reissues, and per-subject throttling of verification
// attempts. Codes are sealed before they touch the store and opened on
// the way back out.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nekohouse/doorcode/internal/guard/domain"
	"github.com/nekohouse/doorcode/internal/guard/store"
	"github.com/nekohouse/doorcode/internal/guard/store/drivers/sqlite"
	"github.com/nekohouse/doorcode/pkg/cryptox"
	"github.com/nekohouse/doorcode/pkg/idx"
	"github.com/nekohouse/doorcode/pkg/passcode"
	"github.com/nekohouse/doorcode/pkg/ratex"
	"github.com/nekohouse/doorcode/pkg/slogx"
	"github.com/nekohouse/doorcode/pkg/timex"
)

var (
	ErrSecretRequired  = errors.New("service: secret is required")
	ErrSealKeyRequired = errors.New("service: seal key is required")
	ErrSubjectRequired = errors.New("service: subject is required")
	ErrThrottled       = errors.New("service: too many verification attempts")
)

// repeatableScheme is the grant key reserved for Repeatable's rolling
// temporary codes, kept disjoint from the Issue scheme keys.
const repeatableScheme = "repeatable"

type Guard struct {
	cfg    Config
	store  store.Store
	engine *passcode.Engine
	sealer *cryptox.Sealer
	checks *ratex.Keyed
	log    *slog.Logger
}

func New(cfg Config, st store.Store, log *slog.Logger) (*Guard, error) {
	if cfg.Secret == "" {
		return nil, ErrSecretRequired
	}
	if cfg.SealKey == "" {
		return nil, ErrSealKeyRequired
	}
	cfg = cfg.withDefaults()
	if log == nil {
		log = slog.Default()
	}
	return &Guard{
		cfg:    cfg,
		store:  st,
		engine: passcode.New(),
		sealer: cryptox.NewSealer(cfg.SealKey),
		checks: ratex.NewKeyed(cfg.CheckRate, cfg.CheckWindow, cfg.CheckBurst),
		log:    log,
	}, nil
}

// OpenStore opens the sqlite store at the configured database file and
// applies pending migrations.
func OpenStore(cfg Config) (store.Store, error) {
	st, err := sqlite.NewStore(cfg.withDefaults().DatabaseFile)
	if err != nil {
		return nil, err
	}
	if err := st.ApplyMigrations(); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

// now is the offset-adjusted clock. Grant timestamps live on the same
// shifted timeline the engine derives codes from, so expiry comparisons
// agree with verification.
func (g *Guard) now() time.Time {
	t := time.Now()
	if g.engine.Clock != nil {
		t = g.engine.Clock()
	}
	return time.UnixMilli(timex.Millis(t, g.cfg.TimeOffset))
}

// Issue mints a code for subject under the given scheme, or returns the
// code from the subject's live grant for that scheme if one exists. The
// get-or-issue runs in one transaction so concurrent callers cannot both
// mint.
func (g *Guard) Issue(ctx context.Context, subject string, scheme passcode.Scheme) (passcode.Credential, error) {
	if subject == "" {
		return passcode.Credential{}, ErrSubjectRequired
	}

	key, err := schemeKey(scheme)
	if err != nil {
		return passcode.Credential{}, err
	}
	ctx = g.subjectContext(ctx, subject)

	var cred passcode.Credential
	err = g.store.WithTx(ctx, func(tx store.Tx) error {
		existing, err := tx.Grants().Get(ctx, subject, key)
		if err == nil && !existing.Expired(g.now()) {
			cred, err = g.reopen(existing, scheme)
			if err == nil {
				slogx.FromContext(ctx).DebugContext(ctx, "returning live grant",
					slog.String("scheme", key),
				)
			}
			return err
		}
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}

		cred, err = g.mint(ctx, tx, subject, key, scheme)
		return err
	})
	if err != nil {
		return passcode.Credential{}, err
	}
	return cred, nil
}

// Repeatable mints a temporary code for subject, returning the previous
// one unchanged if it was issued less than the reissue interval ago and
// is still valid. Each call also drops repeatable grants older than the
// retention window; other schemes are left alone, their grants must
// survive until expiry.
func (g *Guard) Repeatable(ctx context.Context, subject string) (passcode.Credential, error) {
	if subject == "" {
		return passcode.Credential{}, ErrSubjectRequired
	}
	ctx = g.subjectContext(ctx, subject)

	var cred passcode.Credential
	err := g.store.WithTx(ctx, func(tx store.Tx) error {
		now := g.now()
		if _, err := tx.Grants().PurgeOlderThan(ctx, repeatableScheme, now.Add(-g.cfg.RetainFor)); err != nil {
			return err
		}

		existing, err := tx.Grants().Get(ctx, subject, repeatableScheme)
		if err == nil &&
			now.Sub(existing.IssuedAt) < g.cfg.ReissueInterval &&
			!existing.Expired(now) {
			cred, err = g.reopen(existing, passcode.Temporary{})
			return err
		}
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}

		cred, err = g.mint(ctx, tx, subject, repeatableScheme, passcode.Temporary{})
		return err
	})
	if err != nil {
		return passcode.Credential{}, err
	}
	return cred, nil
}

// Check verifies a code on subject's behalf. Attempts are throttled per
// subject; a throttled call returns ErrThrottled without touching the
// engine, so the limiter bounds brute-force probing of the code space.
func (g *Guard) Check(ctx context.Context, subject, code string) (passcode.Match, bool, error) {
	if subject == "" {
		return passcode.Match{}, false, ErrSubjectRequired
	}
	ctx = g.subjectContext(ctx, subject)
	log := slogx.FromContext(ctx)

	if !g.checks.Allow(subject) {
		log.WarnContext(ctx, "verification throttled")
		return passcode.Match{}, false, ErrThrottled
	}

	m, ok := g.engine.Verify(code, g.cfg.Secret, g.cfg.TimeOffset)
	if ok {
		log.InfoContext(ctx, "code accepted",
			slog.String("scheme", m.Scheme.Describe()),
			slog.Time("expires_at", m.ExpiresAt),
		)
	} else {
		log.InfoContext(ctx, "code rejected")
	}
	return m, ok, nil
}

// Remaining reports how long a code stays valid.
func (g *Guard) Remaining(code string) (time.Duration, bool) {
	return g.engine.Remaining(code, g.cfg.Secret, g.cfg.TimeOffset)
}

// Revoke drops subject's live grant for a scheme so the next Issue mints
// a fresh code. The code itself stays verifiable until it expires; only
// the single-issuance record is cleared.
func (g *Guard) Revoke(ctx context.Context, subject string, scheme passcode.Scheme) error {
	key, err := schemeKey(scheme)
	if err != nil {
		return err
	}
	return g.store.Grants().Delete(ctx, subject, key)
}

// Sweep removes grants whose codes have expired. Live grants are never
// touched: a single-issuance record must keep returning its code until
// the code itself stops verifying.
func (g *Guard) Sweep(ctx context.Context) (int64, error) {
	n, err := g.store.Grants().PurgeExpired(ctx, g.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		g.log.DebugContext(ctx, "swept expired grants", slog.Int64("removed", n))
	}
	return n, nil
}

func (g *Guard) mint(ctx context.Context, tx store.Tx, subject, key string, scheme passcode.Scheme) (passcode.Credential, error) {
	cred, err := g.engine.Generate(g.cfg.Secret, scheme, g.cfg.TimeOffset)
	if err != nil {
		return passcode.Credential{}, err
	}

	sealed, err := g.sealer.Seal(cred.Code)
	if err != nil {
		return passcode.Credential{}, err
	}

	expiresAt, err := time.ParseInLocation(timex.Layout, cred.ExpiresAt, timex.Zone)
	if err != nil {
		return passcode.Credential{}, fmt.Errorf("parse expiry %q: %w", cred.ExpiresAt, err)
	}

	grant := domain.Grant{
		ID:         idx.New(),
		Subject:    subject,
		Scheme:     key,
		SealedCode: sealed,
		IssuedAt:   g.now(),
		ExpiresAt:  expiresAt,
	}
	if err := tx.Grants().Replace(ctx, grant); err != nil {
		return passcode.Credential{}, err
	}

	slogx.FromContext(ctx).InfoContext(ctx, "code issued",
		slog.String("scheme", key),
		slog.String("grant_id", grant.ID.String()),
		slog.Time("expires_at", expiresAt),
	)
	return cred, nil
}

// subjectContext attaches the guard's logger, scoped to subject, to the
// context, so every log line emitted under this operation carries the
// subject identifier.
func (g *Guard) subjectContext(ctx context.Context, subject string) context.Context {
	return slogx.WithSubject(slogx.WithContext(ctx, g.log), subject)
}

// reopen rebuilds a Credential from a stored grant.
func (g *Guard) reopen(grant domain.Grant, scheme passcode.Scheme) (passcode.Credential, error) {
	code, err := g.sealer.Open(grant.SealedCode)
	if err != nil {
		return passcode.Credential{}, err
	}
	return passcode.Credential{
		Code:      code,
		ExpiresAt: timex.FormatUnix(grant.ExpiresAt.Unix()),
		Message:   scheme.Describe(),
		Scheme:    scheme,
	}, nil
}

// schemeKey maps a scheme to the stable key grants are stored under. The
// key ignores parameters: a subject holding a 3-use code asking for a
// 5-use one still gets the live grant back until it expires.
func schemeKey(scheme passcode.Scheme) (string, error) {
	switch scheme.(type) {
	case passcode.Temporary:
		return "temporary", nil
	case passcode.UseCountLimited:
		return "use_count", nil
	case passcode.DurationLimited:
		return "duration", nil
	case passcode.AbsolutePeriod:
		return "period", nil
	default:
		return "", passcode.ErrUnknownScheme
	}
}

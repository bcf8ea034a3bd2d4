// Package domain holds the records the guard persists. Codes are sealed
// before they reach a store and opened after they come back; a Grant never
// carries a plaintext code.
package domain

import (
	"time"

	"github.com/nekohouse/doorcode/pkg/idx"
)

// Grant records a code issued to a subject under a particular scheme. At
// most one live grant exists per (Subject, Scheme) pair; issuing again
// before expiry returns the stored code instead of minting a new one.
type Grant struct {
	ID         idx.ID
	Subject    string
	Scheme     string // stable scheme key, e.g. "temporary", "use_count"
	SealedCode string
	IssuedAt   time.Time
	ExpiresAt  time.Time
}

// Expired reports whether the grant's code has passed its expiry instant.
func (g Grant) Expired(now time.Time) bool {
	return !now.Before(g.ExpiresAt)
}

package entity

import (
	"slices"
	"time"
)

// CapabilityAdmin is required on a token to reach the admin surface.
const CapabilityAdmin = "admin"

// Token labels used at issuance.
const (
	LabelMember = "mobile"
	LabelAdmin  = "admin"
)

// Token is a persisted access token. The row is authoritative: deleting it
// revokes the bearer credential even if its signature is still valid.
type Token struct {
	ID         string     `db:"id"`
	UserID     int64      `db:"user_id"`
	Name       string     `db:"name"`
	Abilities  []string   `db:"-"`
	LastUsedAt *time.Time `db:"last_used_at"`
	ExpiresAt  *time.Time `db:"expires_at"`
	CreatedAt  time.Time  `db:"created_at"`
}

// Can reports whether the token was issued with capability.
func (t *Token) Can(capability string) bool {
	return t != nil && slices.Contains(t.Abilities, capability)
}

// Expired reports whether the token has an expiry in the past.
func (t *Token) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && !t.ExpiresAt.After(now)
}

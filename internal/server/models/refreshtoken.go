package models

import "time"

// RefreshToken is a stored refresh token row. Rows are created at login and
// only ever deleted, never updated.
type RefreshToken struct {
	ID        string
	AccountID string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsExpired treats the expiry instant itself as expired.
func (t *RefreshToken) IsExpired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}

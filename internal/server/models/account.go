// Package models contains the server-side domain records persisted by the
// repositories.
package models

import "time"

// Account is a registered user. PasswordHash and the token fields never
// leave the server; use View for outward representations.
type Account struct {
	ID           string
	Email        string
	PasswordHash string
	IsVerified   bool

	VerificationToken        *string
	VerificationTokenExpires *time.Time

	ResetPasswordToken   *string
	ResetPasswordExpires *time.Time

	FailedLoginAttempts int
	LockedUntil         *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsLocked reports whether the lockout window is still open at now.
func (a *Account) IsLocked(now time.Time) bool {
	return a.LockedUntil != nil && a.LockedUntil.After(now)
}

// LockRemaining is the time left until the lock lifts, zero when unlocked.
func (a *Account) LockRemaining(now time.Time) time.Duration {
	if !a.IsLocked(now) {
		return 0
	}
	return a.LockedUntil.Sub(now)
}

// HasLoginFailures reports whether a successful login has state to reset.
func (a *Account) HasLoginFailures() bool {
	return a.FailedLoginAttempts > 0 || a.LockedUntil != nil
}

// View returns the public projection of the account.
func (a *Account) View() *AccountView {
	return &AccountView{
		ID:         a.ID,
		Email:      a.Email,
		IsVerified: a.IsVerified,
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
}

// AccountView is the account as exposed to callers.
type AccountView struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	IsVerified bool      `json:"is_verified"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

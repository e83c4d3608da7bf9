// Package common defines shared constants and sentinel errors used across
// client and server layers. Callers should use errors.Is to match these
// values.
package common

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")

	// Input validation.
	ErrValidation = errors.New("validation failed")

	// Account errors.
	ErrDuplicateEmail           = errors.New("email already registered")
	ErrInvalidCredentials       = errors.New("invalid credentials")
	ErrAccountLocked            = errors.New("account locked")
	ErrEmailNotVerified         = errors.New("email not verified")
	ErrAccountNotFound          = errors.New("account not found")
	ErrInvalidVerificationToken = errors.New("invalid verification token")
	ErrHashing                  = errors.New("password hashing failed")

	// Throttling.
	ErrRateLimited = errors.New("too many requests")

	// Session errors.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrInvalidAccessToken  = errors.New("invalid access token")

	// Token verification errors (malformed, bad signature or expired).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// AccountLockedError is returned by login while the lockout window is open.
// It matches ErrAccountLocked under errors.Is.
type AccountLockedError struct {
	Remaining time.Duration
}

func (e *AccountLockedError) Error() string {
	return fmt.Sprintf("%s: try again in %d minute(s)", ErrAccountLocked.Error(), e.RemainingMinutes())
}

func (e *AccountLockedError) Is(target error) bool {
	return target == ErrAccountLocked
}

// RemainingMinutes rounds the remaining lock time up to whole minutes.
func (e *AccountLockedError) RemainingMinutes() int {
	if e.Remaining <= 0 {
		return 0
	}
	return int(math.Ceil(e.Remaining.Minutes()))
}

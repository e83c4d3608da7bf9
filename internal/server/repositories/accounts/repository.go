// Package accounts declares the account store contract and its SQL
// implementations.
package accounts

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// Repository persists accounts. Lookups of absent rows return
// common.ErrorNotFound; inserting an email that already exists returns
// common.ErrDuplicateEmail.
type Repository interface {
	// Create inserts a new account. ID and timestamps are supplied by the caller.
	Create(ctx context.Context, account *models.Account) error

	FindByID(ctx context.Context, id string) (*models.Account, error)
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	FindByVerificationToken(ctx context.Context, token string) (*models.Account, error)

	// Save overwrites every mutable column of an existing account.
	Save(ctx context.Context, account *models.Account) error

	// Delete removes the account; its refresh tokens go with it.
	Delete(ctx context.Context, id string) error

	// RecordLoginFailure atomically increments the failure counter and sets
	// locked_until to lockUntil once the new count reaches threshold. It
	// returns the counter and lock as stored after the update.
	RecordLoginFailure(ctx context.Context, id string, threshold int, lockUntil, now time.Time) (int, *time.Time, error)

	// ResetLoginFailures zeroes the counter and clears any lock.
	ResetLoginFailures(ctx context.Context, id string, now time.Time) error
}

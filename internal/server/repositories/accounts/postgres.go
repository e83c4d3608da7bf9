package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

const accountColumns = `id, email, password_hash, is_verified,
		verification_token, verification_token_expires,
		reset_password_token, reset_password_expires,
		failed_login_attempts, locked_until, created_at, updated_at`

// PostgresRepository implements Repository over dbx.DBTX (satisfied by
// *sql.DB or *sql.Tx) using the pgx stdlib driver.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, a *models.Account) error {
	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.Email, a.PasswordHash, a.IsVerified,
		a.VerificationToken, a.VerificationTokenExpires,
		a.ResetPasswordToken, a.ResetPasswordExpires,
		a.FailedLoginAttempts, a.LockedUntil, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		if isPgUniqueViolation(err) {
			return common.ErrDuplicateEmail
		}
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*models.Account, error) {
	return r.findOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
}

func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	return r.findOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email)
}

func (r *PostgresRepository) FindByVerificationToken(ctx context.Context, token string) (*models.Account, error) {
	return r.findOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE verification_token = $1`, token)
}

func (r *PostgresRepository) Save(ctx context.Context, a *models.Account) error {
	query := `
		UPDATE accounts
		SET email = $2, password_hash = $3, is_verified = $4,
			verification_token = $5, verification_token_expires = $6,
			reset_password_token = $7, reset_password_expires = $8,
			failed_login_attempts = $9, locked_until = $10, updated_at = $11
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query,
		a.ID, a.Email, a.PasswordHash, a.IsVerified,
		a.VerificationToken, a.VerificationTokenExpires,
		a.ResetPasswordToken, a.ResetPasswordExpires,
		a.FailedLoginAttempts, a.LockedUntil, a.UpdatedAt)
	if err != nil {
		if isPgUniqueViolation(err) {
			return common.ErrDuplicateEmail
		}
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res)
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res)
}

func (r *PostgresRepository) RecordLoginFailure(ctx context.Context, id string, threshold int, lockUntil, now time.Time) (int, *time.Time, error) {
	query := `
		UPDATE accounts
		SET failed_login_attempts = failed_login_attempts + 1,
			locked_until = CASE WHEN failed_login_attempts + 1 >= $2 THEN $3 ELSE locked_until END,
			updated_at = $4
		WHERE id = $1
		RETURNING failed_login_attempts, locked_until
	`
	var (
		attempts int
		locked   sql.NullTime
	)
	if err := r.db.QueryRowContext(ctx, query, id, threshold, lockUntil, now).Scan(&attempts, &locked); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil, common.ErrorNotFound
		}
		return 0, nil, fmt.Errorf("db error: %w", err)
	}
	return attempts, nullTimePtr(locked), nil
}

func (r *PostgresRepository) ResetLoginFailures(ctx context.Context, id string, now time.Time) error {
	query := `
		UPDATE accounts
		SET failed_login_attempts = 0, locked_until = NULL, updated_at = $2
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, id, now)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res)
}

func (r *PostgresRepository) findOne(ctx context.Context, query string, arg any) (*models.Account, error) {
	var (
		a                                   models.Account
		verifyToken, resetToken             sql.NullString
		verifyExpires, resetExpires, locked sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&a.ID, &a.Email, &a.PasswordHash, &a.IsVerified,
		&verifyToken, &verifyExpires,
		&resetToken, &resetExpires,
		&a.FailedLoginAttempts, &locked, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	a.VerificationToken = nullStringPtr(verifyToken)
	a.VerificationTokenExpires = nullTimePtr(verifyExpires)
	a.ResetPasswordToken = nullStringPtr(resetToken)
	a.ResetPasswordExpires = nullTimePtr(resetExpires)
	a.LockedUntil = nullTimePtr(locked)
	return &a, nil
}

func isPgUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func nullStringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullTimePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

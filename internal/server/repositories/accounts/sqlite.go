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
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// SQLiteRepository implements Repository for modernc.org/sqlite. Instants
// are stored as UTC unix milliseconds.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Create(ctx context.Context, a *models.Account) error {
	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.Email, a.PasswordHash, a.IsVerified,
		nullString(a.VerificationToken), millisPtr(a.VerificationTokenExpires),
		nullString(a.ResetPasswordToken), millisPtr(a.ResetPasswordExpires),
		a.FailedLoginAttempts, millisPtr(a.LockedUntil), toMillis(a.CreatedAt), toMillis(a.UpdatedAt))
	if err != nil {
		if isSQLiteUniqueViolation(err) {
			return common.ErrDuplicateEmail
		}
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) FindByID(ctx context.Context, id string) (*models.Account, error) {
	return r.findOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
}

func (r *SQLiteRepository) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	return r.findOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = ?`, email)
}

func (r *SQLiteRepository) FindByVerificationToken(ctx context.Context, token string) (*models.Account, error) {
	return r.findOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE verification_token = ?`, token)
}

func (r *SQLiteRepository) Save(ctx context.Context, a *models.Account) error {
	query := `
		UPDATE accounts
		SET email = ?, password_hash = ?, is_verified = ?,
			verification_token = ?, verification_token_expires = ?,
			reset_password_token = ?, reset_password_expires = ?,
			failed_login_attempts = ?, locked_until = ?, updated_at = ?
		WHERE id = ?
	`
	res, err := r.db.ExecContext(ctx, query,
		a.Email, a.PasswordHash, a.IsVerified,
		nullString(a.VerificationToken), millisPtr(a.VerificationTokenExpires),
		nullString(a.ResetPasswordToken), millisPtr(a.ResetPasswordExpires),
		a.FailedLoginAttempts, millisPtr(a.LockedUntil), toMillis(a.UpdatedAt),
		a.ID)
	if err != nil {
		if isSQLiteUniqueViolation(err) {
			return common.ErrDuplicateEmail
		}
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res)
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res)
}

func (r *SQLiteRepository) RecordLoginFailure(ctx context.Context, id string, threshold int, lockUntil, now time.Time) (int, *time.Time, error) {
	query := `
		UPDATE accounts
		SET failed_login_attempts = failed_login_attempts + 1,
			locked_until = CASE WHEN failed_login_attempts + 1 >= ? THEN ? ELSE locked_until END,
			updated_at = ?
		WHERE id = ?
		RETURNING failed_login_attempts, locked_until
	`
	var (
		attempts int
		locked   sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx, query, threshold, toMillis(lockUntil), toMillis(now), id).Scan(&attempts, &locked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil, common.ErrorNotFound
		}
		return 0, nil, fmt.Errorf("db error: %w", err)
	}
	return attempts, fromNullMillis(locked), nil
}

func (r *SQLiteRepository) ResetLoginFailures(ctx context.Context, id string, now time.Time) error {
	query := `
		UPDATE accounts
		SET failed_login_attempts = 0, locked_until = NULL, updated_at = ?
		WHERE id = ?
	`
	res, err := r.db.ExecContext(ctx, query, toMillis(now), id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res)
}

func (r *SQLiteRepository) findOne(ctx context.Context, query string, arg any) (*models.Account, error) {
	var (
		a                                   models.Account
		verifyToken, resetToken             sql.NullString
		verifyExpires, resetExpires, locked sql.NullInt64
		createdAt, updatedAt                int64
	)
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&a.ID, &a.Email, &a.PasswordHash, &a.IsVerified,
		&verifyToken, &verifyExpires,
		&resetToken, &resetExpires,
		&a.FailedLoginAttempts, &locked, &createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	a.VerificationToken = nullStringPtr(verifyToken)
	a.VerificationTokenExpires = fromNullMillis(verifyExpires)
	a.ResetPasswordToken = nullStringPtr(resetToken)
	a.ResetPasswordExpires = fromNullMillis(resetExpires)
	a.LockedUntil = fromNullMillis(locked)
	a.CreatedAt = fromMillis(createdAt)
	a.UpdatedAt = fromMillis(updatedAt)
	return &a, nil
}

func isSQLiteUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code() == sqlite3lib.SQLITE_CONSTRAINT_UNIQUE
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

func millisPtr(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMillis(*t), Valid: true}
}

func fromNullMillis(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := fromMillis(v.Int64)
	return &t
}

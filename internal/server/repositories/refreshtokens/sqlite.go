package refreshtokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// SQLiteRepository implements Repository for modernc.org/sqlite with
// instants stored as UTC unix milliseconds.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Create(ctx context.Context, t *models.RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (id, account_id, token, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query, t.ID, t.AccountID, t.Token, t.ExpiresAt.UTC().UnixMilli(), t.CreatedAt.UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	query := `
		SELECT id, account_id, token, expires_at, created_at
		FROM refresh_tokens
		WHERE token = ?
	`
	var (
		t                    models.RefreshToken
		expiresAt, createdAt int64
	)
	err := r.db.QueryRowContext(ctx, query, token).Scan(&t.ID, &t.AccountID, &t.Token, &expiresAt, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	t.ExpiresAt = time.UnixMilli(expiresAt).UTC()
	t.CreatedAt = time.UnixMilli(createdAt).UTC()
	return &t, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, token string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE token = ?`, token); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteAllForAccount(ctx context.Context, accountID string) (int64, error) {
	return execCount(ctx, r.db, `DELETE FROM refresh_tokens WHERE account_id = ?`, accountID)
}

func (r *SQLiteRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return execCount(ctx, r.db, `DELETE FROM refresh_tokens WHERE expires_at <= ?`, now.UTC().UnixMilli())
}

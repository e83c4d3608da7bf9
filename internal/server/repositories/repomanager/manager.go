package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/refreshtokens"
	"github.com/redis/go-redis/v9"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Accounts(db dbx.DBTX) accounts.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
}

// redisTokensManager serves refresh tokens from Redis and delegates the rest.
// The DBTX passed to RefreshTokens is ignored, so token writes do not take
// part in SQL transactions.
type redisTokensManager struct {
	RepositoryManager
	tokens *refreshtokens.RedisRepository
}

func (m *redisTokensManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository {
	return m.tokens
}

// WithRedisRefreshTokens wraps inner so that RefreshTokens is backed by the
// given Redis client.
func WithRedisRefreshTokens(inner RepositoryManager, client *redis.Client) RepositoryManager {
	return &redisTokensManager{
		RepositoryManager: inner,
		tokens:            refreshtokens.NewRedisRepository(client),
	}
}

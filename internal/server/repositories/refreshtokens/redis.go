package refreshtokens

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "refresh"

// RedisRepository keeps refresh tokens in Redis. Each token is a hash that
// Redis expires on its own at ExpiresAt; a per-account set backs
// DeleteAllForAccount and a sorted set of "<account>:<token>" members scored
// by expiry backs DeleteExpired.
type RedisRepository struct {
	client *redis.Client
	prefix string
}

func NewRedisRepository(client *redis.Client) *RedisRepository {
	return &RedisRepository{client: client, prefix: defaultRedisPrefix}
}

func (r *RedisRepository) tokenKey(token string) string {
	return r.prefix + ":token:" + token
}

func (r *RedisRepository) accountKey(accountID string) string {
	return r.prefix + ":account:" + accountID
}

func (r *RedisRepository) expiryKey() string {
	return r.prefix + ":expiry"
}

func expiryMember(accountID, token string) string {
	return accountID + ":" + token
}

func (r *RedisRepository) Create(ctx context.Context, t *models.RefreshToken) error {
	key := r.tokenKey(t.Token)
	expiresAt := t.ExpiresAt.UTC().UnixMilli()

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			"id", t.ID,
			"account_id", t.AccountID,
			"expires_at", expiresAt,
			"created_at", t.CreatedAt.UTC().UnixMilli(),
		)
		pipe.PExpireAt(ctx, key, t.ExpiresAt)
		pipe.SAdd(ctx, r.accountKey(t.AccountID), t.Token)
		pipe.ZAdd(ctx, r.expiryKey(), redis.Z{Score: float64(expiresAt), Member: expiryMember(t.AccountID, t.Token)})
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}

func (r *RedisRepository) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	fields, err := r.client.HGetAll(ctx, r.tokenKey(token)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis error: %w", err)
	}
	if len(fields) == 0 {
		return nil, common.ErrorNotFound
	}

	expiresAt, err := strconv.ParseInt(fields["expires_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt refresh token record: %w", err)
	}
	createdAt, err := strconv.ParseInt(fields["created_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt refresh token record: %w", err)
	}

	return &models.RefreshToken{
		ID:        fields["id"],
		AccountID: fields["account_id"],
		Token:     token,
		ExpiresAt: time.UnixMilli(expiresAt).UTC(),
		CreatedAt: time.UnixMilli(createdAt).UTC(),
	}, nil
}

func (r *RedisRepository) Delete(ctx context.Context, token string) error {
	key := r.tokenKey(token)

	accountID, err := r.client.HGet(ctx, key, "account_id").Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("redis error: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.SRem(ctx, r.accountKey(accountID), token)
		pipe.ZRem(ctx, r.expiryKey(), expiryMember(accountID, token))
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}

func (r *RedisRepository) DeleteAllForAccount(ctx context.Context, accountID string) (int64, error) {
	accountKey := r.accountKey(accountID)

	tokens, err := r.client.SMembers(ctx, accountKey).Result()
	if err != nil {
		return 0, fmt.Errorf("redis error: %w", err)
	}
	if len(tokens) == 0 {
		return 0, nil
	}

	// Only the members read above leave the index; a token created in the
	// meantime stays reachable for the next call.
	members := make([]interface{}, 0, len(tokens))
	dels := make([]*redis.IntCmd, 0, len(tokens))
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, token := range tokens {
			dels = append(dels, pipe.Del(ctx, r.tokenKey(token)))
			pipe.ZRem(ctx, r.expiryKey(), expiryMember(accountID, token))
			members = append(members, token)
		}
		pipe.SRem(ctx, accountKey, members...)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("redis error: %w", err)
	}

	var n int64
	for _, cmd := range dels {
		n += cmd.Val()
	}
	return n, nil
}

func (r *RedisRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	members, err := r.client.ZRangeByScore(ctx, r.expiryKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.UTC().UnixMilli(), 10),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("redis error: %w", err)
	}
	if len(members) == 0 {
		return 0, nil
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, m := range members {
			accountID, token, ok := strings.Cut(m, ":")
			if ok {
				pipe.Del(ctx, r.tokenKey(token))
				pipe.SRem(ctx, r.accountKey(accountID), token)
			}
			pipe.ZRem(ctx, r.expiryKey(), m)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("redis error: %w", err)
	}
	return int64(len(members)), nil
}

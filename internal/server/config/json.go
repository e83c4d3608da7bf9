package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/gophauth/internal/flagx"
	"github.com/dmitrijs2005/gophauth/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Durations accept
// strings such as "30m" or "7d" as well as integer nanoseconds. Pointer
// fields distinguish "absent" from an explicit zero value.
type JsonConfig struct {
	Env                  string          `json:"env"`
	EndpointAddrGRPC     string          `json:"endpoint_addr_grpc"`
	DatabaseDriver       string          `json:"database_driver"`
	DatabaseDSN          string          `json:"database_dsn"`
	AccessTokenSecret    string          `json:"access_token_secret"`
	AccessTokenTTL       *timex.Duration `json:"access_token_ttl"`
	RefreshTokenSecret   string          `json:"refresh_token_secret"`
	RefreshTokenTTL      *timex.Duration `json:"refresh_token_ttl"`
	HashWorkFactor       *int            `json:"hash_work_factor"`
	MaxLoginAttempts     *int            `json:"max_login_attempts"`
	LockoutDuration      *timex.Duration `json:"lockout_duration"`
	VerificationTokenTTL *timex.Duration `json:"verification_token_ttl"`
	RotateRefreshTokens  *bool           `json:"rotate_refresh_tokens"`
	RefreshTokenStore    string          `json:"refresh_token_store"`
	RedisAddr            string          `json:"redis_addr"`
	CleanupInterval      *timex.Duration `json:"cleanup_interval"`

	RateLimitRequests     *int            `json:"rate_limit_requests"`
	RateLimitWindow       *timex.Duration `json:"rate_limit_window"`
	AuthRateLimitRequests *int            `json:"auth_rate_limit_requests"`
	AuthRateLimitWindow   *timex.Duration `json:"auth_rate_limit_window"`
}

// parseJson loads the file named by -c/-config (or $CONFIG) and copies every
// field present in it into config. Without a path it is a no-op.
func parseJson(config *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return err
	}

	setString(&config.Env, c.Env)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDriver, c.DatabaseDriver)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.AccessTokenSecret, c.AccessTokenSecret)
	setString(&config.RefreshTokenSecret, c.RefreshTokenSecret)
	setString(&config.RefreshTokenStore, c.RefreshTokenStore)
	setString(&config.RedisAddr, c.RedisAddr)

	if c.AccessTokenTTL != nil {
		config.AccessTokenTTL = c.AccessTokenTTL.Duration
	}
	if c.RefreshTokenTTL != nil {
		config.RefreshTokenTTL = c.RefreshTokenTTL.Duration
	}
	if c.LockoutDuration != nil {
		config.LockoutDuration = c.LockoutDuration.Duration
	}
	if c.VerificationTokenTTL != nil {
		config.VerificationTokenTTL = c.VerificationTokenTTL.Duration
	}
	if c.CleanupInterval != nil {
		config.CleanupInterval = c.CleanupInterval.Duration
	}
	if c.HashWorkFactor != nil {
		config.HashWorkFactor = *c.HashWorkFactor
	}
	if c.MaxLoginAttempts != nil {
		config.MaxLoginAttempts = *c.MaxLoginAttempts
	}
	if c.RotateRefreshTokens != nil {
		config.RotateRefreshTokens = *c.RotateRefreshTokens
	}
	if c.RateLimitRequests != nil {
		config.RateLimitRequests = *c.RateLimitRequests
	}
	if c.RateLimitWindow != nil {
		config.RateLimitWindow = c.RateLimitWindow.Duration
	}
	if c.AuthRateLimitRequests != nil {
		config.AuthRateLimitRequests = *c.AuthRateLimitRequests
	}
	if c.AuthRateLimitWindow != nil {
		config.AuthRateLimitWindow = c.AuthRateLimitWindow.Duration
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

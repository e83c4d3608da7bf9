package config

import (
	"flag"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/flagx"
	"github.com/dmitrijs2005/gophauth/internal/timex"
)

var knownFlags = []string{
	"-a", "-n", "-g", "-d", "-s", "-r", "-t", "-f", "-w",
	"-m", "-l", "-v", "-o", "-k", "-e", "-i",
}

// parseFlags populates Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string    gRPC bind address (e.g. ":50051")
//	-n string    environment: local, dev or prod
//	-g string    database driver: postgres or sqlite
//	-d string    database DSN
//	-s string    access token secret
//	-r string    refresh token secret
//	-t duration  access token lifetime (e.g. "30m")
//	-f duration  refresh token lifetime (e.g. "7d")
//	-w int       bcrypt work factor
//	-m int       failed attempts before lockout
//	-l duration  lockout duration
//	-v duration  verification token lifetime
//	-o           rotate refresh tokens on use (use -o=false to disable)
//	-k string    refresh token store: sql or redis
//	-e string    redis address
//	-i duration  expired token sweep interval
func parseFlags(config *Config, args []string) error {
	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&config.Env, "n", config.Env, "environment (local, dev, prod)")
	fs.StringVar(&config.DatabaseDriver, "g", config.DatabaseDriver, "database driver (postgres, sqlite)")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.AccessTokenSecret, "s", config.AccessTokenSecret, "access token secret")
	fs.StringVar(&config.RefreshTokenSecret, "r", config.RefreshTokenSecret, "refresh token secret")
	fs.Func("t", "access token lifetime", durationFlag(&config.AccessTokenTTL))
	fs.Func("f", "refresh token lifetime", durationFlag(&config.RefreshTokenTTL))
	fs.IntVar(&config.HashWorkFactor, "w", config.HashWorkFactor, "bcrypt work factor")
	fs.IntVar(&config.MaxLoginAttempts, "m", config.MaxLoginAttempts, "failed login attempts before lockout")
	fs.Func("l", "lockout duration", durationFlag(&config.LockoutDuration))
	fs.Func("v", "verification token lifetime", durationFlag(&config.VerificationTokenTTL))
	fs.BoolVar(&config.RotateRefreshTokens, "o", config.RotateRefreshTokens, "rotate refresh tokens on use")
	fs.StringVar(&config.RefreshTokenStore, "k", config.RefreshTokenStore, "refresh token store (sql, redis)")
	fs.StringVar(&config.RedisAddr, "e", config.RedisAddr, "redis address")
	fs.Func("i", "expired token sweep interval", durationFlag(&config.CleanupInterval))

	return fs.Parse(flagx.FilterArgs(args, knownFlags))
}

func durationFlag(dst *time.Duration) func(string) error {
	return func(s string) error {
		d, err := timex.ParseDuration(s)
		if err != nil {
			return err
		}
		*dst = d
		return nil
	}
}

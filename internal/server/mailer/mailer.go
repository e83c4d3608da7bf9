// Package mailer delivers account e-mails. Only a log-backed sender exists;
// a real transport can be plugged in behind Sender.
package mailer

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/logging"
)

type Sender interface {
	SendVerification(ctx context.Context, email, token string) error
}

// LogSender writes verification e-mails to the log instead of sending mail.
// The token is only logged in full for the local and dev environments;
// elsewhere just a short prefix is kept.
type LogSender struct {
	log          logging.Logger
	revealTokens bool
}

func NewLogSender(log logging.Logger, env string) *LogSender {
	return &LogSender{
		log:          log.With("component", "mailer"),
		revealTokens: env == logging.EnvLocal || env == logging.EnvDev,
	}
}

func (s *LogSender) SendVerification(ctx context.Context, email, token string) error {
	if !s.revealTokens {
		token = redact(token)
	}
	s.log.Info(ctx, "verification email", "email", email, "token", token)
	return nil
}

func redact(token string) string {
	const keep = 4
	if len(token) <= keep {
		return strings.Repeat("*", len(token))
	}
	return token[:keep] + strings.Repeat("*", len(token)-keep)
}

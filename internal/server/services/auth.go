// Package services contains server-side business logic. AuthService
// implements registration, login with lockout, token refresh, logout and
// access token validation on top of the repositories.
package services

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/mailer"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
)

const verificationTokenSize = 32

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

type LoginResult struct {
	Account *models.AccountView
	Tokens  TokenPair
}

// RefreshResult carries the new access token. RefreshToken is set only when
// rotation is enabled and replaces the token that was presented.
type RefreshResult struct {
	AccessToken  string
	RefreshToken string
}

// TokenIssuer mints and verifies session tokens. *auth.Issuer implements it.
type TokenIssuer interface {
	IssueAccessToken(accountID, email string) (string, error)
	IssueRefreshToken(accountID, email string) (string, time.Time, error)
	VerifyAccessToken(token string) (*auth.Payload, error)
	VerifyRefreshToken(token string) (*auth.Payload, error)
}

type Option func(*AuthService)

// WithClock replaces time.Now for every expiry comparison.
func WithClock(now func() time.Time) Option {
	return func(s *AuthService) { s.now = now }
}

func WithLogger(l logging.Logger) Option {
	return func(s *AuthService) { s.log = l }
}

func WithMailer(m mailer.Sender) Option {
	return func(s *AuthService) { s.mailer = m }
}

type AuthService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      auth.Hasher
	issuer      TokenIssuer
	mailer      mailer.Sender
	log         logging.Logger
	now         func() time.Time

	maxLoginAttempts     int
	lockoutDuration      time.Duration
	verificationTokenTTL time.Duration
	rotateRefreshTokens  bool

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService wires the service from its collaborators and the policy
// settings in cfg.
func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, hasher auth.Hasher, issuer TokenIssuer, cfg *config.Config, opts ...Option) *AuthService {
	s := &AuthService{
		db:                   db,
		repomanager:          m,
		hasher:               hasher,
		issuer:               issuer,
		log:                  logging.Nop(),
		now:                  time.Now,
		maxLoginAttempts:     cfg.MaxLoginAttempts,
		lockoutDuration:      cfg.LockoutDuration,
		verificationTokenTTL: cfg.VerificationTokenTTL,
		rotateRefreshTokens:  cfg.RotateRefreshTokens,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("component", "auth")
	return s
}

// Register creates an unverified account and hands its verification token
// to the mailer.
func (s *AuthService) Register(ctx context.Context, email, password string) (*models.AccountView, error) {
	if err := validateRegistration(email, password); err != nil {
		return nil, err
	}

	repo := s.repomanager.Accounts(s.db)

	_, err := repo.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, common.ErrDuplicateEmail
	case !errors.Is(err, common.ErrorNotFound):
		return nil, s.internal(ctx, "error searching account", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		s.log.Error(ctx, "error hashing password", "error", err)
		return nil, err
	}

	verificationToken, err := common.MakeRandHexString(verificationTokenSize)
	if err != nil {
		return nil, s.internal(ctx, "error generating verification token", err)
	}

	now := s.clock()
	verificationExpires := now.Add(s.verificationTokenTTL)
	account := &models.Account{
		ID:                       uuid.NewString(),
		Email:                    email,
		PasswordHash:             hash,
		IsVerified:               false,
		VerificationToken:        &verificationToken,
		VerificationTokenExpires: &verificationExpires,
		FailedLoginAttempts:      0,
		CreatedAt:                now,
		UpdatedAt:                now,
	}

	if err := repo.Create(ctx, account); err != nil {
		if errors.Is(err, common.ErrDuplicateEmail) {
			return nil, common.ErrDuplicateEmail
		}
		return nil, s.internal(ctx, "error creating account", err)
	}

	if s.mailer != nil {
		if err := s.mailer.SendVerification(ctx, account.Email, verificationToken); err != nil {
			s.log.Warn(ctx, "verification email not sent", "account_id", account.ID, "error", err)
		}
	}

	s.log.Info(ctx, "account registered", "account_id", account.ID)
	return account.View(), nil
}

// Login checks the credentials, enforcing lockout, and opens a new session.
// Unknown emails and wrong passwords yield the same error.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	repo := s.repomanager.Accounts(s.db)
	now := s.clock()

	account, err := repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.hasher.Verify(password, s.dummy())
			return nil, common.ErrInvalidCredentials
		}
		return nil, s.internal(ctx, "error searching account", err)
	}

	if account.IsLocked(now) {
		return nil, &common.AccountLockedError{Remaining: account.LockRemaining(now)}
	}

	if !account.IsVerified {
		return nil, common.ErrEmailNotVerified
	}

	if !s.hasher.Verify(password, account.PasswordHash) {
		attempts, lockedUntil, err := repo.RecordLoginFailure(ctx, account.ID, s.maxLoginAttempts, now.Add(s.lockoutDuration), now)
		if err != nil {
			return nil, s.internal(ctx, "error recording login failure", err)
		}
		if attempts >= s.maxLoginAttempts && lockedUntil != nil && lockedUntil.After(now) {
			s.log.Warn(ctx, "account locked", "account_id", account.ID, "until", *lockedUntil)
		}
		return nil, common.ErrInvalidCredentials
	}

	if account.HasLoginFailures() {
		if err := repo.ResetLoginFailures(ctx, account.ID, now); err != nil {
			return nil, s.internal(ctx, "error resetting login failures", err)
		}
		account.FailedLoginAttempts = 0
		account.LockedUntil = nil
		account.UpdatedAt = now
	}

	pair, err := s.openSession(ctx, s.repomanager.RefreshTokens(s.db), account, now)
	if err != nil {
		return nil, err
	}

	return &LoginResult{Account: account.View(), Tokens: *pair}, nil
}

// Refresh exchanges a stored, unexpired refresh token for a new access token.
// Every rejection reason collapses into ErrInvalidRefreshToken.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	payload, err := s.issuer.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil, common.ErrInvalidRefreshToken
	}

	now := s.clock()

	stored, err := s.repomanager.RefreshTokens(s.db).Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidRefreshToken
		}
		return nil, s.internal(ctx, "error searching refresh token", err)
	}
	if stored.IsExpired(now) || stored.AccountID != payload.AccountID {
		return nil, common.ErrInvalidRefreshToken
	}

	account, err := s.repomanager.Accounts(s.db).FindByID(ctx, stored.AccountID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidRefreshToken
		}
		return nil, s.internal(ctx, "error searching account", err)
	}

	if !s.rotateRefreshTokens {
		access, err := s.issuer.IssueAccessToken(account.ID, account.Email)
		if err != nil {
			return nil, s.internal(ctx, "error issuing access token", err)
		}
		return &RefreshResult{AccessToken: access}, nil
	}

	var pair *TokenPair
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repoTx := s.repomanager.RefreshTokens(tx)
		if err := repoTx.Delete(ctx, refreshToken); err != nil {
			return s.internal(ctx, "error deleting refresh token", err)
		}
		var openErr error
		pair, openErr = s.openSession(ctx, repoTx, account, now)
		return openErr
	})
	if err != nil {
		if errors.Is(err, common.ErrorInternal) {
			return nil, err
		}
		return nil, s.internal(ctx, "error rotating refresh token", err)
	}

	return &RefreshResult{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}, nil
}

// Logout ends the session of one refresh token. Unknown and empty tokens are
// accepted silently.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := s.repomanager.RefreshTokens(s.db).Delete(ctx, refreshToken); err != nil {
		return s.internal(ctx, "error deleting refresh token", err)
	}
	return nil
}

// LogoutAllDevices revokes every refresh token of the account.
func (s *AuthService) LogoutAllDevices(ctx context.Context, accountID string) error {
	n, err := s.repomanager.RefreshTokens(s.db).DeleteAllForAccount(ctx, accountID)
	if err != nil {
		return s.internal(ctx, "error deleting refresh tokens", err)
	}
	s.log.Info(ctx, "all sessions closed", "account_id", accountID, "tokens", n)
	return nil
}

// CleanupExpiredTokens deletes refresh tokens whose expiry has passed and
// returns how many went.
func (s *AuthService) CleanupExpiredTokens(ctx context.Context) (int64, error) {
	n, err := s.repomanager.RefreshTokens(s.db).DeleteExpired(ctx, s.clock())
	if err != nil {
		return 0, s.internal(ctx, "error deleting expired refresh tokens", err)
	}
	if n > 0 {
		s.log.Info(ctx, "expired refresh tokens removed", "count", n)
	}
	return n, nil
}

// ValidateAccessToken resolves an access token to the account it was issued
// for.
func (s *AuthService) ValidateAccessToken(ctx context.Context, accessToken string) (*models.AccountView, error) {
	payload, err := s.issuer.VerifyAccessToken(accessToken)
	if err != nil {
		return nil, common.ErrInvalidAccessToken
	}

	account, err := s.repomanager.Accounts(s.db).FindByID(ctx, payload.AccountID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidAccessToken
		}
		return nil, s.internal(ctx, "error searching account", err)
	}
	return account.View(), nil
}

// VerifyEmail marks the account owning token as verified and clears the
// token.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) (*models.AccountView, error) {
	if token == "" {
		return nil, common.ErrInvalidVerificationToken
	}

	repo := s.repomanager.Accounts(s.db)
	now := s.clock()

	account, err := repo.FindByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidVerificationToken
		}
		return nil, s.internal(ctx, "error searching account", err)
	}
	if account.VerificationTokenExpires == nil || !account.VerificationTokenExpires.After(now) {
		return nil, common.ErrInvalidVerificationToken
	}

	account.IsVerified = true
	account.VerificationToken = nil
	account.VerificationTokenExpires = nil
	account.UpdatedAt = now

	if err := repo.Save(ctx, account); err != nil {
		return nil, s.internal(ctx, "error saving account", err)
	}

	s.log.Info(ctx, "email verified", "account_id", account.ID)
	return account.View(), nil
}

// DeleteAccount removes the account together with its sessions.
func (s *AuthService) DeleteAccount(ctx context.Context, accountID string) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.repomanager.RefreshTokens(tx).DeleteAllForAccount(ctx, accountID); err != nil {
			return err
		}
		return s.repomanager.Accounts(tx).Delete(ctx, accountID)
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrAccountNotFound
		}
		return s.internal(ctx, "error deleting account", err)
	}

	s.log.Info(ctx, "account deleted", "account_id", accountID)
	return nil
}

// --- helpers below ---

func (s *AuthService) clock() time.Time {
	return s.now().UTC()
}

// openSession issues a token pair and stores the refresh token through repo.
func (s *AuthService) openSession(ctx context.Context, repo refreshtokens.Repository, account *models.Account, now time.Time) (*TokenPair, error) {
	access, err := s.issuer.IssueAccessToken(account.ID, account.Email)
	if err != nil {
		return nil, s.internal(ctx, "error issuing access token", err)
	}
	refresh, expiresAt, err := s.issuer.IssueRefreshToken(account.ID, account.Email)
	if err != nil {
		return nil, s.internal(ctx, "error issuing refresh token", err)
	}

	err = repo.Create(ctx, &models.RefreshToken{
		ID:        uuid.NewString(),
		AccountID: account.ID,
		Token:     refresh,
		ExpiresAt: expiresAt,
		CreatedAt: now,
	})
	if err != nil {
		return nil, s.internal(ctx, "error storing refresh token", err)
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// dummy returns a hash to compare against when the email is unknown, so the
// response time does not reveal whether the account exists.
func (s *AuthService) dummy() string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash(uuid.NewString())
		if err != nil {
			s.log.Warn(context.Background(), "error building dummy hash", "error", err)
			return
		}
		s.dummyHash = h
	})
	return s.dummyHash
}

// internal logs an infrastructure failure and hides it behind ErrorInternal.
func (s *AuthService) internal(ctx context.Context, msg string, err error) error {
	s.log.Error(ctx, msg, "error", err)
	return common.ErrorInternal
}

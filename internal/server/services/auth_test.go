package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/sqlitetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testPassword = "Aa1!aaaa"

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type captureMailer struct {
	mu     sync.Mutex
	tokens map[string]string
	err    error
}

func (m *captureMailer) SendVerification(_ context.Context, email, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tokens == nil {
		m.tokens = map[string]string{}
	}
	m.tokens[email] = token
	return m.err
}

func (m *captureMailer) token(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokens[email]
}

type testEnv struct {
	svc      *AuthService
	clock    *testClock
	mail     *captureMailer
	issuer   *auth.Issuer
	accounts accounts.Repository
}

func newTestEnv(t *testing.T, mutate ...func(*config.Config)) *testEnv {
	t.Helper()

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.HashWorkFactor = bcrypt.MinCost
	for _, m := range mutate {
		m(cfg)
	}

	db := sqlitetest.Open(t)
	rm := repomanager.NewSQLiteRepositoryManager()

	hasher, err := auth.NewBcryptHasher(cfg.HashWorkFactor)
	require.NoError(t, err)

	clock := &testClock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	issuer, err := auth.NewIssuer(auth.IssuerConfig{
		AccessSecret:  cfg.AccessTokenSecret,
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshSecret: cfg.RefreshTokenSecret,
		RefreshTTL:    cfg.RefreshTokenTTL,
		Now:           clock.Now,
	})
	require.NoError(t, err)

	mail := &captureMailer{}
	svc := NewAuthService(db, rm, hasher, issuer, cfg, WithClock(clock.Now), WithMailer(mail))

	return &testEnv{svc: svc, clock: clock, mail: mail, issuer: issuer, accounts: rm.Accounts(db)}
}

// registerVerified registers email and completes verification with the
// token the mailer received.
func (e *testEnv) registerVerified(t *testing.T, email string) string {
	t.Helper()
	ctx := context.Background()

	view, err := e.svc.Register(ctx, email, testPassword)
	require.NoError(t, err)

	_, err = e.svc.VerifyEmail(ctx, e.mail.token(email))
	require.NoError(t, err)
	return view.ID
}

func (e *testEnv) login(t *testing.T, email string) *LoginResult {
	t.Helper()
	res, err := e.svc.Login(context.Background(), email, testPassword)
	require.NoError(t, err)
	return res
}

func TestRegister_CreatesUnverifiedAccount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	view, err := env.svc.Register(ctx, "a@x.com", testPassword)
	require.NoError(t, err)

	assert.NotEmpty(t, view.ID)
	assert.Equal(t, "a@x.com", view.Email)
	assert.False(t, view.IsVerified)
	assert.True(t, env.clock.Now().Equal(view.CreatedAt))

	stored, err := env.accounts.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Zero(t, stored.FailedLoginAttempts)
	assert.NotEqual(t, testPassword, stored.PasswordHash)
	require.NotNil(t, stored.VerificationToken)
	assert.Equal(t, env.mail.token("a@x.com"), *stored.VerificationToken)
	require.NotNil(t, stored.VerificationTokenExpires)
	assert.True(t, env.clock.Now().Add(24*time.Hour).Equal(*stored.VerificationTokenExpires))
}

func TestRegister_Validation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"empty email", "", testPassword},
		{"malformed email", "not-an-email", testPassword},
		{"short password", "a@x.com", "Aa1!aaa"},
		{"no upper case", "a@x.com", "aa1!aaaa"},
		{"no lower case", "a@x.com", "AA1!AAAA"},
		{"no digit", "a@x.com", "Aaa!aaaa"},
		{"no special", "a@x.com", "Aa1aaaaa"},
		{"longer than bcrypt input", "a@x.com", "Aa1!" + strings.Repeat("a", 69)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.Register(context.Background(), tt.email, tt.password)
			assert.ErrorIs(t, err, common.ErrValidation)
		})
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Register(ctx, "a@x.com", testPassword)
	require.NoError(t, err)

	_, err = env.svc.Register(ctx, "a@x.com", "Bb2@bbbb")
	assert.ErrorIs(t, err, common.ErrDuplicateEmail)
}

func TestRegister_ConcurrentSameEmail(t *testing.T) {
	env := newTestEnv(t)

	const n = 5
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.svc.Register(context.Background(), "race@x.com", testPassword)
		}(i)
	}
	wg.Wait()

	var ok, dup int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, common.ErrDuplicateEmail):
			dup++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, dup)
}

func TestLogin_RequiresVerification(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	view, err := env.svc.Register(ctx, "a@x.com", testPassword)
	require.NoError(t, err)
	assert.False(t, view.IsVerified)

	_, err = env.svc.Login(ctx, "a@x.com", testPassword)
	assert.ErrorIs(t, err, common.ErrEmailNotVerified)

	verified, err := env.svc.VerifyEmail(ctx, env.mail.token("a@x.com"))
	require.NoError(t, err)
	assert.True(t, verified.IsVerified)

	res := env.login(t, "a@x.com")
	assert.NotEmpty(t, res.Tokens.AccessToken)
	assert.NotEmpty(t, res.Tokens.RefreshToken)
	assert.True(t, res.Account.IsVerified)
}

func TestLogin_InvalidCredentialsDoNotRevealAccount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerVerified(t, "a@x.com")

	_, errUnknown := env.svc.Login(ctx, "nobody@x.com", testPassword)
	_, errWrong := env.svc.Login(ctx, "a@x.com", "Wrong1!pass")

	assert.ErrorIs(t, errUnknown, common.ErrInvalidCredentials)
	assert.ErrorIs(t, errWrong, common.ErrInvalidCredentials)
	assert.Equal(t, errUnknown.Error(), errWrong.Error())
}

func TestLogin_LockoutAndRecovery(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerVerified(t, "a@x.com")

	for i := 0; i < 5; i++ {
		_, err := env.svc.Login(ctx, "a@x.com", "Wrong1!pass")
		require.ErrorIs(t, err, common.ErrInvalidCredentials, "attempt %d", i+1)
	}

	_, err := env.svc.Login(ctx, "a@x.com", testPassword)
	require.ErrorIs(t, err, common.ErrAccountLocked)
	var locked *common.AccountLockedError
	require.ErrorAs(t, err, &locked)
	assert.Equal(t, 15*time.Minute, locked.Remaining)

	env.clock.Advance(14 * time.Minute)
	_, err = env.svc.Login(ctx, "a@x.com", testPassword)
	require.ErrorAs(t, err, &locked)
	assert.Equal(t, 1, locked.RemainingMinutes())

	env.clock.Advance(time.Minute)
	res, err := env.svc.Login(ctx, "a@x.com", testPassword)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Tokens.AccessToken)

	stored, err := env.accounts.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Zero(t, stored.FailedLoginAttempts)
	assert.Nil(t, stored.LockedUntil)
}

func TestLogin_FailuresBelowThresholdResetOnSuccess(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerVerified(t, "a@x.com")

	for i := 0; i < 4; i++ {
		_, _ = env.svc.Login(ctx, "a@x.com", "Wrong1!pass")
	}
	env.login(t, "a@x.com")

	for i := 0; i < 4; i++ {
		_, err := env.svc.Login(ctx, "a@x.com", "Wrong1!pass")
		require.ErrorIs(t, err, common.ErrInvalidCredentials)
	}
	env.login(t, "a@x.com")
}

func TestLogin_ConcurrentFailuresAreCounted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerVerified(t, "a@x.com")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = env.svc.Login(ctx, "a@x.com", "Wrong1!pass")
		}()
	}
	wg.Wait()

	stored, err := env.accounts.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, stored.FailedLoginAttempts, 5)
	assert.True(t, stored.IsLocked(env.clock.Now()))
}

func TestLoginThenValidateAndRefresh(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.registerVerified(t, "a@x.com")

	res := env.login(t, "a@x.com")

	view, err := env.svc.ValidateAccessToken(ctx, res.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, id, view.ID)

	env.clock.Advance(time.Minute)
	refreshed, err := env.svc.Refresh(ctx, res.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.Empty(t, refreshed.RefreshToken, "refresh token is not rotated by default")

	view, err = env.svc.ValidateAccessToken(ctx, refreshed.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, id, view.ID)

	_, err = env.svc.Refresh(ctx, res.Tokens.RefreshToken)
	require.NoError(t, err, "same refresh token stays usable")
}

func TestRefresh_Rotation(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) { c.RotateRefreshTokens = true })
	ctx := context.Background()
	env.registerVerified(t, "a@x.com")

	res := env.login(t, "a@x.com")

	rotated, err := env.svc.Refresh(ctx, res.Tokens.RefreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, rotated.RefreshToken)
	assert.NotEqual(t, res.Tokens.RefreshToken, rotated.RefreshToken)

	_, err = env.svc.Refresh(ctx, res.Tokens.RefreshToken)
	assert.ErrorIs(t, err, common.ErrInvalidRefreshToken)

	_, err = env.svc.Refresh(ctx, rotated.RefreshToken)
	require.NoError(t, err)
}

func TestRefresh_Rejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.registerVerified(t, "a@x.com")
	res := env.login(t, "a@x.com")

	neverStored, _, err := env.issuer.IssueRefreshToken(id, "a@x.com")
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"empty", ""},
		{"access token", res.Tokens.AccessToken},
		{"never issued", neverStored},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.Refresh(ctx, tt.token)
			assert.ErrorIs(t, err, common.ErrInvalidRefreshToken)
		})
	}
}

func TestRefresh_ExpiredAtBoundary(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerVerified(t, "a@x.com")
	res := env.login(t, "a@x.com")

	env.clock.Advance(7*24*time.Hour - time.Second)
	_, err := env.svc.Refresh(ctx, res.Tokens.RefreshToken)
	require.NoError(t, err)

	env.clock.Advance(time.Second)
	_, err = env.svc.Refresh(ctx, res.Tokens.RefreshToken)
	assert.ErrorIs(t, err, common.ErrInvalidRefreshToken)
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerVerified(t, "a@x.com")
	res := env.login(t, "a@x.com")

	require.NoError(t, env.svc.Logout(ctx, ""))
	require.NoError(t, env.svc.Logout(ctx, res.Tokens.RefreshToken))
	require.NoError(t, env.svc.Logout(ctx, res.Tokens.RefreshToken), "logout is idempotent")

	_, err := env.svc.Refresh(ctx, res.Tokens.RefreshToken)
	assert.ErrorIs(t, err, common.ErrInvalidRefreshToken)
}

func TestLogoutAllDevices(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.registerVerified(t, "a@x.com")
	env.registerVerified(t, "b@x.com")

	var sessions []string
	for i := 0; i < 3; i++ {
		sessions = append(sessions, env.login(t, "a@x.com").Tokens.RefreshToken)
	}
	other := env.login(t, "b@x.com").Tokens.RefreshToken

	require.NoError(t, env.svc.LogoutAllDevices(ctx, id))

	for _, tok := range sessions {
		_, err := env.svc.Refresh(ctx, tok)
		assert.ErrorIs(t, err, common.ErrInvalidRefreshToken)
	}
	_, err := env.svc.Refresh(ctx, other)
	assert.NoError(t, err)
}

func TestCleanupExpiredTokens(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerVerified(t, "a@x.com")

	env.login(t, "a@x.com")
	env.login(t, "a@x.com")
	env.clock.Advance(time.Hour)
	fresh := env.login(t, "a@x.com")

	n, err := env.svc.CleanupExpiredTokens(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	env.clock.Advance(7*24*time.Hour - time.Hour)
	n, err = env.svc.CleanupExpiredTokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = env.svc.CleanupExpiredTokens(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = env.svc.Refresh(ctx, fresh.Tokens.RefreshToken)
	assert.NoError(t, err)
}

func TestValidateAccessToken_Rejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.registerVerified(t, "a@x.com")
	res := env.login(t, "a@x.com")

	_, err := env.svc.ValidateAccessToken(ctx, "garbage")
	assert.ErrorIs(t, err, common.ErrInvalidAccessToken)

	_, err = env.svc.ValidateAccessToken(ctx, res.Tokens.RefreshToken)
	assert.ErrorIs(t, err, common.ErrInvalidAccessToken)

	env.clock.Advance(30 * time.Minute)
	_, err = env.svc.ValidateAccessToken(ctx, res.Tokens.AccessToken)
	assert.ErrorIs(t, err, common.ErrInvalidAccessToken, "expired")

	fresh := env.login(t, "a@x.com")
	require.NoError(t, env.svc.DeleteAccount(ctx, id))
	_, err = env.svc.ValidateAccessToken(ctx, fresh.Tokens.AccessToken)
	assert.ErrorIs(t, err, common.ErrInvalidAccessToken, "account gone")
}

func TestVerifyEmail_Rejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Register(ctx, "a@x.com", testPassword)
	require.NoError(t, err)
	token := env.mail.token("a@x.com")

	_, err = env.svc.VerifyEmail(ctx, "")
	assert.ErrorIs(t, err, common.ErrInvalidVerificationToken)
	_, err = env.svc.VerifyEmail(ctx, "unknown")
	assert.ErrorIs(t, err, common.ErrInvalidVerificationToken)

	env.clock.Advance(24 * time.Hour)
	_, err = env.svc.VerifyEmail(ctx, token)
	assert.ErrorIs(t, err, common.ErrInvalidVerificationToken, "expired at the boundary")
}

func TestVerifyEmail_ConsumesToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Register(ctx, "a@x.com", testPassword)
	require.NoError(t, err)
	token := env.mail.token("a@x.com")

	_, err = env.svc.VerifyEmail(ctx, token)
	require.NoError(t, err)

	_, err = env.svc.VerifyEmail(ctx, token)
	assert.ErrorIs(t, err, common.ErrInvalidVerificationToken)

	stored, err := env.accounts.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.True(t, stored.IsVerified)
	assert.Nil(t, stored.VerificationToken)
	assert.Nil(t, stored.VerificationTokenExpires)
}

func TestDeleteAccount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.registerVerified(t, "a@x.com")
	res := env.login(t, "a@x.com")

	require.NoError(t, env.svc.DeleteAccount(ctx, id))

	_, err := env.svc.Refresh(ctx, res.Tokens.RefreshToken)
	assert.ErrorIs(t, err, common.ErrInvalidRefreshToken)

	err = env.svc.DeleteAccount(ctx, id)
	assert.ErrorIs(t, err, common.ErrAccountNotFound)

	_, err = env.svc.Register(ctx, "a@x.com", testPassword)
	assert.NoError(t, err, "email is free again")
}

func TestRegister_MailerFailureIsNotFatal(t *testing.T) {
	env := newTestEnv(t)
	env.mail.err = errors.New("smtp down")

	view, err := env.svc.Register(context.Background(), "a@x.com", testPassword)
	require.NoError(t, err)
	assert.NotEmpty(t, view.ID)
}

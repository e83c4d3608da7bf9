package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims is the JWT body for both token kinds: the account id travels in
// "sub", the email in a private claim.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Payload is what a verified token says about its holder.
type Payload struct {
	AccountID string
	Email     string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// IssuerConfig configures an Issuer. Now defaults to time.Now.
type IssuerConfig struct {
	AccessSecret  string
	AccessTTL     time.Duration
	RefreshSecret string
	RefreshTTL    time.Duration
	Now           func() time.Time
}

// Issuer mints and verifies HS256 access and refresh tokens. The two kinds
// are signed with different secrets, so one never verifies as the other.
type Issuer struct {
	accessSecret  []byte
	accessTTL     time.Duration
	refreshSecret []byte
	refreshTTL    time.Duration
	now           func() time.Time
}

func NewIssuer(cfg IssuerConfig) (*Issuer, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, errors.New("token secrets must not be empty")
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, errors.New("access and refresh secrets must differ")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("token lifetimes must be positive")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Issuer{
		accessSecret:  []byte(cfg.AccessSecret),
		accessTTL:     cfg.AccessTTL,
		refreshSecret: []byte(cfg.RefreshSecret),
		refreshTTL:    cfg.RefreshTTL,
		now:           now,
	}, nil
}

// IssueAccessToken returns a signed short-lived token for the account.
func (i *Issuer) IssueAccessToken(accountID, email string) (string, error) {
	token, _, err := i.sign(accountID, email, i.accessSecret, i.accessTTL)
	return token, err
}

// IssueRefreshToken returns a signed long-lived token and the expiry written
// into it, so the stored row can carry the same instant.
func (i *Issuer) IssueRefreshToken(accountID, email string) (string, time.Time, error) {
	return i.sign(accountID, email, i.refreshSecret, i.refreshTTL)
}

func (i *Issuer) VerifyAccessToken(token string) (*Payload, error) {
	return i.verify(token, i.accessSecret)
}

func (i *Issuer) VerifyRefreshToken(token string) (*Payload, error) {
	return i.verify(token, i.refreshSecret)
}

func (i *Issuer) sign(accountID, email string, secret []byte, ttl time.Duration) (string, time.Time, error) {
	now := i.now()
	issuedAt := jwt.NewNumericDate(now)
	expiresAt := jwt.NewNumericDate(now.Add(ttl))

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			ID:        uuid.NewString(),
			IssuedAt:  issuedAt,
			ExpiresAt: expiresAt,
		},
	})

	signed, err := token.SignedString(secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt.Time, nil
}

func (i *Issuer) verify(tokenString string, secret []byte) (*Payload, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, common.ErrInvalidToken
	}

	p := &Payload{
		AccountID: claims.Subject,
		Email:     claims.Email,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		p.IssuedAt = claims.IssuedAt.Time
	}
	return p, nil
}

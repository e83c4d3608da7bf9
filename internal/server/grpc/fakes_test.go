package grpc

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
)

type fakeAccounts struct {
	view    *models.AccountView
	viewErr error

	login    *services.LoginResult
	loginErr error

	refresh    *services.RefreshResult
	refreshErr error

	validate    *models.AccountView
	validateErr error

	logoutErr    error
	logoutAllErr error
	deleteErr    error

	gotEmail, gotPassword, gotToken, gotAccountID string
}

func (f *fakeAccounts) Register(_ context.Context, email, password string) (*models.AccountView, error) {
	f.gotEmail, f.gotPassword = email, password
	return f.view, f.viewErr
}

func (f *fakeAccounts) Login(_ context.Context, email, password string) (*services.LoginResult, error) {
	f.gotEmail, f.gotPassword = email, password
	return f.login, f.loginErr
}

func (f *fakeAccounts) Refresh(_ context.Context, token string) (*services.RefreshResult, error) {
	f.gotToken = token
	return f.refresh, f.refreshErr
}

func (f *fakeAccounts) Logout(_ context.Context, token string) error {
	f.gotToken = token
	return f.logoutErr
}

func (f *fakeAccounts) LogoutAllDevices(_ context.Context, accountID string) error {
	f.gotAccountID = accountID
	return f.logoutAllErr
}

func (f *fakeAccounts) ValidateAccessToken(_ context.Context, token string) (*models.AccountView, error) {
	f.gotToken = token
	return f.validate, f.validateErr
}

func (f *fakeAccounts) VerifyEmail(_ context.Context, token string) (*models.AccountView, error) {
	f.gotToken = token
	return f.view, f.viewErr
}

func (f *fakeAccounts) DeleteAccount(_ context.Context, accountID string) error {
	f.gotAccountID = accountID
	return f.deleteErr
}

package grpc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/dmitrijs2005/gophauth/internal/common"
	pb "github.com/dmitrijs2005/gophauth/internal/proto"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
)

func newClient(t *testing.T, f *fakeAccounts) pb.AccountServiceClient {
	t.Helper()
	return pb.NewAccountServiceClient(startBufconn(t, NewGRPCServer("", nopLogger{}, f)))
}

func testView() *models.AccountView {
	at := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	return &models.AccountView{ID: "acc-1", Email: "a@x.com", CreatedAt: at, UpdatedAt: at}
}

func TestRegister_OK(t *testing.T) {
	f := &fakeAccounts{view: testView()}
	c := newClient(t, f)

	req, err := pb.EncodeCredentials("a@x.com", "Aa1!aaaa")
	require.NoError(t, err)

	resp, err := c.Register(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", f.gotEmail)
	assert.Equal(t, "Aa1!aaaa", f.gotPassword)

	acc, err := pb.DecodeAccount(resp)
	require.NoError(t, err)
	assert.Equal(t, "acc-1", acc.ID)
	assert.False(t, acc.IsVerified)
	_, leaked := resp.GetFields()["password_hash"]
	assert.False(t, leaked)
}

func TestRegister_Duplicate(t *testing.T) {
	c := newClient(t, &fakeAccounts{viewErr: common.ErrDuplicateEmail})

	req, _ := pb.EncodeCredentials("a@x.com", "Aa1!aaaa")
	_, err := c.Register(context.Background(), req)
	assert.Equal(t, codes.AlreadyExists, status.Code(err))
}

func TestLogin_OK(t *testing.T) {
	f := &fakeAccounts{login: &services.LoginResult{
		Account: testView(),
		Tokens:  services.TokenPair{AccessToken: "a", RefreshToken: "r"},
	}}
	c := newClient(t, f)

	req, _ := pb.EncodeCredentials("a@x.com", "pw")
	resp, err := c.Login(context.Background(), req)
	require.NoError(t, err)

	session, err := pb.DecodeSession(resp)
	require.NoError(t, err)
	assert.Equal(t, "a", session.AccessToken)
	assert.Equal(t, "r", session.RefreshToken)
	require.NotNil(t, session.Account)
	assert.Equal(t, "acc-1", session.Account.ID)
}

func TestLogin_Locked(t *testing.T) {
	c := newClient(t, &fakeAccounts{loginErr: &common.AccountLockedError{Remaining: 15 * time.Minute}})

	req, _ := pb.EncodeCredentials("a@x.com", "pw")
	_, err := c.Login(context.Background(), req)

	st := status.Convert(err)
	assert.Equal(t, codes.PermissionDenied, st.Code())
	assert.Contains(t, st.Message(), "15 minute")
}

func TestRefresh(t *testing.T) {
	f := &fakeAccounts{refresh: &services.RefreshResult{AccessToken: "new"}}
	c := newClient(t, f)

	resp, err := c.Refresh(context.Background(), wrapperspb.String("r0"))
	require.NoError(t, err)
	assert.Equal(t, "r0", f.gotToken)

	session, err := pb.DecodeSession(resp)
	require.NoError(t, err)
	assert.Equal(t, "new", session.AccessToken)
	assert.Empty(t, session.RefreshToken)

	f.refreshErr = common.ErrInvalidRefreshToken
	_, err = c.Refresh(context.Background(), wrapperspb.String("r0"))
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestLogout(t *testing.T) {
	f := &fakeAccounts{}
	c := newClient(t, f)

	_, err := c.Logout(context.Background(), wrapperspb.String("r0"))
	require.NoError(t, err)
	assert.Equal(t, "r0", f.gotToken)
}

func TestLogoutAll_RequiresToken(t *testing.T) {
	f := &fakeAccounts{validate: testView()}
	c := newClient(t, f)

	_, err := c.LogoutAll(context.Background(), &emptypb.Empty{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
	assert.Empty(t, f.gotAccountID)

	ctx := metadata.AppendToOutgoingContext(context.Background(), common.AccessTokenHeaderName, "tok")
	_, err = c.LogoutAll(ctx, &emptypb.Empty{})
	require.NoError(t, err)
	assert.Equal(t, "acc-1", f.gotAccountID)
}

func TestDeleteAccount(t *testing.T) {
	f := &fakeAccounts{validate: testView(), deleteErr: common.ErrAccountNotFound}
	c := newClient(t, f)

	ctx := metadata.AppendToOutgoingContext(context.Background(), common.AuthorizationHeaderName, "Bearer tok")
	_, err := c.DeleteAccount(ctx, &emptypb.Empty{})
	assert.Equal(t, codes.NotFound, status.Code(err))
	assert.Equal(t, "acc-1", f.gotAccountID)
}

func TestValidateAccessToken(t *testing.T) {
	f := &fakeAccounts{validate: testView()}
	c := newClient(t, f)

	resp, err := c.ValidateAccessToken(context.Background(), wrapperspb.String("tok"))
	require.NoError(t, err)
	acc, err := pb.DecodeAccount(resp)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", acc.Email)

	f.validateErr = common.ErrInvalidAccessToken
	_, err = c.ValidateAccessToken(context.Background(), wrapperspb.String("tok"))
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestVerifyEmail(t *testing.T) {
	v := testView()
	v.IsVerified = true
	f := &fakeAccounts{view: v}
	c := newClient(t, f)

	resp, err := c.VerifyEmail(context.Background(), wrapperspb.String("vt"))
	require.NoError(t, err)
	assert.Equal(t, "vt", f.gotToken)

	acc, err := pb.DecodeAccount(resp)
	require.NoError(t, err)
	assert.True(t, acc.IsVerified)
}

func TestInternalErrorsAreMasked(t *testing.T) {
	c := newClient(t, &fakeAccounts{loginErr: common.ErrorInternal})

	req, _ := pb.EncodeCredentials("a@x.com", "pw")
	_, err := c.Login(context.Background(), req)

	st := status.Convert(err)
	assert.Equal(t, codes.Internal, st.Code())
	assert.Equal(t, "internal error", st.Message())
}

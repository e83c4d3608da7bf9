package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/dmitrijs2005/gophauth/internal/common"
	pb "github.com/dmitrijs2005/gophauth/internal/proto"
)

// authenticatedMethods carry the access token in metadata.
var authenticatedMethods = map[string]bool{
	pb.LogoutAllMethod:     true,
	pb.DeleteAccountMethod: true,
}

type GRPCClient struct {
	endpointURL string
	timeout     time.Duration
	conn        *grpc.ClientConn
	client      pb.AccountServiceClient

	mu           sync.Mutex
	accessToken  string
	refreshToken string
}

var _ Client = (*GRPCClient)(nil)

// NewAccountClient dials endpointURL lazily. A positive timeout bounds every
// call made through the returned client; extra dial options are appended to
// the defaults.
func NewAccountClient(endpointURL string, timeout time.Duration, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL, timeout: timeout}
	if err := c.initGRPCClient(opts...); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *GRPCClient) initGRPCClient(extra ...grpc.DialOption) error {
	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
		grpc.WithUnaryInterceptor(s.accessTokenInterceptor),
	}
	conn, err := grpc.NewClient(s.endpointURL, append(opts, extra...)...)
	if err != nil {
		return err
	}
	s.conn = conn
	s.client = pb.NewAccountServiceClient(conn)
	return nil
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.AccessTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

func isExpiredAccess(err error) bool {
	st, ok := status.FromError(err)
	return ok && st.Code() == codes.Unauthenticated && st.Message() == common.ErrInvalidAccessToken.Error()
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if !authenticatedMethods[method] {
		return invoker(ctx, method, req, reply, cc, opts...)
	}

	access, refresh := s.tokens()
	err := invoker(withAccessToken(ctx, access), method, req, reply, cc, opts...)
	if err == nil || refresh == "" || !isExpiredAccess(err) {
		return err
	}

	if rerr := s.refresh(ctx, refresh); rerr != nil {
		return rerr
	}

	access, _ = s.tokens()
	return invoker(withAccessToken(ctx, access), method, req, reply, cc, opts...)
}

func (s *GRPCClient) tokens() (access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken, s.refreshToken
}

func (s *GRPCClient) setSession(access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = access
	if refresh != "" {
		s.refreshToken = refresh
	}
}

func (s *GRPCClient) clearSession() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = ""
	s.refreshToken = ""
}

func (s *GRPCClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// refresh exchanges the refresh token for a new access token. A rotated
// refresh token in the response replaces the stored one.
func (s *GRPCClient) refresh(ctx context.Context, refreshToken string) error {
	resp, err := s.client.Refresh(ctx, wrapperspb.String(refreshToken))
	if err != nil {
		return mapError(err)
	}

	sess, err := pb.DecodeSession(resp)
	if err != nil {
		return err
	}
	s.setSession(sess.AccessToken, sess.RefreshToken)
	return nil
}

func (s *GRPCClient) LoggedIn() bool {
	_, refresh := s.tokens()
	return refresh != ""
}

func (s *GRPCClient) Register(ctx context.Context, email string, password []byte) (*pb.Account, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	req, err := pb.EncodeCredentials(email, string(password))
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Register(ctx, req)
	if err != nil {
		return nil, mapError(err)
	}

	acc, err := pb.DecodeAccount(resp)
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

func (s *GRPCClient) Login(ctx context.Context, email string, password []byte) (*pb.Account, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	req, err := pb.EncodeCredentials(email, string(password))
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Login(ctx, req)
	if err != nil {
		return nil, mapError(err)
	}

	sess, err := pb.DecodeSession(resp)
	if err != nil {
		return nil, err
	}
	if sess.RefreshToken == "" || sess.Account == nil {
		return nil, errors.New("incomplete session in login response")
	}

	s.clearSession()
	s.setSession(sess.AccessToken, sess.RefreshToken)
	return sess.Account, nil
}

func (s *GRPCClient) Refresh(ctx context.Context) error {
	_, refresh := s.tokens()
	if refresh == "" {
		return ErrNotLoggedIn
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	return s.refresh(ctx, refresh)
}

// Logout revokes the current refresh token. The local session is dropped
// even when the server call fails.
func (s *GRPCClient) Logout(ctx context.Context) error {
	_, refresh := s.tokens()
	if refresh == "" {
		return ErrNotLoggedIn
	}
	defer s.clearSession()

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if _, err := s.client.Logout(ctx, wrapperspb.String(refresh)); err != nil {
		return mapError(err)
	}
	return nil
}

func (s *GRPCClient) LogoutAll(ctx context.Context) error {
	if !s.LoggedIn() {
		return ErrNotLoggedIn
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if _, err := s.client.LogoutAll(ctx, &emptypb.Empty{}); err != nil {
		return mapError(err)
	}
	s.clearSession()
	return nil
}

// WhoAmI validates the current access token and returns its account,
// refreshing the token once if the server reports it invalid.
func (s *GRPCClient) WhoAmI(ctx context.Context) (*pb.Account, error) {
	access, refresh := s.tokens()
	if refresh == "" {
		return nil, ErrNotLoggedIn
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	resp, err := s.client.ValidateAccessToken(ctx, wrapperspb.String(access))
	if isExpiredAccess(err) {
		if rerr := s.refresh(ctx, refresh); rerr != nil {
			return nil, rerr
		}
		access, _ = s.tokens()
		resp, err = s.client.ValidateAccessToken(ctx, wrapperspb.String(access))
	}
	if err != nil {
		return nil, mapError(err)
	}

	acc, err := pb.DecodeAccount(resp)
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

func (s *GRPCClient) VerifyEmail(ctx context.Context, token string) (*pb.Account, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	resp, err := s.client.VerifyEmail(ctx, wrapperspb.String(token))
	if err != nil {
		return nil, mapError(err)
	}

	acc, err := pb.DecodeAccount(resp)
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

func (s *GRPCClient) DeleteAccount(ctx context.Context) error {
	if !s.LoggedIn() {
		return ErrNotLoggedIn
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if _, err := s.client.DeleteAccount(ctx, &emptypb.Empty{}); err != nil {
		return mapError(err)
	}
	s.clearSession()
	return nil
}

func (s *GRPCClient) Close() error {
	if s.conn == nil {
		return nil
	}
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("close connection: %w", err)
	}
	return nil
}

// Package grpc exposes the account service over gRPC.
package grpc

import (
	"context"
	"net"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	pb "github.com/dmitrijs2005/gophauth/internal/proto"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/ratelimit"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
)

// AccountService is the business API the handlers delegate to.
// *services.AuthService implements it.
type AccountService interface {
	Register(ctx context.Context, email, password string) (*models.AccountView, error)
	Login(ctx context.Context, email, password string) (*services.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*services.RefreshResult, error)
	Logout(ctx context.Context, refreshToken string) error
	LogoutAllDevices(ctx context.Context, accountID string) error
	ValidateAccessToken(ctx context.Context, accessToken string) (*models.AccountView, error)
	VerifyEmail(ctx context.Context, token string) (*models.AccountView, error)
	DeleteAccount(ctx context.Context, accountID string) error
}

type GRPCServer struct {
	address  string
	accounts AccountService
	logger   logging.Logger

	globalLimiter ratelimit.Limiter
	authLimiter   ratelimit.Limiter
}

type Option func(*GRPCServer)

// WithRateLimits throttles every account call through global and, for
// Register and Login, additionally through auth. A nil limiter skips its
// check.
func WithRateLimits(global, auth ratelimit.Limiter) Option {
	return func(s *GRPCServer) {
		s.globalLimiter = global
		s.authLimiter = auth
	}
}

func NewGRPCServer(a string, l logging.Logger, accounts AccountService, opts ...Option) *GRPCServer {
	s := &GRPCServer{
		address:  a,
		logger:   l.With("module", "grpc_server"),
		accounts: accounts,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// newServer builds the grpc.Server with the account and health services
// registered.
func (s *GRPCServer) newServer() (*grpc.Server, *health.Server) {
	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.accessTokenInterceptor, s.rateLimitInterceptor),
	)

	pb.RegisterAccountServiceServer(srv, &handler{s: s})

	hs := health.NewServer()
	hs.SetServingStatus(pb.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	return srv, hs
}

func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on l until ctx is cancelled, then stops
// gracefully.
func (s *GRPCServer) Serve(ctx context.Context, l net.Listener) error {
	srv, hs := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		hs.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", l.Addr().String())

	return srv.Serve(l)
}

package grpc

import (
	"context"
	"net"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dmitrijs2005/gophauth/internal/common"
	pb "github.com/dmitrijs2005/gophauth/internal/proto"
	"github.com/dmitrijs2005/gophauth/internal/server/ratelimit"
)

// credentialMethods take an email and password and get the stricter auth
// limit on top of the global one.
var credentialMethods = map[string]bool{
	pb.RegisterMethod: true,
	pb.LoginMethod:    true,
}

// peerIP returns the caller's host without the port.
func peerIP(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return "unknown"
	}
	addr := p.Addr.String()
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

// globalKey identifies the caller by account when an access token was
// presented, by address otherwise.
func globalKey(ctx context.Context) string {
	if id, ok := AccountIDFromContext(ctx); ok {
		return "user:" + id
	}
	return "ip:" + peerIP(ctx)
}

func authKey(ctx context.Context, req interface{}) string {
	var email string
	if s, ok := req.(*structpb.Struct); ok {
		email, _ = pb.DecodeCredentials(s)
	}
	return "auth:" + peerIP(ctx) + ":" + strings.ToLower(strings.TrimSpace(email))
}

// allow fails closed: a broken counter store rejects the call.
func (s *GRPCServer) allow(ctx context.Context, l ratelimit.Limiter, key, method string) error {
	ok, err := l.Allow(ctx, key)
	if err != nil {
		s.logger.Error(ctx, "rate limiter failed", "error", err)
		return status.Error(codes.Unavailable, ratelimit.ErrUnavailable.Error())
	}
	if !ok {
		s.logger.Warn(ctx, "rate limited", "method", method, "ip", peerIP(ctx))
		return status.Error(codes.ResourceExhausted, common.ErrRateLimited.Error())
	}
	return nil
}

func (s *GRPCServer) rateLimitInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	if !strings.HasPrefix(info.FullMethod, "/"+pb.ServiceName+"/") {
		return handler(ctx, req)
	}

	if s.globalLimiter != nil {
		if err := s.allow(ctx, s.globalLimiter, globalKey(ctx), info.FullMethod); err != nil {
			return nil, err
		}
	}

	if s.authLimiter != nil && credentialMethods[info.FullMethod] {
		if err := s.allow(ctx, s.authLimiter, authKey(ctx, req), info.FullMethod); err != nil {
			return nil, err
		}
	}

	return handler(ctx, req)
}

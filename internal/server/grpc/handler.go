package grpc

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	pb "github.com/dmitrijs2005/gophauth/internal/proto"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// handler implements pb.AccountServiceServer on top of GRPCServer.
type handler struct {
	s *GRPCServer
}

var _ pb.AccountServiceServer = (*handler)(nil)

func toWire(v *models.AccountView) pb.Account {
	return pb.Account{
		ID:         v.ID,
		Email:      v.Email,
		IsVerified: v.IsVerified,
		CreatedAt:  v.CreatedAt,
		UpdatedAt:  v.UpdatedAt,
	}
}

func (h *handler) account(v *models.AccountView) (*structpb.Struct, error) {
	resp, err := pb.EncodeAccount(toWire(v))
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return resp, nil
}

func (h *handler) Register(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	email, password := pb.DecodeCredentials(req)

	view, err := h.s.accounts.Register(ctx, email, password)
	if err != nil {
		return nil, h.s.toStatus(ctx, err)
	}

	h.s.logger.Info(ctx, "Registered", "account_id", view.ID)
	return h.account(view)
}

func (h *handler) Login(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	email, password := pb.DecodeCredentials(req)

	res, err := h.s.accounts.Login(ctx, email, password)
	if err != nil {
		return nil, h.s.toStatus(ctx, err)
	}

	acc := toWire(res.Account)
	resp, err := pb.EncodeSession(pb.Session{
		Account:      &acc,
		AccessToken:  res.Tokens.AccessToken,
		RefreshToken: res.Tokens.RefreshToken,
	})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return resp, nil
}

func (h *handler) Refresh(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	res, err := h.s.accounts.Refresh(ctx, req.GetValue())
	if err != nil {
		return nil, h.s.toStatus(ctx, err)
	}

	resp, err := pb.EncodeSession(pb.Session{AccessToken: res.AccessToken, RefreshToken: res.RefreshToken})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return resp, nil
}

func (h *handler) Logout(ctx context.Context, req *wrapperspb.StringValue) (*emptypb.Empty, error) {
	if err := h.s.accounts.Logout(ctx, req.GetValue()); err != nil {
		return nil, h.s.toStatus(ctx, err)
	}
	return &emptypb.Empty{}, nil
}

func (h *handler) LogoutAll(ctx context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	id, ok := AccountIDFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}
	if err := h.s.accounts.LogoutAllDevices(ctx, id); err != nil {
		return nil, h.s.toStatus(ctx, err)
	}
	return &emptypb.Empty{}, nil
}

func (h *handler) ValidateAccessToken(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	view, err := h.s.accounts.ValidateAccessToken(ctx, req.GetValue())
	if err != nil {
		return nil, h.s.toStatus(ctx, err)
	}
	return h.account(view)
}

func (h *handler) VerifyEmail(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	view, err := h.s.accounts.VerifyEmail(ctx, req.GetValue())
	if err != nil {
		return nil, h.s.toStatus(ctx, err)
	}
	return h.account(view)
}

func (h *handler) DeleteAccount(ctx context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	id, ok := AccountIDFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}
	if err := h.s.accounts.DeleteAccount(ctx, id); err != nil {
		return nil, h.s.toStatus(ctx, err)
	}
	h.s.logger.Info(ctx, "Account deleted", "account_id", id)
	return &emptypb.Empty{}, nil
}

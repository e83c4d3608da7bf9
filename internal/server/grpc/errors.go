package grpc

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dmitrijs2005/gophauth/internal/common"
)

// toStatus maps service errors onto gRPC status codes. Messages are the
// sentinel texts only; infrastructure details never reach the caller.
func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	var locked *common.AccountLockedError

	switch {
	case errors.As(err, &locked):
		return status.Error(codes.PermissionDenied, locked.Error())
	case errors.Is(err, common.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrDuplicateEmail):
		return status.Error(codes.AlreadyExists, common.ErrDuplicateEmail.Error())
	case errors.Is(err, common.ErrInvalidCredentials):
		return status.Error(codes.Unauthenticated, common.ErrInvalidCredentials.Error())
	case errors.Is(err, common.ErrInvalidRefreshToken):
		return status.Error(codes.Unauthenticated, common.ErrInvalidRefreshToken.Error())
	case errors.Is(err, common.ErrInvalidAccessToken):
		return status.Error(codes.Unauthenticated, common.ErrInvalidAccessToken.Error())
	case errors.Is(err, common.ErrInvalidVerificationToken):
		return status.Error(codes.Unauthenticated, common.ErrInvalidVerificationToken.Error())
	case errors.Is(err, common.ErrEmailNotVerified):
		return status.Error(codes.FailedPrecondition, common.ErrEmailNotVerified.Error())
	case errors.Is(err, common.ErrAccountNotFound):
		return status.Error(codes.NotFound, common.ErrAccountNotFound.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}

	if !errors.Is(err, common.ErrorInternal) {
		s.logger.Error(ctx, "unmapped error", "error", err)
	}
	return status.Error(codes.Internal, common.ErrorInternal.Error())
}

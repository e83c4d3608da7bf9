package client

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dmitrijs2005/gophauth/internal/common"
)

var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotLoggedIn  = errors.New("not logged in")
)

// remoteError carries the server's status message and matches the local
// sentinels it corresponds to.
type remoteError struct {
	msg   string
	kinds []error
}

func (e *remoteError) Error() string   { return e.msg }
func (e *remoteError) Unwrap() []error { return e.kinds }

var unauthenticatedKinds = []error{
	common.ErrInvalidCredentials,
	common.ErrInvalidRefreshToken,
	common.ErrInvalidAccessToken,
	common.ErrInvalidVerificationToken,
}

// mapError converts a gRPC status into an error matchable with errors.Is
// against ErrUnavailable, ErrUnauthorized or the common sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	msg := st.Message()
	switch st.Code() {
	case codes.Unauthenticated:
		kinds := []error{ErrUnauthorized}
		for _, k := range unauthenticatedKinds {
			if msg == k.Error() {
				kinds = append(kinds, k)
			}
		}
		return &remoteError{msg: msg, kinds: kinds}
	case codes.PermissionDenied:
		return &remoteError{msg: msg, kinds: []error{common.ErrAccountLocked}}
	case codes.InvalidArgument:
		return &remoteError{msg: msg, kinds: []error{common.ErrValidation}}
	case codes.AlreadyExists:
		return &remoteError{msg: msg, kinds: []error{common.ErrDuplicateEmail}}
	case codes.FailedPrecondition:
		return &remoteError{msg: msg, kinds: []error{common.ErrEmailNotVerified}}
	case codes.NotFound:
		return &remoteError{msg: msg, kinds: []error{common.ErrAccountNotFound}}
	case codes.ResourceExhausted:
		return &remoteError{msg: msg, kinds: []error{common.ErrRateLimited}}
	case codes.Unavailable, codes.DeadlineExceeded:
		return &remoteError{msg: ErrUnavailable.Error(), kinds: []error{ErrUnavailable, err}}
	}
	return err
}

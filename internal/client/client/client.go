package client

import (
	"context"

	pb "github.com/dmitrijs2005/gophauth/internal/proto"
)

// Client is the CLI's view of the account service. Implementations keep the
// current session tokens between calls.
type Client interface {
	Close() error
	Register(ctx context.Context, email string, password []byte) (*pb.Account, error)
	Login(ctx context.Context, email string, password []byte) (*pb.Account, error)
	Refresh(ctx context.Context) error
	Logout(ctx context.Context) error
	LogoutAll(ctx context.Context) error
	WhoAmI(ctx context.Context) (*pb.Account, error)
	VerifyEmail(ctx context.Context, token string) (*pb.Account, error)
	DeleteAccount(ctx context.Context) error
	LoggedIn() bool
}

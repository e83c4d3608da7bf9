package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/client/client"
	"github.com/dmitrijs2005/gophauth/internal/common"
	pb "github.com/dmitrijs2005/gophauth/internal/proto"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// report prints err in a user-facing form and returns it unchanged.
func report(err error) error {
	switch {
	case errors.Is(err, client.ErrUnavailable):
		printlnFn("Server unavailable, try again later")
	case errors.Is(err, common.ErrRateLimited):
		printlnFn("Too many attempts, try again later")
	case errors.Is(err, client.ErrNotLoggedIn):
		printlnFn("You are not logged in")
	case errors.Is(err, common.ErrInvalidAccessToken), errors.Is(err, common.ErrInvalidRefreshToken):
		printlnFn("Session expired, please log in again")
	default:
		printlnFn("Error:", err.Error())
	}
	return err
}

func printAccount(acc *pb.Account) {
	printlnFn("ID:       ", acc.ID)
	printlnFn("Email:    ", acc.Email)
	printlnFn("Verified: ", acc.IsVerified)
	printlnFn("Created:  ", acc.CreatedAt.Local().Format("2006-01-02 15:04:05"))
}

// Register prompts for an email and password and creates a new account.
// The password is wiped before returning.
func (a *App) Register(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	acc, err := a.client.Register(ctx, email, password)
	if err != nil {
		return report(err)
	}

	printlnFn(fmt.Sprintf("Registered %s. Check your inbox for the verification token.", acc.Email))
	return nil
}

// Verify asks for the emailed verification token and confirms the address.
func (a *App) Verify(ctx context.Context) error {
	token, err := getSimpleText(a.reader, "Enter verification token", os.Stdout)
	if err != nil {
		return err
	}

	acc, err := a.client.VerifyEmail(ctx, token)
	if err != nil {
		return report(err)
	}

	printlnFn(fmt.Sprintf("Email %s verified, you can log in now", acc.Email))
	return nil
}

// Login prompts for credentials and starts a session. The password is wiped
// before returning.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	acc, err := a.client.Login(ctx, email, password)
	if err != nil {
		return report(err)
	}

	a.email = acc.Email
	printlnFn("Login successful")
	return nil
}

func (a *App) WhoAmI(ctx context.Context) error {
	acc, err := a.client.WhoAmI(ctx)
	if err != nil {
		return report(err)
	}
	printAccount(acc)
	return nil
}

func (a *App) Refresh(ctx context.Context) error {
	if err := a.client.Refresh(ctx); err != nil {
		return report(err)
	}
	printlnFn("Access token refreshed")
	return nil
}

// Logout ends the current session. The local session is gone afterwards
// even if the server could not be reached.
func (a *App) Logout(ctx context.Context) error {
	err := a.client.Logout(ctx)
	if !a.isLoggedIn() {
		a.email = ""
	}
	if err != nil {
		return report(err)
	}
	printlnFn("Logged out")
	return nil
}

func (a *App) LogoutAll(ctx context.Context) error {
	if err := a.client.LogoutAll(ctx); err != nil {
		return report(err)
	}
	a.email = ""
	printlnFn("Logged out from all devices")
	return nil
}

// DeleteAccount removes the logged-in account after the user retypes its
// email address.
func (a *App) DeleteAccount(ctx context.Context) error {
	if !a.isLoggedIn() {
		return report(client.ErrNotLoggedIn)
	}

	confirm, err := getSimpleText(a.reader, "Type your email to confirm account deletion", os.Stdout)
	if err != nil {
		return err
	}
	if !strings.EqualFold(confirm, a.email) {
		printlnFn("Aborted")
		return nil
	}

	if err := a.client.DeleteAccount(ctx); err != nil {
		return report(err)
	}
	a.email = ""
	printlnFn("Account deleted")
	return nil
}

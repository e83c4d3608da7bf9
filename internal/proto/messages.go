package proto

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/types/known/structpb"
)

// Field names used inside structpb.Struct payloads.
const (
	FieldEmail        = "email"
	FieldPassword     = "password"
	FieldAccount      = "account"
	FieldAccessToken  = "access_token"
	FieldRefreshToken = "refresh_token"

	FieldID         = "id"
	FieldIsVerified = "is_verified"
	FieldCreatedAt  = "created_at"
	FieldUpdatedAt  = "updated_at"
)

// Account is the wire form of a public account record.
type Account struct {
	ID         string
	Email      string
	IsVerified bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (a Account) fields() map[string]any {
	return map[string]any{
		FieldID:         a.ID,
		FieldEmail:      a.Email,
		FieldIsVerified: a.IsVerified,
		FieldCreatedAt:  a.CreatedAt.UTC().Format(time.RFC3339Nano),
		FieldUpdatedAt:  a.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func EncodeAccount(a Account) (*structpb.Struct, error) {
	return structpb.NewStruct(a.fields())
}

func DecodeAccount(s *structpb.Struct) (Account, error) {
	f := s.GetFields()

	a := Account{
		ID:         f[FieldID].GetStringValue(),
		Email:      f[FieldEmail].GetStringValue(),
		IsVerified: f[FieldIsVerified].GetBoolValue(),
	}
	if a.ID == "" {
		return Account{}, fmt.Errorf("account payload without %s", FieldID)
	}

	var err error
	if a.CreatedAt, err = time.Parse(time.RFC3339Nano, f[FieldCreatedAt].GetStringValue()); err != nil {
		return Account{}, fmt.Errorf("bad %s: %w", FieldCreatedAt, err)
	}
	if a.UpdatedAt, err = time.Parse(time.RFC3339Nano, f[FieldUpdatedAt].GetStringValue()); err != nil {
		return Account{}, fmt.Errorf("bad %s: %w", FieldUpdatedAt, err)
	}
	return a, nil
}

func EncodeCredentials(email, password string) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{FieldEmail: email, FieldPassword: password})
}

func DecodeCredentials(s *structpb.Struct) (email, password string) {
	f := s.GetFields()
	return f[FieldEmail].GetStringValue(), f[FieldPassword].GetStringValue()
}

// Session is the Login and Refresh response. Account is nil for Refresh and
// RefreshToken is empty unless the server rotated it.
type Session struct {
	Account      *Account
	AccessToken  string
	RefreshToken string
}

func EncodeSession(s Session) (*structpb.Struct, error) {
	m := map[string]any{FieldAccessToken: s.AccessToken}
	if s.RefreshToken != "" {
		m[FieldRefreshToken] = s.RefreshToken
	}
	if s.Account != nil {
		m[FieldAccount] = s.Account.fields()
	}
	return structpb.NewStruct(m)
}

func DecodeSession(s *structpb.Struct) (Session, error) {
	f := s.GetFields()

	out := Session{
		AccessToken:  f[FieldAccessToken].GetStringValue(),
		RefreshToken: f[FieldRefreshToken].GetStringValue(),
	}
	if out.AccessToken == "" {
		return Session{}, fmt.Errorf("session payload without %s", FieldAccessToken)
	}
	if acc := f[FieldAccount].GetStructValue(); acc != nil {
		a, err := DecodeAccount(acc)
		if err != nil {
			return Session{}, err
		}
		out.Account = &a
	}
	return out, nil
}

package authkit

import (
	"context"
	"time"
)

// Account is the principal entity owned by the caller's persistence layer.
// The library only ever reads these fields; the refresh-token set lives in
// the session store, not on the account record.
type Account struct {
	ID           string
	Email        string
	PasswordHash string
	DisplayName  string
	Admin        bool
	CreatedAt    time.Time
}

// Identity is the authenticated subject attached to a request context by the
// gate middleware, and the claim set embedded in every issued credential.
type Identity struct {
	AccountID string
	Email     string
	Admin     bool
}

// TokenPair is one access/refresh credential pair.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// AuthResult is returned by [Manager.Signup] and [Manager.Login].
type AuthResult struct {
	Account Account
	TokenPair
}

// SignupRequest is the input for [Manager.Signup]. Email is case-normalized
// before any lookup or create.
type SignupRequest struct {
	Email       string
	Password    string
	DisplayName string
}

// CreateAccountInput is the input for [AccountProvider.Create]. The password
// arrives pre-hashed; providers never see plaintext.
type CreateAccountInput struct {
	Email        string
	PasswordHash string
	DisplayName  string
	Admin        bool
}

// AccountProvider is the persistence collaborator callers must implement.
// Lookups return [ErrAccountNotFound] (possibly wrapped) when nothing
// matches. Create must surface an email uniqueness violation as
// [ErrDuplicateEmail] so the manager can report it distinguishably; any other
// provider error is masked as [ErrInternal] before it reaches API callers.
type AccountProvider interface {
	FindByEmail(ctx context.Context, email string) (Account, error)
	FindByID(ctx context.Context, id string) (Account, error)
	Create(ctx context.Context, input CreateAccountInput) (Account, error)
}

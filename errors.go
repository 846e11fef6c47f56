package authkit

import "errors"

var (
	// ErrDuplicateEmail is returned by Signup when the email is already registered.
	ErrDuplicateEmail = errors.New("account with this email already exists")
	// ErrInvalidCredentials is returned by Login for both unknown emails and
	// wrong passwords. The two cases are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrRefreshInvalid covers every refresh failure: bad signature, expiry,
	// rotation, and revocation. Callers cannot tell the cases apart.
	ErrRefreshInvalid = errors.New("invalid or expired refresh token")
	// ErrMissingToken is returned by the gate when the authorization header is
	// absent or not a bearer token.
	ErrMissingToken = errors.New("access token is required")
	// ErrTokenExpired is returned by the gate for an expired access token.
	ErrTokenExpired = errors.New("access token has expired")
	// ErrTokenInvalid is returned by the gate for a malformed or forged access token.
	ErrTokenInvalid = errors.New("invalid access token")
	// ErrForbidden is returned by the admin guard for non-admin identities.
	ErrForbidden = errors.New("admin access required")
	// ErrAccountNotFound is the sentinel AccountProvider implementations must
	// return (or wrap) when a lookup matches no account.
	ErrAccountNotFound = errors.New("account not found")
	// ErrSignupInvalid is returned by Signup for empty or malformed input.
	ErrSignupInvalid = errors.New("invalid signup request")
	// ErrPasswordPolicy is returned when a password fails the configured policy.
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrManagerNotReady is returned when a Manager is used before Build wired
	// its dependencies.
	ErrManagerNotReady = errors.New("manager not initialized")
	// ErrInternal masks unexpected collaborator failures. No persistence or
	// cryptographic detail ever crosses this boundary.
	ErrInternal = errors.New("internal error")
)

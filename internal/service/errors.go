// Package service implements the authentication core: registration,
// login, token refresh, email verification, password reset, OAuth
// account linking, login-attempt lockout and access-token blacklisting.
// Handlers stay thin and translate the sentinel errors declared here
// into HTTP responses.
package service

import "errors"

// ErrInvalidInput marks malformed caller input (empty token, empty
// password).  Handlers translate it into HTTP 400.
var ErrInvalidInput = errors.New("invalid input")

// ErrUnauthorized marks failed authentication: wrong credentials,
// invalid or consumed tokens, locked accounts.  The message presented
// to clients stays generic regardless of the underlying cause.
var ErrUnauthorized = errors.New("unauthorized")

// ErrEmailTaken and ErrUsernameTaken identify which field collided
// during registration.  Handlers translate them into HTTP 409.
var (
	ErrEmailTaken    = errors.New("email already registered")
	ErrUsernameTaken = errors.New("username already registered")
)

// ErrNotFound marks an absent resource on paths not reachable by
// unauthenticated callers.  Enumeration-sensitive endpoints must mask
// it behind a generic success response.
var ErrNotFound = errors.New("not found")

// ErrAlreadyVerified is returned when a verification resend is
// requested for an account whose email is already confirmed.
var ErrAlreadyVerified = errors.New("email already verified")

// ErrNotLinked is returned when unlinking an OAuth provider that is
// not linked to the account.  Handlers translate it into HTTP 409.
var ErrNotLinked = errors.New("provider not linked")

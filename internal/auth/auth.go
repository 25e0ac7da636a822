package auth

import (
	"context"
	"errors"
)

// Keys under which session data is persisted
const (
	// TokenKey holds the bearer token
	TokenKey = "jwt_token"
	// GithubUsernameKey holds the remembered GitHub username of a linked account
	GithubUsernameKey = "github_username"
)

// ErrMissingCredential is returned when an operation needs a token and none is stored.
var ErrMissingCredential = errors.New("no authentication token")

// TokenSource yields the current bearer token.
// Implementations return ErrMissingCredential when no token is present.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

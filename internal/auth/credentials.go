package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/cicdai/cli/internal/kvs"
)

// Credentials is the persisted side of a session: the bearer token and the
// auxiliary identifiers cleared alongside it.
type Credentials struct {
	store kvs.Store
}

// NewCredentials wraps a key-value store.
func NewCredentials(store kvs.Store) *Credentials {
	return &Credentials{store: store}
}

// Token returns the stored token, or ErrMissingCredential if none is stored.
func (c *Credentials) Token(ctx context.Context) (string, error) {
	token, err := c.store.Get(ctx, TokenKey)
	if err != nil {
		if errors.Is(err, kvs.ErrNotFound) {
			return "", ErrMissingCredential
		}
		return "", fmt.Errorf("failed to load token: %w", err)
	}
	if token == "" {
		return "", ErrMissingCredential
	}
	return token, nil
}

// SetToken persists the token.
func (c *Credentials) SetToken(ctx context.Context, token string) error {
	if err := c.store.Set(ctx, TokenKey, token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// RememberGithubUsername stores the username of a linked GitHub account.
func (c *Credentials) RememberGithubUsername(ctx context.Context, username string) error {
	if err := c.store.Set(ctx, GithubUsernameKey, username); err != nil {
		return fmt.Errorf("failed to save github username: %w", err)
	}
	return nil
}

// GithubUsername returns the remembered GitHub username, or "" if none.
func (c *Credentials) GithubUsername(ctx context.Context) (string, error) {
	username, err := c.store.Get(ctx, GithubUsernameKey)
	if err != nil {
		if errors.Is(err, kvs.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to load github username: %w", err)
	}
	return username, nil
}

// Clear removes the token and every auxiliary identifier. Both deletes are
// attempted; the last error is returned.
func (c *Credentials) Clear(ctx context.Context) error {
	var lastErr error
	for _, key := range []string{TokenKey, GithubUsernameKey} {
		if err := c.store.Delete(ctx, key); err != nil {
			lastErr = fmt.Errorf("failed to remove %s: %w", key, err)
		}
	}
	return lastErr
}

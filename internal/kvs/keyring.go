package kvs

import (
	"context"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// DefaultKeyringService is the keychain service name used when none is configured.
const DefaultKeyringService = "cicdai-cli"

// KeyringStore stores values in the OS keychain/credential manager.
type KeyringStore struct {
	service   string
	namespace string
}

// NewKeyringStore creates a keyring-backed store.
func NewKeyringStore(namespace string, cfg KeyringConfig) *KeyringStore {
	service := cfg.Service
	if service == "" {
		service = DefaultKeyringService
	}
	return &KeyringStore{service: service, namespace: namespace}
}

// Get retrieves a value by key.
func (k *KeyringStore) Get(ctx context.Context, key string) (string, error) {
	value, err := keyring.Get(k.service, prefixed(k.namespace, key))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("kvs/keyring: get failed: %w", err)
	}
	return value, nil
}

// Set stores a value.
func (k *KeyringStore) Set(ctx context.Context, key, value string) error {
	if err := keyring.Set(k.service, prefixed(k.namespace, key), value); err != nil {
		return fmt.Errorf("kvs/keyring: set failed: %w", err)
	}
	return nil
}

// Delete removes a key.
func (k *KeyringStore) Delete(ctx context.Context, key string) error {
	if err := keyring.Delete(k.service, prefixed(k.namespace, key)); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil // Already deleted
		}
		return fmt.Errorf("kvs/keyring: delete failed: %w", err)
	}
	return nil
}

// Close is a no-op; the keychain has no client handle.
func (k *KeyringStore) Close() error {
	return nil
}

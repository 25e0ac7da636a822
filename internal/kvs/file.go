package kvs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const (
	// credentialsFile is the JSON file name for stored credentials
	credentialsFile = "credentials.json"
	configDirName   = ".cicdai"

	ScopeHome    = "home"    // ~/.cicdai/credentials.json
	ScopeProject = "project" // .cicdai/credentials.json
)

// FileStore persists a flat JSON object on disk. Every write rewrites the whole file.
type FileStore struct {
	namespace string
	path      string
	mu        sync.Mutex
}

// NewFileStore creates a file store. The file is created lazily on first write.
func NewFileStore(namespace string, cfg FileConfig) (*FileStore, error) {
	path := cfg.Path
	if path == "" {
		var err error
		path, err = StorePath(cfg.Scope)
		if err != nil {
			return nil, err
		}
	}
	return &FileStore{namespace: namespace, path: path}, nil
}

// StorePath returns the credentials file location for a scope.
func StorePath(scope string) (string, error) {
	switch scope {
	case ScopeHome, "":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to determine home directory: %w", err)
		}
		return filepath.Join(homeDir, configDirName, credentialsFile), nil
	case ScopeProject:
		return filepath.Join(configDirName, credentialsFile), nil
	default:
		return "", fmt.Errorf("invalid file scope %q: must be 'home' or 'project'", scope)
	}
}

// Path returns the file backing this store.
func (f *FileStore) Path() string {
	return f.path
}

// Get retrieves a value by key.
func (f *FileStore) Get(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	items, err := f.load()
	if err != nil {
		return "", err
	}
	value, ok := items[prefixed(f.namespace, key)]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

// Set stores a value.
func (f *FileStore) Set(ctx context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	items, err := f.load()
	if err != nil {
		return err
	}
	items[prefixed(f.namespace, key)] = value
	return f.save(items)
}

// Delete removes a key. The file is removed once it holds no keys.
func (f *FileStore) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	items, err := f.load()
	if err != nil {
		return err
	}
	k := prefixed(f.namespace, key)
	if _, ok := items[k]; !ok {
		return nil
	}
	delete(items, k)

	if len(items) == 0 {
		if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w", f.path, err)
		}
		return nil
	}
	return f.save(items)
}

// Close is a no-op for the file store.
func (f *FileStore) Close() error {
	return nil
}

func (f *FileStore) load() (map[string]string, error) {
	items := make(map[string]string)

	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return items, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", f.path, err)
	}
	if len(data) == 0 {
		return items, nil
	}

	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to parse credentials from %s: %w", f.path, err)
	}
	return items, nil
}

func (f *FileStore) save(items map[string]string) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	if err := os.WriteFile(f.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write credentials to %s: %w", f.path, err)
	}
	return nil
}

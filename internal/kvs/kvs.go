// Package kvs provides the durable key-value backends that hold CLI credentials.
package kvs

import (
	"context"
	"errors"
	"fmt"
)

// Store is a string key-value store. All implementations must be safe for concurrent use.
type Store interface {
	// Get returns ErrNotFound if the key does not exist.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	// Delete does not return an error if the key does not exist.
	Delete(ctx context.Context, key string) error
	Close() error
}

var (
	// ErrNotFound is returned when a key is not present.
	ErrNotFound = errors.New("kvs: key not found")

	// ErrClosed is returned when an operation is attempted on a closed store.
	ErrClosed = errors.New("kvs: store is closed")
)

// StoreType selects a backend
type StoreType string

const (
	TypeFile    StoreType = "file"    // ~/.cicdai/credentials.json or .cicdai/credentials.json
	TypeKeyring StoreType = "keyring" // OS keychain
	TypeLevelDB StoreType = "leveldb"
	TypeRedis   StoreType = "redis"
	TypeMemory  StoreType = "memory"
)

// ValidateType checks if the given string is a valid StoreType
func ValidateType(t string) (StoreType, error) {
	switch StoreType(t) {
	case TypeFile, "":
		return TypeFile, nil
	case TypeKeyring, TypeLevelDB, TypeRedis, TypeMemory:
		return StoreType(t), nil
	default:
		return "", fmt.Errorf("invalid store %q: must be 'file', 'keyring', 'leveldb', 'redis', or 'memory'", t)
	}
}

// Config selects and configures a backend.
type Config struct {
	Type      string `yaml:"type"`
	Namespace string `yaml:"namespace"`

	File    FileConfig    `yaml:"file"`
	Keyring KeyringConfig `yaml:"keyring"`
	LevelDB LevelDBConfig `yaml:"leveldb"`
	Redis   RedisConfig   `yaml:"redis"`
}

// FileConfig configures the JSON file store.
type FileConfig struct {
	// Scope is "home" or "project". Ignored when Path is set.
	Scope string `yaml:"scope"`
	Path  string `yaml:"path"`
}

// KeyringConfig configures the OS keyring store.
type KeyringConfig struct {
	Service string `yaml:"service"`
}

// LevelDBConfig configures the LevelDB store.
type LevelDBConfig struct {
	// Path is the database directory. Defaults to a directory under the user cache dir.
	Path string `yaml:"path"`
}

// RedisConfig configures the Redis store.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// New creates a Store based on the provided config.
func New(cfg Config) (Store, error) {
	t, err := ValidateType(cfg.Type)
	if err != nil {
		return nil, err
	}

	switch t {
	case TypeFile:
		return NewFileStore(cfg.Namespace, cfg.File)
	case TypeKeyring:
		return NewKeyringStore(cfg.Namespace, cfg.Keyring), nil
	case TypeLevelDB:
		return NewLevelDBStore(cfg.Namespace, cfg.LevelDB)
	case TypeRedis:
		return NewRedisStore(cfg.Namespace, cfg.Redis)
	default:
		return NewMemoryStore(cfg.Namespace), nil
	}
}

func prefixed(namespace, key string) string {
	if namespace == "" {
		return key
	}
	return namespace + ":" + key
}

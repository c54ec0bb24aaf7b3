// internal/storage/storage.go
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/precisionmule/missionplanner/pkg/core"
)

// ErrNotFound is returned by Get when the key has no value.
var ErrNotFound = errors.New("storage: key not found")

// ErrInvalidKey is returned for keys rejected by ValidateKey.
var ErrInvalidKey = errors.New("storage: invalid key")

// Store is the key/value persistence every backend implements. Values are
// JSON documents; use GetObject and SetObject for typed access.
type Store interface {
	// Lifecycle
	Init() error
	Close() error

	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
}

// MissionArchiver is an optional interface for backends that keep a
// queryable history of saved missions next to the key/value entries.
// SaveMission writes the entry and the snapshot atomically.
type MissionArchiver interface {
	SaveMission(ctx context.Context, key string, rec core.MissionRecord) error
}

// GetObject loads key and decodes it into a T.
func GetObject[T any](ctx context.Context, s Store, key string) (T, error) {
	var v T
	data, err := s.Get(ctx, key)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("decode %q: %w", key, err)
	}
	return v, nil
}

// SetObject encodes v as JSON and stores it under key.
func SetObject[T any](ctx context.Context, s Store, key string, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	return s.Set(ctx, key, data)
}

// ValidateKey rejects keys that cannot be used as file names or row ids.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty", ErrInvalidKey)
	}
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '.':
		default:
			return fmt.Errorf("%w: character %q in %q", ErrInvalidKey, r, key)
		}
	}
	if key == "." || key == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

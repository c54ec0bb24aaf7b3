// internal/storage/memory/memory.go
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/precisionmule/missionplanner/internal/config"
	"github.com/precisionmule/missionplanner/internal/storage"
)

// Backend keeps entries in memory. When an output directory is configured
// every entry is also mirrored to <outputDir>/<key>.json (or .json.gz) and
// reloaded by Init, so saves survive between runs.
type Backend struct {
	cfg     config.MemoryConfig
	entries map[string][]byte
	mu      sync.RWMutex
}

var _ storage.Store = (*Backend)(nil)

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:     cfg,
		entries: make(map[string][]byte),
	}
}

// Init loads entries previously written to the output directory.
func (b *Backend) Init() error {
	if b.cfg.OutputDir == "" {
		return nil
	}
	loaded, err := b.loadDir()
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", b.cfg.OutputDir, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for k, v := range loaded {
		b.entries[k] = v
	}
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// Get returns a copy of the stored value.
func (b *Backend) Get(_ context.Context, key string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	v, ok := b.entries[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

// Set stores value under key and mirrors it to disk if configured.
func (b *Backend) Set(_ context.Context, key string, value []byte) error {
	if err := storage.ValidateKey(key); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cfg.OutputDir != "" {
		if err := b.writeEntry(key, value); err != nil {
			return err
		}
	}
	b.entries[key] = append([]byte(nil), value...)
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (b *Backend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cfg.OutputDir != "" {
		if err := b.removeEntry(key); err != nil {
			return err
		}
	}
	delete(b.entries, key)
	return nil
}

// Keys returns all keys in sorted order.
func (b *Backend) Keys(_ context.Context) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	keys := make([]string, 0, len(b.entries))
	for k := range b.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// internal/storage/memory/export.go
package memory

import (
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const (
	jsonExt = ".json"
	gzipExt = ".json.gz"
)

// entryPath returns the file path an entry is mirrored to.
func (b *Backend) entryPath(key string) string {
	if b.cfg.CompressOutput {
		return filepath.Join(b.cfg.OutputDir, key+gzipExt)
	}
	return filepath.Join(b.cfg.OutputDir, key+jsonExt)
}

func (b *Backend) writeEntry(key string, value []byte) error {
	// Ensure output directory exists
	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	path := b.entryPath(key)
	if b.cfg.CompressOutput {
		if err := writeGzip(path, value); err != nil {
			return err
		}
	} else {
		if err := os.WriteFile(path, value, 0644); err != nil {
			return fmt.Errorf("failed to write file: %w", err)
		}
	}

	// drop a stale copy written with the other compression setting
	other := filepath.Join(b.cfg.OutputDir, key+jsonExt)
	if !b.cfg.CompressOutput {
		other = filepath.Join(b.cfg.OutputDir, key+gzipExt)
	}
	if err := os.Remove(other); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove stale file: %w", err)
	}
	return nil
}

func (b *Backend) removeEntry(key string) error {
	for _, ext := range []string{jsonExt, gzipExt} {
		err := os.Remove(filepath.Join(b.cfg.OutputDir, key+ext))
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove file: %w", err)
		}
	}
	return nil
}

func writeGzip(path string, value []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	if _, err := gzWriter.Write(value); err != nil {
		gzWriter.Close()
		return fmt.Errorf("failed to write gzip data: %w", err)
	}
	return gzWriter.Close()
}

// loadDir reads every mirrored entry. A missing directory is empty.
func (b *Backend) loadDir() (map[string][]byte, error) {
	files, err := os.ReadDir(b.cfg.OutputDir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	out := make(map[string][]byte)
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		name := file.Name()
		path := filepath.Join(b.cfg.OutputDir, name)
		switch {
		case strings.HasSuffix(name, gzipExt):
			data, err := readGzip(path)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			out[strings.TrimSuffix(name, gzipExt)] = data
		case strings.HasSuffix(name, jsonExt):
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, err
			}
			out[strings.TrimSuffix(name, jsonExt)] = data
		}
	}
	return out, nil
}

func readGzip(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer gz.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, gz); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Package artifact stores serialized models on the local filesystem or in a
// key-value store.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/housepipe/internal/db"
	"github.com/kailas-cloud/housepipe/internal/domain"
)

// KVScheme prefixes locations that live in the key-value store.
const KVScheme = "valkey://"

// store is the consumer interface for the key-value backend (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Repo reads and writes artifacts by location. A location is either a file
// path or valkey://<key>.
type Repo struct {
	kv     store
	logger *zap.Logger
}

// New creates an artifact repository. kv may be nil, in which case only
// file locations are accepted.
func New(kv store, logger *zap.Logger) *Repo {
	return &Repo{kv: kv, logger: logger}
}

// Save writes data to location, replacing any previous artifact.
func (r *Repo) Save(ctx context.Context, location string, data []byte) error {
	if key, ok := kvKey(location); ok {
		if r.kv == nil {
			return fmt.Errorf("save %s: no key-value store configured: %w", location, domain.ErrInvalidInput)
		}
		if err := r.kv.Set(ctx, key, data); err != nil {
			return fmt.Errorf("save %s: %w", location, err)
		}
		r.logger.Info("Artifact saved", zap.String("location", location), zap.Int("bytes", len(data)))
		return nil
	}

	path, err := filePath(location)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("save %s: mkdir: %w", location, err)
		}
	}
	if err := writeAtomic(path, data); err != nil {
		return fmt.Errorf("save %s: %w", location, err)
	}
	r.logger.Info("Artifact saved", zap.String("location", location), zap.Int("bytes", len(data)))
	return nil
}

// Load returns the artifact bytes at location. A missing artifact reports
// domain.ErrNotFound.
func (r *Repo) Load(ctx context.Context, location string) ([]byte, error) {
	if key, ok := kvKey(location); ok {
		if r.kv == nil {
			return nil, fmt.Errorf("load %s: no key-value store configured: %w", location, domain.ErrInvalidInput)
		}
		data, err := r.kv.Get(ctx, key)
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, fmt.Errorf("load %s: %w", location, domain.ErrNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", location, err)
		}
		return data, nil
	}

	path, err := filePath(location)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", location, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", location, err)
	}
	return data, nil
}

func kvKey(location string) (string, bool) {
	if !strings.HasPrefix(location, KVScheme) {
		return "", false
	}
	return strings.TrimPrefix(location, KVScheme), true
}

func filePath(location string) (string, error) {
	if strings.TrimSpace(location) == "" {
		return "", fmt.Errorf("empty artifact location: %w", domain.ErrInvalidInput)
	}
	return filepath.Clean(location), nil
}

// writeAtomic writes data to a unique temp file beside path and renames it
// into place. The temp file is removed on every failure.
func writeAtomic(path string, data []byte) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()
	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

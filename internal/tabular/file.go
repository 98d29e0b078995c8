package tabular

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kailas-cloud/housepipe/internal/domain/frame"
)

// ReadFile loads a frame from path. Files ending in .parquet are read as
// Parquet, anything else as CSV.
func ReadFile(path string) (*frame.Frame, error) {
	if strings.EqualFold(filepath.Ext(path), ".parquet") {
		f, err := ReadParquet(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		return f, nil
	}

	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	f, err := ReadCSV(file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return f, nil
}

// WriteFile writes f to path as CSV, creating parent directories.
func WriteFile(path string, f *frame.Frame) (err error) {
	clean := filepath.Clean(path)
	if dir := filepath.Dir(clean); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	file, err := os.Create(clean)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	return WriteCSV(file, f)
}

// Files exposes ReadFile and WriteFile behind context-aware methods.
type Files struct{}

// Read loads path with ReadFile.
func (Files) Read(_ context.Context, path string) (*frame.Frame, error) {
	return ReadFile(path)
}

// Write stores f at path with WriteFile.
func (Files) Write(_ context.Context, path string, f *frame.Frame) error {
	return WriteFile(path, f)
}

// Package file stores the domain collection as a JSON file on local disk.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/lllypuk/collabfront/internal/domain/record"
	"github.com/lllypuk/collabfront/internal/infrastructure/repository"
)

const (
	dirPerm  = 0o750
	filePerm = 0o600
)

// Repository keeps the collection in <dir>/<key>.json.
type Repository struct {
	path string
}

// NewRepository creates a file repository rooted at dir. The directory is created on first save.
func NewRepository(dir, key string) *Repository {
	if key == "" {
		key = repository.DefaultKey
	}
	return &Repository{path: filepath.Join(dir, key+".json")}
}

// Path returns the file the collection is written to.
func (r *Repository) Path() string {
	return r.path
}

// Load reads the collection. A missing file is not an error.
func (r *Repository) Load(_ context.Context) ([]record.Domain, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", r.path, err)
	}
	return repository.Decode(data)
}

// Save writes the collection through a temp file and rename so readers never see a partial file.
func (r *Repository) Save(_ context.Context, domains []record.Domain) error {
	data, err := repository.Encode(domains)
	if err != nil {
		return err
	}

	dir := filepath.Dir(r.path)
	if err = os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("failed to create storage dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err = tmp.Chmod(filePerm); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err = os.Rename(tmpName, r.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", r.path, err)
	}
	return nil
}

package school

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/safespace/safespace-server/internal/config"
	domain "github.com/safespace/safespace-server/internal/domain/safety"
)

// Repository defines persistence operations for the school catalog.
type Repository interface {
	Load(ctx context.Context) ([]*domain.School, error)
	Save(ctx context.Context, schools []*domain.School) error
}

// ErrNotFound is returned when the catalog file does not exist yet.
var ErrNotFound = errors.New("catalog not found")

// FileRepository persists the catalog to a JSON file on disk. The whole
// catalog is written on every save; school registration is rare enough that
// snapshot writes stay cheap.
type FileRepository struct {
	// path is the filesystem location of the catalog file.
	path string
	// mu protects concurrent access to the catalog file.
	mu sync.Mutex
}

// NewFileRepository creates a repository that reads/writes JSON at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Load reads the catalog from disk.
func (r *FileRepository) Load(_ context.Context) ([]*domain.School, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read catalog file: %w", err)
	}

	var schools []*domain.School
	if err = json.Unmarshal(contents, &schools); err != nil {
		return nil, fmt.Errorf("decode catalog file: %w", err)
	}

	return schools, nil
}

// Save writes the catalog to disk using JSON representation.
func (r *FileRepository) Save(_ context.Context, schools []*domain.School) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.Marshal(schools)
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}

	// Restrict permissions: the file holds the access secrets.
	if err = os.WriteFile(r.path, data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write catalog file: %w", err)
	}

	return nil
}

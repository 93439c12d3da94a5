package events

import (
	"bufio"
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

// Repository defines durability operations for the alert ledger.
type Repository interface {
	Append(ctx context.Context, event *domain.AlertEvent) error
	LoadAll(ctx context.Context) ([]*domain.AlertEvent, error)
}

// FileRepository appends events to a JSON-lines log file. The file is opened
// lazily on first append and kept open; every append is flushed and synced
// before returning so an acknowledged event survives a crash.
type FileRepository struct {
	// path is the filesystem location of the log file.
	path string
	// mu serializes appends to the file.
	mu sync.Mutex
	// file is the open log handle, nil until the first append.
	file *os.File
}

// NewFileRepository creates a repository that appends JSON lines at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Append writes one event as a JSON line and syncs the file. The write and
// sync run off the calling goroutine so a deadline on ctx bounds the call even
// when the disk hangs: the caller gets the context error while the I/O
// goroutine keeps the lock until the write resolves, so lines never interleave.
func (r *FileRepository) Append(ctx context.Context, event *domain.AlertEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	data = append(data, '\n')

	r.mu.Lock()

	if err = ctx.Err(); err != nil {
		r.mu.Unlock()

		return fmt.Errorf("append aborted: %w", err)
	}

	done := make(chan error, 1)

	go func() {
		defer r.mu.Unlock()

		done <- r.writeLocked(data)
	}()

	select {
	case err = <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("append timed out: %w", ctx.Err())
	}
}

// writeLocked opens the file on first use, writes one line and syncs it.
// Callers hold mu.
func (r *FileRepository) writeLocked(data []byte) error {
	if r.file == nil {
		file, err := os.OpenFile(r.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, config.DefaultFilePermissions)
		if err != nil {
			return fmt.Errorf("open ledger file: %w", err)
		}

		r.file = file
	}

	if _, err := r.file.Write(data); err != nil {
		return fmt.Errorf("write event: %w", err)
	}

	if err := r.file.Sync(); err != nil {
		return fmt.Errorf("sync ledger file: %w", err)
	}

	return nil
}

// LoadAll reads every event from the log in write order. A missing file is an
// empty ledger, not an error.
func (r *FileRepository) LoadAll(_ context.Context) ([]*domain.AlertEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := os.Open(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("open ledger file: %w", err)
	}

	defer func() {
		_ = file.Close()
	}()

	var (
		out     []*domain.AlertEvent
		scanner = bufio.NewScanner(file)
	)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		event := new(domain.AlertEvent)
		if err = json.Unmarshal(line, event); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}

		out = append(out, event)
	}

	if err = scanner.Err(); err != nil {
		return nil, fmt.Errorf("read ledger file: %w", err)
	}

	return out, nil
}

// Close releases the underlying file handle.
func (r *FileRepository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		return nil
	}

	err := r.file.Close()
	r.file = nil

	if err != nil {
		return fmt.Errorf("close ledger file: %w", err)
	}

	return nil
}

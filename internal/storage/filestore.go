package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"budgetcal/internal/core"
)

// Store is the persistence port consumed by the service layer.
type Store interface {
	Load(ctx context.Context) (core.Dataset, error)
	Save(ctx context.Context, d core.Dataset) error
	Close() error
}

// FileStore persists the dataset as a single JSON snapshot on disk, the
// local-storage analog. Writes go through a temp file and rename so a crash
// mid-save never corrupts the previous snapshot.
type FileStore struct {
	path string
}

func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &FileStore{path: path}, nil
}

// Load reads and sanitizes the snapshot. A missing file is not an error:
// it loads the empty dataset with default categories, like a first run.
func (s *FileStore) Load(ctx context.Context) (core.Dataset, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.InfoContext(ctx, "No snapshot file, starting empty", "path", s.path)
			return core.EmptyDataset(), nil
		}
		return core.Dataset{}, fmt.Errorf("read snapshot: %w", err)
	}

	// Lenient decode: a saved state with zero transactions is valid.
	ds, stats, err := decode(data)
	if err != nil {
		return core.Dataset{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if stats.Skipped > 0 {
		slog.WarnContext(ctx, "Dropped invalid transactions on load",
			"path", s.path, "skipped", stats.Skipped, "loaded", stats.Imported)
	}
	return ds, nil
}

// Save writes the dataset atomically.
func (s *FileStore) Save(ctx context.Context, d core.Dataset) error {
	data, err := EncodeSnapshot(d, time.Now())
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	slog.DebugContext(ctx, "Snapshot saved", "path", s.path, "bytes", len(data))
	return nil
}

func (s *FileStore) Close() error { return nil }

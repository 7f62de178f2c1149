// Package persist stores JSON snapshots of client state under logical
// namespaces so a restarted client can rehydrate its session and catalog
// cache without re-querying the backend.
package persist

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// Store persists one JSON document per namespace. Load reports absence with
// (false, nil); a corrupt snapshot is treated as absent rather than fatal.
type Store interface {
	Load(ctx context.Context, name string, dest any) (bool, error)
	Save(ctx context.Context, name string, val any) error
	Delete(ctx context.Context, name string) error
}

// FileStore keeps one file per namespace under a state directory.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(name string) string {
	return filepath.Join(s.dir, name+".json")
}

func (s *FileStore) Load(_ context.Context, name string, dest any) (bool, error) {
	raw, err := os.ReadFile(s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		// Corrupt snapshot: treat as absent so startup can proceed.
		return false, nil
	}
	return true, nil
}

func (s *FileStore) Save(_ context.Context, name string, val any) error {
	raw, err := json.Marshal(val)
	if err != nil {
		return err
	}
	tmp := s.path(name) + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path(name))
}

func (s *FileStore) Delete(_ context.Context, name string) error {
	err := os.Remove(s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

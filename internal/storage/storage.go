package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"github.com/nikbrunner/bmtree/internal/model"
)

var (
	// ErrNoSnapshot is returned by Load when nothing has been saved yet.
	ErrNoSnapshot = errors.New("no snapshot stored")
	// ErrQuotaExceeded is returned by Save when the backend is out of space.
	ErrQuotaExceeded = errors.New("storage quota exceeded")
)

// Storage defines the interface for persisting tree snapshots.
type Storage interface {
	Load() (*model.Snapshot, error)
	Save(snap *model.Snapshot) error
}

// JSONStorage implements Storage using a JSON file.
type JSONStorage struct {
	path string
}

// NewJSONStorage creates a new JSONStorage with the given file path.
func NewJSONStorage(path string) *JSONStorage {
	return &JSONStorage{path: path}
}

// Path returns the storage file path.
func (s *JSONStorage) Path() string {
	return s.path
}

// Load reads the snapshot from the JSON file.
// Returns ErrNoSnapshot if the file doesn't exist.
func (s *JSONStorage) Load() (*model.Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoSnapshot
		}
		return nil, err
	}

	var snap model.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}

	// Ensure maps are not nil
	if snap.Nodes == nil {
		snap.Nodes = map[string]model.Node{}
	}
	if snap.Settings == nil {
		snap.Settings = map[string]any{}
	}

	return &snap, nil
}

// Save writes the snapshot to the JSON file.
// Creates the directory if it doesn't exist.
func (s *JSONStorage) Save(snap *model.Snapshot) error {
	// Ensure directory exists
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}

	// Write next to the target and rename so a failed write keeps the old file
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		_ = os.Remove(tmp)
		return quotaError(err)
	}
	return os.Rename(tmp, s.path)
}

// quotaError tags out-of-space errors with ErrQuotaExceeded.
func quotaError(err error) error {
	if errors.Is(err, syscall.ENOSPC) || errors.Is(err, syscall.EDQUOT) {
		return fmt.Errorf("%w: %v", ErrQuotaExceeded, err)
	}
	return err
}

// DefaultDataDir returns the default data directory: ~/.config/bm
func DefaultDataDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "bm"), nil
}

// Open opens the storage backend selected by the config.
func Open(cfg *Config) (Storage, error) {
	switch cfg.Backend {
	case BackendSQLite:
		return NewSQLiteStorage(cfg.DataPath)
	case BackendJSON, "":
		return NewJSONStorage(cfg.DataPath), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

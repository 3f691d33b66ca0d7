package storage

import (
	"encoding/json"
	"fmt"

	"github.com/nikbrunner/bmtree/internal/model"
)

// MemoryStorage keeps the encoded snapshot in memory.
// A positive MaxBytes rejects larger snapshots with ErrQuotaExceeded.
type MemoryStorage struct {
	MaxBytes int

	data  []byte
	saves int
}

// NewMemoryStorage creates an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// Load decodes the last saved snapshot.
func (s *MemoryStorage) Load() (*model.Snapshot, error) {
	if s.data == nil {
		return nil, ErrNoSnapshot
	}

	var snap model.Snapshot
	if err := json.Unmarshal(s.data, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Save encodes and stores the snapshot.
func (s *MemoryStorage) Save(snap *model.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	if s.MaxBytes > 0 && len(data) > s.MaxBytes {
		return fmt.Errorf("%w: snapshot is %d bytes, limit %d", ErrQuotaExceeded, len(data), s.MaxBytes)
	}

	s.data = data
	s.saves++
	return nil
}

// Saves returns how many snapshots have been written.
func (s *MemoryStorage) Saves() int {
	return s.saves
}

// Package tree is the ordered bookmark tree engine. Store owns the node
// map, validates every structural mutation, persists a full snapshot after
// each one and notifies subscribers.
package tree

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/nikbrunner/bmtree/internal/model"
	"github.com/nikbrunner/bmtree/internal/storage"
)

// Params holds parameters for opening a Store.
type Params struct {
	Storage storage.Storage
	Logger  *slog.Logger
	// Clock defaults to time.Now.
	Clock func() time.Time
	// NewID defaults to model.NewID.
	NewID func() string
	// RebalanceAt is the key length past which a parent's children are
	// rebalanced after an insert. Zero disables it.
	RebalanceAt int
}

// Store is the single authority for node mutation.
// It is not safe for concurrent use; one writer drives it.
type Store struct {
	nodes       model.NodeMap
	settings    map[string]any
	storage     storage.Storage
	logger      *slog.Logger
	now         func() time.Time
	newID       func() string
	rebalanceAt int

	listeners    []subscription
	nextListener int
}

type subscription struct {
	id int
	fn Listener
}

// Open loads the snapshot from storage, migrating it when needed.
// A missing snapshot yields a tree holding only the root folder.
func Open(p Params) (*Store, error) {
	if p.Storage == nil {
		return nil, errors.New("tree: storage is required")
	}

	s := &Store{
		storage:     p.Storage,
		logger:      p.Logger,
		now:         p.Clock,
		newID:       p.NewID,
		rebalanceAt: p.RebalanceAt,
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = model.NewID
	}

	snap, err := p.Storage.Load()
	switch {
	case errors.Is(err, storage.ErrNoSnapshot):
		snap = model.NewSnapshot(s.now())
		s.logger.Debug("no snapshot found, starting with empty tree")
	case err != nil:
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	fromVersion := snap.Version
	repaired := migrate(snap, s.now())
	if fromVersion != snap.Version || repaired > 0 {
		s.logger.Info("snapshot migrated",
			"from_version", fromVersion,
			"to_version", snap.Version,
			"repaired", repaired,
		)
	}

	s.nodes = make(model.NodeMap, len(snap.Nodes))
	for id, n := range snap.Nodes {
		n := n.Clone()
		s.nodes[id] = &n
	}
	s.settings = snap.Settings

	return s, nil
}

// Subscribe registers l to be called after every mutation and returns a
// function that removes it.
func (s *Store) Subscribe(l Listener) (unsubscribe func()) {
	s.nextListener++
	id := s.nextListener
	s.listeners = append(s.listeners, subscription{id: id, fn: l})

	return func() {
		s.listeners = slices.DeleteFunc(s.listeners, func(sub subscription) bool {
			return sub.id == id
		})
	}
}

// commit persists the snapshot and notifies subscribers. Persistence
// failures keep the in-memory change and are returned as ErrQuotaExceeded.
func (s *Store) commit(t *tx) error {
	if t.empty() {
		return nil
	}

	ch := t.change()
	err := s.storage.Save(s.snapshot())
	ch.Durable = err == nil

	s.logger.Debug("tree changed",
		"op", ch.Op,
		"ids", ch.IDs,
		"touched", len(t.touched),
	)
	if err != nil {
		s.logger.Warn("failed to persist snapshot",
			"op", ch.Op,
			"error", err,
		)
		err = fmt.Errorf("%w: %w", ErrQuotaExceeded, err)
	}

	for _, sub := range slices.Clone(s.listeners) {
		sub.fn(ch)
	}

	return err
}

// snapshot returns a deep copy of the current state.
func (s *Store) snapshot() *model.Snapshot {
	snap := &model.Snapshot{
		Version:  model.CurrentVersion,
		Nodes:    make(map[string]model.Node, len(s.nodes)),
		Settings: maps.Clone(s.settings),
	}
	for id, n := range s.nodes {
		snap.Nodes[id] = n.Clone()
	}
	if snap.Settings == nil {
		snap.Settings = map[string]any{}
	}
	return snap
}

// Snapshot returns a deep copy of the current state, for export.
func (s *Store) Snapshot() *model.Snapshot {
	return s.snapshot()
}

// Setting returns a stored setting.
func (s *Store) Setting(key string) (any, bool) {
	v, ok := s.settings[key]
	return v, ok
}

// SetSetting stores a setting and persists the snapshot.
func (s *Store) SetSetting(key string, value any) error {
	if s.settings == nil {
		s.settings = map[string]any{}
	}
	s.settings[key] = value

	t := s.begin(OpSettings, []string{key})
	t.dirty = true
	return s.commit(t)
}

package model

import "time"

// CurrentVersion is the snapshot schema version written by this build.
const CurrentVersion = 2

// Snapshot is the full persisted state of the tree.
type Snapshot struct {
	Version  int             `json:"version"`
	Nodes    map[string]Node `json:"nodes"`
	Settings map[string]any  `json:"settings"`
}

// NewSnapshot creates a snapshot holding only the root folder.
func NewSnapshot(now time.Time) *Snapshot {
	return &Snapshot{
		Version: CurrentVersion,
		Nodes: map[string]Node{
			RootID: NewRoot(now),
		},
		Settings: map[string]any{},
	}
}

// NewRoot creates the root folder.
func NewRoot(now time.Time) Node {
	return Node{
		ID:        RootID,
		Type:      TypeFolder,
		Title:     "Bookmarks",
		Tags:      []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

package model

import (
	"slices"
	"time"
)

// RootID is the identifier of the single root folder.
const RootID = "root"

// NodeType distinguishes folders from bookmarks. It is fixed at creation.
type NodeType string

const (
	TypeFolder   NodeType = "folder"
	TypeBookmark NodeType = "bookmark"
)

// Valid reports whether t is a known node type.
func (t NodeType) Valid() bool {
	return t == TypeFolder || t == TypeBookmark
}

// Node is a folder or a bookmark in the tree.
type Node struct {
	ID        string     `json:"id"`
	Type      NodeType   `json:"type"`
	ParentID  *string    `json:"parentId"` // nil = root
	OrderKey  string     `json:"orderKey"`
	Title     string     `json:"title"`
	URL       string     `json:"url,omitempty"`
	Color     string     `json:"color,omitempty"`
	Cover     string     `json:"cover,omitempty"`
	Icon      string     `json:"icon,omitempty"`
	Notes     string     `json:"notes,omitempty"`
	Tags      []string   `json:"tags"`
	Favorite  bool       `json:"favorite,omitempty"`
	ReadLater bool       `json:"readLater,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	VisitedAt *time.Time `json:"visitedAt,omitempty"` // nil = never visited
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
	// DeletedBy is the node whose deletion stamped this tombstone.
	DeletedBy string `json:"deletedBy,omitempty"`
}

// IsFolder reports whether the node is a folder.
func (n *Node) IsFolder() bool {
	return n.Type == TypeFolder
}

// IsDeleted reports whether the node is a soft-deleted tombstone.
func (n *Node) IsDeleted() bool {
	return n.DeletedAt != nil
}

// Parent returns the parent id, or "" for the root.
func (n *Node) Parent() string {
	if n.ParentID == nil {
		return ""
	}
	return *n.ParentID
}

// Clone returns a deep copy of the node.
func (n Node) Clone() Node {
	c := n
	if n.ParentID != nil {
		p := *n.ParentID
		c.ParentID = &p
	}
	if n.Tags != nil {
		c.Tags = slices.Clone(n.Tags)
	}
	if n.VisitedAt != nil {
		v := *n.VisitedAt
		c.VisitedAt = &v
	}
	if n.DeletedAt != nil {
		d := *n.DeletedAt
		c.DeletedAt = &d
	}
	return c
}

// NodeMap is the arena of all nodes keyed by id.
type NodeMap map[string]*Node

// Children returns the direct children of parentID, tombstones included,
// in map order.
func (m NodeMap) Children(parentID string) []*Node {
	var result []*Node
	for _, n := range m {
		if n.ParentID != nil && *n.ParentID == parentID {
			result = append(result, n)
		}
	}
	return result
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}

package tree

import (
	"fmt"
	"slices"

	"github.com/nikbrunner/bmtree/internal/guard"
	"github.com/nikbrunner/bmtree/internal/model"
)

// RootID returns the id of the root folder.
func (s *Store) RootID() string {
	return model.RootID
}

// Len returns the number of nodes, tombstones included.
func (s *Store) Len() int {
	return len(s.nodes)
}

// Get returns a copy of the node, which may be a tombstone.
func (s *Store) Get(id string) (model.Node, error) {
	n, ok := s.nodes[id]
	if !ok {
		return model.Node{}, fmt.Errorf("%w: node %s", ErrNotFound, id)
	}
	return n.Clone(), nil
}

// List returns the active children of parentID in key order.
func (s *Store) List(parentID string) ([]model.Node, error) {
	if _, err := s.activeFolder(parentID); err != nil {
		return nil, err
	}

	var result []model.Node
	for _, n := range s.siblings(parentID, nil) {
		if !n.IsDeleted() {
			result = append(result, n.Clone())
		}
	}
	return result, nil
}

// Trash returns the nodes that were deleted directly, newest first.
// Nodes deleted by a cascade are restored with their ancestor.
func (s *Store) Trash() []model.Node {
	var result []model.Node
	for _, n := range s.nodes {
		if n.IsDeleted() && n.DeletedBy == n.ID {
			result = append(result, n.Clone())
		}
	}
	slices.SortFunc(result, func(a, b model.Node) int {
		if c := b.DeletedAt.Compare(*a.DeletedAt); c != 0 {
			return c
		}
		return compareKeys(&a, &b)
	})
	return result
}

// Walk visits every active node below the root depth first, in display
// order. Returning an error stops the walk.
func (s *Store) Walk(fn func(n model.Node, depth int) error) error {
	var walk func(parentID string, depth int) error
	walk = func(parentID string, depth int) error {
		children, err := s.List(parentID)
		if err != nil {
			return err
		}
		for _, c := range children {
			if err := fn(c, depth); err != nil {
				return err
			}
			if c.IsFolder() {
				if err := walk(c.ID, depth+1); err != nil {
					return err
				}
			}
		}
		return nil
	}
	return walk(model.RootID, 0)
}

// Bookmarks returns every bookmark reachable through active folders, in
// display order.
func (s *Store) Bookmarks() []model.Node {
	var result []model.Node
	_ = s.Walk(func(n model.Node, _ int) error {
		if !n.IsFolder() {
			result = append(result, n)
		}
		return nil
	})
	return result
}

// Path returns the nodes from the root down to id.
func (s *Store) Path(id string) ([]model.Node, error) {
	if _, ok := s.nodes[id]; !ok {
		return nil, fmt.Errorf("%w: node %s", ErrNotFound, id)
	}
	return guard.Breadcrumbs(s.nodes, id), nil
}

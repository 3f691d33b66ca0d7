// Package guard holds the structural checks that run before a move or
// delete touches the tree. All functions are pure over a node map.
package guard

import (
	"slices"

	"github.com/nikbrunner/bmtree/internal/model"
)

// DetectCycle reports whether placing movingID under targetParentID would
// make the parent chain revisit a node.
func DetectCycle(nodes model.NodeMap, movingID, targetParentID string) bool {
	if movingID == targetParentID {
		return true
	}

	moving, ok := nodes[movingID]
	if !ok || !moving.IsFolder() {
		// Bookmarks have no descendants to loop through.
		return false
	}

	seen := make(map[string]bool)
	current := targetParentID
	for {
		if current == movingID {
			return true
		}
		if seen[current] {
			// Chain is already corrupt.
			return true
		}
		seen[current] = true

		n, ok := nodes[current]
		if !ok || n.ParentID == nil {
			return false
		}
		current = *n.ParentID
	}
}

// DetectCycleForMultiple reports whether any of movingIDs would cycle.
func DetectCycleForMultiple(nodes model.NodeMap, movingIDs []string, targetParentID string) bool {
	for _, id := range movingIDs {
		if DetectCycle(nodes, id, targetParentID) {
			return true
		}
	}
	return false
}

// ChildIndex maps each parent id to its child ids, tombstones included.
// Child lists are sorted by order key, then id.
func ChildIndex(nodes model.NodeMap) map[string][]string {
	index := make(map[string][]string)
	for id, n := range nodes {
		if n.ParentID == nil {
			continue
		}
		index[*n.ParentID] = append(index[*n.ParentID], id)
	}
	for _, ids := range index {
		slices.SortFunc(ids, func(a, b string) int {
			return compareNodes(nodes[a], nodes[b])
		})
	}
	return index
}

// DescendantIDs returns id followed by every node beneath it, breadth first.
// Only folders are descended into.
func DescendantIDs(nodes model.NodeMap, id string) []string {
	start, ok := nodes[id]
	if !ok {
		return nil
	}

	result := []string{id}
	if !start.IsFolder() {
		return result
	}

	index := ChildIndex(nodes)
	seen := map[string]bool{id: true}
	queue := []string{id}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, child := range index[current] {
			if seen[child] {
				continue
			}
			seen[child] = true
			result = append(result, child)
			if nodes[child].IsFolder() {
				queue = append(queue, child)
			}
		}
	}
	return result
}

// AncestorIDs returns the parent chain of id, nearest first, ending at the root.
func AncestorIDs(nodes model.NodeMap, id string) []string {
	var result []string
	seen := map[string]bool{id: true}

	n, ok := nodes[id]
	for ok && n.ParentID != nil {
		parent := *n.ParentID
		if seen[parent] {
			break
		}
		seen[parent] = true
		result = append(result, parent)
		n, ok = nodes[parent]
	}
	return result
}

// Breadcrumbs returns the path from the root down to id, inclusive.
func Breadcrumbs(nodes model.NodeMap, id string) []model.Node {
	n, ok := nodes[id]
	if !ok {
		return nil
	}

	ancestors := AncestorIDs(nodes, id)
	path := make([]model.Node, 0, len(ancestors)+1)
	for i := len(ancestors) - 1; i >= 0; i-- {
		if a, ok := nodes[ancestors[i]]; ok {
			path = append(path, a.Clone())
		}
	}
	return append(path, n.Clone())
}

func compareNodes(a, b *model.Node) int {
	switch {
	case a.OrderKey < b.OrderKey:
		return -1
	case a.OrderKey > b.OrderKey:
		return 1
	case a.ID < b.ID:
		return -1
	case a.ID > b.ID:
		return 1
	}
	return 0
}

package tree

import (
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/nikbrunner/bmtree/internal/model"
	"github.com/nikbrunner/bmtree/internal/orderkey"
)

// migrate brings a loaded snapshot up to the current version and repairs
// structural damage in place. It returns the number of repairs made.
func migrate(snap *model.Snapshot, now time.Time) int {
	repaired := 0
	if snap.Settings == nil {
		snap.Settings = map[string]any{}
	}

	nodes := make(model.NodeMap, len(snap.Nodes))
	for id, n := range snap.Nodes {
		n := n.Clone()
		if n.ID != id {
			n.ID = id
			repaired++
		}
		if !n.Type.Valid() {
			n.Type = model.TypeFolder
			if n.URL != "" {
				n.Type = model.TypeBookmark
			}
			repaired++
		}
		if n.Tags == nil {
			n.Tags = []string{}
		}
		if n.CreatedAt.IsZero() {
			n.CreatedAt = now
		}
		if n.UpdatedAt.IsZero() {
			n.UpdatedAt = n.CreatedAt
		}
		if n.IsDeleted() && n.DeletedBy == "" {
			n.DeletedBy = n.ID
		}
		nodes[id] = &n
	}

	root, ok := nodes[model.RootID]
	if !ok {
		r := model.NewRoot(now)
		root = &r
		nodes[model.RootID] = root
		repaired++
	}
	if root.ParentID != nil || !root.IsFolder() || root.IsDeleted() || root.URL != "" {
		root.ParentID = nil
		root.Type = model.TypeFolder
		root.URL = ""
		root.DeletedAt = nil
		root.DeletedBy = ""
		repaired++
	}
	root.OrderKey = ""

	for _, id := range slices.Sorted(maps.Keys(nodes)) {
		n := nodes[id]
		if id == model.RootID {
			continue
		}
		if n.IsFolder() && n.URL != "" {
			n.URL = ""
			repaired++
		}
		if !reachesRoot(nodes, id) {
			n.ParentID = model.StringPtr(model.RootID)
			repaired++
		}
	}

	repaired += repairKeys(nodes)

	snap.Nodes = make(map[string]model.Node, len(nodes))
	for id, n := range nodes {
		snap.Nodes[id] = *n
	}
	snap.Version = model.CurrentVersion

	return repaired
}

// reachesRoot reports whether the parent chain of id ends at the root
// through folders only.
func reachesRoot(nodes model.NodeMap, id string) bool {
	seen := map[string]bool{id: true}
	n := nodes[id]
	for n.ParentID != nil {
		parent, ok := nodes[*n.ParentID]
		if !ok || !parent.IsFolder() || seen[parent.ID] {
			return false
		}
		seen[parent.ID] = true
		n = parent
	}
	return n.ID == model.RootID
}

// repairKeys gives every child a valid key and respaces sibling groups that
// contain ties. Nodes without a usable key are appended in creation order.
func repairKeys(nodes model.NodeMap) int {
	groups := make(map[string][]*model.Node)
	for _, n := range nodes {
		if n.ParentID != nil {
			groups[*n.ParentID] = append(groups[*n.ParentID], n)
		}
	}

	repaired := 0
	for _, group := range groups {
		var keyed, unkeyed []*model.Node
		for _, n := range group {
			if orderkey.Validate(n.OrderKey) == nil {
				keyed = append(keyed, n)
			} else {
				unkeyed = append(unkeyed, n)
			}
		}
		slices.SortFunc(keyed, compareKeys)
		slices.SortFunc(unkeyed, func(a, b *model.Node) int {
			if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
				return c
			}
			return strings.Compare(a.ID, b.ID)
		})

		respace := false
		if len(unkeyed) > 0 {
			last := ""
			if len(keyed) > 0 {
				last = keyed[len(keyed)-1].OrderKey
			}
			keys, err := orderkey.GenerateKeys(len(unkeyed), last, "")
			for i, n := range unkeyed {
				if err == nil {
					n.OrderKey = keys[i]
				}
			}
			respace = err != nil
			repaired += len(unkeyed)
			keyed = append(keyed, unkeyed...)
		}

		if respace || hasTies(keyed) {
			items := make([]orderkey.Item, len(keyed))
			for i, n := range keyed {
				items[i] = orderkey.Item{ID: n.ID, Key: n.OrderKey}
			}
			keys := orderkey.Rebalance(items)
			for _, n := range keyed {
				n.OrderKey = keys[n.ID]
			}
			repaired++
		}
	}
	return repaired
}

// hasTies reports whether two nodes of a key-sorted slice share a key.
func hasTies(sorted []*model.Node) bool {
	for i := 1; i < len(sorted); i++ {
		if sorted[i].OrderKey == sorted[i-1].OrderKey {
			return true
		}
	}
	return false
}

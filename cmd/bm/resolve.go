package main

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/nikbrunner/bmtree/internal/model"
	"github.com/nikbrunner/bmtree/internal/search"
	"github.com/nikbrunner/bmtree/internal/tree"
)

// minPrefix is the shortest id prefix accepted as a reference.
const minPrefix = 4

// resolve finds the node a command line reference names: an exact id, an
// exact title (case-insensitive) or an id prefix. Tombstones are only
// considered when withDeleted is set.
func resolve(a *app, ref string, withDeleted bool) (model.Node, error) {
	if ref == "" || ref == "/" {
		ref = model.RootID
	}
	if n, err := a.store.Get(ref); err == nil && (withDeleted || !n.IsDeleted()) {
		return n, nil
	}

	nodes := a.store.Snapshot().Nodes
	var byTitle, byPrefix []model.Node
	for _, id := range slices.Sorted(maps.Keys(nodes)) {
		n := nodes[id]
		if n.IsDeleted() && !withDeleted {
			continue
		}
		if strings.EqualFold(n.Title, ref) {
			byTitle = append(byTitle, n)
		}
		if len(ref) >= minPrefix && strings.HasPrefix(n.ID, ref) {
			byPrefix = append(byPrefix, n)
		}
	}

	for _, candidates := range [][]model.Node{byTitle, byPrefix} {
		switch len(candidates) {
		case 0:
			continue
		case 1:
			return candidates[0], nil
		default:
			ids := make([]string, len(candidates))
			for i, c := range candidates {
				ids[i] = shortID(c.ID)
			}
			return model.Node{}, fmt.Errorf("%q is ambiguous, use an id: %s", ref, strings.Join(ids, ", "))
		}
	}
	return model.Node{}, fmt.Errorf("%w: %q", tree.ErrNotFound, ref)
}

func resolveFolder(a *app, ref string) (model.Node, error) {
	n, err := resolve(a, ref, false)
	if err != nil {
		return n, err
	}
	if !n.IsFolder() {
		return n, fmt.Errorf("%w: %q is not a folder", tree.ErrInvalidStructural, ref)
	}
	return n, nil
}

func resolveIDs(a *app, refs []string, withDeleted bool) ([]string, error) {
	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		n, err := resolve(a, ref, withDeleted)
		if err != nil {
			return nil, err
		}
		ids = append(ids, n.ID)
	}
	return ids, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// folderPath renders the folders above n, without the root.
func folderPath(a *app, n model.Node) string {
	path, err := a.store.Path(n.ID)
	if err != nil || len(path) < 2 {
		return "/"
	}
	titles := make([]string, 0, len(path)-2)
	for _, p := range path[1 : len(path)-1] {
		titles = append(titles, p.Title)
	}
	return "/" + strings.Join(titles, "/")
}

func formatNode(n model.Node) string {
	if n.IsFolder() {
		return fmt.Sprintf("%-8s  %s/", shortID(n.ID), n.Title)
	}
	return fmt.Sprintf("%-8s  %s  %s", shortID(n.ID), search.Label(n), n.URL)
}

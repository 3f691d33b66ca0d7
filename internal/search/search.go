package search

import (
	"github.com/sahilm/fuzzy"

	"github.com/nikbrunner/bmtree/internal/model"
)

// Result represents a fuzzy search match.
type Result struct {
	Node           model.Node
	MatchedIndexes []int
	Score          int
}

// nodeLabels implements fuzzy.Source over node labels.
type nodeLabels []model.Node

func (nl nodeLabels) String(i int) string {
	return Label(nl[i])
}

func (nl nodeLabels) Len() int {
	return len(nl)
}

// Label is the text a node is matched and displayed by: its title, or its
// URL when untitled.
func Label(n model.Node) string {
	if n.Title == "" {
		return n.URL
	}
	return n.Title
}

// Nodes searches nodes by label using fuzzy matching.
// Returns results sorted by match score (best first).
func Nodes(nodes []model.Node, query string) []Result {
	if query == "" {
		return nil
	}

	matches := fuzzy.FindFrom(query, nodeLabels(nodes))

	results := make([]Result, len(matches))
	for i, m := range matches {
		results[i] = Result{
			Node:           nodes[m.Index],
			MatchedIndexes: m.MatchedIndexes,
			Score:          m.Score,
		}
	}

	return results
}

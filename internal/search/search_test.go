package search

import (
	"testing"

	"github.com/nikbrunner/bmtree/internal/model"
)

func bookmark(id, title, url string) model.Node {
	return model.Node{
		ID:       id,
		Type:     model.TypeBookmark,
		ParentID: model.StringPtr(model.RootID),
		Title:    title,
		URL:      url,
	}
}

func TestNodes_EmptyQuery(t *testing.T) {
	nodes := []model.Node{bookmark("b1", "GitHub", "https://github.com")}

	results := Nodes(nodes, "")

	if len(results) != 0 {
		t.Errorf("expected 0 results for empty query, got %d", len(results))
	}
}

func TestNodes_ExactMatch(t *testing.T) {
	nodes := []model.Node{
		bookmark("b1", "GitHub", "https://github.com"),
		bookmark("b2", "GitLab", "https://gitlab.com"),
	}

	results := Nodes(nodes, "GitHub")

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Node.ID != "b1" {
		t.Errorf("expected GitHub, got %s", results[0].Node.Title)
	}
}

func TestNodes_FuzzyMatch(t *testing.T) {
	nodes := []model.Node{
		bookmark("b1", "TanStack Router", "https://tanstack.com/router"),
		bookmark("b2", "React Router", "https://reactrouter.com"),
	}

	// "tanrou" should fuzzy match "TanStack Router"
	results := Nodes(nodes, "tanrou")

	if len(results) < 1 {
		t.Fatalf("expected at least 1 result for 'tanrou', got %d", len(results))
	}
	if results[0].Node.Title != "TanStack Router" {
		t.Errorf("expected TanStack Router as first result, got %s", results[0].Node.Title)
	}
}

func TestNodes_MultipleMatches(t *testing.T) {
	nodes := []model.Node{
		bookmark("b1", "GitHub", "https://github.com"),
		bookmark("b2", "GitLab", "https://gitlab.com"),
		bookmark("b3", "Gitea", "https://gitea.io"),
	}

	results := Nodes(nodes, "git")

	if len(results) != 3 {
		t.Errorf("expected 3 results for 'git', got %d", len(results))
	}
}

func TestNodes_NoMatch(t *testing.T) {
	nodes := []model.Node{bookmark("b1", "GitHub", "https://github.com")}

	results := Nodes(nodes, "xyz123")

	if len(results) != 0 {
		t.Errorf("expected 0 results for 'xyz123', got %d", len(results))
	}
}

func TestNodes_CaseInsensitive(t *testing.T) {
	nodes := []model.Node{bookmark("b1", "GitHub", "https://github.com")}

	results := Nodes(nodes, "github")

	if len(results) != 1 {
		t.Fatalf("expected 1 result for case-insensitive match, got %d", len(results))
	}
}

func TestNodes_UntitledMatchesURL(t *testing.T) {
	nodes := []model.Node{bookmark("b1", "", "https://pkg.go.dev")}

	results := Nodes(nodes, "pkggo")

	if len(results) != 1 {
		t.Fatalf("expected untitled bookmark to match by url, got %d results", len(results))
	}
	if Label(results[0].Node) != "https://pkg.go.dev" {
		t.Errorf("expected url label, got %q", Label(results[0].Node))
	}
}

func TestNodes_SortedByScore(t *testing.T) {
	nodes := []model.Node{
		bookmark("b1", "React Router Documentation", "https://reactrouter.com"),
		bookmark("b2", "Router", "https://router.example.com"),
	}

	results := Nodes(nodes, "router")

	if len(results) < 2 {
		t.Fatalf("expected at least 2 results, got %d", len(results))
	}
	// "Router" should rank higher (exact match) than "React Router Documentation"
	if results[0].Node.Title != "Router" {
		t.Errorf("expected 'Router' as first result (exact match), got %s", results[0].Node.Title)
	}
}

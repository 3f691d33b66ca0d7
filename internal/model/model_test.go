package model_test

import (
	"encoding/json"
	"slices"
	"testing"
	"time"

	"github.com/nikbrunner/bmtree/internal/model"
)

// Helper functions for pointers
func stringPtr(s string) *string     { return &s }
func boolPtr(b bool) *bool           { return &b }
func timePtr(t time.Time) *time.Time { return &t }

func TestNode_JSONRootHasNullParent(t *testing.T) {
	root := model.NewRoot(time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC))

	data, err := json.Marshal(root)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}

	if v, ok := raw["parentId"]; !ok || v != nil {
		t.Errorf("expected parentId to be null, got %v", v)
	}
	if _, ok := raw["deletedAt"]; ok {
		t.Error("deletedAt should be omitted for active nodes")
	}
	if _, ok := raw["url"]; ok {
		t.Error("url should be omitted for folders")
	}
}

func TestNode_Clone(t *testing.T) {
	deleted := time.Date(2025, 1, 20, 14, 22, 0, 0, time.UTC)
	n := model.Node{
		ID:        "b1",
		Type:      model.TypeBookmark,
		ParentID:  stringPtr("f1"),
		Tags:      []string{"go"},
		DeletedAt: &deleted,
	}

	c := n.Clone()
	*c.ParentID = "f2"
	c.Tags[0] = "rust"
	*c.DeletedAt = deleted.Add(time.Hour)

	if *n.ParentID != "f1" {
		t.Errorf("clone shares ParentID, original now %q", *n.ParentID)
	}
	if n.Tags[0] != "go" {
		t.Errorf("clone shares Tags, original now %q", n.Tags[0])
	}
	if !n.DeletedAt.Equal(deleted) {
		t.Error("clone shares DeletedAt")
	}
}

func TestNodeType_Valid(t *testing.T) {
	tests := []struct {
		typ  model.NodeType
		want bool
	}{
		{model.TypeFolder, true},
		{model.TypeBookmark, true},
		{"", false},
		{"separator", false},
	}

	for _, tt := range tests {
		if got := tt.typ.Valid(); got != tt.want {
			t.Errorf("NodeType(%q).Valid() = %v, want %v", tt.typ, got, tt.want)
		}
	}
}

func TestNodeMap_Children(t *testing.T) {
	nodes := model.NodeMap{
		"root": {ID: "root", Type: model.TypeFolder},
		"f1":   {ID: "f1", Type: model.TypeFolder, ParentID: stringPtr("root")},
		"f2":   {ID: "f2", Type: model.TypeFolder, ParentID: stringPtr("root")},
		"b1":   {ID: "b1", Type: model.TypeBookmark, ParentID: stringPtr("f1")},
	}

	if got := len(nodes.Children("root")); got != 2 {
		t.Errorf("expected 2 root children, got %d", got)
	}
	if got := len(nodes.Children("f1")); got != 1 {
		t.Errorf("expected 1 child in f1, got %d", got)
	}
	if got := len(nodes.Children("f2")); got != 0 {
		t.Errorf("expected 0 children in f2, got %d", got)
	}
}

func TestPatch_Diff(t *testing.T) {
	visited := time.Date(2025, 1, 20, 14, 22, 0, 0, time.UTC)
	node := model.Node{
		ID:        "b1",
		Title:     "Go",
		URL:       "https://go.dev",
		Tags:      []string{"go"},
		Favorite:  true,
		VisitedAt: &visited,
	}

	tests := []struct {
		name  string
		patch model.Patch
		want  []string
	}{
		{
			name:  "unchanged values are dropped",
			patch: model.Patch{Title: stringPtr("Go"), Favorite: boolPtr(true), VisitedAt: timePtr(visited)},
			want:  nil,
		},
		{
			name:  "changed title is kept",
			patch: model.Patch{Title: stringPtr("Go Dev"), URL: stringPtr("https://go.dev")},
			want:  []string{"title"},
		},
		{
			name:  "tags compared by value",
			patch: model.Patch{Tags: &[]string{"go", "docs"}},
			want:  []string{"tags"},
		},
		{
			name:  "flags and notes",
			patch: model.Patch{Favorite: boolPtr(false), ReadLater: boolPtr(true), Notes: stringPtr("n")},
			want:  []string{"notes", "favorite", "readLater"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.patch.Diff(node).Fields()
			if !slices.Equal(got, tt.want) {
				t.Errorf("Diff fields = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPatch_Apply(t *testing.T) {
	node := model.Node{ID: "b1", Title: "Old", Tags: []string{"a"}}
	tags := []string{"x", "y"}

	model.Patch{Title: stringPtr("New"), Tags: &tags, ReadLater: boolPtr(true)}.Apply(&node)

	if node.Title != "New" {
		t.Errorf("expected title 'New', got %q", node.Title)
	}
	if !slices.Equal(node.Tags, []string{"x", "y"}) {
		t.Errorf("expected tags [x y], got %v", node.Tags)
	}
	if !node.ReadLater {
		t.Error("expected ReadLater to be set")
	}

	// Patch slice must not alias the node
	tags[0] = "changed"
	if node.Tags[0] != "x" {
		t.Error("Apply should copy the tags slice")
	}
}

func TestPatch_IsEmpty(t *testing.T) {
	if !(model.Patch{}).IsEmpty() {
		t.Error("zero patch should be empty")
	}
	if (model.Patch{Icon: stringPtr("star")}).IsEmpty() {
		t.Error("patch with icon should not be empty")
	}
}

func TestNewSnapshot_HasRoot(t *testing.T) {
	snap := model.NewSnapshot(time.Now())

	if snap.Version != model.CurrentVersion {
		t.Errorf("expected version %d, got %d", model.CurrentVersion, snap.Version)
	}
	root, ok := snap.Nodes[model.RootID]
	if !ok {
		t.Fatal("expected root node in new snapshot")
	}
	if root.ParentID != nil {
		t.Error("root must not have a parent")
	}
	if root.Type != model.TypeFolder {
		t.Errorf("root must be a folder, got %q", root.Type)
	}
	if len(model.NewID()) != 36 {
		t.Error("expected uuid-formatted ids")
	}
}

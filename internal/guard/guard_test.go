package guard_test

import (
	"testing"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"github.com/nikbrunner/bmtree/internal/guard"
	"github.com/nikbrunner/bmtree/internal/model"
)

func stringPtr(s string) *string { return &s }

// testNodes builds:
//
//	root
//	├── dev (a)
//	│   ├── go (a)
//	│   │   └── go-docs (a)
//	│   └── github (b)
//	└── tools (b)
//	    └── old (a)
func testNodes() model.NodeMap {
	folder := func(id, parent, key string) *model.Node {
		return &model.Node{ID: id, Type: model.TypeFolder, ParentID: stringPtr(parent), OrderKey: key}
	}
	bookmark := func(id, parent, key string) *model.Node {
		return &model.Node{ID: id, Type: model.TypeBookmark, ParentID: stringPtr(parent), OrderKey: key}
	}

	return model.NodeMap{
		"root":    {ID: "root", Type: model.TypeFolder},
		"dev":     folder("dev", "root", "a"),
		"go":      folder("go", "dev", "a"),
		"go-docs": bookmark("go-docs", "go", "a"),
		"github":  bookmark("github", "dev", "b"),
		"tools":   folder("tools", "root", "b"),
		"old":     folder("old", "tools", "a"),
	}
}

func TestDetectCycle_DescendantProperty(t *testing.T) {
	nodes := testNodes()

	for id, n := range nodes {
		if !n.IsFolder() {
			continue
		}
		descendants := make(map[string]bool)
		for _, d := range guard.DescendantIDs(nodes, id) {
			descendants[d] = true
		}
		for target := range nodes {
			got := guard.DetectCycle(nodes, id, target)
			assert.Equal(t, got, descendants[target], "moving %s under %s", id, target)
		}
	}
}

func TestDetectCycle(t *testing.T) {
	nodes := testNodes()

	tests := []struct {
		name           string
		moving, target string
		want           bool
	}{
		{name: "onto itself", moving: "dev", target: "dev", want: true},
		{name: "bookmark onto itself", moving: "github", target: "github", want: true},
		{name: "into own child", moving: "dev", target: "go", want: true},
		{name: "into own grandchild", moving: "dev", target: "go-docs", want: true},
		{name: "into sibling", moving: "dev", target: "tools", want: false},
		{name: "into parent", moving: "go", target: "root", want: false},
		{name: "bookmark anywhere", moving: "go-docs", target: "dev", want: false},
		{name: "unknown target", moving: "dev", target: "missing", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, guard.DetectCycle(nodes, tt.moving, tt.target), tt.want)
		})
	}
}

func TestDetectCycle_CorruptChain(t *testing.T) {
	nodes := testNodes()
	// x and y point at each other and never reach the root.
	nodes["x"] = &model.Node{ID: "x", Type: model.TypeFolder, ParentID: stringPtr("y")}
	nodes["y"] = &model.Node{ID: "y", Type: model.TypeFolder, ParentID: stringPtr("x")}

	assert.Assert(t, guard.DetectCycle(nodes, "tools", "x"))
}

func TestDetectCycleForMultiple(t *testing.T) {
	nodes := testNodes()

	assert.Assert(t, !guard.DetectCycleForMultiple(nodes, []string{"github", "tools"}, "go"))
	assert.Assert(t, guard.DetectCycleForMultiple(nodes, []string{"tools", "dev"}, "go"))
	assert.Assert(t, !guard.DetectCycleForMultiple(nodes, nil, "go"))
}

func TestDescendantIDs(t *testing.T) {
	nodes := testNodes()

	assert.DeepEqual(t, guard.DescendantIDs(nodes, "dev"), []string{"dev", "go", "github", "go-docs"})
	assert.DeepEqual(t, guard.DescendantIDs(nodes, "tools"), []string{"tools", "old"})
	assert.DeepEqual(t, guard.DescendantIDs(nodes, "github"), []string{"github"})
	assert.Assert(t, is.Nil(guard.DescendantIDs(nodes, "missing")))
}

func TestAncestorIDs(t *testing.T) {
	nodes := testNodes()

	assert.DeepEqual(t, guard.AncestorIDs(nodes, "go-docs"), []string{"go", "dev", "root"})
	assert.Assert(t, is.Len(guard.AncestorIDs(nodes, "root"), 0))
}

func TestBreadcrumbs(t *testing.T) {
	nodes := testNodes()

	path := guard.Breadcrumbs(nodes, "go-docs")
	ids := make([]string, len(path))
	for i, n := range path {
		ids[i] = n.ID
	}
	assert.DeepEqual(t, ids, []string{"root", "dev", "go", "go-docs"})
}

func TestChildIndex_SortedByKey(t *testing.T) {
	nodes := testNodes()
	nodes["first"] = &model.Node{ID: "first", Type: model.TypeBookmark, ParentID: stringPtr("dev"), OrderKey: "0V"}

	index := guard.ChildIndex(nodes)
	assert.DeepEqual(t, index["dev"], []string{"first", "go", "github"})
}

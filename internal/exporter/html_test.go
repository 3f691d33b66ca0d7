package exporter

import (
	"errors"
	"strings"
	"testing"
	"time"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
	"gotest.tools/v3/golden"

	"github.com/nikbrunner/bmtree/internal/model"
)

// fakeLister serves children from a fixed map, already in display order.
type fakeLister map[string][]model.Node

func (f fakeLister) List(parentID string) ([]model.Node, error) {
	children, ok := f[parentID]
	if !ok {
		return nil, errors.New("no such folder")
	}
	return children, nil
}

var stamp = time.Unix(1700000000, 0)

func folderNode(id, title string) model.Node {
	return model.Node{ID: id, Type: model.TypeFolder, Title: title, CreatedAt: stamp, UpdatedAt: stamp}
}

func bookmarkNode(id, title, url string, tags ...string) model.Node {
	return model.Node{ID: id, Type: model.TypeBookmark, Title: title, URL: url, Tags: tags, CreatedAt: stamp, UpdatedAt: stamp}
}

func TestExportHTML_EmptyTree(t *testing.T) {
	html, err := ExportHTML(fakeLister{model.RootID: nil}, model.RootID)
	assert.NilError(t, err)

	assert.Assert(t, is.Contains(html, "<!DOCTYPE NETSCAPE-Bookmark-file-1>"))
	assert.Assert(t, is.Contains(html, "<TITLE>Bookmarks</TITLE>"))
	assert.Assert(t, is.Contains(html, "<H1>Bookmarks</H1>"))
}

func TestExportHTML_Golden(t *testing.T) {
	l := fakeLister{
		model.RootID: {
			folderNode("f1", "Development"),
			bookmarkNode("b1", "GitHub", "https://github.com", "code", "git"),
			folderNode("f2", "Empty"),
		},
		"f1": {
			folderNode("f3", "React"),
			bookmarkNode("b2", "Go", "https://go.dev"),
		},
		"f3": {
			bookmarkNode("b3", "TanStack Router", "https://tanstack.com/router"),
		},
		"f2": nil,
	}

	html, err := ExportHTML(l, model.RootID)
	assert.NilError(t, err)
	golden.Assert(t, html, "export.golden")
}

func TestExportHTML_KeepsSiblingOrder(t *testing.T) {
	l := fakeLister{
		model.RootID: {
			bookmarkNode("b1", "First", "https://first.example"),
			folderNode("f1", "Middle"),
			bookmarkNode("b2", "Last", "https://last.example"),
		},
		"f1": nil,
	}

	html, err := ExportHTML(l, model.RootID)
	assert.NilError(t, err)

	first := strings.Index(html, "First</A>")
	middle := strings.Index(html, "Middle</H3>")
	last := strings.Index(html, "Last</A>")
	assert.Assert(t, first >= 0 && first < middle && middle < last)
}

func TestExportHTML_EscapesSpecialCharacters(t *testing.T) {
	l := fakeLister{
		model.RootID: {bookmarkNode("b1", "Test <script>alert('xss')</script>", "https://example.com?foo=bar&baz=qux")},
	}

	html, err := ExportHTML(l, model.RootID)
	assert.NilError(t, err)

	assert.Assert(t, !strings.Contains(html, "<script>"), "script tag should be escaped")
	assert.Assert(t, is.Contains(html, "&lt;script&gt;"))
	assert.Assert(t, !strings.Contains(html, "foo=bar&baz"), "ampersand should be escaped in URL")
	assert.Assert(t, is.Contains(html, "foo=bar&amp;baz"))
}

func TestExportHTML_ListError(t *testing.T) {
	l := fakeLister{model.RootID: {folderNode("f1", "Broken")}}

	_, err := ExportHTML(l, model.RootID)
	assert.ErrorContains(t, err, "list f1")
}

package importer_test

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/nikbrunner/bmtree/internal/importer"
	"github.com/nikbrunner/bmtree/internal/model"
	"github.com/nikbrunner/bmtree/internal/storage"
	"github.com/nikbrunner/bmtree/internal/tree"
)

func parse(t *testing.T, doc string, opts importer.Options) importer.Result {
	t.Helper()

	if opts.ParentID == "" {
		opts.ParentID = model.RootID
	}
	res, err := importer.ParseHTML(strings.NewReader(doc), opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return res
}

func byTitle(nodes []model.Node, title string) *model.Node {
	for i := range nodes {
		if nodes[i].Title == title {
			return &nodes[i]
		}
	}
	return nil
}

func TestParseHTML_SingleBookmark(t *testing.T) {
	html := `<!DOCTYPE NETSCAPE-Bookmark-file-1>
<TITLE>Bookmarks</TITLE>
<H1>Bookmarks</H1>
<DL><p>
    <DT><A HREF="https://example.com" ADD_DATE="1234567890" TAGS="web, test">Example Site</A>
</DL><p>`

	res := parse(t, html, importer.Options{})

	if res.Folders != 0 {
		t.Errorf("expected 0 folders, got %d", res.Folders)
	}
	if len(res.Nodes) != 1 {
		t.Fatalf("expected 1 node, got %d", len(res.Nodes))
	}

	b := res.Nodes[0]
	if b.Title != "Example Site" {
		t.Errorf("expected title 'Example Site', got %q", b.Title)
	}
	if b.URL != "https://example.com" {
		t.Errorf("expected URL 'https://example.com', got %q", b.URL)
	}
	if b.Type != model.TypeBookmark {
		t.Errorf("expected bookmark, got %q", b.Type)
	}
	if b.Parent() != model.RootID {
		t.Errorf("expected parent root, got %q", b.Parent())
	}
	if b.ID == "" {
		t.Error("expected non-empty ID")
	}
	if b.OrderKey != "V" {
		t.Errorf("expected first key 'V', got %q", b.OrderKey)
	}
	if len(b.Tags) != 2 || b.Tags[0] != "web" || b.Tags[1] != "test" {
		t.Errorf("expected tags [web test], got %v", b.Tags)
	}
}

func TestParseHTML_NestedFolders(t *testing.T) {
	html := `<!DOCTYPE NETSCAPE-Bookmark-file-1>
<DL><p>
    <DT><H3 ADD_DATE="1234567890">Development</H3>
    <DL><p>
        <DT><H3 ADD_DATE="1234567890">React</H3>
        <DL><p>
            <DT><A HREF="https://react.dev" ADD_DATE="1234567890">React Docs</A>
        </DL><p>
        <DT><A HREF="https://github.com" ADD_DATE="1234567890">GitHub</A>
    </DL><p>
    <DT><A HREF="https://google.com" ADD_DATE="1234567890">Google</A>
</DL><p>`

	res := parse(t, html, importer.Options{})

	if res.Folders != 2 || res.Bookmarks != 3 {
		t.Fatalf("expected 2 folders and 3 bookmarks, got %d and %d", res.Folders, res.Bookmarks)
	}

	dev := byTitle(res.Nodes, "Development")
	react := byTitle(res.Nodes, "React")
	if dev == nil || react == nil {
		t.Fatal("folders not found")
	}
	if dev.Parent() != model.RootID {
		t.Error("Development should be at the import target")
	}
	if react.Parent() != dev.ID {
		t.Error("React should be child of Development")
	}

	checks := map[string]string{
		"React Docs": react.ID,
		"GitHub":     dev.ID,
		"Google":     model.RootID,
	}
	for title, parent := range checks {
		n := byTitle(res.Nodes, title)
		if n == nil || n.Parent() != parent {
			t.Errorf("%s should be in %s", title, parent)
		}
	}

	// Document order is key order within each folder.
	google := byTitle(res.Nodes, "Google")
	if dev.OrderKey >= google.OrderKey {
		t.Errorf("expected Development (%q) before Google (%q)", dev.OrderKey, google.OrderKey)
	}
	github := byTitle(res.Nodes, "GitHub")
	if react.OrderKey >= github.OrderKey {
		t.Errorf("expected React (%q) before GitHub (%q)", react.OrderKey, github.OrderKey)
	}
}

func TestParseHTML_EmptyFile(t *testing.T) {
	html := `<!DOCTYPE NETSCAPE-Bookmark-file-1>
<TITLE>Bookmarks</TITLE>
<H1>Bookmarks</H1>
<DL><p>
</DL><p>`

	res := parse(t, html, importer.Options{})

	if len(res.Nodes) != 0 {
		t.Errorf("expected 0 nodes, got %d", len(res.Nodes))
	}
}

func TestParseHTML_Timestamps(t *testing.T) {
	// 1234567890 = Fri Feb 13 2009 23:31:30 UTC
	html := `<!DOCTYPE NETSCAPE-Bookmark-file-1>
<DL><p>
    <DT><A HREF="https://example.com" ADD_DATE="1234567890">Test</A>
    <DT><A HREF="https://undated.com">Undated</A>
</DL><p>`

	res := parse(t, html, importer.Options{})

	if len(res.Nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(res.Nodes))
	}

	expected := time.Unix(1234567890, 0)
	if !res.Nodes[0].CreatedAt.Equal(expected) {
		t.Errorf("expected CreatedAt %v, got %v", expected, res.Nodes[0].CreatedAt)
	}
	if !res.Nodes[1].CreatedAt.IsZero() {
		t.Errorf("expected zero CreatedAt for undated bookmark, got %v", res.Nodes[1].CreatedAt)
	}
}

func TestParseHTML_MissingHref(t *testing.T) {
	html := `<!DOCTYPE NETSCAPE-Bookmark-file-1>
<DL><p>
    <DT><A ADD_DATE="1234567890">No URL</A>
    <DT><A HREF="https://valid.com" ADD_DATE="1234567890">Valid</A>
</DL><p>`

	res := parse(t, html, importer.Options{})

	if len(res.Nodes) != 1 {
		t.Fatalf("expected 1 bookmark (skip missing href), got %d", len(res.Nodes))
	}
	if res.Nodes[0].Title != "Valid" {
		t.Errorf("expected 'Valid' bookmark, got %q", res.Nodes[0].Title)
	}
}

func TestParseHTML_SkipsKnownAndRepeatedURLs(t *testing.T) {
	html := `<!DOCTYPE NETSCAPE-Bookmark-file-1>
<DL><p>
    <DT><A HREF="https://known.com">Known</A>
    <DT><A HREF="https://new.com">New</A>
    <DT><A HREF="https://new.com">New again</A>
</DL><p>`

	res := parse(t, html, importer.Options{SkipURLs: map[string]bool{"https://known.com": true}})

	if len(res.Nodes) != 1 || res.Nodes[0].Title != "New" {
		t.Fatalf("expected only 'New', got %+v", res.Nodes)
	}
	if res.Skipped != 2 {
		t.Errorf("expected 2 skipped, got %d", res.Skipped)
	}
}

func TestParseHTML_IntoExistingTree(t *testing.T) {
	ids := 0
	s, err := tree.Open(tree.Params{
		Storage: storage.NewMemoryStorage(),
		NewID: func() string {
			ids++
			return fmt.Sprintf("s%d", ids)
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	existing, err := s.Create(tree.CreateRequest{Type: model.TypeFolder, ParentID: model.RootID, Title: "Existing"})
	if err != nil {
		t.Fatal(err)
	}

	html := `<DL><p>
    <DT><H3>Imported</H3>
    <DL><p>
        <DT><A HREF="https://go.dev">Go</A>
    </DL><p>
    <DT><A HREF="https://top.dev">Top</A>
</DL><p>`

	res := parse(t, html, importer.Options{ParentID: model.RootID, After: existing.OrderKey})
	if err := s.BatchCreate(res.Nodes); err != nil {
		t.Fatalf("batch create: %v", err)
	}

	children, err := s.List(model.RootID)
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, c := range children {
		got = append(got, c.Title)
	}
	if strings.Join(got, ",") != "Existing,Imported,Top" {
		t.Errorf("unexpected root order %v", got)
	}
}

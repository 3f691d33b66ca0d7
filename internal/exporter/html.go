// Package exporter writes a tree as Netscape bookmark HTML.
package exporter

import (
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nikbrunner/bmtree/internal/model"
)

// Lister returns the active children of a folder in display order.
// *tree.Store implements it.
type Lister interface {
	List(parentID string) ([]model.Node, error)
}

// DefaultExportPath returns the default export file path.
// Format: ~/Downloads/bookmarks-export-YYYY-MM-DD.html
func DefaultExportPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	filename := fmt.Sprintf("bookmarks-export-%s.html", time.Now().Format("2006-01-02"))
	return filepath.Join(home, "Downloads", filename), nil
}

// ExportHTML renders everything below rootID, in display order.
func ExportHTML(l Lister, rootID string) (string, error) {
	var b strings.Builder

	b.WriteString("<!DOCTYPE NETSCAPE-Bookmark-file-1>\n")
	b.WriteString("<META HTTP-EQUIV=\"Content-Type\" CONTENT=\"text/html; charset=UTF-8\">\n")
	b.WriteString("<TITLE>Bookmarks</TITLE>\n")
	b.WriteString("<H1>Bookmarks</H1>\n")
	b.WriteString("<DL><p>\n")

	if err := writeItems(&b, l, rootID, 1); err != nil {
		return "", err
	}

	b.WriteString("</DL><p>\n")

	return b.String(), nil
}

// writeItems recursively writes the children of parentID.
func writeItems(b *strings.Builder, l Lister, parentID string, indent int) error {
	prefix := strings.Repeat("    ", indent)

	children, err := l.List(parentID)
	if err != nil {
		return fmt.Errorf("list %s: %w", parentID, err)
	}

	for _, n := range children {
		if n.IsFolder() {
			fmt.Fprintf(b, "%s<DT><H3%s>%s</H3>\n", prefix, dates(n), html.EscapeString(n.Title))
			fmt.Fprintf(b, "%s<DL><p>\n", prefix)
			if err := writeItems(b, l, n.ID, indent+1); err != nil {
				return err
			}
			fmt.Fprintf(b, "%s</DL><p>\n", prefix)
			continue
		}

		tags := ""
		if len(n.Tags) > 0 {
			tags = fmt.Sprintf(" TAGS=\"%s\"", html.EscapeString(strings.Join(n.Tags, ",")))
		}
		fmt.Fprintf(b,
			"%s<DT><A HREF=\"%s\"%s%s>%s</A>\n",
			prefix,
			html.EscapeString(n.URL),
			dates(n),
			tags,
			html.EscapeString(n.Title),
		)
	}
	return nil
}

func dates(n model.Node) string {
	var s string
	if !n.CreatedAt.IsZero() {
		s += fmt.Sprintf(" ADD_DATE=\"%d\"", n.CreatedAt.Unix())
	}
	if !n.UpdatedAt.IsZero() {
		s += fmt.Sprintf(" LAST_MODIFIED=\"%d\"", n.UpdatedAt.Unix())
	}
	return s
}

// Package importer turns Netscape bookmark HTML into pre-keyed nodes ready
// for tree.Store.BatchCreate.
package importer

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/nikbrunner/bmtree/internal/model"
	"github.com/nikbrunner/bmtree/internal/orderkey"
)

// Options controls where imported nodes land.
type Options struct {
	// ParentID receives the top-level folders and bookmarks.
	ParentID string
	// After is the key of ParentID's current last child; imported top-level
	// nodes are keyed after it.
	After string
	// SkipURLs lists URLs already present; matching bookmarks are dropped.
	SkipURLs map[string]bool
	// NewID defaults to model.NewID.
	NewID func() string
}

// Result holds the parsed nodes in document order.
type Result struct {
	Nodes     []model.Node
	Folders   int
	Bookmarks int
	Skipped   int
}

// ParseHTML parses Netscape bookmark HTML.
func ParseHTML(r io.Reader, opts Options) (Result, error) {
	var res Result

	doc, err := html.Parse(r)
	if err != nil {
		return res, err
	}

	newID := opts.NewID
	if newID == nil {
		newID = model.NewID
	}

	// Stack of folder ids; the bottom is the import target.
	folderStack := []string{opts.ParentID}
	pendingFolder := "" // folder waiting to be pushed on next DL
	seen := make(map[string]bool)

	var parse func(*html.Node)
	parse = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch strings.ToLower(n.Data) {
			case "h3":
				name := getTextContent(n)
				if name != "" {
					folder := model.Node{
						ID:        newID(),
						Type:      model.TypeFolder,
						ParentID:  model.StringPtr(folderStack[len(folderStack)-1]),
						Title:     name,
						Tags:      []string{},
						CreatedAt: parseDate(getAttr(n, "add_date")),
					}
					res.Nodes = append(res.Nodes, folder)
					res.Folders++

					// Pushed when we see the next DL
					pendingFolder = folder.ID
				}
				return

			case "a":
				href := getAttr(n, "href")
				if href == "" {
					return
				}
				if opts.SkipURLs[href] || seen[href] {
					res.Skipped++
					return
				}
				seen[href] = true

				title := getTextContent(n)
				if title == "" {
					title = href
				}

				res.Nodes = append(res.Nodes, model.Node{
					ID:        newID(),
					Type:      model.TypeBookmark,
					ParentID:  model.StringPtr(folderStack[len(folderStack)-1]),
					Title:     title,
					URL:       href,
					Tags:      parseTags(getAttr(n, "tags")),
					CreatedAt: parseDate(getAttr(n, "add_date")),
				})
				res.Bookmarks++
				return

			case "dl":
				pushedFolder := false
				if pendingFolder != "" {
					folderStack = append(folderStack, pendingFolder)
					pendingFolder = ""
					pushedFolder = true
				}

				for c := n.FirstChild; c != nil; c = c.NextSibling {
					parse(c)
				}

				if pushedFolder {
					folderStack = folderStack[:len(folderStack)-1]
				}
				return
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			parse(c)
		}
	}

	parse(doc)

	if err := assignKeys(res.Nodes, opts.ParentID, opts.After); err != nil {
		return res, err
	}
	return res, nil
}

// assignKeys keys every sibling group in document order.
func assignKeys(nodes []model.Node, parentID, after string) error {
	groups := make(map[string][]int)
	var order []string
	for i, n := range nodes {
		p := n.Parent()
		if _, ok := groups[p]; !ok {
			order = append(order, p)
		}
		groups[p] = append(groups[p], i)
	}

	for _, p := range order {
		prev := ""
		if p == parentID {
			prev = after
		}
		keys, err := orderkey.GenerateKeys(len(groups[p]), prev, "")
		if err != nil {
			return fmt.Errorf("key imported nodes: %w", err)
		}
		for j, i := range groups[p] {
			nodes[i].OrderKey = keys[j]
		}
	}
	return nil
}

// parseDate reads a Unix seconds timestamp; invalid input yields zero.
func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	ts, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(ts, 0)
}

func parseTags(s string) []string {
	tags := []string{}
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// getTextContent returns the text content of a node.
func getTextContent(n *html.Node) string {
	var text strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			text.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(text.String())
}

// getAttr returns the value of an attribute, case-insensitive.
func getAttr(n *html.Node, key string) string {
	key = strings.ToLower(key)
	for _, attr := range n.Attr {
		if strings.ToLower(attr.Key) == key {
			return attr.Val
		}
	}
	return ""
}

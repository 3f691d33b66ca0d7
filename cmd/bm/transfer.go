package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nikbrunner/bmtree/internal/culler"
	"github.com/nikbrunner/bmtree/internal/exporter"
	"github.com/nikbrunner/bmtree/internal/importer"
	"github.com/nikbrunner/bmtree/internal/model"
)

func newImportCmd(a *app) *cobra.Command {
	var into string

	cmd := &cobra.Command{
		Use:   "import <file.html>",
		Short: "Import bookmarks from Netscape HTML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			parent, err := resolveFolder(a, into)
			if err != nil {
				return err
			}

			file, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open import file: %w", err)
			}
			defer file.Close()

			known := make(map[string]bool)
			for _, b := range a.store.Bookmarks() {
				known[b.URL] = true
			}

			res, err := importer.ParseHTML(file, importer.Options{
				ParentID: parent.ID,
				After:    lastKey(a, parent.ID),
				SkipURLs: known,
			})
			if err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}

			if len(res.Nodes) > 0 {
				if err := a.editor.BatchCreate(res.Nodes); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Imported %d bookmarks, %d folders", res.Bookmarks, res.Folders)
			if res.Skipped > 0 {
				fmt.Fprintf(out, " (%d duplicates skipped)", res.Skipped)
			}
			fmt.Fprintln(out)
			return nil
		},
	}
	cmd.Flags().StringVar(&into, "into", model.RootID, "folder receiving the imported items")
	return cmd
}

// lastKey returns the highest key among parentID's children, tombstones
// included, so imported keys never collide with a restorable node.
func lastKey(a *app, parentID string) string {
	last := ""
	for _, n := range a.store.Snapshot().Nodes {
		if n.Parent() == parentID && n.OrderKey > last {
			last = n.OrderKey
		}
	}
	return last
}

func newExportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export [path]",
		Short: "Export bookmarks to Netscape HTML",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}

			var outputPath string
			if len(args) == 1 {
				outputPath = args[0]
			} else {
				var err error
				outputPath, err = exporter.DefaultExportPath()
				if err != nil {
					return fmt.Errorf("default export path: %w", err)
				}
			}

			html, err := exporter.ExportHTML(a.store, model.RootID)
			if err != nil {
				return err
			}
			if err := os.WriteFile(outputPath, []byte(html), 0644); err != nil {
				return fmt.Errorf("write export: %w", err)
			}

			var folders, bookmarks int
			_ = a.store.Walk(func(n model.Node, _ int) error {
				if n.IsFolder() {
					folders++
				} else {
					bookmarks++
				}
				return nil
			})
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d bookmarks, %d folders to %s\n", bookmarks, folders, outputPath)
			return nil
		},
	}
}

func newCullCmd(a *app) *cobra.Command {
	var (
		remove      bool
		concurrency int
		timeout     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "cull",
		Short: "Check bookmark URLs and report dead links",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()

			results := culler.CheckURLs(cmd.Context(), a.store.Bookmarks(), culler.Options{
				Concurrency:    concurrency,
				Timeout:        timeout,
				ExcludeDomains: a.cfg.CullExcludeDomains,
				OnProgress: func(completed, total int) {
					fmt.Fprintf(errOut, "\rChecked %d/%d", completed, total)
				},
			})
			if len(results) > 0 {
				fmt.Fprintln(errOut)
			}

			var unreachable int
			for _, r := range results {
				switch r.Status {
				case culler.Dead:
					fmt.Fprintf(out, "dead         %d  %s\n", r.StatusCode, formatNode(r.Node))
				case culler.Unreachable:
					unreachable++
					fmt.Fprintf(out, "unreachable  %s  %s\n", r.Error, formatNode(r.Node))
				}
			}

			dead := culler.DeadNodes(results)
			fmt.Fprintf(out, "%d checked, %d dead, %d unreachable\n", len(results), len(dead), unreachable)

			if !remove || len(dead) == 0 {
				return nil
			}
			ids := make([]string, len(dead))
			for i, n := range dead {
				ids[i] = n.ID
			}
			if err := a.editor.Delete(ids, false); err != nil {
				return err
			}
			fmt.Fprintf(out, "Moved %d dead bookmark(s) to the trash\n", len(ids))
			return nil
		},
	}
	cmd.Flags().BoolVar(&remove, "delete", false, "move dead bookmarks to the trash")
	cmd.Flags().IntVar(&concurrency, "concurrency", 10, "parallel checks")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "per-request timeout")
	return cmd
}

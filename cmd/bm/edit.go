package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nikbrunner/bmtree/internal/model"
	"github.com/nikbrunner/bmtree/internal/tree"
)

func newAddCmd(a *app) *cobra.Command {
	var (
		folder string
		tags   []string
	)

	cmd := &cobra.Command{
		Use:   "add <url> [title]",
		Short: "Add a bookmark (to the quick-add folder by default)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}

			parent, err := quickAddFolder(a, cmd.Flags().Changed("folder"), folder)
			if err != nil {
				return err
			}

			req := tree.CreateRequest{
				Type:     model.TypeBookmark,
				ParentID: parent.ID,
				URL:      args[0],
				Tags:     tags,
			}
			if len(args) == 2 {
				req.Title = args[1]
			}

			n, err := a.editor.Create(req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s to %s\n", formatNode(n), parent.Title)
			return nil
		},
	}
	cmd.Flags().StringVarP(&folder, "folder", "f", "", "target folder (default: quickAddFolder from config)")
	cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "tag to attach (repeatable)")
	return cmd
}

// quickAddFolder resolves the target of `bm add`. The configured quick-add
// folder is created under the root on first use; an explicit folder must
// exist.
func quickAddFolder(a *app, explicit bool, ref string) (model.Node, error) {
	if explicit {
		return resolveFolder(a, ref)
	}

	n, err := resolveFolder(a, a.cfg.QuickAddFolder)
	if !errors.Is(err, tree.ErrNotFound) {
		return n, err
	}
	return a.editor.Create(tree.CreateRequest{
		Type:     model.TypeFolder,
		ParentID: model.RootID,
		Title:    a.cfg.QuickAddFolder,
	})
}

func newMkdirCmd(a *app) *cobra.Command {
	var parent string

	cmd := &cobra.Command{
		Use:   "mkdir <title>",
		Short: "Create a folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			p, err := resolveFolder(a, parent)
			if err != nil {
				return err
			}
			n, err := a.editor.Create(tree.CreateRequest{
				Type:     model.TypeFolder,
				ParentID: p.ID,
				Title:    args[0],
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", formatNode(n))
			return nil
		},
	}
	cmd.Flags().StringVarP(&parent, "parent", "p", model.RootID, "parent folder")
	return cmd
}

func newEditCmd(a *app) *cobra.Command {
	var (
		title, url, notes, color, icon string
		tags                           []string
		favorite, readLater            bool
	)

	cmd := &cobra.Command{
		Use:   "edit <item>",
		Short: "Change an item's fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			n, err := resolve(a, args[0], false)
			if err != nil {
				return err
			}

			var p model.Patch
			flags := cmd.Flags()
			if flags.Changed("title") {
				p.Title = &title
			}
			if flags.Changed("url") {
				p.URL = &url
			}
			if flags.Changed("notes") {
				p.Notes = &notes
			}
			if flags.Changed("color") {
				p.Color = &color
			}
			if flags.Changed("icon") {
				p.Icon = &icon
			}
			if flags.Changed("tag") {
				p.Tags = &tags
			}
			if flags.Changed("favorite") {
				p.Favorite = &favorite
			}
			if flags.Changed("read-later") {
				p.ReadLater = &readLater
			}
			if p.IsEmpty() {
				return errors.New("nothing to change, pass at least one field flag")
			}

			updated, err := a.editor.Update(n.ID, p)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", formatNode(updated))
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&url, "url", "", "new url (bookmarks only)")
	cmd.Flags().StringVar(&notes, "notes", "", "new notes")
	cmd.Flags().StringVar(&color, "color", "", "new color")
	cmd.Flags().StringVar(&icon, "icon", "", "new icon")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "replace tags (repeatable)")
	cmd.Flags().BoolVar(&favorite, "favorite", false, "mark as favorite")
	cmd.Flags().BoolVar(&readLater, "read-later", false, "mark as read later")
	return cmd
}

func newMvCmd(a *app) *cobra.Command {
	var to, before, after string

	cmd := &cobra.Command{
		Use:   "mv <item>... --to <folder>",
		Short: "Move items into a folder, optionally next to a sibling",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			ids, err := resolveIDs(a, args, false)
			if err != nil {
				return err
			}
			target, err := resolveFolder(a, to)
			if err != nil {
				return err
			}

			req := tree.MoveRequest{IDs: ids, ToParentID: target.ID}
			if before != "" {
				n, err := resolve(a, before, false)
				if err != nil {
					return err
				}
				req.BeforeID = n.ID
			}
			if after != "" {
				n, err := resolve(a, after, false)
				if err != nil {
					return err
				}
				req.AfterID = n.ID
			}

			moved, err := a.editor.Move(req)
			if err != nil {
				return err
			}
			if !moved {
				return fmt.Errorf("cannot move a folder into itself or its descendants")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Moved %d item(s) to %s\n", len(ids), target.Title)
			return nil
		},
	}

	cmd.Flags().StringVar(&to, "to", "", "target folder")
	cmd.Flags().StringVar(&before, "before", "", "place before this sibling")
	cmd.Flags().StringVar(&after, "after", "", "place after this sibling")
	_ = cmd.MarkFlagRequired("to")
	cmd.MarkFlagsMutuallyExclusive("before", "after")
	return cmd
}

func newRmCmd(a *app) *cobra.Command {
	var hard bool

	cmd := &cobra.Command{
		Use:   "rm <item>...",
		Short: "Move items and their contents to the trash",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			ids, err := resolveIDs(a, args, hard)
			if err != nil {
				return err
			}
			if err := a.editor.Delete(ids, hard); err != nil {
				return err
			}
			verb := "Trashed"
			if hard {
				verb = "Purged"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d item(s)\n", verb, len(ids))
			return nil
		},
	}
	cmd.Flags().BoolVar(&hard, "hard", false, "remove permanently instead of trashing")
	return cmd
}

func newRestoreCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <item>...",
		Short: "Restore trashed items and what was deleted with them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			ids, err := resolveIDs(a, args, true)
			if err != nil {
				return err
			}
			if err := a.editor.Restore(ids); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored %d item(s)\n", len(ids))
			return nil
		},
	}
}

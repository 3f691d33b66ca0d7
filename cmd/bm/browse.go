package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nikbrunner/bmtree/internal/model"
)

func newLsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ls [folder]",
		Short: "List a folder in display order",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			ref := model.RootID
			if len(args) == 1 {
				ref = args[0]
			}
			folder, err := resolveFolder(a, ref)
			if err != nil {
				return err
			}
			children, err := a.store.List(folder.ID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, n := range children {
				fmt.Fprintln(out, formatNode(n))
			}
			return nil
		},
	}
}

func newTreeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tree",
		Short: "Print the whole tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return a.store.Walk(func(n model.Node, depth int) error {
				_, err := fmt.Fprintf(out, "%s%s\n", strings.Repeat("  ", depth), formatNode(n))
				return err
			})
		},
	}
}

func newTrashCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "trash",
		Short: "List deleted items, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			trash := a.store.Trash()
			if len(trash) == 0 {
				fmt.Fprintln(out, "Trash is empty")
				return nil
			}
			for _, n := range trash {
				fmt.Fprintf(out, "%s  (deleted %s)\n", formatNode(n), n.DeletedAt.Local().Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
}

func newPathCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "path <item>",
		Short: "Print the folders leading to an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			n, err := resolve(a, args[0], true)
			if err != nil {
				return err
			}
			path, err := a.store.Path(n.ID)
			if err != nil {
				return err
			}
			titles := make([]string, len(path))
			for i, p := range path {
				titles[i] = p.Title
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(titles, " / "))
			return nil
		},
	}
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newUndoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "undo",
		Short: "Revert the last change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			c, err := a.editor.Undo()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Undid: %s\n", c.Label)
			return nil
		},
	}
}

func newRedoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "redo",
		Short: "Reapply the last undone change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			c, err := a.editor.Redo()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Redid: %s\n", c.Label)
			return nil
		},
	}
}

func newRebalanceCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rebalance <folder>",
		Short: "Respace the order keys of a folder's children",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			folder, err := resolveFolder(a, args[0])
			if err != nil {
				return err
			}
			if err := a.editor.Rebalance(folder.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rebalanced %s\n", folder.Title)
			return nil
		},
	}
}

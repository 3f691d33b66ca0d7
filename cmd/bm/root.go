package main

import (
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nikbrunner/bmtree/internal/model"
	"github.com/nikbrunner/bmtree/internal/picker"
	"github.com/nikbrunner/bmtree/internal/search"
)

// openURL starts the system browser. Replaced in tests.
var openURL = func(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}

// pick chooses among several search results. Replaced in tests.
var pick = func(results []search.Result, query string, paths map[string]string) (model.Node, bool, error) {
	program := tea.NewProgram(picker.New(results, query, paths))
	final, err := program.Run()
	if err != nil {
		return model.Node{}, false, fmt.Errorf("run picker: %w", err)
	}
	n, ok := final.(picker.Picker).Selected()
	return n, ok, nil
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bm [query]",
		Short: "Ordered bookmark tree with undo",
		Long: `bm keeps bookmarks in a folder tree with a stable, user-defined order.
Run it with a query to fuzzy search bookmarks and open the chosen one.`,
		Args:          cobra.ArbitraryArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if a.verbose {
				level = slog.LevelDebug
			}
			a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			slog.SetDefault(a.logger)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return runQuickSearch(cmd, a, strings.Join(args, " "))
		},
	}

	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default ~/.config/bm/config.json)")
	cmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(
		newLsCmd(a),
		newTreeCmd(a),
		newTrashCmd(a),
		newPathCmd(a),
		newAddCmd(a),
		newMkdirCmd(a),
		newEditCmd(a),
		newMvCmd(a),
		newRmCmd(a),
		newRestoreCmd(a),
		newUndoCmd(a),
		newRedoCmd(a),
		newRebalanceCmd(a),
		newImportCmd(a),
		newExportCmd(a),
		newCullCmd(a),
	)
	return cmd
}

// runQuickSearch searches bookmarks, lets the user pick one when several
// match, opens it and stamps its visit time.
func runQuickSearch(cmd *cobra.Command, a *app, query string) error {
	if err := a.open(); err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	results := search.Nodes(a.store.Bookmarks(), query)
	if len(results) == 0 {
		fmt.Fprintf(out, "No bookmarks found for '%s'\n", query)
		return nil
	}

	selected := results[0].Node
	if len(results) > 1 {
		paths := make(map[string]string, len(results))
		for _, r := range results {
			paths[r.Node.ID] = folderPath(a, r.Node)
		}
		n, ok, err := pick(results, query, paths)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		selected = n
	}

	fmt.Fprintf(out, "Opening: %s\n", search.Label(selected))

	// Not recorded for undo: visiting is not an edit.
	now := time.Now()
	if _, err := a.store.Update(selected.ID, model.Patch{VisitedAt: &now}); err != nil {
		a.logger.Warn("Could not record visit", "id", selected.ID, "error", err)
	}
	return openURL(selected.URL)
}

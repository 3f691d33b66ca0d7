// Package history keeps a bounded, linear undo/redo log of tree mutations.
//
// Entries are plain Command values holding the before and after images of
// every node a mutation touched, so they can be inspected, logged and saved
// between runs. Undo and redo replay those images through an Applier.
package history

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/nikbrunner/bmtree/internal/model"
	"github.com/nikbrunner/bmtree/internal/tree"
)

// DefaultDepth is the number of undo steps kept when none is configured.
const DefaultDepth = 200

var (
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
)

// Applier writes whole node images. *tree.Store implements it.
type Applier interface {
	Apply(remove []string, write []model.Node) error
}

// Command is one undoable step.
type Command struct {
	Op       tree.Op      `json:"op"`
	Label    string       `json:"label,omitempty"`
	MergeKey string       `json:"mergeKey,omitempty"`
	At       time.Time    `json:"at"`
	Before   []model.Node `json:"before,omitempty"`
	After    []model.Node `json:"after,omitempty"`
}

// FromChange builds a command from a store change.
func FromChange(ch tree.Change, label, mergeKey string, at time.Time) Command {
	return Command{
		Op:       ch.Op,
		Label:    label,
		MergeKey: mergeKey,
		At:       at,
		Before:   cloneNodes(ch.Before),
		After:    cloneNodes(ch.After),
	}
}

// undo returns the removals and writes that restore the state before cmd.
func (cmd Command) undo() (remove []string, write []model.Node) {
	return missingFrom(cmd.After, cmd.Before), cmd.Before
}

// redo returns the removals and writes that reapply cmd.
func (cmd Command) redo() (remove []string, write []model.Node) {
	return missingFrom(cmd.Before, cmd.After), cmd.After
}

// merge folds next into cmd: the original before images are kept and the
// latest after images win.
func (cmd Command) merge(next Command) Command {
	merged := cmd
	merged.At = next.At
	merged.Label = next.Label

	before := index(cmd.Before)
	after := index(cmd.After)
	merged.Before = cloneNodes(cmd.Before)
	for _, n := range next.Before {
		_, seenBefore := before[n.ID]
		_, seenAfter := after[n.ID]
		if !seenBefore && !seenAfter {
			merged.Before = append(merged.Before, n.Clone())
		}
	}

	nextBefore, nextAfter := index(next.Before), index(next.After)
	merged.After = nil
	for _, n := range cmd.After {
		if latest, ok := nextAfter[n.ID]; ok {
			merged.After = append(merged.After, latest.Clone())
			continue
		}
		if _, removed := nextBefore[n.ID]; removed {
			continue
		}
		merged.After = append(merged.After, n.Clone())
	}
	for _, n := range next.After {
		if _, ok := after[n.ID]; !ok {
			merged.After = append(merged.After, n.Clone())
		}
	}
	return merged
}

// Controller holds the past and future stacks.
type Controller struct {
	applier Applier
	depth   int
	past    []Command
	future  []Command
}

// NewController creates a controller that undoes through applier and keeps
// at most depth entries. A depth below one means DefaultDepth.
func NewController(applier Applier, depth int) *Controller {
	if depth < 1 {
		depth = DefaultDepth
	}
	return &Controller{applier: applier, depth: depth}
}

// Record pushes cmd onto the past stack and clears the future. A command
// sharing a non-empty merge key with the newest entry is merged into it.
func (c *Controller) Record(cmd Command) {
	c.future = nil

	if n := len(c.past); n > 0 && cmd.MergeKey != "" && c.past[n-1].MergeKey == cmd.MergeKey {
		c.past[n-1] = c.past[n-1].merge(cmd)
		return
	}

	c.past = append(c.past, cmd)
	if over := len(c.past) - c.depth; over > 0 {
		c.past = slices.Delete(c.past, 0, over)
	}
}

// Undo reverts the newest past entry and returns it.
func (c *Controller) Undo() (Command, error) {
	if len(c.past) == 0 {
		return Command{}, ErrNothingToUndo
	}
	cmd := c.past[len(c.past)-1]

	remove, write := cmd.undo()
	err := c.applier.Apply(remove, write)
	if err != nil && !errors.Is(err, tree.ErrQuotaExceeded) {
		return cmd, fmt.Errorf("undo %s: %w", cmd.Op, err)
	}

	c.past = c.past[:len(c.past)-1]
	c.future = append(c.future, cmd)
	return cmd, err
}

// Redo reapplies the newest future entry and returns it.
func (c *Controller) Redo() (Command, error) {
	if len(c.future) == 0 {
		return Command{}, ErrNothingToRedo
	}
	cmd := c.future[len(c.future)-1]

	remove, write := cmd.redo()
	err := c.applier.Apply(remove, write)
	if err != nil && !errors.Is(err, tree.ErrQuotaExceeded) {
		return cmd, fmt.Errorf("redo %s: %w", cmd.Op, err)
	}

	c.future = c.future[:len(c.future)-1]
	c.past = append(c.past, cmd)
	return cmd, err
}

// CanUndo reports whether Undo has an entry to revert.
func (c *Controller) CanUndo() bool {
	return len(c.past) > 0
}

// CanRedo reports whether Redo has an entry to reapply.
func (c *Controller) CanRedo() bool {
	return len(c.future) > 0
}

// Past returns the undo stack, oldest first.
func (c *Controller) Past() []Command {
	return slices.Clone(c.past)
}

// Future returns the redo stack, oldest first.
func (c *Controller) Future() []Command {
	return slices.Clone(c.future)
}

func index(nodes []model.Node) map[string]model.Node {
	m := make(map[string]model.Node, len(nodes))
	for _, n := range nodes {
		m[n.ID] = n
	}
	return m
}

// missingFrom returns the ids in from that have no image in to.
func missingFrom(from, to []model.Node) []string {
	keep := index(to)
	var ids []string
	for _, n := range from {
		if _, ok := keep[n.ID]; !ok {
			ids = append(ids, n.ID)
		}
	}
	return ids
}

func cloneNodes(nodes []model.Node) []model.Node {
	if nodes == nil {
		return nil
	}
	result := make([]model.Node, len(nodes))
	for i, n := range nodes {
		result[i] = n.Clone()
	}
	return result
}

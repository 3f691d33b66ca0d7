package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
)

// State is the serializable form of a controller's stacks.
type State struct {
	Past   []Command `json:"past"`
	Future []Command `json:"future"`
}

// State returns a copy of both stacks.
func (c *Controller) State() State {
	return State{Past: c.Past(), Future: c.Future()}
}

// Load replaces both stacks, keeping only the newest entries that fit the
// depth.
func (c *Controller) Load(st State) {
	c.past = newest(st.Past, c.depth)
	c.future = newest(st.Future, c.depth)
}

func newest(cmds []Command, depth int) []Command {
	if over := len(cmds) - depth; over > 0 {
		cmds = cmds[over:]
	}
	return slices.Clone(cmds)
}

// ReadFile loads a state written by WriteFile. A missing file yields an
// empty state.
func ReadFile(path string) (State, error) {
	var st State

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return st, nil
	}
	if err != nil {
		return st, fmt.Errorf("read history: %w", err)
	}

	if err := json.Unmarshal(data, &st); err != nil {
		return st, fmt.Errorf("parse history: %w", err)
	}
	return st, nil
}

// WriteFile saves st atomically.
func WriteFile(path string, st State) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create history directory: %w", err)
	}

	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	return os.Rename(tmp, path)
}

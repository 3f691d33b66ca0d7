package history

import (
	"fmt"
	"strings"
	"time"

	"github.com/nikbrunner/bmtree/internal/model"
	"github.com/nikbrunner/bmtree/internal/tree"
)

// Editor runs store mutations and records each resulting change.
type Editor struct {
	store   *tree.Store
	history *Controller
	now     func() time.Time
}

// NewEditor creates an Editor recording into history.
func NewEditor(store *tree.Store, history *Controller) *Editor {
	return &Editor{store: store, history: history, now: time.Now}
}

// History returns the controller the editor records into.
func (e *Editor) History() *Controller {
	return e.history
}

// capture runs fn and records every change the store reports meanwhile,
// including changes that could not be persisted.
func (e *Editor) capture(label, mergeKey string, fn func() error) error {
	var changes []tree.Change
	unsubscribe := e.store.Subscribe(func(ch tree.Change) {
		changes = append(changes, ch)
	})
	err := fn()
	unsubscribe()

	for _, ch := range changes {
		e.history.Record(FromChange(ch, label, mergeKey, e.now()))
	}
	return err
}

func (e *Editor) Create(req tree.CreateRequest) (model.Node, error) {
	var n model.Node
	err := e.capture(fmt.Sprintf("Create %q", req.Title), "", func() error {
		var err error
		n, err = e.store.Create(req)
		return err
	})
	return n, err
}

// Update records consecutive edits of the same fields of one node as a
// single step.
func (e *Editor) Update(id string, p model.Patch) (model.Node, error) {
	fields := p.Fields()
	key := fmt.Sprintf("update:%s:%s", id, strings.Join(fields, ","))

	var n model.Node
	err := e.capture("Edit "+strings.Join(fields, ", "), key, func() error {
		var err error
		n, err = e.store.Update(id, p)
		return err
	})
	return n, err
}

func (e *Editor) Move(req tree.MoveRequest) (bool, error) {
	var moved bool
	err := e.capture(fmt.Sprintf("Move %d item(s)", len(req.IDs)), "", func() error {
		var err error
		moved, err = e.store.Move(req)
		return err
	})
	return moved, err
}

func (e *Editor) Delete(ids []string, hard bool) error {
	label := fmt.Sprintf("Delete %d item(s)", len(ids))
	if hard {
		label = fmt.Sprintf("Purge %d item(s)", len(ids))
	}
	return e.capture(label, "", func() error {
		return e.store.Delete(ids, hard)
	})
}

func (e *Editor) Restore(ids []string) error {
	return e.capture(fmt.Sprintf("Restore %d item(s)", len(ids)), "", func() error {
		return e.store.Restore(ids)
	})
}

func (e *Editor) BatchCreate(nodes []model.Node) error {
	return e.capture(fmt.Sprintf("Import %d item(s)", len(nodes)), "", func() error {
		return e.store.BatchCreate(nodes)
	})
}

func (e *Editor) Rebalance(parentID string) error {
	return e.capture("Rebalance", "", func() error {
		return e.store.Rebalance(parentID)
	})
}

// Undo reverts the newest recorded step.
func (e *Editor) Undo() (Command, error) {
	return e.history.Undo()
}

// Redo reapplies the newest undone step.
func (e *Editor) Redo() (Command, error) {
	return e.history.Redo()
}

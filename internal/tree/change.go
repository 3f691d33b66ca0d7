package tree

import "github.com/nikbrunner/bmtree/internal/model"

// Op names the kind of mutation that produced a Change.
type Op string

const (
	OpCreate    Op = "create"
	OpUpdate    Op = "update"
	OpMove      Op = "move"
	OpDelete    Op = "delete"
	OpPurge     Op = "purge"
	OpRestore   Op = "restore"
	OpImport    Op = "import"
	OpRebalance Op = "rebalance"
	OpApply     Op = "apply"
	OpSettings  Op = "settings"
)

// Change describes one mutation. Before holds the prior image of every
// touched node that existed; After holds the new image of every touched
// node that still exists.
type Change struct {
	Op      Op           `json:"op"`
	IDs     []string     `json:"ids"`
	Before  []model.Node `json:"before,omitempty"`
	After   []model.Node `json:"after,omitempty"`
	Durable bool         `json:"durable"`
}

// Listener is called once per mutation.
type Listener func(Change)

// tx collects the before-images of the nodes a mutation touches.
// touch must run before the node is modified.
type tx struct {
	store   *Store
	op      Op
	ids     []string
	before  map[string]model.Node
	touched []string
	seen    map[string]bool
	dirty   bool
}

func (s *Store) begin(op Op, ids []string) *tx {
	return &tx{
		store:  s,
		op:     op,
		ids:    ids,
		before: make(map[string]model.Node),
		seen:   make(map[string]bool),
	}
}

func (t *tx) touch(id string) {
	if t.seen[id] {
		return
	}
	t.seen[id] = true
	t.touched = append(t.touched, id)
	if n, ok := t.store.nodes[id]; ok {
		t.before[id] = n.Clone()
	}
}

func (t *tx) empty() bool {
	return len(t.touched) == 0 && !t.dirty
}

func (t *tx) change() Change {
	ch := Change{Op: t.op, IDs: t.ids}
	for _, id := range t.touched {
		if n, ok := t.before[id]; ok {
			ch.Before = append(ch.Before, n)
		}
		if n, ok := t.store.nodes[id]; ok {
			ch.After = append(ch.After, n.Clone())
		}
	}
	return ch
}

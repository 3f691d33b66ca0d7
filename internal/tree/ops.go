package tree

import (
	"cmp"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/nikbrunner/bmtree/internal/guard"
	"github.com/nikbrunner/bmtree/internal/model"
	"github.com/nikbrunner/bmtree/internal/orderkey"
)

// CreateRequest describes a new folder or bookmark.
type CreateRequest struct {
	Type      model.NodeType `json:"type"`
	ParentID  string         `json:"parentId"`
	Title     string         `json:"title"`
	URL       string         `json:"url"`
	Color     string         `json:"color"`
	Cover     string         `json:"cover"`
	Icon      string         `json:"icon"`
	Notes     string         `json:"notes"`
	Tags      []string       `json:"tags"`
	Favorite  bool           `json:"favorite"`
	ReadLater bool           `json:"readLater"`
}

// Validate checks the request's structural fields.
func (r *CreateRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Type,
			validation.Required,
			validation.In(model.TypeFolder, model.TypeBookmark),
		),
		validation.Field(&r.ParentID, validation.Required),
		validation.Field(&r.URL,
			validation.When(r.Type == model.TypeFolder, validation.Empty.Error("folders cannot carry a url")),
		),
	)
}

// MoveRequest describes a move of one or more nodes under ToParentID.
// BeforeID places them immediately before that sibling, AfterID immediately
// after it; with neither they are appended.
type MoveRequest struct {
	IDs        []string `json:"ids"`
	ToParentID string   `json:"toParentId"`
	BeforeID   string   `json:"beforeId,omitempty"`
	AfterID    string   `json:"afterId,omitempty"`
}

// Create inserts a new node as the last child of its parent.
func (s *Store) Create(req CreateRequest) (model.Node, error) {
	if err := req.Validate(); err != nil {
		return model.Node{}, fmt.Errorf("%w: %w", ErrInvalidStructural, err)
	}
	parent, err := s.activeFolder(req.ParentID)
	if err != nil {
		return model.Node{}, err
	}

	id := s.newID()
	if _, exists := s.nodes[id]; exists {
		return model.Node{}, fmt.Errorf("%w: id %s already in use", ErrInvalidStructural, id)
	}

	t := s.begin(OpCreate, []string{id})
	keys, err := s.allocateKeys(t, parent.ID, 1, nil, "", "")
	if err != nil {
		return model.Node{}, errors.Join(err, s.commit(t))
	}

	now := s.now()
	tags := slices.Clone(req.Tags)
	if tags == nil {
		tags = []string{}
	}
	n := &model.Node{
		ID:        id,
		Type:      req.Type,
		ParentID:  model.StringPtr(parent.ID),
		OrderKey:  keys[0],
		Title:     req.Title,
		URL:       req.URL,
		Color:     req.Color,
		Cover:     req.Cover,
		Icon:      req.Icon,
		Notes:     req.Notes,
		Tags:      tags,
		Favorite:  req.Favorite,
		ReadLater: req.ReadLater,
		CreatedAt: now,
		UpdatedAt: now,
	}
	t.touch(id)
	s.nodes[id] = n
	s.maybeRebalance(t, parent.ID)

	return n.Clone(), s.commit(t)
}

// Update merges the fields set in p into the node and bumps UpdatedAt.
// A patch that changes nothing is not persisted.
func (s *Store) Update(id string, p model.Patch) (model.Node, error) {
	n, ok := s.nodes[id]
	if !ok || n.IsDeleted() {
		return model.Node{}, fmt.Errorf("%w: node %s", ErrNotFound, id)
	}
	if n.IsFolder() && p.URL != nil && *p.URL != "" {
		return model.Node{}, fmt.Errorf("%w: folders cannot carry a url", ErrInvalidStructural)
	}

	d := p.Diff(*n)
	if d.IsEmpty() {
		return n.Clone(), nil
	}

	t := s.begin(OpUpdate, []string{id})
	t.touch(id)
	d.Apply(n)
	n.UpdatedAt = s.now()

	return n.Clone(), s.commit(t)
}

// Move reparents and reorders the requested nodes as one unit, keeping the
// order the caller listed them in. It returns false with no effect when any
// node would become its own ancestor.
func (s *Store) Move(req MoveRequest) (bool, error) {
	ids := dedupe(req.IDs)
	if len(ids) == 0 {
		return false, fmt.Errorf("%w: nothing to move", ErrNotFound)
	}
	for _, id := range ids {
		if id == model.RootID {
			return false, fmt.Errorf("%w: the root cannot be moved", ErrInvalidStructural)
		}
		if n, ok := s.nodes[id]; !ok || n.IsDeleted() {
			return false, fmt.Errorf("%w: node %s", ErrNotFound, id)
		}
	}
	parent, err := s.activeFolder(req.ToParentID)
	if err != nil {
		return false, err
	}

	if guard.DetectCycleForMultiple(s.nodes, ids, parent.ID) {
		s.logger.Debug("move rejected, would create a cycle",
			"ids", ids,
			"to", parent.ID,
		)
		return false, nil
	}

	moving := make(map[string]bool, len(ids))
	for _, id := range ids {
		moving[id] = true
	}
	for _, anchor := range []string{req.BeforeID, req.AfterID} {
		if anchor == "" {
			continue
		}
		if moving[anchor] {
			return false, fmt.Errorf("%w: anchor %s is being moved", ErrInvalidStructural, anchor)
		}
		a, ok := s.nodes[anchor]
		if !ok || a.IsDeleted() || a.Parent() != parent.ID {
			return false, fmt.Errorf("%w: anchor %s in %s", ErrNotFound, anchor, parent.ID)
		}
	}

	t := s.begin(OpMove, ids)
	keys, err := s.allocateKeys(t, parent.ID, len(ids), moving, req.BeforeID, req.AfterID)
	if err != nil {
		return false, errors.Join(err, s.commit(t))
	}

	now := s.now()
	for i, id := range ids {
		t.touch(id)
		n := s.nodes[id]
		n.ParentID = model.StringPtr(parent.ID)
		n.OrderKey = keys[i]
		n.UpdatedAt = now
	}
	s.maybeRebalance(t, parent.ID)

	return true, s.commit(t)
}

// Delete removes the requested nodes and everything beneath them. A soft
// delete stamps DeletedAt on nodes not already deleted; a hard delete purges
// them from the map. The root is never touched by the cascade.
func (s *Store) Delete(ids []string, hard bool) error {
	ids = dedupe(ids)
	for _, id := range ids {
		if id == model.RootID {
			return fmt.Errorf("%w: the root cannot be deleted", ErrInvalidStructural)
		}
		if _, ok := s.nodes[id]; !ok {
			return fmt.Errorf("%w: node %s", ErrNotFound, id)
		}
	}

	// Shallowest first, so DeletedBy names the topmost requested node.
	depth := make(map[string]int, len(ids))
	for _, id := range ids {
		depth[id] = len(guard.AncestorIDs(s.nodes, id))
	}
	slices.SortStableFunc(ids, func(a, b string) int {
		return cmp.Compare(depth[a], depth[b])
	})

	op := OpDelete
	if hard {
		op = OpPurge
	}
	t := s.begin(op, ids)
	now := s.now()

	for _, id := range ids {
		for _, d := range guard.DescendantIDs(s.nodes, id) {
			if d == model.RootID {
				continue
			}
			n := s.nodes[d]
			if hard {
				t.touch(d)
				delete(s.nodes, d)
				continue
			}
			if n.IsDeleted() {
				continue
			}
			t.touch(d)
			at := now
			n.DeletedAt = &at
			n.DeletedBy = id
			n.UpdatedAt = now
		}
	}

	return s.commit(t)
}

// Restore clears DeletedAt on the given nodes and on the descendants that
// were deleted in the same cascade. Descendants deleted independently stay
// deleted.
func (s *Store) Restore(ids []string) error {
	ids = dedupe(ids)
	for _, id := range ids {
		if _, ok := s.nodes[id]; !ok {
			return fmt.Errorf("%w: node %s", ErrNotFound, id)
		}
	}

	t := s.begin(OpRestore, ids)
	now := s.now()
	parents := make(map[string]bool)

	for _, id := range ids {
		n := s.nodes[id]
		if !n.IsDeleted() {
			continue
		}
		cascade := n.DeletedBy
		for _, d := range guard.DescendantIDs(s.nodes, id) {
			dn := s.nodes[d]
			if d != id && !dn.IsDeleted() {
				continue
			}
			if d != id && dn.DeletedBy != id && (cascade == "" || dn.DeletedBy != cascade) {
				continue
			}
			t.touch(d)
			dn.DeletedAt = nil
			dn.DeletedBy = ""
			dn.UpdatedAt = now
		}
		parents[n.Parent()] = true
	}

	for _, p := range slices.Sorted(maps.Keys(parents)) {
		s.resolveTies(t, p)
	}

	return s.commit(t)
}

// BatchCreate inserts pre-keyed nodes, typically produced by an importer.
// Either every node is inserted or none is.
func (s *Store) BatchCreate(nodes []model.Node) error {
	if len(nodes) == 0 {
		return nil
	}

	batch := make(map[string]*model.Node, len(nodes))
	ids := make([]string, 0, len(nodes))
	for i := range nodes {
		n := nodes[i].Clone()
		if n.ID == "" {
			return fmt.Errorf("%w: node %d has no id", ErrInvalidStructural, i)
		}
		if _, ok := s.nodes[n.ID]; ok {
			return fmt.Errorf("%w: id %s already in use", ErrInvalidStructural, n.ID)
		}
		if _, ok := batch[n.ID]; ok {
			return fmt.Errorf("%w: duplicate id %s in batch", ErrInvalidStructural, n.ID)
		}
		if err := checkShape(&n); err != nil {
			return err
		}
		batch[n.ID] = &n
		ids = append(ids, n.ID)
	}

	activeKeys := make(map[string]map[string]bool)
	keyTaken := func(parentID, key string) bool {
		keys, ok := activeKeys[parentID]
		if !ok {
			keys = make(map[string]bool)
			for _, c := range s.nodes.Children(parentID) {
				if !c.IsDeleted() {
					keys[c.OrderKey] = true
				}
			}
			activeKeys[parentID] = keys
		}
		if keys[key] {
			return true
		}
		keys[key] = true
		return false
	}

	for _, id := range ids {
		n := batch[id]
		parentID := n.Parent()
		if p, ok := batch[parentID]; ok {
			if !p.IsFolder() {
				return fmt.Errorf("%w: parent %s of %s is not a folder", ErrInvalidStructural, parentID, id)
			}
		} else if _, err := s.activeFolder(parentID); err != nil {
			return fmt.Errorf("node %s: %w", id, err)
		}
		if inBatchCycle(batch, id) {
			return fmt.Errorf("%w: node %s is its own ancestor", ErrInvalidStructural, id)
		}
		if keyTaken(parentID, n.OrderKey) {
			return fmt.Errorf("%w: order key %q already used in %s", ErrInvalidStructural, n.OrderKey, parentID)
		}
	}

	t := s.begin(OpImport, ids)
	now := s.now()
	for _, id := range ids {
		n := batch[id]
		if n.CreatedAt.IsZero() {
			n.CreatedAt = now
		}
		n.UpdatedAt = now
		n.DeletedAt = nil
		n.DeletedBy = ""
		if n.Tags == nil {
			n.Tags = []string{}
		}
		t.touch(id)
		s.nodes[id] = n
	}

	s.logger.Debug("batch created", "count", len(ids))
	return s.commit(t)
}

// Apply removes and writes whole node images after checking that the
// resulting tree keeps every structural rule. It backs undo and redo.
func (s *Store) Apply(remove []string, write []model.Node) error {
	work := maps.Clone(s.nodes)

	for _, id := range remove {
		if id == model.RootID {
			return fmt.Errorf("%w: the root cannot be removed", ErrInvalidStructural)
		}
		delete(work, id)
	}
	for i := range write {
		n := write[i].Clone()
		if old, ok := s.nodes[n.ID]; ok && old.Type != n.Type {
			return fmt.Errorf("%w: node %s cannot change type", ErrInvalidStructural, n.ID)
		}
		if n.ID == model.RootID {
			if n.ParentID != nil || !n.IsFolder() || n.IsDeleted() {
				return fmt.Errorf("%w: the root must stay an active top-level folder", ErrInvalidStructural)
			}
		} else if err := checkShape(&n); err != nil {
			return err
		}
		work[n.ID] = &n
	}

	if _, ok := work[model.RootID]; !ok {
		return fmt.Errorf("%w: the root is missing", ErrInvalidStructural)
	}
	for id, n := range work {
		if id == model.RootID {
			continue
		}
		p, ok := work[n.Parent()]
		if !ok || !p.IsFolder() {
			return fmt.Errorf("%w: parent %s of %s", ErrNotFound, n.Parent(), id)
		}
	}
	for i := range write {
		id := write[i].ID
		if id == model.RootID {
			continue
		}
		chain := guard.AncestorIDs(work, id)
		if len(chain) == 0 || chain[len(chain)-1] != model.RootID {
			return fmt.Errorf("%w: node %s does not reach the root", ErrInvalidStructural, id)
		}
	}

	ids := slices.Clone(remove)
	for _, n := range write {
		ids = append(ids, n.ID)
	}
	t := s.begin(OpApply, ids)
	for _, id := range ids {
		t.touch(id)
	}
	s.nodes = work

	parents := make(map[string]bool)
	for _, n := range write {
		if n.ParentID != nil {
			parents[*n.ParentID] = true
		}
	}
	for _, p := range slices.Sorted(maps.Keys(parents)) {
		s.resolveTies(t, p)
	}

	return s.commit(t)
}

// Rebalance respaces the keys of every child of parentID, tombstones
// included, keeping their order.
func (s *Store) Rebalance(parentID string) error {
	p, ok := s.nodes[parentID]
	if !ok || !p.IsFolder() {
		return fmt.Errorf("%w: folder %s", ErrNotFound, parentID)
	}

	t := s.begin(OpRebalance, []string{parentID})
	changed := s.rebalanceChildren(t, parentID, nil)
	s.logger.Debug("rebalanced children", "parent", parentID, "changed", changed)

	return s.commit(t)
}

func (s *Store) activeFolder(id string) (*model.Node, error) {
	n, ok := s.nodes[id]
	if !ok || n.IsDeleted() || !n.IsFolder() {
		return nil, fmt.Errorf("%w: folder %s", ErrNotFound, id)
	}
	return n, nil
}

// siblings returns the children of parentID, tombstones included, sorted by
// key then id. Ids in exclude are skipped.
func (s *Store) siblings(parentID string, exclude map[string]bool) []*model.Node {
	var result []*model.Node
	for _, n := range s.nodes.Children(parentID) {
		if !exclude[n.ID] {
			result = append(result, n)
		}
	}
	slices.SortFunc(result, compareKeys)
	return result
}

// allocateKeys picks count increasing keys at the requested position among
// the children of parentID. When the key space between the bounds is used
// up the children are rebalanced and the allocation retried once.
func (s *Store) allocateKeys(t *tx, parentID string, count int, exclude map[string]bool, beforeID, afterID string) ([]string, error) {
	try := func() ([]string, error) {
		prev, next, err := bounds(s.siblings(parentID, exclude), beforeID, afterID)
		if err != nil {
			return nil, err
		}
		return orderkey.GenerateKeys(count, prev, next)
	}

	keys, err := try()
	if errors.Is(err, orderkey.ErrKeySpaceExhausted) ||
		errors.Is(err, orderkey.ErrInvalidBounds) ||
		errors.Is(err, orderkey.ErrInvalidKey) {
		s.logger.Debug("no key fits, rebalancing", "parent", parentID, "error", err)
		s.rebalanceChildren(t, parentID, exclude)
		keys, err = try()
	}
	if err != nil {
		return nil, fmt.Errorf("allocate order key: %w", err)
	}
	return keys, nil
}

func bounds(sibs []*model.Node, beforeID, afterID string) (prev, next string, err error) {
	index := func(id string) int {
		return slices.IndexFunc(sibs, func(n *model.Node) bool { return n.ID == id })
	}

	switch {
	case beforeID != "" && afterID != "":
		a, b := index(afterID), index(beforeID)
		if a < 0 || b < 0 {
			return "", "", fmt.Errorf("%w: anchors %s, %s", ErrNotFound, afterID, beforeID)
		}
		if a >= b {
			return "", "", fmt.Errorf("%w: %s does not precede %s", ErrInvalidStructural, afterID, beforeID)
		}
		return sibs[a].OrderKey, sibs[b].OrderKey, nil
	case beforeID != "":
		b := index(beforeID)
		if b < 0 {
			return "", "", fmt.Errorf("%w: anchor %s", ErrNotFound, beforeID)
		}
		if b > 0 {
			prev = sibs[b-1].OrderKey
		}
		return prev, sibs[b].OrderKey, nil
	case afterID != "":
		a := index(afterID)
		if a < 0 {
			return "", "", fmt.Errorf("%w: anchor %s", ErrNotFound, afterID)
		}
		if a+1 < len(sibs) {
			next = sibs[a+1].OrderKey
		}
		return sibs[a].OrderKey, next, nil
	}

	if len(sibs) > 0 {
		prev = sibs[len(sibs)-1].OrderKey
	}
	return prev, "", nil
}

func (s *Store) rebalanceChildren(t *tx, parentID string, exclude map[string]bool) int {
	sibs := s.siblings(parentID, exclude)
	items := make([]orderkey.Item, len(sibs))
	for i, n := range sibs {
		items[i] = orderkey.Item{ID: n.ID, Key: n.OrderKey}
	}

	changed := 0
	keys := orderkey.Rebalance(items)
	for _, n := range sibs {
		if k := keys[n.ID]; k != n.OrderKey {
			t.touch(n.ID)
			n.OrderKey = k
			changed++
		}
	}
	return changed
}

// maybeRebalance respaces parentID's children once any key grows past the
// configured length.
func (s *Store) maybeRebalance(t *tx, parentID string) {
	if s.rebalanceAt <= 0 {
		return
	}
	long := slices.ContainsFunc(s.siblings(parentID, nil), func(n *model.Node) bool {
		return len(n.OrderKey) > s.rebalanceAt
	})
	if !long {
		return
	}
	s.logger.Debug("order keys too long, rebalancing", "parent", parentID, "limit", s.rebalanceAt)
	s.rebalanceChildren(t, parentID, nil)
}

// resolveTies rebalances parentID's children when two active siblings share
// a key.
func (s *Store) resolveTies(t *tx, parentID string) {
	seen := make(map[string]bool)
	for _, n := range s.siblings(parentID, nil) {
		if n.IsDeleted() {
			continue
		}
		if seen[n.OrderKey] {
			s.rebalanceChildren(t, parentID, nil)
			return
		}
		seen[n.OrderKey] = true
	}
}

// checkShape validates the fields of a non-root node image.
func checkShape(n *model.Node) error {
	if n.ID == "" {
		return fmt.Errorf("%w: node has no id", ErrInvalidStructural)
	}
	if !n.Type.Valid() {
		return fmt.Errorf("%w: node %s has unknown type %q", ErrInvalidStructural, n.ID, n.Type)
	}
	if n.ParentID == nil || n.ID == model.RootID {
		return fmt.Errorf("%w: node %s must have a parent", ErrInvalidStructural, n.ID)
	}
	if n.IsFolder() && n.URL != "" {
		return fmt.Errorf("%w: folder %s carries a url", ErrInvalidStructural, n.ID)
	}
	if err := orderkey.Validate(n.OrderKey); err != nil {
		return fmt.Errorf("%w: node %s: %w", ErrInvalidStructural, n.ID, err)
	}
	return nil
}

func inBatchCycle(batch map[string]*model.Node, id string) bool {
	seen := map[string]bool{id: true}
	cur := batch[id].Parent()
	for {
		n, ok := batch[cur]
		if !ok {
			return false
		}
		if seen[cur] {
			return true
		}
		seen[cur] = true
		cur = n.Parent()
	}
}

func compareKeys(a, b *model.Node) int {
	if c := strings.Compare(a.OrderKey, b.OrderKey); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}

// dedupe drops empty and repeated ids, keeping first occurrences in order.
func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	result := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		result = append(result, id)
	}
	return result
}

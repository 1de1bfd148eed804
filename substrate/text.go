package substrate

// textNode is one character in a node's text container. This is the
// teacher's RGA Node (rga.go) kept close to verbatim: same ID/ParentID
// linkage, same Deleted tombstone, same Next pointer for O(1) local
// traversal. Only the owning type changes: instead of a standalone
// *RGA keyed by nodeID, a *Text is one container owned by a single
// "value" node inside a larger document.
type textNode struct {
	ID       ID
	ParentID ID
	Value    rune
	Deleted  bool
	Next     *textNode
}

// Text is the op-based text container backing "value" nodes (spec.md
// §3). It is never coerced to a plain string internally; String() only
// produces a read-only snapshot for the Indexed View.
type Text struct {
	owner    ID
	registry map[ID]*textNode
	root     *textNode
}

func newText(owner ID) *Text {
	rootID := ID{} // sentinel anchor
	// Every inserted character gets a NextStamp id, whose Counter is at
	// least 1, so the zero-ID anchor never collides with a real character
	// in this container's registry.
	root := &textNode{ID: rootID}
	return &Text{owner: owner, registry: map[ID]*textNode{rootID: root}, root: root}
}

func (t *Text) ContainerID() ID { return t.owner }

// Splice deletes deleteCount runes starting at index, then inserts insert
// at that position, returning the ids created for insert (in order) so
// the caller can stamp a diff. index/deleteCount are resolved against the
// *current local* visible text, per splice_value (spec.md §4.4).
func (t *Text) Splice(index, deleteCount int, insert string, newID func() ID) []ID {
	visible := t.visibleNodes()
	if index < 0 {
		index = 0
	}
	if index > len(visible) {
		index = len(visible)
	}
	end := index + deleteCount
	if end > len(visible) {
		end = len(visible)
	}
	for i := index; i < end; i++ {
		visible[i].Deleted = true
	}

	var created []ID
	afterID := t.root.ID
	if index > 0 {
		afterID = visible[index-1].ID
	}
	for _, r := range insert {
		id := newID()
		node := &textNode{ID: id, ParentID: afterID, Value: r}
		t.integrate(node)
		created = append(created, id)
		afterID = id
	}
	return created
}

// ApplyInsert integrates a single remote/local insert op described by its
// own id, predecessor id and rune value; an id already present is
// ignored.
func (t *Text) ApplyInsert(id, afterID ID, value rune) {
	if _, exists := t.registry[id]; exists {
		return
	}
	t.integrate(&textNode{ID: id, ParentID: afterID, Value: value})
}

// ApplyDelete tombstones id if present.
func (t *Text) ApplyDelete(id ID) {
	if n, ok := t.registry[id]; ok {
		n.Deleted = true
	}
}

func (t *Text) integrate(newNode *textNode) {
	parent, ok := t.registry[newNode.ParentID]
	if !ok {
		// Orphan: parent not yet observed. In this substrate all local
		// text ops are applied in causal order already (single logical
		// writer, §5), and remote text ops arrive alongside their owning
		// node's tree.create, so by the time a text op is derived its
		// predecessor already exists; an unresolved orphan is dropped.
		return
	}
	prev := parent
	cur := parent.Next
	for cur != nil && cur.ParentID == newNode.ParentID {
		if newNode.ID.Greater(cur.ID) {
			break
		}
		prev = cur
		cur = cur.Next
	}
	newNode.Next = cur
	prev.Next = newNode
	t.registry[newNode.ID] = newNode
}

func (t *Text) visibleNodes() []*textNode {
	var out []*textNode
	for n := t.root.Next; n != nil; n = n.Next {
		if !n.Deleted {
			out = append(out, n)
		}
	}
	return out
}

// String returns the current linearized text, ignoring tombstones.
func (t *Text) String() string {
	var chars []rune
	for _, n := range t.visibleNodes() {
		chars = append(chars, n.Value)
	}
	return string(chars)
}

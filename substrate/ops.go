package substrate

// ops.go holds the Doc-level primitives that both mutate a container and
// compute the forward/inverse Diff pair for that mutation in one step.
// Package mutate calls these; it never touches tree.go/lwwmap.go/text.go/
// list.go directly. Keeping diff-and-inverse construction here (rather
// than in package mutate) is what lets a single generic applyDiff make
// Undo/Redo work for every primitive without package mutate knowing
// anything about undo.

// CreateNode places a new node under parent at index and seeds its
// reserved-key metadata from data (kind, tag, operation, label, target,
// replayMode, sourceId — whichever keys the caller supplies). The id
// minted is the stamp itself, matching how the teacher's RGA used a
// character's own stamp as its address.
func (d *Doc) CreateNode(parent ID, index int, data map[string]any) (ID, Diff, Diff) {
	d.mu.Lock()
	defer d.mu.Unlock()

	stamp := d.NextStamp()
	id := stamp
	entry := d.tree.place(id, parent, index, stamp)
	for k, v := range data {
		switch k {
		case "attrs":
			if m, ok := v.(map[string]any); ok {
				for ak, av := range m {
					d.Attrs(id).Set(ak, av, stamp)
				}
			}
		case "text":
			if s, ok := v.(string); ok {
				d.TextOf(id).Splice(0, 0, s, func() ID { return d.NextStamp() })
			}
		case "actions":
			if list, ok := v.([]any); ok {
				d.ActionsOf(id).ReplaceAll(func(n int) []ID {
					ids := make([]ID, n)
					for i := range ids {
						ids[i] = d.NextStamp()
					}
					return ids
				}, list, stamp)
			}
		default:
			d.Meta(id).Set(k, v, stamp)
		}
	}
	forward := Diff{Kind: DiffCreate, Target: id, Parent: parent, Index: index, Order: entry.Order, Val: cloneAny(data)}
	inverse := Diff{Kind: DiffDelete, Target: id}
	return id, forward, inverse
}

// SetRoot records id as the document root without emitting a diff — used
// once, by mutate.CreateRoot, since the root has no parent edge to place.
func (d *Doc) SetRoot(id ID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.root = id
}

// Root returns the current root node id (Zero until CreateRoot runs).
func (d *Doc) Root() ID {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.root
}

// reconstructData captures everything needed to recreate id verbatim:
// its reserved-key metadata, element attrs, value text and action list.
// DeleteNode calls this before tombstoning so the inverse DiffCreate
// carries its own data rather than depending on live state that may no
// longer exist by the time something reads it back (spec.md §9: "data
// must be reconstructed from the diff itself ... not from the live
// node").
func (d *Doc) reconstructData(id ID) map[string]any {
	out := map[string]any{}
	if m, ok := d.metas[id]; ok {
		for k, v := range m.Snapshot() {
			out[k] = v
		}
	}
	if a, ok := d.attrs[id]; ok {
		if snap := a.Snapshot(); len(snap) > 0 {
			out["attrs"] = snap
		}
	}
	if t, ok := d.texts[id]; ok {
		if s := t.String(); s != "" {
			out["text"] = s
		}
	}
	if l, ok := d.actions[id]; ok {
		if snap := l.Snapshot(); len(snap) > 0 {
			out["actions"] = snap
		}
	}
	return out
}

// DeleteNode tombstones only id itself; its descendants stay live in the
// tree, reachable only through the now-dead parent edge. index.Rebuild
// walks down from the root through live children and so never reaches
// them, which is what actually drops the subtree from the Indexed View
// without this layer having to walk it.
func (d *Doc) DeleteNode(id ID) (Diff, Diff, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	entry, ok := d.tree.entries[id]
	if !ok || entry.Deleted {
		return Diff{}, Diff{}, false
	}
	data := d.reconstructData(id)
	oldParent, oldOrder := entry.Parent, entry.Order
	stamp := d.NextStamp()
	d.tree.delete(id)
	entry.Stamp = stamp

	forward := Diff{Kind: DiffDelete, Target: id}
	inverse := Diff{Kind: DiffCreate, Target: id, Parent: oldParent, Order: oldOrder, Val: data}
	return forward, inverse, true
}

// MoveNode relocates id to (newParent, index). ok is false if the move
// would create a cycle (spec.md §4.1 "would create a cycle"); the caller
// treats that as a no-op.
func (d *Doc) MoveNode(id, newParent ID, index int) (Diff, Diff, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	entry, ok := d.tree.entries[id]
	if !ok || d.tree.IsDescendant(id, newParent) || id == newParent {
		return Diff{}, Diff{}, false
	}
	oldParent, oldOrder := entry.Parent, entry.Order
	stamp := d.NextStamp()
	d.tree.place(id, newParent, index, stamp)

	forward := Diff{Kind: DiffMove, Target: id, Parent: newParent, Index: index, Order: entry.Order}
	inverse := Diff{Kind: DiffMove, Target: id, Parent: oldParent, Order: oldOrder}
	return forward, inverse, true
}

func containerFor(d *Doc, target ID, sub SubContainer) *Map {
	if sub == SubAttrs {
		return d.Attrs(target)
	}
	return d.Meta(target)
}

// SetField writes key in target's meta or attrs sub-map, returning the
// forward diff and an inverse that restores whatever key held before
// (a MapSet with the old value, or a MapDelete if key was unset).
func (d *Doc) SetField(target ID, sub SubContainer, key string, value any) (Diff, Diff) {
	d.mu.Lock()
	defer d.mu.Unlock()

	m := containerFor(d, target, sub)
	old, existed := m.Get(key)
	stamp := d.NextStamp()
	m.Set(key, value, stamp)

	forward := Diff{Kind: DiffMapSet, Target: target, Sub: sub, Key: key, Val: value}
	var inverse Diff
	if existed {
		inverse = Diff{Kind: DiffMapSet, Target: target, Sub: sub, Key: key, Val: old}
	} else {
		inverse = Diff{Kind: DiffMapDelete, Target: target, Sub: sub, Key: key}
	}
	return forward, inverse
}

// DeleteField removes key, its inverse restoring the old value.
func (d *Doc) DeleteField(target ID, sub SubContainer, key string) (Diff, Diff, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	m := containerFor(d, target, sub)
	old, existed := m.Get(key)
	if !existed {
		return Diff{}, Diff{}, false
	}
	stamp := d.NextStamp()
	m.Delete(key, stamp)

	forward := Diff{Kind: DiffMapDelete, Target: target, Sub: sub, Key: key}
	inverse := Diff{Kind: DiffMapSet, Target: target, Sub: sub, Key: key, Val: old}
	return forward, inverse, true
}

// SpliceText performs the resolved-index splice described by spec.md
// §4.4's splice_value and returns the matching forward/inverse diff
// pair; the inverse is the textbook "delete what we just inserted, then
// re-insert what we just deleted" run used to verify the round-trip law
// in spec.md §8.
func (d *Doc) SpliceText(target ID, index, deleteCount int, insert string) (Diff, Diff) {
	d.mu.Lock()
	defer d.mu.Unlock()

	text := d.TextOf(target)
	before := text.visibleNodes()
	resolvedIndex := index
	if resolvedIndex < 0 {
		resolvedIndex = 0
	}
	if resolvedIndex > len(before) {
		resolvedIndex = len(before)
	}
	end := resolvedIndex + deleteCount
	if end > len(before) {
		end = len(before)
	}
	var deletedRunes []rune
	for i := resolvedIndex; i < end; i++ {
		deletedRunes = append(deletedRunes, before[i].Value)
	}
	text.Splice(resolvedIndex, deleteCount, insert, func() ID { return d.NextStamp() })

	forward := Diff{Kind: DiffTextSplice, Target: target, TextIndex: resolvedIndex, TextDelete: deleteCount, TextInsert: insert}
	inverse := Diff{Kind: DiffTextSplice, Target: target, TextIndex: resolvedIndex, TextDelete: len([]rune(insert)), TextInsert: string(deletedRunes)}
	return forward, inverse
}

// ListInsertAt inserts payload into target's actions list at index.
func (d *Doc) ListInsertAt(target ID, index int, payload any) (Diff, Diff) {
	d.mu.Lock()
	defer d.mu.Unlock()

	stamp := d.NextStamp()
	id := d.NextStamp()
	list := d.ActionsOf(target)
	resolved := index
	if n := len(list.ordered()); resolved < 0 || resolved > n {
		resolved = n
	}
	list.Insert(id, index, payload, stamp)

	forward := Diff{Kind: DiffListInsert, Target: target, Index: index, Val: payload}
	inverse := Diff{Kind: DiffListDelete, Target: target, Index: resolved, Val: payload}
	return forward, inverse
}

// ListDeleteAt removes the element currently at index, ok is false if
// index is out of range.
func (d *Doc) ListDeleteAt(target ID, index int) (Diff, Diff, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	list := d.ActionsOf(target)
	items := list.ordered()
	if index < 0 || index >= len(items) {
		return Diff{}, Diff{}, false
	}
	payload := items[index].Payload
	stamp := d.NextStamp()
	list.DeleteAt(index, stamp)

	forward := Diff{Kind: DiffListDelete, Target: target, Index: index, Val: payload}
	inverse := Diff{Kind: DiffListInsert, Target: target, Index: index, Val: payload}
	return forward, inverse, true
}

// ListMove relocates the element at from to land at to.
func (d *Doc) ListMove(target ID, from, to int) (Diff, Diff, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	list := d.ActionsOf(target)
	items := list.ordered()
	if from < 0 || from >= len(items) || from == to {
		return Diff{}, Diff{}, false
	}
	stamp := d.NextStamp()
	list.MoveIndex(from, to, stamp)

	forward := Diff{Kind: DiffListMove, Target: target, FromIndex: from, Index: to}
	inverse := Diff{Kind: DiffListMove, Target: target, FromIndex: to, Index: from}
	return forward, inverse, true
}

// ReplaceActions discards target's current action list and installs
// payloads fresh; mutate.ActionReplaceAll is its caller.
func (d *Doc) ReplaceActions(target ID, payloads []any) (Diff, Diff) {
	d.mu.Lock()
	defer d.mu.Unlock()

	list := d.ActionsOf(target)
	old := list.Snapshot()
	stamp := d.NextStamp()
	list.ReplaceAll(func(n int) []ID {
		ids := make([]ID, n)
		for i := range ids {
			ids[i] = d.NextStamp()
		}
		return ids
	}, payloads, stamp)

	forward := Diff{Kind: DiffListInsert, Target: target, Index: -1, Val: payloads}
	inverse := Diff{Kind: DiffListInsert, Target: target, Index: -1, Val: old}
	return forward, inverse
}

// applyDiff interprets a stored Diff generically, mutating the relevant
// container. It is used only by the Undo Manager to replay a forward or
// inverse diff that was captured by one of the functions above — every
// real user-facing mutation goes through those functions directly, which
// both mutate and build the diff in the same step.
func (d *Doc) applyDiff(diff Diff) {
	stamp := d.NextStamp()
	switch diff.Kind {
	case DiffCreate:
		if entry, ok := d.tree.entries[diff.Target]; ok {
			entry.Deleted = false
			entry.Parent = diff.Parent
			entry.Order = diff.Order
			entry.Stamp = stamp
			return
		}
		d.tree.entries[diff.Target] = &treeEntry{ID: diff.Target, Parent: diff.Parent, Order: diff.Order, Stamp: stamp}
		data, _ := diff.Val.(map[string]any)
		for k, v := range data {
			switch k {
			case "attrs":
				if m, ok := v.(map[string]any); ok {
					for ak, av := range m {
						d.Attrs(diff.Target).Set(ak, av, stamp)
					}
				}
			case "text":
				if s, ok := v.(string); ok {
					d.TextOf(diff.Target).Splice(0, 0, s, func() ID { return d.NextStamp() })
				}
			case "actions":
				if list, ok := v.([]any); ok {
					d.ActionsOf(diff.Target).ReplaceAll(func(n int) []ID {
						ids := make([]ID, n)
						for i := range ids {
							ids[i] = d.NextStamp()
						}
						return ids
					}, list, stamp)
				}
			default:
				d.Meta(diff.Target).Set(k, v, stamp)
			}
		}
	case DiffDelete:
		if entry, ok := d.tree.entries[diff.Target]; ok {
			entry.Deleted = true
			entry.Stamp = stamp
		}
	case DiffMove:
		if entry, ok := d.tree.entries[diff.Target]; ok {
			entry.Parent = diff.Parent
			entry.Order = diff.Order
			entry.Stamp = stamp
		}
	case DiffMapSet:
		containerFor(d, diff.Target, diff.Sub).Set(diff.Key, diff.Val, stamp)
	case DiffMapDelete:
		containerFor(d, diff.Target, diff.Sub).Delete(diff.Key, stamp)
	case DiffTextSplice:
		d.TextOf(diff.Target).Splice(diff.TextIndex, diff.TextDelete, diff.TextInsert, func() ID { return d.NextStamp() })
	case DiffListInsert:
		id := d.NextStamp()
		d.ActionsOf(diff.Target).Insert(id, diff.Index, diff.Val, stamp)
	case DiffListDelete:
		d.ActionsOf(diff.Target).DeleteAt(diff.Index, stamp)
	case DiffListMove:
		d.ActionsOf(diff.Target).MoveIndex(diff.FromIndex, diff.Index, stamp)
	}
}

func cloneAny(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Emit1 commits a single local diff, recording it (and inverse) onto the
// undo stack unless currently batching, in which case both sides of the
// pair are folded into the in-flight batch and flushed together by
// EndBatch.
func (d *Doc) Emit1(diff, inverse Diff) {
	d.mu.Lock()
	if d.batching {
		d.batchDiffs = append(d.batchDiffs, diff)
		d.batchInverse = append(d.batchInverse, inverse)
		d.mu.Unlock()
		return
	}
	d.mu.Unlock()
	d.undo.push([]Diff{diff}, []Diff{inverse})
	d.Commit(OriginLocal, []Diff{diff})
}

// EmitMany is Emit1 for a primitive that produces several diffs in one
// commit (e.g. add_children with multiple specs).
func (d *Doc) EmitMany(diffs, inverses []Diff) {
	if len(diffs) == 0 {
		return
	}
	d.mu.Lock()
	if d.batching {
		d.batchDiffs = append(d.batchDiffs, diffs...)
		d.batchInverse = append(d.batchInverse, inverses...)
		d.mu.Unlock()
		return
	}
	d.mu.Unlock()
	d.undo.push(diffs, inverses)
	d.Commit(OriginLocal, diffs)
}

package substrate

import "sort"

// listEntry is one element of an action node's ordered actions list. Each
// element holds an opaque payload (one generalized patch, see package
// patch) rather than a node id, so List reuses Tree's fractional-order-key
// technique (tree.go) for convergent ordering but is otherwise independent
// of the tree of document nodes.
type listEntry struct {
	ID      ID
	Order   string
	Stamp   ID
	Payload any
	Deleted bool
}

// List is the ordered-list container backing an action node's `actions`
// field (spec.md §3: "actions uses CRDT list semantics").
type List struct {
	owner   ID
	entries map[ID]*listEntry
}

func newList(owner ID) *List {
	return &List{owner: owner, entries: make(map[ID]*listEntry)}
}

func (l *List) ContainerID() ID { return l.owner }

func (l *List) ordered() []*listEntry {
	var out []*listEntry
	for _, e := range l.entries {
		if !e.Deleted {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[j].Stamp.Greater(out[i].Stamp)
	})
	return out
}

// Snapshot returns the live payloads in order.
func (l *List) Snapshot() []any {
	ordered := l.ordered()
	out := make([]any, len(ordered))
	for i, e := range ordered {
		out[i] = e.Payload
	}
	return out
}

// Insert inserts payload at index (negative/out-of-range means append),
// stamped for LWW tie-breaking among concurrent inserts at the same spot.
func (l *List) Insert(id ID, index int, payload any, stamp ID) {
	items := l.ordered()
	lo, hi := "", ""
	switch {
	case len(items) == 0:
	case index < 0 || index >= len(items):
		lo = items[len(items)-1].Order
	case index == 0:
		hi = items[0].Order
	default:
		lo = items[index-1].Order
		hi = items[index].Order
	}
	l.entries[id] = &listEntry{ID: id, Order: between(lo, hi), Stamp: stamp, Payload: payload}
}

// DeleteAt removes the element currently at index (no-op if out of range).
func (l *List) DeleteAt(index int, stamp ID) {
	items := l.ordered()
	if index < 0 || index >= len(items) {
		return
	}
	items[index].Deleted = true
	items[index].Stamp = stamp
}

// MoveIndex relocates the element at from to land at to, by re-keying its
// order — a move is a delete-then-insert-with-same-id at the storage
// layer, so concurrent moves of the same element still resolve by Stamp
// the same way tree moves do (tree.go).
func (l *List) MoveIndex(from, to int, stamp ID) {
	items := l.ordered()
	if from < 0 || from >= len(items) || from == to {
		return
	}
	moved := items[from]
	rest := append(append([]*listEntry{}, items[:from]...), items[from+1:]...)
	lo, hi := "", ""
	switch {
	case len(rest) == 0:
	case to <= 0:
		hi = rest[0].Order
	case to >= len(rest):
		lo = rest[len(rest)-1].Order
	default:
		lo = rest[to-1].Order
		hi = rest[to].Order
	}
	moved.Order = between(lo, hi)
	moved.Stamp = stamp
}

// ReplaceAll discards every live element and inserts the given payloads
// fresh, in order.
func (l *List) ReplaceAll(newIDs func(n int) []ID, payloads []any, stamp ID) {
	for _, e := range l.entries {
		e.Deleted = true
	}
	ids := newIDs(len(payloads))
	order := ""
	for i, p := range payloads {
		order = between(order, "")
		l.entries[ids[i]] = &listEntry{ID: ids[i], Order: order, Stamp: stamp, Payload: p}
	}
}

// applyRemote integrates a remote write for element id.
func (l *List) applyRemote(id ID, order string, payload any, stamp ID, deleted bool) {
	cur, ok := l.entries[id]
	if !ok || stamp.Greater(cur.Stamp) {
		l.entries[id] = &listEntry{ID: id, Order: order, Stamp: stamp, Payload: payload, Deleted: deleted}
	}
}

package substrate

import (
	"encoding/json"
	"sync"
)

// Frontier is a compact per-peer logical-clock snapshot marking a point
// in the operation history, used for delta export (spec.md §6, GLOSSARY).
type Frontier map[uint64]uint32

// Clone returns a deep copy.
func (f Frontier) Clone() Frontier {
	c := make(Frontier, len(f))
	for k, v := range f {
		c[k] = v
	}
	return c
}

// Doc is the CRDT Substrate Adaptor: the opaque handle over the
// replicated tree, its per-node maps/text/list sub-containers, frontiers
// and byte export/import. It generalizes the teacher's NewRGA(nodeID)
// constructor-with-identity pattern (rga.go) to own every container kind
// instead of a single flat sequence.
type Doc struct {
	mu sync.Mutex

	peer     uint64
	clock    uint32
	frontier Frontier

	tree    *Tree
	metas   map[ID]*Map  // reserved-key metadata: kind, tag, operation, label, target, replayMode, sourceId
	attrs   map[ID]*Map  // element attrs sub-map
	texts   map[ID]*Text // value text sub-container
	actions map[ID]*List // action actions sub-list

	root ID

	peerNames *Map // reserved peer-id -> human-name container (spec.md §6)

	subs      []subscription
	nextSubID int

	batching     bool
	batchDiffs   []Diff
	batchInverse []Diff

	undo *UndoManager

	log *logger
}

// Option configures a Doc at construction time.
type Option func(*Doc)

// WithLogger injects a structured logger used for the InvalidInput/
// NotFound error taxonomy (spec.md §7). If omitted, a no-op logger is
// used.
func WithLogger(l Logger) Option {
	return func(d *Doc) { d.log = newLoggerAdapter(l) }
}

// NewDoc creates an empty document for the given 64-bit peer identity
// (spec.md §6: "a 64-bit peer id is supplied at document construction").
func NewDoc(peer uint64, opts ...Option) *Doc {
	d := &Doc{
		peer:    peer,
		tree:    newTree(),
		metas:   make(map[ID]*Map),
		attrs:   make(map[ID]*Map),
		texts:   make(map[ID]*Text),
		actions: make(map[ID]*List),
		log:     newLoggerAdapter(nil),
	}
	d.undo = newUndoManager(d, defaultMaxSteps, defaultMergeInterval)
	return d
}

// Peer returns this document's peer id.
func (d *Doc) Peer() uint64 { return d.peer }

// Tree exposes the read-only tree structure for package index.
func (d *Doc) Tree() *Tree { return d.tree }

// Meta returns the reserved-key metadata map for id, creating it if
// absent.
func (d *Doc) Meta(id ID) *Map {
	m, ok := d.metas[id]
	if !ok {
		m = newMap(id)
		d.metas[id] = m
	}
	return m
}

// Attrs returns the element attrs map for id, creating it if absent.
func (d *Doc) Attrs(id ID) *Map {
	m, ok := d.attrs[id]
	if !ok {
		m = newMap(id)
		d.attrs[id] = m
	}
	return m
}

// TextOf returns the text container for id, creating it if absent.
func (d *Doc) TextOf(id ID) *Text {
	t, ok := d.texts[id]
	if !ok {
		t = newText(id)
		d.texts[id] = t
	}
	return t
}

// ActionsOf returns the actions list container for id, creating it if
// absent.
func (d *Doc) ActionsOf(id ID) *List {
	l, ok := d.actions[id]
	if !ok {
		l = newList(id)
		d.actions[id] = l
	}
	return l
}

// PeerNames returns the document's reserved peer-id->human-name map
// container (spec.md §6: "The document also stores a peer-id->human-name
// mapping in a reserved map container"), creating it on first use. It is
// deliberately not keyed by any tree node id — this container outlives
// and is independent of the document's root and all its element/value/
// ref/formula/action nodes.
func (d *Doc) PeerNames() *Map {
	if d.peerNames == nil {
		d.peerNames = newMap(Zero)
	}
	return d.peerNames
}

// NextStamp allocates the next local (Counter, Peer) stamp, bumping the
// document's logical clock. Every write to the tree, a map, text or a
// list goes through this so concurrent writes can be compared with
// ID.Greater.
func (d *Doc) NextStamp() ID {
	d.clock++
	return ID{Counter: d.clock, Peer: d.peer}
}

func (d *Doc) observeStamp(id ID) {
	if id.Peer == d.peer && id.Counter > d.clock {
		d.clock = id.Counter
	}
	if d.frontier == nil {
		d.frontier = Frontier{}
	}
	if id.Counter > d.frontier[id.Peer] {
		d.frontier[id.Peer] = id.Counter
	}
}

// CurrentFrontier returns a snapshot of this document's frontier: the
// highest counter observed per peer, including this document's own writes
// (spec.md §6, GLOSSARY: "a compact set of operation identifiers marking
// a point in the operation history").
func (d *Doc) CurrentFrontier() Frontier {
	f := d.frontier.Clone()
	if f == nil {
		f = Frontier{}
	}
	if d.clock > f[d.peer] {
		f[d.peer] = d.clock
	}
	return f
}

// ExportUpdate serializes only the nodes whose last write is not yet
// reflected in from, i.e. the delta since that frontier (spec.md §6:
// "update from=frontier").
func (d *Doc) ExportUpdate(from Frontier) ([]byte, error) {
	var nodes []exportedNode
	for id, e := range d.tree.entries {
		if e.Stamp.Counter <= from[e.Stamp.Peer] {
			continue
		}
		en := exportedNode{ID: id, Parent: e.Parent, Order: e.Order, Stamp: e.Stamp, Deleted: e.Deleted}
		if m, ok := d.metas[id]; ok {
			en.Meta = m.Snapshot()
		}
		if a, ok := d.attrs[id]; ok {
			en.Attrs = a.Snapshot()
		}
		if t, ok := d.texts[id]; ok {
			en.Text = t.String()
		}
		if l, ok := d.actions[id]; ok {
			en.Actions = l.Snapshot()
		}
		nodes = append(nodes, en)
	}
	return json.Marshal(snapshotWire{Root: d.root, Clock: d.clock, Peer: d.peer, Nodes: nodes})
}

// ApplyUpdate merges a delta produced by ExportUpdate into this document,
// resolving conflicts the same way any remote write does (LWW by Stamp),
// and fires one OriginRemote commit. Re-applying the same bytes is a
// no-op (spec.md §8: "substrate idempotence"), since applyRemote only
// overwrites an entry when the incoming stamp strictly wins.
func (d *Doc) ApplyUpdate(data []byte) error {
	var wire snapshotWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	var diffs []Diff
	for _, en := range wire.Nodes {
		d.observeStamp(en.Stamp)
		d.tree.applyRemote(en.ID, en.Parent, en.Order, en.Stamp, en.Deleted)
		if !en.Deleted {
			meta := d.Meta(en.ID)
			for k, v := range en.Meta {
				meta.applyRemote(k, v, en.Stamp, false)
			}
			if len(en.Attrs) > 0 {
				attrs := d.Attrs(en.ID)
				for k, v := range en.Attrs {
					attrs.applyRemote(k, v, en.Stamp, false)
				}
			}
			if en.Text != "" {
				text := d.TextOf(en.ID)
				if text.String() == "" {
					text.Splice(0, 0, en.Text, func() ID { return d.NextStamp() })
				}
			}
		}
		kind := DiffCreate
		if en.Deleted {
			kind = DiffDelete
		}
		diffs = append(diffs, Diff{Kind: kind, Target: en.ID, Parent: en.Parent})
	}
	d.Commit(OriginRemote, diffs)
	return nil
}

// BeginBatch suppresses per-primitive auto-commit so a caller (the
// Replay Engine) can bracket many primitives inside exactly one Commit
// (spec.md §9: replay is "a single logical transaction bracketed by one
// commit, not per-patch commits"). Emit1/EmitMany called while batching
// fold their diff/inverse pairs into the pending batch instead of
// committing and recording an undo step immediately.
func (d *Doc) BeginBatch() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.batching = true
	d.batchDiffs = nil
	d.batchInverse = nil
}

// EndBatch flushes the accumulated batch as one commit with the given
// origin (OriginLocal for a replay run) and, for a local origin, pushes
// the whole batch onto the undo stack as a single step so undoing a
// replay run undoes it as one logical edit.
func (d *Doc) EndBatch(origin Origin) {
	d.mu.Lock()
	diffs := d.batchDiffs
	inverses := d.batchInverse
	d.batching = false
	d.batchDiffs = nil
	d.batchInverse = nil
	d.mu.Unlock()
	if origin == OriginLocal && len(diffs) > 0 {
		d.undo.push(diffs, inverses)
	}
	d.Commit(origin, diffs)
}

// Commit flushes diffs as one event, tagged with origin, to every
// subscriber. It is also how remote/imported operations enter the
// document: callers apply the remote write to the relevant container(s)
// first, then call Commit(OriginRemote, diffs) describing what changed.
func (d *Doc) Commit(origin Origin, diffs []Diff) {
	if len(diffs) == 0 {
		return
	}
	d.notify(Event{Origin: origin, Diffs: diffs})
}

// exportedNode is the byte-level wire representation of one node, used by
// Export/Import. It is opaque to every layer above substrate.
type exportedNode struct {
	ID      ID             `json:"id"`
	Parent  ID             `json:"parent"`
	Order   string         `json:"order"`
	Stamp   ID             `json:"stamp"`
	Deleted bool           `json:"deleted"`
	Meta    map[string]any `json:"meta"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Text    string         `json:"text,omitempty"`
	Actions []any          `json:"actions,omitempty"`
}

type snapshotWire struct {
	Root  ID             `json:"root"`
	Clock uint32         `json:"clock"`
	Peer  uint64         `json:"peer"`
	Nodes []exportedNode `json:"nodes"`
}

// ExportSnapshot serializes the full document state to opaque bytes
// (spec.md §6: "snapshot (full state)").
func (d *Doc) ExportSnapshot() ([]byte, error) {
	var nodes []exportedNode
	for id, e := range d.tree.entries {
		en := exportedNode{
			ID: id, Parent: e.Parent, Order: e.Order, Stamp: e.Stamp, Deleted: e.Deleted,
		}
		if m, ok := d.metas[id]; ok {
			en.Meta = m.Snapshot()
		}
		if a, ok := d.attrs[id]; ok {
			en.Attrs = a.Snapshot()
		}
		if t, ok := d.texts[id]; ok {
			en.Text = t.String()
		}
		if l, ok := d.actions[id]; ok {
			en.Actions = l.Snapshot()
		}
		nodes = append(nodes, en)
	}
	return json.Marshal(snapshotWire{Root: d.root, Clock: d.clock, Peer: d.peer, Nodes: nodes})
}

// ImportSnapshot replaces the document's state with the decoded bytes and
// fires one OriginImport commit event describing every live node as a
// create (so subscribers' indexes rebuild coherently).
func (d *Doc) ImportSnapshot(data []byte) error {
	var wire snapshotWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	d.tree = newTree()
	d.metas = make(map[ID]*Map)
	d.attrs = make(map[ID]*Map)
	d.texts = make(map[ID]*Text)
	d.actions = make(map[ID]*List)
	d.root = wire.Root
	if wire.Clock > d.clock {
		d.clock = wire.Clock
	}

	var diffs []Diff
	for _, en := range wire.Nodes {
		d.tree.entries[en.ID] = &treeEntry{ID: en.ID, Parent: en.Parent, Order: en.Order, Stamp: en.Stamp, Deleted: en.Deleted}
		if en.Deleted {
			continue
		}
		meta := d.Meta(en.ID)
		for k, v := range en.Meta {
			meta.Set(k, v, en.Stamp)
		}
		if len(en.Attrs) > 0 {
			attrs := d.Attrs(en.ID)
			for k, v := range en.Attrs {
				attrs.Set(k, v, en.Stamp)
			}
		}
		if en.Text != "" {
			text := d.TextOf(en.ID)
			text.Splice(0, 0, en.Text, func() ID { return d.NextStamp() })
		}
		if len(en.Actions) > 0 {
			d.ActionsOf(en.ID).ReplaceAll(func(n int) []ID {
				ids := make([]ID, n)
				for i := range ids {
					ids[i] = d.NextStamp()
				}
				return ids
			}, en.Actions, en.Stamp)
		}
		diffs = append(diffs, Diff{Kind: DiffCreate, Target: en.ID, Parent: en.Parent})
	}
	d.Commit(OriginImport, diffs)
	return nil
}

// CheckoutLatest is a no-op in this single-history substrate: every write
// is already applied to the live state, so "latest" is simply the current
// state. It exists to satisfy the substrate contract's checkout_latest
// alongside Checkout.
func (d *Doc) CheckoutLatest() {}

// Checkout emits a best-effort historical materialization as of frontier:
// every node whose last write is not newer than frontier, as a fresh
// DiffCreate batch tagged OriginCheckout. This substrate only retains the
// latest LWW value per slot (not a full version log), so a node whose
// attrs/text were overwritten after frontier is shown with its *current*
// content under its as-of-frontier tree placement — an accepted
// approximation for time-travel reads, recorded here rather than left
// implicit.
func (d *Doc) Checkout(frontier Frontier) {
	var diffs []Diff
	for id, e := range d.tree.entries {
		if e.Deleted || e.Stamp.Counter > frontier[e.Stamp.Peer] {
			continue
		}
		diffs = append(diffs, Diff{Kind: DiffCreate, Target: id, Parent: e.Parent})
	}
	d.Commit(OriginCheckout, diffs)
}

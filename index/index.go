// Package index maintains the Indexed View: a derived id→node,
// id→parent, id→ordered-children materialization kept coherent with the
// CRDT substrate by rebuilding unconditionally on every commit event
// (spec.md §4.3), local or remote.
package index

import (
	"sync"

	"github.com/cshekharsharma/doctree/schema"
	"github.com/cshekharsharma/doctree/substrate"
)

// Index is a derived structure, safe for concurrent reads from multiple
// goroutines while a rebuild is never itself concurrent with another
// rebuild (the substrate's single-logical-writer commit discipline,
// spec.md §5, serializes the listener that drives Rebuild).
type Index struct {
	mu    sync.RWMutex
	nodes map[substrate.ID]schema.Node
	root  substrate.ID
}

// New builds an Index over doc's current state and subscribes to keep
// it current; the returned disposer unregisters the subscription.
func New(doc *substrate.Doc) (*Index, func()) {
	ix := &Index{nodes: map[substrate.ID]schema.Node{}}
	ix.Rebuild(doc)
	disposer := doc.Subscribe(func(substrate.Event) {
		ix.Rebuild(doc)
	})
	return ix, disposer
}

// Rebuild discards the current materialization and recomputes it from
// doc's live tree and containers. It walks down from the root through
// live Children() edges only, so a node left live but orphaned by a
// deleted ancestor (tree-delete tombstones only the one target id, not
// its descendants) is never reached and never enters the index: its
// parent's child list already excludes it, the same edge the walk
// follows. This keeps every indexed node's Parent either the zero id or
// another indexed node (spec.md §4.3 invariant 1).
//
// It is exported so callers that drive their own commit loop (tests, the
// replay engine) can force a synchronous rebuild without waiting on the
// subscription.
func (ix *Index) Rebuild(doc *substrate.Doc) {
	nodes := make(map[substrate.ID]schema.Node)
	tree := doc.Tree()
	root := doc.Root()

	if !root.IsZero() && tree.Live(root) {
		var walk func(id substrate.ID)
		walk = func(id substrate.ID) {
			nodes[id] = buildNode(doc, tree, id)
			for _, c := range tree.Children(id) {
				walk(c)
			}
		}
		walk(root)
	}

	ix.mu.Lock()
	ix.nodes = nodes
	ix.root = root
	ix.mu.Unlock()
}

// buildNode materializes id's schema.Node from the tree and its
// containers, assuming id is already known to be live and reachable.
func buildNode(doc *substrate.Doc, tree *substrate.Tree, id substrate.ID) schema.Node {
	parent, _ := tree.Parent(id)
	n := schema.Node{
		ID:       id,
		Parent:   parent,
		Children: tree.Children(id),
	}
	meta := doc.Meta(id).Snapshot()
	if k, ok := meta[schema.MetaKind].(string); ok {
		n.Kind = schema.Kind(k)
	}
	if s, ok := meta[schema.MetaSourceID].(string); ok {
		if sid, ok := substrate.ParseID(s); ok {
			n.SourceID = sid
		}
	}

	switch n.Kind {
	case schema.KindElement:
		if t, ok := meta[schema.MetaTag].(string); ok {
			n.Tag = t
		}
		n.Attrs = doc.Attrs(id).Snapshot()
	case schema.KindValue:
		n.Text = doc.TextOf(id).String()
	case schema.KindRef:
		if t, ok := meta[schema.MetaRefTarget].(string); ok {
			if tid, ok := substrate.ParseID(t); ok {
				n.Target = tid
			}
		}
	case schema.KindFormula:
		if op, ok := meta[schema.MetaOperation].(string); ok {
			n.Operation = op
		}
	case schema.KindAction:
		if l, ok := meta[schema.MetaLabel].(string); ok {
			n.Label = l
		}
		if t, ok := meta[schema.MetaTarget].(string); ok {
			if tid, ok := substrate.ParseID(t); ok {
				n.ActionTarget = tid
			}
		}
		if rm, ok := meta[schema.MetaReplayMode].(string); ok {
			n.ReplayMode = rm
		}
		n.Actions = doc.ActionsOf(id).Snapshot()
	}

	return n
}

// Get returns the materialized node for id and whether it is present.
func (ix *Index) Get(id substrate.ID) (schema.Node, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	n, ok := ix.nodes[id]
	return n, ok
}

// Parent returns id's parent and whether id is present in the index.
func (ix *Index) Parent(id substrate.ID) (substrate.ID, bool) {
	n, ok := ix.Get(id)
	if !ok {
		return substrate.Zero, false
	}
	return n.Parent, true
}

// Children returns the ordered live children of id (nil if id is
// absent or has none).
func (ix *Index) Children(id substrate.ID) []substrate.ID {
	n, ok := ix.Get(id)
	if !ok {
		return nil
	}
	return n.Children
}

// Root returns the document's root node id.
func (ix *Index) Root() substrate.ID {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.root
}

// Snapshot returns a frozen copy of the full id→node map, usable for
// diffing (spec.md §4.3: "snapshots are produced by copying the index,
// yielding a frozen value").
func (ix *Index) Snapshot() map[substrate.ID]schema.Node {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make(map[substrate.ID]schema.Node, len(ix.nodes))
	for k, v := range ix.nodes {
		out[k] = v
	}
	return out
}

// Package doc provides the top-level Document facade: it wires the CRDT
// Substrate Adaptor, Indexed View, Mutation API, Event-Diff → Patch
// Derivation history, Replay Engine, Undo Manager, Selection
// Generalizer, Formula Evaluator and Sync Adaptor Interface into one
// object, generalizing the teacher's `NewRGA(nodeID)`
// constructor-with-identity pattern (`rga.go`) to a single constructor
// that owns every layer instead of one flat sequence.
package doc

import (
	"strconv"

	"github.com/cshekharsharma/doctree/formula"
	"github.com/cshekharsharma/doctree/index"
	"github.com/cshekharsharma/doctree/mutate"
	"github.com/cshekharsharma/doctree/patch"
	"github.com/cshekharsharma/doctree/replay"
	"github.com/cshekharsharma/doctree/schema"
	"github.com/cshekharsharma/doctree/selection"
	"github.com/cshekharsharma/doctree/substrate"
	"github.com/cshekharsharma/doctree/sync"
	"go.uber.org/zap"
)

// Document is one collaborative structured document bound to a single
// peer identity (spec.md §6). It owns the substrate, the derived index,
// the mutation/replay/selection/formula facades over them, and the
// local patch-history recording window. A sync.Client is attached
// separately via AttachSync, since the core never constructs a concrete
// transport adaptor itself (spec.md §1 Out of scope).
type Document struct {
	Doc     *substrate.Doc
	Index   *index.Index
	Mutate  *mutate.API
	Replay  *replay.Engine
	History *patch.History
	Formula *formula.Evaluator

	sync *sync.Client

	disposeIndex func()
	disposeHist  func()
}

// Option configures a Document at construction time.
type Option func(*options)

type options struct {
	logger   substrate.Logger
	registry *formula.Registry
}

// WithLogger injects a structured logger for the substrate's
// InvalidInput/NotFound taxonomy (spec.md §7).
func WithLogger(l substrate.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithOperationRegistry overrides the formula evaluator's default
// operation table (spec.md §4.10: "Operations are provided by the
// host as an (name, arity, execute) registry").
func WithOperationRegistry(r *formula.Registry) Option {
	return func(o *options) { o.registry = r }
}

// New constructs a Document for the given 64-bit peer identity
// (spec.md §6), with an empty tree — callers create the root via
// Mutate.CreateRoot.
func New(peer uint64, opts ...Option) *Document {
	cfg := &options{}
	for _, o := range opts {
		o(cfg)
	}
	if cfg.registry == nil {
		cfg.registry = formula.DefaultRegistry()
	}

	var docOpts []substrate.Option
	if cfg.logger != nil {
		docOpts = append(docOpts, substrate.WithLogger(cfg.logger))
	}
	sdoc := substrate.NewDoc(peer, docOpts...)

	idx, disposeIndex := index.New(sdoc)
	api := mutate.New(sdoc, idx)
	hist, disposeHist := patch.NewHistory(sdoc)
	eng := replay.New(sdoc, idx, api)
	ev := formula.New(idx, cfg.registry)

	return &Document{
		Doc:          sdoc,
		Index:        idx,
		Mutate:       api,
		Replay:       eng,
		History:      hist,
		Formula:      ev,
		disposeIndex: disposeIndex,
		disposeHist:  disposeHist,
	}
}

// Close unsubscribes the index and history listeners. A Document whose
// Close was never called is still safe — subscriptions are only ever
// released here as a courtesy for long-lived hosts that construct and
// discard many documents (e.g. tests).
func (d *Document) Close() {
	if d.disposeIndex != nil {
		d.disposeIndex()
	}
	if d.disposeHist != nil {
		d.disposeHist()
	}
	if d.sync != nil {
		d.sync.Disconnect()
	}
}

// AttachSync wires a concrete sync.Adaptor (e.g. transport/wsadaptor) to
// this document, gated by the sync_enabled flag (spec.md §4.9). The core
// never constructs adaptor itself; log may be nil, in which case
// teardown errors are discarded instead of logged.
func (d *Document) AttachSync(adaptor sync.Adaptor, log *zap.SugaredLogger) *sync.Client {
	d.sync = sync.New(d.Doc, adaptor, log)
	return d.sync
}

// Sync returns the attached sync.Client, or nil if AttachSync was never
// called.
func (d *Document) Sync() *sync.Client { return d.sync }

// Generalize exposes the Selection Generalizer (spec.md §4.8) bound to
// this document's current index.
func (d *Document) Generalize(selected []substrate.ID) []substrate.ID {
	return selection.Generalize(d.Index, selected)
}

// Evaluate exposes the Formula Evaluator (spec.md §4.10) bound to this
// document's current index.
func (d *Document) Evaluate(id substrate.ID) any {
	return d.Formula.Evaluate(id)
}

// RunAction replays an action node's own recorded patches, resolving
// replayMode per spec.md §9's Open Question: "fixed" binds $0 to the
// action's own stored target; "selected" binds $0 to callerStart (e.g.
// the host's current UI selection). Returns the ids created during the
// run.
func (d *Document) RunAction(actionID substrate.ID, callerStart substrate.ID) []substrate.ID {
	n, ok := d.Index.Get(actionID)
	if !ok || n.Kind != schema.KindAction {
		d.Doc.LogNotFound("run_action", actionID)
		return nil
	}
	return d.Replay.ReplayAction(n, callerStart)
}

// PeerName returns the human name registered for peer, if any.
func (d *Document) PeerName(peer uint64) (string, bool) {
	v, ok := d.Doc.PeerNames().Get(peerKey(peer))
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// SetPeerName records name for peer in the document's reserved
// peer-id->human-name map (spec.md §6), visible to every peer once this
// write is exchanged like any other map write.
func (d *Document) SetPeerName(peer uint64, name string) {
	d.Doc.PeerNames().Set(peerKey(peer), name, d.Doc.NextStamp())
}

// PeerNames returns a snapshot of every currently registered peer-id ->
// human-name pair.
func (d *Document) PeerNames() map[uint64]string {
	snap := d.Doc.PeerNames().Snapshot()
	out := make(map[uint64]string, len(snap))
	for k, v := range snap {
		if s, ok := v.(string); ok {
			if peer, ok := parsePeerKey(k); ok {
				out[peer] = s
			}
		}
	}
	return out
}

// Undo/Redo/CanUndo/CanRedo expose the local-only Undo Manager
// (spec.md §4.7) directly off the substrate.
func (d *Document) Undo() bool    { return d.Doc.Undo() }
func (d *Document) Redo() bool    { return d.Doc.Redo() }
func (d *Document) CanUndo() bool { return d.Doc.CanUndo() }
func (d *Document) CanRedo() bool { return d.Doc.CanRedo() }

// ExportSnapshot/ImportSnapshot/ExportUpdate/ApplyUpdate expose the
// substrate's opaque byte-level document format (spec.md §6).
func (d *Document) ExportSnapshot() ([]byte, error)            { return d.Doc.ExportSnapshot() }
func (d *Document) ImportSnapshot(data []byte) error           { return d.Doc.ImportSnapshot(data) }
func (d *Document) ExportUpdate(from substrate.Frontier) ([]byte, error) {
	return d.Doc.ExportUpdate(from)
}
func (d *Document) ApplyUpdate(data []byte) error { return d.Doc.ApplyUpdate(data) }

// Frontier returns the document's current frontier (spec.md §6, GLOSSARY).
func (d *Document) Frontier() substrate.Frontier { return d.Doc.CurrentFrontier() }

// peerKey/parsePeerKey convert a 64-bit peer id to/from the string key
// the reserved PeerNames map stores it under.
func peerKey(peer uint64) string {
	return strconv.FormatUint(peer, 10)
}

func parsePeerKey(key string) (uint64, bool) {
	peer, err := strconv.ParseUint(key, 10, 64)
	return peer, err == nil
}

// Package mutate implements the Mutation API: the single-effect
// primitives of spec.md §4.4. Each primitive reads the Indexed View at
// most once per target id, dispatches one or more calls into the
// substrate, and ends with at most one substrate commit (none when it
// changed nothing) — there are no multi-op
// transactions (spec.md §1 Non-goals: no compound "wrap" primitive).
package mutate

import (
	"github.com/cshekharsharma/doctree/index"
	"github.com/cshekharsharma/doctree/schema"
	"github.com/cshekharsharma/doctree/substrate"
)

// API is the Mutation API, bound to one document and its index.
type API struct {
	doc *substrate.Doc
	idx *index.Index
}

// New binds a Mutation API to doc and its Indexed View.
func New(doc *substrate.Doc, idx *index.Index) *API {
	return &API{doc: doc, idx: idx}
}

// NodeSpec describes one node to materialize via AddChildren or as the
// `data` template inside a tree.create patch (package patch/replay
// convert between the two).
type NodeSpec struct {
	Kind Kind

	// element
	Tag   string
	Attrs map[string]any

	// value
	Text string

	// ref
	Target substrate.ID

	// formula
	Operation string

	// action
	Label        string
	ActionTarget substrate.ID
	ReplayMode   string
	Actions      []any
}

// Kind re-exports schema.Kind so callers of this package rarely need to
// import package schema just to build a NodeSpec.
type Kind = schema.Kind

const (
	KindElement = schema.KindElement
	KindValue   = schema.KindValue
	KindRef     = schema.KindRef
	KindFormula = schema.KindFormula
	KindAction  = schema.KindAction
)

// toData lowers a NodeSpec to the raw field map CreateNode stores in
// the substrate's meta map (plus attrs/text/actions sub-containers).
func (s NodeSpec) toData() (map[string]any, error) {
	data := map[string]any{schema.MetaKind: string(s.Kind)}
	switch s.Kind {
	case schema.KindElement:
		tag, err := schema.SanitizeTag(s.Tag)
		if err != nil {
			return nil, err
		}
		data[schema.MetaTag] = tag
		if len(s.Attrs) > 0 {
			data["attrs"] = s.Attrs
		}
	case schema.KindValue:
		if s.Text != "" {
			data["text"] = s.Text
		}
	case schema.KindRef:
		data[schema.MetaRefTarget] = s.Target.String()
	case schema.KindFormula:
		data[schema.MetaOperation] = s.Operation
	case schema.KindAction:
		data[schema.MetaLabel] = s.Label
		data[schema.MetaTarget] = s.ActionTarget.String()
		if s.ReplayMode != "" {
			data[schema.MetaReplayMode] = s.ReplayMode
		}
		if len(s.Actions) > 0 {
			data["actions"] = s.Actions
		}
	default:
		return nil, substrate.ErrInvalidInput
	}
	return data, nil
}

// CreateRoot creates an element node with no parent and installs it as
// the document root (spec.md §4.4). A later call creates a *new* root
// identifier — create_root is idempotent only by the unique-id rule.
func (a *API) CreateRoot(tag string) substrate.ID {
	sanitized, err := schema.SanitizeTag(tag)
	if err != nil {
		a.doc.LogInvalidInput("create_root", err.Error(), "tag", tag)
		return substrate.Zero
	}
	id, fwd, inv := a.doc.CreateNode(substrate.Zero, 0, map[string]any{
		schema.MetaKind: string(schema.KindElement),
		schema.MetaTag:  sanitized,
	})
	a.doc.SetRoot(id)
	a.doc.Emit1(fwd, inv)
	return id
}

// AddChildren allocates one node per spec under parent, at sequential
// positions starting at startIndex (negative means append), and returns
// the ids actually created — specs that fail sanitization are skipped
// with a logged InvalidInput, and do not consume a position.
func (a *API) AddChildren(parent substrate.ID, specs []NodeSpec, startIndex int) []substrate.ID {
	var ids []substrate.ID
	var diffs, inverses []substrate.Diff
	idx := startIndex
	for _, spec := range specs {
		data, err := spec.toData()
		if err != nil {
			a.doc.LogInvalidInput("add_children", err.Error())
			continue
		}
		pos := idx
		if idx >= 0 {
			idx++
		}
		id, fwd, inv := a.doc.CreateNode(parent, pos, data)
		ids = append(ids, id)
		diffs = append(diffs, fwd)
		inverses = append(inverses, inv)
	}
	a.doc.EmitMany(diffs, inverses)
	return ids
}

// Delete tree-deletes each id (a no-op per id that is already gone).
func (a *API) Delete(ids []substrate.ID) {
	var diffs, inverses []substrate.Diff
	for _, id := range ids {
		fwd, inv, ok := a.doc.DeleteNode(id)
		if !ok {
			a.doc.LogNotFound("delete", id)
			continue
		}
		diffs = append(diffs, fwd)
		inverses = append(inverses, inv)
	}
	a.doc.EmitMany(diffs, inverses)
}

// Move reparents each id under newParent at index (negative means
// append); a move that would create a cycle is skipped.
func (a *API) Move(ids []substrate.ID, newParent substrate.ID, index int) {
	var diffs, inverses []substrate.Diff
	for _, id := range ids {
		fwd, inv, ok := a.doc.MoveNode(id, newParent, index)
		if !ok {
			a.doc.LogInvalidInput("move", "would create a cycle or target missing", "target", id.String())
			continue
		}
		diffs = append(diffs, fwd)
		inverses = append(inverses, inv)
	}
	a.doc.EmitMany(diffs, inverses)
}

// CopyNode reads the *current* fields of sourceID from the index and
// materializes a new node of the same kind and content under parentID,
// recording sourceId = sourceID. Children are not deep-copied. Returns
// the Zero id (and logs NotFound) if sourceID is not live.
func (a *API) CopyNode(sourceID, parentID substrate.ID, index int) substrate.ID {
	src, ok := a.idx.Get(sourceID)
	if !ok {
		a.doc.LogNotFound("copy_node", sourceID)
		return substrate.Zero
	}
	data := map[string]any{schema.MetaKind: string(src.Kind), schema.MetaSourceID: sourceID.String()}
	switch src.Kind {
	case schema.KindElement:
		data[schema.MetaTag] = src.Tag
		if len(src.Attrs) > 0 {
			data["attrs"] = src.Attrs
		}
	case schema.KindValue:
		if src.Text != "" {
			data["text"] = src.Text
		}
	case schema.KindRef:
		data[schema.MetaRefTarget] = src.Target.String()
	case schema.KindFormula:
		data[schema.MetaOperation] = src.Operation
	case schema.KindAction:
		data[schema.MetaLabel] = src.Label
		data[schema.MetaTarget] = src.ActionTarget.String()
		if src.ReplayMode != "" {
			data[schema.MetaReplayMode] = src.ReplayMode
		}
		if len(src.Actions) > 0 {
			data["actions"] = append([]any{}, src.Actions...)
		}
	}
	id, fwd, inv := a.doc.CreateNode(parentID, index, data)
	a.doc.Emit1(fwd, inv)
	return id
}

// UpdateAttribute sets (hasValue true) or deletes (hasValue false) key
// on each element id's attrs map.
func (a *API) UpdateAttribute(ids []substrate.ID, key string, value any, hasValue bool) {
	var diffs, inverses []substrate.Diff
	for _, id := range ids {
		n, ok := a.idx.Get(id)
		if !ok || n.Kind != schema.KindElement {
			a.doc.LogInvalidInput("update_attribute", "target is not an element", "target", id.String())
			continue
		}
		if hasValue {
			fwd, inv := a.doc.SetField(id, substrate.SubAttrs, key, value)
			diffs, inverses = append(diffs, fwd), append(inverses, inv)
		} else if fwd, inv, ok := a.doc.DeleteField(id, substrate.SubAttrs, key); ok {
			diffs, inverses = append(diffs, fwd), append(inverses, inv)
		}
	}
	a.doc.EmitMany(diffs, inverses)
}

// UpdateTag sanitizes newTag then sets it on each element id.
func (a *API) UpdateTag(ids []substrate.ID, newTag string) {
	sanitized, err := schema.SanitizeTag(newTag)
	if err != nil {
		a.doc.LogInvalidInput("update_tag", err.Error(), "tag", newTag)
		return
	}
	var diffs, inverses []substrate.Diff
	for _, id := range ids {
		n, ok := a.idx.Get(id)
		if !ok || n.Kind != schema.KindElement {
			a.doc.LogInvalidInput("update_tag", "target is not an element", "target", id.String())
			continue
		}
		fwd, inv := a.doc.SetField(id, substrate.SubMeta, schema.MetaTag, sanitized)
		diffs, inverses = append(diffs, fwd), append(inverses, inv)
	}
	a.doc.EmitMany(diffs, inverses)
}

// SpliceValue performs an op-based text splice on each value id.
func (a *API) SpliceValue(ids []substrate.ID, index, deleteCount int, insert string) {
	var diffs, inverses []substrate.Diff
	for _, id := range ids {
		n, ok := a.idx.Get(id)
		if !ok || n.Kind != schema.KindValue {
			a.doc.LogInvalidInput("splice_value", "target is not a value node", "target", id.String())
			continue
		}
		fwd, inv := a.doc.SpliceText(id, index, deleteCount, insert)
		diffs, inverses = append(diffs, fwd), append(inverses, inv)
	}
	a.doc.EmitMany(diffs, inverses)
}

// UpdateValue computes the minimal common-prefix/common-suffix edit
// between oldText and newText and dispatches it as SpliceValue
// (spec.md §4.4). If both are empty, it is a no-op.
func (a *API) UpdateValue(ids []substrate.ID, oldText, newText string) {
	if oldText == "" && newText == "" {
		return
	}
	index, deleteCount, insert := diffRunes(oldText, newText)
	if deleteCount == 0 && insert == "" {
		return
	}
	a.SpliceValue(ids, index, deleteCount, insert)
}

func diffRunes(oldText, newText string) (index, deleteCount int, insert string) {
	oldR, newR := []rune(oldText), []rune(newText)
	prefix := 0
	for prefix < len(oldR) && prefix < len(newR) && oldR[prefix] == newR[prefix] {
		prefix++
	}
	suffix := 0
	for suffix < len(oldR)-prefix && suffix < len(newR)-prefix &&
		oldR[len(oldR)-1-suffix] == newR[len(newR)-1-suffix] {
		suffix++
	}
	deleteCount = len(oldR) - prefix - suffix
	insert = string(newR[prefix : len(newR)-suffix])
	return prefix, deleteCount, insert
}

// ActionAppend appends patch to target's actions list.
func (a *API) ActionAppend(target substrate.ID, patch any) {
	fwd, inv := a.doc.ListInsertAt(target, -1, patch)
	a.doc.Emit1(fwd, inv)
}

// ActionDeleteAt removes the element currently at index.
func (a *API) ActionDeleteAt(target substrate.ID, index int) {
	fwd, inv, ok := a.doc.ListDeleteAt(target, index)
	if !ok {
		a.doc.LogInvalidInput("action_delete", "index out of range", "target", target.String())
		return
	}
	a.doc.Emit1(fwd, inv)
}

// ActionMove relocates the element at from to land at to.
func (a *API) ActionMove(target substrate.ID, from, to int) {
	fwd, inv, ok := a.doc.ListMove(target, from, to)
	if !ok {
		a.doc.LogInvalidInput("action_move", "index out of range", "target", target.String())
		return
	}
	a.doc.Emit1(fwd, inv)
}

// ActionReplaceAll discards target's current action list and installs
// patches fresh, in order.
func (a *API) ActionReplaceAll(target substrate.ID, patches []any) {
	fwd, inv := a.doc.ReplaceActions(target, patches)
	a.doc.Emit1(fwd, inv)
}

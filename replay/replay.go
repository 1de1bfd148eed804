// Package replay implements the Replay Engine (spec.md §4.6): executing
// a generalized patch list, with symbolic `$k` identifiers, against the
// current document, bound to a caller-provided start node.
package replay

import (
	"fmt"

	"github.com/cshekharsharma/doctree/index"
	"github.com/cshekharsharma/doctree/mutate"
	"github.com/cshekharsharma/doctree/patch"
	"github.com/cshekharsharma/doctree/schema"
	"github.com/cshekharsharma/doctree/substrate"
)

// Engine replays generalized patches through a Mutation API bound to
// one document and index.
type Engine struct {
	doc *substrate.Doc
	idx *index.Index
	api *mutate.API
}

// New binds a Replay Engine to doc, its index and Mutation API.
func New(doc *substrate.Doc, idx *index.Index, api *mutate.API) *Engine {
	return &Engine{doc: doc, idx: idx, api: api}
}

// Replay executes patches in order against the current document,
// seeding vars with {$0: startID}, and returns every id created during
// the run. The whole run is bracketed by exactly one substrate commit
// (spec.md §9 Open Questions: "serialize replay as a single logical
// transaction bracketed by one commit, not per-patch commits").
// An empty patch list is a no-op (spec.md §8).
func (e *Engine) Replay(patches []patch.Patch, startID substrate.ID) []substrate.ID {
	if len(patches) == 0 {
		return nil
	}

	vars := map[string]string{"$0": startID.String()}
	createdInReplay := map[string]bool{}
	var created []substrate.ID

	e.doc.BeginBatch()
	for _, p := range patches {
		newID := e.step(p, vars, createdInReplay)
		if !newID.IsZero() {
			created = append(created, newID)
		}
	}
	e.doc.EndBatch(substrate.OriginLocal)
	return created
}

// step dispatches one resolved patch to the Mutation API and returns
// the id it created, or Zero if the patch created nothing.
func (e *Engine) step(p patch.Patch, vars map[string]string, createdInReplay map[string]bool) substrate.ID {
	target := substituteID(p.Target, vars)
	parent := substituteID(p.Parent, vars)
	sourceID := substituteID(p.SourceID, vars)
	index := normalizeIndex(p.Index)

	switch p.Type {
	case patch.TypeTree:
		switch p.Action {
		case patch.ActionCreate:
			return e.stepCreate(p, target, parent, sourceID, index, vars, createdInReplay)
		case patch.ActionDelete:
			if id, ok := substrate.ParseID(target); ok {
				e.api.Delete([]substrate.ID{id})
			} else {
				e.doc.LogInvalidInput("replay", "tree.delete target unresolved", "target", target)
			}
		case patch.ActionMove:
			id, idOK := substrate.ParseID(target)
			parentID, parentOK := substrate.ParseID(parent)
			if !idOK || !parentOK {
				e.doc.LogInvalidInput("replay", "tree.move target/parent unresolved", "target", target, "parent", parent)
				break
			}
			e.api.Move([]substrate.ID{id}, parentID, index)
		}
		return substrate.Zero

	case patch.TypeMap:
		id, ok := substrate.ParseID(target)
		if !ok {
			e.doc.LogInvalidInput("replay", "map patch target unresolved", "target", target)
			return substrate.Zero
		}
		// Freshness invariant (spec.md §4.6.3): copy_node already
		// captured current state for nodes created this replay run;
		// applying a recorded map delta on top would duplicate attrs.
		if createdInReplay[id.String()] {
			return substrate.Zero
		}
		value := substituteValue(p.Value, vars)
		if p.Key == schema.MetaTag {
			if s, ok := value.(string); ok {
				e.api.UpdateTag([]substrate.ID{id}, s)
			}
			return substrate.Zero
		}
		if value == nil {
			e.api.UpdateAttribute([]substrate.ID{id}, p.Key, nil, false)
		} else {
			e.api.UpdateAttribute([]substrate.ID{id}, p.Key, value, true)
		}
		return substrate.Zero

	case patch.TypeText:
		id, ok := substrate.ParseID(target)
		if !ok {
			e.doc.LogInvalidInput("replay", "text patch target unresolved", "target", target)
			return substrate.Zero
		}
		if createdInReplay[id.String()] {
			return substrate.Zero
		}
		e.api.SpliceValue([]substrate.ID{id}, p.Index, p.Delete, p.Insert)
		return substrate.Zero
	}
	return substrate.Zero
}

func (e *Engine) stepCreate(p patch.Patch, target, parent, sourceID string, index int, vars map[string]string, createdInReplay map[string]bool) substrate.ID {
	parentID, ok := substrate.ParseID(parent)
	if !ok && parent != "" {
		e.doc.LogInvalidInput("replay", "tree.create parent unresolved", "parent", parent)
		return substrate.Zero
	}

	var newID substrate.ID
	if sourceID != "" {
		srcID, ok := substrate.ParseID(sourceID)
		if !ok {
			e.doc.LogInvalidInput("replay", "tree.create sourceId unresolved", "sourceId", sourceID)
			return substrate.Zero
		}
		newID = e.api.CopyNode(srcID, parentID, index)
	} else {
		spec, err := specFromData(substituteValue(p.Data, vars))
		if err != nil {
			e.doc.LogInvalidInput("replay", err.Error())
			return substrate.Zero
		}
		ids := e.api.AddChildren(parentID, []mutate.NodeSpec{spec}, index)
		if len(ids) == 0 {
			return substrate.Zero
		}
		newID = ids[0]
	}
	if newID.IsZero() {
		return substrate.Zero
	}
	if substrate.IsSymbol(p.Target) {
		vars[p.Target] = newID.String()
	}
	createdInReplay[newID.String()] = true
	return newID
}

// normalizeIndex treats -1 (and any other negative value) as "append",
// which is already how every Mutation API primitive interprets a
// negative index — normalization here is purely the spec.md §4.6.4
// documentation of that convention at the replay boundary.
func normalizeIndex(i int) int {
	if i < 0 {
		return -1
	}
	return i
}

// specFromData lowers a generalized-patch `data` template (already
// symbol-substituted) into a mutate.NodeSpec.
func specFromData(raw any) (mutate.NodeSpec, error) {
	data, _ := raw.(map[string]any)
	kind, _ := data[schema.MetaKind].(string)
	spec := mutate.NodeSpec{Kind: schema.Kind(kind)}
	switch spec.Kind {
	case schema.KindElement:
		spec.Tag, _ = data[schema.MetaTag].(string)
		if a, ok := data["attrs"].(map[string]any); ok {
			spec.Attrs = a
		}
	case schema.KindValue:
		spec.Text, _ = data["text"].(string)
	case schema.KindRef:
		if t, ok := data[schema.MetaRefTarget].(string); ok {
			if id, ok := substrate.ParseID(t); ok {
				spec.Target = id
			}
		}
	case schema.KindFormula:
		spec.Operation, _ = data[schema.MetaOperation].(string)
	case schema.KindAction:
		spec.Label, _ = data[schema.MetaLabel].(string)
		if t, ok := data[schema.MetaTarget].(string); ok {
			if id, ok := substrate.ParseID(t); ok {
				spec.ActionTarget = id
			}
		}
		spec.ReplayMode, _ = data[schema.MetaReplayMode].(string)
		if acts, ok := data["actions"].([]any); ok {
			spec.Actions = acts
		}
	default:
		return spec, fmt.Errorf("replay: unrecognized node kind %q in tree.create data", kind)
	}
	return spec, nil
}

// ReplayAction replays an action node's own recorded patches. Per
// spec.md §9's resolution of the replayMode ambiguity: "fixed" binds
// $0 to the action's own stored target field; "selected" binds $0 to
// callerStart (e.g. the current UI selection).
func (e *Engine) ReplayAction(action schema.Node, callerStart substrate.ID) []substrate.ID {
	start := callerStart
	if action.ReplayMode == schema.ReplayModeFixed {
		start = action.ActionTarget
	}
	patches := DecodePatches(action.Actions)
	return e.Replay(patches, start)
}

// DecodePatches converts an actions list's raw payloads (each either an
// in-memory patch.Patch, built directly by this process, or a
// map[string]any decoded from imported snapshot bytes) into patch.Patch
// values, skipping anything unrecognized.
func DecodePatches(raw []any) []patch.Patch {
	var out []patch.Patch
	for _, v := range raw {
		if p, ok := decodeOnePatch(v); ok {
			out = append(out, p)
		}
	}
	return out
}

func decodeOnePatch(v any) (patch.Patch, bool) {
	switch t := v.(type) {
	case patch.Patch:
		return t, true
	case map[string]any:
		p := patch.Patch{}
		p.Type, _ = t["type"].(string)
		p.Action, _ = t["action"].(string)
		p.Target, _ = t["target"].(string)
		p.Parent, _ = t["parent"].(string)
		p.Index = asInt(t["index"])
		if d, ok := t["data"].(map[string]any); ok {
			p.Data = d
		}
		p.SourceID, _ = t["sourceId"].(string)
		p.Key, _ = t["key"].(string)
		p.Value = t["value"]
		p.Delete = asInt(t["delete"])
		p.Insert, _ = t["insert"].(string)
		return p, true
	default:
		return patch.Patch{}, false
	}
}

func asInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	default:
		return 0
	}
}

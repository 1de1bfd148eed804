package patch

import "github.com/cshekharsharma/doctree/substrate"

// Derive translates one commit event into an ordered generalized-patch
// stream, applying spec.md §4.5's rules:
//
//  1. Container→node resolution is trivial here: this substrate's own
//     diffs already name the owning node id directly (the "parsable
//     container id" branch of rule 1), so no separate traversal step is
//     needed.
//  2/4. Redundant-init suppression and undo-preserving reconstruction
//     are satisfied by construction rather than by re-grouping diffs
//     after the fact: substrate.Doc's CreateNode/DeleteNode (ops.go)
//     build the create diff's Val as the full reconstructed node
//     template at the moment of mutation — the same payload an undo of
//     a delete replays — so Derive never needs to read the live node
//     or merge sibling map/text diffs to recover it.
//  3. Copy provenance: a reconstructed template carrying sourceId
//     becomes a tree.create patch with SourceID set instead of Data.
//  5. Text deltas already arrive as one run per user-facing splice
//     (substrate.DiffTextSplice), so no further run-splitting is
//     needed to produce "a sequence of text patches with running
//     index".
//  6. Local-only recording: remote/imported events return nil.
func Derive(ev substrate.Event) []Patch {
	if ev.Origin != substrate.OriginLocal {
		return nil
	}

	var out []Patch
	for _, d := range ev.Diffs {
		switch d.Kind {
		case substrate.DiffCreate:
			out = append(out, treeCreate(d))
		case substrate.DiffDelete:
			out = append(out, Patch{Type: TypeTree, Action: ActionDelete, Target: d.Target.String()})
		case substrate.DiffMove:
			out = append(out, Patch{Type: TypeTree, Action: ActionMove, Target: d.Target.String(), Parent: d.Parent.String(), Index: d.Index})
		case substrate.DiffMapSet:
			out = append(out, Patch{Type: TypeMap, Target: d.Target.String(), Key: d.Key, Value: d.Val})
		case substrate.DiffMapDelete:
			out = append(out, Patch{Type: TypeMap, Target: d.Target.String(), Key: d.Key, Value: nil})
		case substrate.DiffTextSplice:
			out = append(out, Patch{Type: TypeText, Target: d.Target.String(), Index: d.TextIndex, Delete: d.TextDelete, Insert: d.TextInsert})
		default:
			// DiffListInsert/DiffListDelete/DiffListMove are not part of
			// the canonical patch wire shape (spec.md §6 defines only
			// tree/map/text); action-list edits are undoable but are not
			// recorded into history or replayed as patches.
		}
	}
	return out
}

func treeCreate(d substrate.Diff) Patch {
	p := Patch{Type: TypeTree, Action: ActionCreate, Target: d.Target.String(), Parent: d.Parent.String(), Index: d.Index}
	data, _ := d.Val.(map[string]any)
	if sid, ok := data["sourceId"].(string); ok && sid != "" {
		p.SourceID = sid
		return p
	}
	p.Data = data
	return p
}

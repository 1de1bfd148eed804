package patch_test

import (
	"testing"

	"github.com/cshekharsharma/doctree/index"
	"github.com/cshekharsharma/doctree/mutate"
	"github.com/cshekharsharma/doctree/patch"
	"github.com/cshekharsharma/doctree/substrate"
	"github.com/stretchr/testify/require"
)

func newHarness(t *testing.T) (*substrate.Doc, *index.Index, *mutate.API, *patch.History) {
	t.Helper()
	doc := substrate.NewDoc(1)
	idx, _ := index.New(doc)
	api := mutate.New(doc, idx)
	hist, _ := patch.NewHistory(doc)
	return doc, idx, api, hist
}

// Remote/imported commits never enter local history (spec.md §4.5 rule 6).
func TestDerive_RemoteEventsAreNotRecorded(t *testing.T) {
	doc, _, api, hist := newHarness(t)
	root := api.CreateRoot("root")
	hist.Clear()

	snap, err := doc.ExportSnapshot()
	require.NoError(t, err)

	other := substrate.NewDoc(2)
	otherIdx, _ := index.New(other)
	otherAPI := mutate.New(other, otherIdx)
	otherHist, _ := patch.NewHistory(other)
	require.NoError(t, other.ImportSnapshot(snap))
	otherHist.Clear()

	otherAPI.AddChildren(root, []mutate.NodeSpec{{Kind: mutate.KindElement, Tag: "div"}}, -1)
	delta, err := other.ExportUpdate(substrate.Frontier{})
	require.NoError(t, err)

	require.NoError(t, doc.ApplyUpdate(delta))
	require.Empty(t, hist.Snapshot(), "a remotely-applied commit must not be recorded into local history")
}

// A created element node derives a tree.create patch carrying the full
// reconstructed template as Data (no sourceId).
func TestDerive_CreateElementProducesTreeCreateWithData(t *testing.T) {
	_, _, api, hist := newHarness(t)
	root := api.CreateRoot("root")
	hist.Clear()

	eID := api.AddChildren(root, []mutate.NodeSpec{{Kind: mutate.KindElement, Tag: "div", Attrs: map[string]any{"class": "a"}}}, -1)[0]

	recorded := hist.Snapshot()
	require.Len(t, recorded, 1)
	p := recorded[0]
	require.Equal(t, patch.TypeTree, p.Type)
	require.Equal(t, patch.ActionCreate, p.Action)
	require.Equal(t, eID.String(), p.Target)
	require.Equal(t, root.String(), p.Parent)
	require.Empty(t, p.SourceID)
	require.Equal(t, "div", p.Data["tag"])
}

// copy_node's reconstructed template carries sourceId, so Derive emits a
// tree.create patch with SourceID set and no Data (spec.md §4.5 rule 3).
func TestDerive_CopyNodeProducesSourceIDNotData(t *testing.T) {
	_, _, api, hist := newHarness(t)
	root := api.CreateRoot("root")
	srcID := api.AddChildren(root, []mutate.NodeSpec{{Kind: mutate.KindElement, Tag: "div"}}, -1)[0]
	hist.Clear()

	api.CopyNode(srcID, root, -1)

	recorded := hist.Snapshot()
	require.Len(t, recorded, 1)
	p := recorded[0]
	require.Equal(t, patch.TypeTree, p.Type)
	require.Equal(t, patch.ActionCreate, p.Action)
	require.Equal(t, srcID.String(), p.SourceID)
	require.Nil(t, p.Data)
}

func TestDerive_DeleteProducesTreeDeletePatch(t *testing.T) {
	_, _, api, hist := newHarness(t)
	root := api.CreateRoot("root")
	eID := api.AddChildren(root, []mutate.NodeSpec{{Kind: mutate.KindElement, Tag: "div"}}, -1)[0]
	hist.Clear()

	api.Delete([]substrate.ID{eID})

	recorded := hist.Snapshot()
	require.Len(t, recorded, 1)
	require.Equal(t, patch.TypeTree, recorded[0].Type)
	require.Equal(t, patch.ActionDelete, recorded[0].Action)
	require.Equal(t, eID.String(), recorded[0].Target)
}

func TestDerive_MoveProducesTreeMovePatch(t *testing.T) {
	_, _, api, hist := newHarness(t)
	root := api.CreateRoot("root")
	aID := api.AddChildren(root, []mutate.NodeSpec{{Kind: mutate.KindElement, Tag: "a"}}, -1)[0]
	bID := api.AddChildren(root, []mutate.NodeSpec{{Kind: mutate.KindElement, Tag: "b"}}, -1)[0]
	hist.Clear()

	api.Move([]substrate.ID{aID}, bID, -1)

	recorded := hist.Snapshot()
	require.Len(t, recorded, 1)
	p := recorded[0]
	require.Equal(t, patch.TypeTree, p.Type)
	require.Equal(t, patch.ActionMove, p.Action)
	require.Equal(t, aID.String(), p.Target)
	require.Equal(t, bID.String(), p.Parent)
}

func TestDerive_AttributeSetProducesMapPatch(t *testing.T) {
	_, _, api, hist := newHarness(t)
	root := api.CreateRoot("root")
	eID := api.AddChildren(root, []mutate.NodeSpec{{Kind: mutate.KindElement, Tag: "div"}}, -1)[0]
	hist.Clear()

	api.UpdateAttribute([]substrate.ID{eID}, "class", "a", true)

	recorded := hist.Snapshot()
	require.Len(t, recorded, 1)
	p := recorded[0]
	require.Equal(t, patch.TypeMap, p.Type)
	require.Equal(t, eID.String(), p.Target)
	require.Equal(t, "class", p.Key)
	require.Equal(t, "a", p.Value)
}

func TestDerive_AttributeDeleteProducesMapPatchWithNilValue(t *testing.T) {
	_, _, api, hist := newHarness(t)
	root := api.CreateRoot("root")
	eID := api.AddChildren(root, []mutate.NodeSpec{{Kind: mutate.KindElement, Tag: "div", Attrs: map[string]any{"class": "a"}}}, -1)[0]
	hist.Clear()

	api.UpdateAttribute([]substrate.ID{eID}, "class", nil, false)

	recorded := hist.Snapshot()
	require.Len(t, recorded, 1)
	require.Equal(t, patch.TypeMap, recorded[0].Type)
	require.Nil(t, recorded[0].Value)
}

func TestDerive_SpliceProducesTextPatchWithRunningIndex(t *testing.T) {
	_, _, api, hist := newHarness(t)
	root := api.CreateRoot("root")
	vID := api.AddChildren(root, []mutate.NodeSpec{{Kind: mutate.KindValue, Text: "hello"}}, -1)[0]
	hist.Clear()

	api.SpliceValue([]substrate.ID{vID}, 5, 0, " world")

	recorded := hist.Snapshot()
	require.Len(t, recorded, 1)
	p := recorded[0]
	require.Equal(t, patch.TypeText, p.Type)
	require.Equal(t, vID.String(), p.Target)
	require.Equal(t, 5, p.Index)
	require.Equal(t, 0, p.Delete)
	require.Equal(t, " world", p.Insert)
}

// Clear resets the recording window; patches derived before Clear must
// not reappear in a later snapshot.
func TestHistory_ClearResetsWindow(t *testing.T) {
	_, _, api, hist := newHarness(t)
	root := api.CreateRoot("root")
	require.NotEmpty(t, hist.Snapshot())

	hist.Clear()
	require.Empty(t, hist.Snapshot())

	api.AddChildren(root, []mutate.NodeSpec{{Kind: mutate.KindElement, Tag: "div"}}, -1)
	require.Len(t, hist.Snapshot(), 1)
}

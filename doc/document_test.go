// document_test.go exercises the facade against the seed scenarios
// spec.md §8 calls out end-to-end, one test per numbered scenario.
package doc_test

import (
	"testing"
	"time"

	"github.com/cshekharsharma/doctree/doc"
	"github.com/cshekharsharma/doctree/formula"
	"github.com/cshekharsharma/doctree/mutate"
	"github.com/cshekharsharma/doctree/patch"
	"github.com/cshekharsharma/doctree/schema"
	"github.com/cshekharsharma/doctree/substrate"
	"github.com/stretchr/testify/require"
)

// Scenario 1: concurrent move resolution.
func TestScenario_ConcurrentMoveResolution(t *testing.T) {
	alice := doc.New(1)
	root := alice.Mutate.CreateRoot("root")
	aID := alice.Mutate.AddChildren(root, []mutate.NodeSpec{{Kind: mutate.KindElement, Tag: "a"}}, -1)[0]
	xID := alice.Mutate.AddChildren(aID, []mutate.NodeSpec{{Kind: mutate.KindElement, Tag: "x"}}, -1)[0]
	yID := alice.Mutate.AddChildren(aID, []mutate.NodeSpec{{Kind: mutate.KindElement, Tag: "y"}}, -1)[0]

	snap, err := alice.ExportSnapshot()
	require.NoError(t, err)

	bob := doc.New(2)
	require.NoError(t, bob.ImportSnapshot(snap))

	fromAlice := alice.Frontier()
	fromBob := bob.Frontier()

	// Peer1 moves X before Y; peer2 concurrently moves Y before X.
	alice.Mutate.Move([]substrate.ID{xID}, aID, 0)
	bob.Mutate.Move([]substrate.ID{yID}, aID, 0)

	deltaFromAlice, err := alice.ExportUpdate(fromBob)
	require.NoError(t, err)
	deltaFromBob, err := bob.ExportUpdate(fromAlice)
	require.NoError(t, err)

	require.NoError(t, alice.ApplyUpdate(deltaFromBob))
	require.NoError(t, bob.ApplyUpdate(deltaFromAlice))

	require.Equal(t, alice.Index.Children(aID), bob.Index.Children(aID))
}

// Scenario 2: wrap-by-primitives (spec.md §1 Non-goals: no compound
// "wrap" primitive — the caller composes create + move at the call site).
func TestScenario_WrapByPrimitives(t *testing.T) {
	d := doc.New(1)
	root := d.Mutate.CreateRoot("root")
	aID := d.Mutate.AddChildren(root, []mutate.NodeSpec{{Kind: mutate.KindElement, Tag: "a"}}, -1)[0]
	xID := d.Mutate.AddChildren(aID, []mutate.NodeSpec{{Kind: mutate.KindElement, Tag: "x"}}, -1)[0]

	wID := d.Mutate.AddChildren(root, []mutate.NodeSpec{{Kind: mutate.KindElement, Tag: "w"}}, -1)[0]
	d.Mutate.Move([]substrate.ID{xID}, wID, -1)

	require.Equal(t, []substrate.ID{aID, wID}, d.Index.Children(root))
	require.Equal(t, []substrate.ID{xID}, d.Index.Children(wID))
	require.Empty(t, d.Index.Children(aID))
}

// Scenario 3: copy-then-mutate-then-replay.
func TestScenario_CopyThenMutateThenReplay(t *testing.T) {
	d := doc.New(1)
	root := d.Mutate.CreateRoot("root")
	pID := d.Mutate.AddChildren(root, []mutate.NodeSpec{{Kind: mutate.KindElement, Tag: "p"}}, -1)[0]
	vID := d.Mutate.AddChildren(pID, []mutate.NodeSpec{{Kind: mutate.KindValue, Text: "hello"}}, -1)[0]

	d.Mutate.CopyNode(vID, pID, -1)
	recorded := d.History.Snapshot()
	require.NotEmpty(t, recorded)
	d.History.Clear()

	d.Mutate.SpliceValue([]substrate.ID{vID}, 5, 0, " world")
	require.Equal(t, "hello world", func() string { n, _ := d.Index.Get(vID); return n.Text }())

	created := d.Replay.Replay(recorded, pID)
	require.Len(t, created, 1)

	n, ok := d.Index.Get(created[0])
	require.True(t, ok)
	require.Equal(t, "hello world", n.Text)
}

// Scenario 4: undo after create preserves history payload.
func TestScenario_UndoAfterCreatePreservesHistoryPayload(t *testing.T) {
	d := doc.New(1)
	root := d.Mutate.CreateRoot("root")
	d.History.Clear()
	// Wait out the undo merge interval (1s) so the root's creation is its
	// own undo step and Undo below reverses only the li create.
	time.Sleep(1100 * time.Millisecond)

	lID := d.Mutate.AddChildren(root, []mutate.NodeSpec{{Kind: mutate.KindElement, Tag: "li"}}, -1)[0]
	require.True(t, d.Undo())

	recorded := d.History.Snapshot()
	require.Len(t, recorded, 2)
	require.Equal(t, patch.ActionCreate, recorded[0].Action)
	require.Equal(t, lID.String(), recorded[0].Target)
	require.Equal(t, "li", recorded[0].Data[schema.MetaTag])
	require.Equal(t, patch.ActionDelete, recorded[1].Action)
	require.Equal(t, lID.String(), recorded[1].Target)

	_, live := d.Index.Get(lID)
	require.False(t, live)
}

// Scenario 5: selection generalization by tag+depth.
func TestScenario_SelectionGeneralizationByTagDepth(t *testing.T) {
	d := doc.New(1)
	root := d.Mutate.CreateRoot("root")

	var h2IDs []substrate.ID
	for i := 0; i < 2; i++ {
		articleID := d.Mutate.AddChildren(root, []mutate.NodeSpec{{Kind: mutate.KindElement, Tag: "article"}}, -1)[0]
		h2ID := d.Mutate.AddChildren(articleID, []mutate.NodeSpec{{Kind: mutate.KindElement, Tag: "h2"}}, -1)[0]
		d.Mutate.AddChildren(articleID, []mutate.NodeSpec{{Kind: mutate.KindElement, Tag: "p"}}, -1)
		h2IDs = append(h2IDs, h2ID)
	}

	result := d.Generalize([]substrate.ID{h2IDs[0]})
	require.ElementsMatch(t, h2IDs, result)
}

// Scenario 6: formula RPN stack.
func TestScenario_FormulaRPNStack(t *testing.T) {
	d := doc.New(1)
	root := d.Mutate.CreateRoot("root")

	ids := d.Mutate.AddChildren(root, []mutate.NodeSpec{
		{Kind: mutate.KindValue, Text: "5"},
		{Kind: mutate.KindValue, Text: "1"},
		{Kind: mutate.KindFormula, Operation: "add"},
		{Kind: mutate.KindValue, Text: "1"},
		{Kind: mutate.KindFormula, Operation: "add"},
	}, -1)

	require.Equal(t, float64(7), d.Evaluate(ids[4]))
}

func TestDocument_PeerNames(t *testing.T) {
	d := doc.New(42)
	_, ok := d.PeerName(42)
	require.False(t, ok)

	d.SetPeerName(42, "ada")
	name, ok := d.PeerName(42)
	require.True(t, ok)
	require.Equal(t, "ada", name)
	require.Equal(t, map[uint64]string{42: "ada"}, d.PeerNames())
}

func TestDocument_RunAction_FixedAndSelectedReplayMode(t *testing.T) {
	d := doc.New(1)
	root := d.Mutate.CreateRoot("root")
	fixedTarget := d.Mutate.AddChildren(root, []mutate.NodeSpec{{Kind: mutate.KindElement, Tag: "a"}}, -1)[0]
	selectedTarget := d.Mutate.AddChildren(root, []mutate.NodeSpec{{Kind: mutate.KindElement, Tag: "b"}}, -1)[0]

	patches := []patch.Patch{
		{Type: patch.TypeTree, Action: patch.ActionCreate, Target: "$1", Parent: "$0", Index: -1,
			Data: map[string]any{"kind": "element", "tag": "span"}},
	}
	asAny := make([]any, len(patches))
	for i, p := range patches {
		asAny[i] = p
	}

	fixedAction := d.Mutate.AddChildren(root, []mutate.NodeSpec{{
		Kind: mutate.KindAction, Label: "fixed-demo", ActionTarget: fixedTarget,
		ReplayMode: schema.ReplayModeFixed, Actions: asAny,
	}}, -1)[0]
	selectedAction := d.Mutate.AddChildren(root, []mutate.NodeSpec{{
		Kind: mutate.KindAction, Label: "selected-demo", ActionTarget: fixedTarget,
		ReplayMode: schema.ReplayModeSelected, Actions: asAny,
	}}, -1)[0]

	createdFixed := d.RunAction(fixedAction, selectedTarget)
	require.Len(t, createdFixed, 1)
	n, ok := d.Index.Get(fixedTarget)
	require.True(t, ok)
	require.Contains(t, n.Children, createdFixed[0])

	createdSelected := d.RunAction(selectedAction, selectedTarget)
	require.Len(t, createdSelected, 1)
	n, ok = d.Index.Get(selectedTarget)
	require.True(t, ok)
	require.Contains(t, n.Children, createdSelected[0])
}

func TestDocument_OperationRegistryOverride(t *testing.T) {
	reg := formula.NewRegistry()
	reg.Register(formula.Operation{Name: "double", Arity: 1, Execute: func(args []any) (any, error) {
		n, _ := args[0].(string)
		return n + n, nil
	}})
	d := doc.New(1, doc.WithOperationRegistry(reg))
	root := d.Mutate.CreateRoot("root")

	formulaID := d.Mutate.AddChildren(root, []mutate.NodeSpec{{Kind: mutate.KindFormula, Operation: "double"}}, -1)[0]
	d.Mutate.AddChildren(formulaID, []mutate.NodeSpec{{Kind: mutate.KindValue, Text: "ab"}}, -1)

	require.Equal(t, "abab", d.Evaluate(formulaID))
}

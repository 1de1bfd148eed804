package formula_test

import (
	"errors"
	"testing"

	"github.com/cshekharsharma/doctree/formula"
	"github.com/cshekharsharma/doctree/index"
	"github.com/cshekharsharma/doctree/mutate"
	"github.com/cshekharsharma/doctree/substrate"
	"github.com/stretchr/testify/require"
)

func newDoc(t *testing.T) (*substrate.Doc, *index.Index, *mutate.API) {
	t.Helper()
	doc := substrate.NewDoc(1)
	idx, _ := index.New(doc)
	api := mutate.New(doc, idx)
	root := api.CreateRoot("doc")
	require.False(t, root.IsZero())
	return doc, idx, api
}

func TestEvaluate_RPNStack(t *testing.T) {
	_, idx, api := newDoc(t)
	root := idx.Root()

	ids := api.AddChildren(root, []mutate.NodeSpec{
		{Kind: mutate.KindValue, Text: "5"},
		{Kind: mutate.KindValue, Text: "1"},
		{Kind: mutate.KindFormula, Operation: "add"},
		{Kind: mutate.KindValue, Text: "1"},
		{Kind: mutate.KindFormula, Operation: "add"},
	}, -1)
	require.Len(t, ids, 5)

	ev := formula.New(idx, formula.DefaultRegistry())
	result := ev.Evaluate(ids[4])
	require.Equal(t, float64(7), result)
}

func TestEvaluate_ChildArgsMode(t *testing.T) {
	_, idx, api := newDoc(t)
	root := idx.Root()

	formulaIDs := api.AddChildren(root, []mutate.NodeSpec{
		{Kind: mutate.KindFormula, Operation: "add"},
	}, -1)
	formulaID := formulaIDs[0]
	api.AddChildren(formulaID, []mutate.NodeSpec{
		{Kind: mutate.KindValue, Text: "2"},
		{Kind: mutate.KindValue, Text: "3"},
	}, -1)

	ev := formula.New(idx, formula.DefaultRegistry())
	require.Equal(t, float64(5), ev.Evaluate(formulaID))
}

func TestEvaluate_RefResolution(t *testing.T) {
	_, idx, api := newDoc(t)
	root := idx.Root()

	valueIDs := api.AddChildren(root, []mutate.NodeSpec{
		{Kind: mutate.KindValue, Text: "hello"},
	}, -1)
	refIDs := api.AddChildren(root, []mutate.NodeSpec{
		{Kind: mutate.KindRef, Target: valueIDs[0]},
	}, -1)

	ev := formula.New(idx, formula.DefaultRegistry())
	require.Equal(t, "hello", ev.Evaluate(refIDs[0]))
}

func TestEvaluate_DanglingRefIsErrSentinel(t *testing.T) {
	_, idx, api := newDoc(t)
	root := idx.Root()

	refIDs := api.AddChildren(root, []mutate.NodeSpec{
		{Kind: mutate.KindRef, Target: substrate.Zero},
	}, -1)

	ev := formula.New(idx, formula.DefaultRegistry())
	result, ok := ev.Evaluate(refIDs[0]).(string)
	require.True(t, ok)
	require.Contains(t, result, "#ERR:")
}

func TestEvaluate_UnknownOperationIsErrSentinel(t *testing.T) {
	_, idx, api := newDoc(t)
	root := idx.Root()

	ids := api.AddChildren(root, []mutate.NodeSpec{
		{Kind: mutate.KindFormula, Operation: "nope"},
	}, -1)
	api.AddChildren(ids[0], []mutate.NodeSpec{{Kind: mutate.KindValue, Text: "1"}}, -1)

	ev := formula.New(idx, formula.DefaultRegistry())
	result, ok := ev.Evaluate(ids[0]).(string)
	require.True(t, ok)
	require.Contains(t, result, "unknown operation")
}

func TestEvaluate_ArityMismatchIsErrSentinel(t *testing.T) {
	_, idx, api := newDoc(t)
	root := idx.Root()

	ids := api.AddChildren(root, []mutate.NodeSpec{
		{Kind: mutate.KindFormula, Operation: "add"},
	}, -1)
	api.AddChildren(ids[0], []mutate.NodeSpec{{Kind: mutate.KindValue, Text: "1"}}, -1)

	ev := formula.New(idx, formula.DefaultRegistry())
	result, ok := ev.Evaluate(ids[0]).(string)
	require.True(t, ok)
	require.Contains(t, result, "arity mismatch")
}

func TestEvaluate_CycleDetected(t *testing.T) {
	doc, idx, api := newDoc(t)
	root := idx.Root()

	refA := api.AddChildren(root, []mutate.NodeSpec{{Kind: mutate.KindRef}}, -1)[0]
	refB := api.AddChildren(root, []mutate.NodeSpec{{Kind: mutate.KindRef, Target: refA}}, -1)[0]

	// Point A at B, completing a two-node cycle the evaluator must not
	// loop forever over; done via substrate.SetField directly since the
	// Mutation API has no "retarget a ref" primitive (spec.md §4.4 lists
	// no such operation).
	fwd, inv := doc.SetField(refA, substrate.SubMeta, "refTarget", refB.String())
	doc.Emit1(fwd, inv)

	ev := formula.New(idx, formula.DefaultRegistry())
	result, ok := ev.Evaluate(refA).(string)
	require.True(t, ok)
	require.Contains(t, result, "cycle")
}

func TestEvaluate_DepthGuard(t *testing.T) {
	_, idx, api := newDoc(t)
	root := idx.Root()

	// Build a chain of refs ten deep and set max depth to 3 to force the
	// guard to trip well before traversal would otherwise complete.
	prev := api.AddChildren(root, []mutate.NodeSpec{{Kind: mutate.KindValue, Text: "end"}}, -1)[0]
	for i := 0; i < 10; i++ {
		prev = api.AddChildren(root, []mutate.NodeSpec{{Kind: mutate.KindRef, Target: prev}}, -1)[0]
	}

	ev := formula.New(idx, formula.DefaultRegistry()).WithMaxDepth(3)
	result, ok := ev.Evaluate(prev).(string)
	require.True(t, ok)
	require.Contains(t, result, "#ERR:")
}

func TestEvaluate_RPNWithInsufficientOperandsIsError(t *testing.T) {
	_, idx, api := newDoc(t)
	root := idx.Root()

	// A bare "add" with no preceding siblings has nothing to reduce:
	// reduce() rejects it for want of operands before the final
	// "top of stack" read is ever reached.
	ids := api.AddChildren(root, []mutate.NodeSpec{
		{Kind: mutate.KindFormula, Operation: "add"},
	}, -1)

	ev := formula.New(idx, formula.DefaultRegistry())
	result, ok := ev.Evaluate(ids[0]).(string)
	require.True(t, ok)
	require.Contains(t, result, "#ERR:")
}

func TestEvaluate_RPNReducerExecuteErrorSurfacesAsSentinel(t *testing.T) {
	_, idx, api := newDoc(t)
	root := idx.Root()

	reg := formula.DefaultRegistry()
	reg.Register(formula.Operation{Name: "alwaysfails", Arity: 0, Execute: func([]any) (any, error) {
		return nil, errors.New("intentionally no result")
	}})
	ids := api.AddChildren(root, []mutate.NodeSpec{
		{Kind: mutate.KindFormula, Operation: "alwaysfails"},
	}, -1)

	ev := formula.New(idx, reg)
	result, ok := ev.Evaluate(ids[0]).(string)
	require.True(t, ok)
	require.Contains(t, result, "#ERR:")
}

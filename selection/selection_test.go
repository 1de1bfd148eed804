package selection_test

import (
	"testing"

	"github.com/cshekharsharma/doctree/index"
	"github.com/cshekharsharma/doctree/mutate"
	"github.com/cshekharsharma/doctree/selection"
	"github.com/cshekharsharma/doctree/substrate"
	"github.com/stretchr/testify/require"
)

func newDoc(t *testing.T) (*index.Index, *mutate.API) {
	t.Helper()
	doc := substrate.NewDoc(1)
	idx, _ := index.New(doc)
	return idx, mutate.New(doc, idx)
}

// spec.md §8 boundary: empty selection generalization returns empty.
func TestGeneralize_EmptySelectionReturnsEmpty(t *testing.T) {
	idx, _ := newDoc(t)
	require.Empty(t, selection.Generalize(idx, nil))
}

// spec.md §8 boundary: single-node selection where the node is root
// returns the single node.
func TestGeneralize_SingleNodeRootReturnsItself(t *testing.T) {
	idx, api := newDoc(t)
	root := api.CreateRoot("root")
	result := selection.Generalize(idx, []substrate.ID{root})
	require.Equal(t, []substrate.ID{root}, result)
}

// spec.md §8 boundary: single-node selection where a parent exists uses
// the parent as LCA, expanding to sibling-level matches.
func TestGeneralize_SingleNodeExpandsAgainstParent(t *testing.T) {
	idx, api := newDoc(t)
	root := api.CreateRoot("root")
	a1 := api.AddChildren(root, []mutate.NodeSpec{{Kind: mutate.KindElement, Tag: "li"}}, -1)[0]
	a2 := api.AddChildren(root, []mutate.NodeSpec{{Kind: mutate.KindElement, Tag: "li"}}, -1)[0]
	api.AddChildren(root, []mutate.NodeSpec{{Kind: mutate.KindElement, Tag: "p"}}, -1)

	result := selection.Generalize(idx, []substrate.ID{a1})
	require.ElementsMatch(t, []substrate.ID{a1, a2}, result)
}

// spec.md §8 boundary: a single selected node whose matching siblings
// live one level up, in parallel container subtrees (one <h2> per
// <article>), must still find all of them — not just the ones sharing
// its immediate parent.
func TestGeneralize_SingleNodeExpandsAcrossCousinSubtrees(t *testing.T) {
	idx, api := newDoc(t)
	root := api.CreateRoot("root")

	var h2IDs []substrate.ID
	for i := 0; i < 2; i++ {
		article := api.AddChildren(root, []mutate.NodeSpec{{Kind: mutate.KindElement, Tag: "article"}}, -1)[0]
		h2 := api.AddChildren(article, []mutate.NodeSpec{{Kind: mutate.KindElement, Tag: "h2"}}, -1)[0]
		api.AddChildren(article, []mutate.NodeSpec{{Kind: mutate.KindElement, Tag: "p"}}, -1)
		h2IDs = append(h2IDs, h2)
	}

	result := selection.Generalize(idx, []substrate.ID{h2IDs[0]})
	require.ElementsMatch(t, h2IDs, result)
}

// Degenerate selector (neither tag nor depth constrained) returns the
// original selection unchanged (spec.md §4.8 step 3).
func TestGeneralize_DegenerateSelectorReturnsOriginal(t *testing.T) {
	idx, api := newDoc(t)
	root := api.CreateRoot("root")
	aArticle := api.AddChildren(root, []mutate.NodeSpec{{Kind: mutate.KindElement, Tag: "article"}}, -1)[0]
	h2 := api.AddChildren(aArticle, []mutate.NodeSpec{{Kind: mutate.KindElement, Tag: "h2"}}, -1)[0]
	deepChild := api.AddChildren(h2, []mutate.NodeSpec{{Kind: mutate.KindElement, Tag: "span"}}, -1)[0]

	// Two nodes at different depths and different tags share no common
	// selector field, so the result is the input set unchanged.
	selected := []substrate.ID{h2, deepChild}
	result := selection.Generalize(idx, selected)
	require.ElementsMatch(t, selected, result)
}

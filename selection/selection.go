// Package selection implements the Selection Generalizer (spec.md
// §4.8): turning a set of selected nodes into a structural
// {tag, depth, kind} pattern and expanding it to every match.
package selection

import (
	"github.com/cshekharsharma/doctree/index"
	"github.com/cshekharsharma/doctree/schema"
	"github.com/cshekharsharma/doctree/substrate"
)

type selector struct {
	tag          string
	tagDefined   bool
	depth        int
	depthDefined bool
	kind         schema.Kind
	kindDefined  bool
}

func (s selector) degenerate() bool {
	return !s.tagDefined && !s.depthDefined
}

func (s selector) matches(n schema.Node, depth int) bool {
	if s.tagDefined && (n.Kind != schema.KindElement || n.Tag != s.tag) {
		return false
	}
	if s.depthDefined && depth != s.depth {
		return false
	}
	if s.kindDefined && n.Kind != s.kind {
		return false
	}
	return true
}

// Generalize computes a structural selector from selected and expands
// it to every matching node, in DFS traversal order. Empty selections
// return empty (spec.md §8 boundary behavior).
func Generalize(idx *index.Index, selected []substrate.ID) []substrate.ID {
	if len(selected) == 0 {
		return nil
	}

	// Single-node selection boundary (spec.md §8): root generalizes to
	// itself. Any other node sets L to its parent per step 1, but expands
	// from L's own parent (the enclosing scope) instead of from L itself,
	// so matches in parallel subtrees at the same relative depth as the
	// selected node are found too (e.g. a tag repeated once per sibling
	// container), not just matches among the node's direct siblings.
	if len(selected) == 1 {
		if selected[0] == idx.Root() {
			return append([]substrate.ID{}, selected...)
		}
		l, ok := idx.Parent(selected[0])
		if !ok {
			return append([]substrate.ID{}, selected...)
		}
		scope := l
		if enclosing, ok := idx.Parent(l); ok && !enclosing.IsZero() {
			scope = enclosing
		}
		return expand(idx, scope, selector{}.withSingle(idx, selected[0], scope))
	}

	l := lca(idx, selected)
	sel := deriveSelector(idx, selected, l)
	if sel.degenerate() {
		return append([]substrate.ID{}, selected...)
	}
	return expand(idx, l, sel)
}

// withSingle builds the selector for the |S|=1 case directly from the
// sole node's own tag/kind and its depth relative to scope, since step
// 2/3's set-based derivation collapses to a single element when there
// is only one id.
func (selector) withSingle(idx *index.Index, id, scope substrate.ID) selector {
	n, ok := idx.Get(id)
	if !ok {
		return selector{}
	}
	sel := selector{depth: depthFrom(idx, scope, id), depthDefined: true}
	if n.Kind == schema.KindElement {
		sel.tag = n.Tag
		sel.tagDefined = true
	}
	sel.kind = n.Kind
	sel.kindDefined = true
	return sel
}

// lca computes the lowest common ancestor of ids by iterative pairwise
// ancestor-set intersection, falling back to root if none is found
// (spec.md §4.8 step 1).
func lca(idx *index.Index, ids []substrate.ID) substrate.ID {
	common := ancestorsWithDepth(idx, ids[0])
	for _, id := range ids[1:] {
		next := ancestorsWithDepth(idx, id)
		for k := range common {
			if _, ok := next[k]; !ok {
				delete(common, k)
			}
		}
	}
	best, bestDepth := idx.Root(), -1
	for id, d := range common {
		if bestDepth < 0 || d < bestDepth {
			best, bestDepth = id, d
		}
	}
	if bestDepth < 0 {
		return idx.Root()
	}
	return best
}

// ancestorsWithDepth returns id and every ancestor up to (and
// including) the document root, each mapped to its distance from id
// (0 at id itself, increasing toward the root).
func ancestorsWithDepth(idx *index.Index, id substrate.ID) map[substrate.ID]int {
	out := map[substrate.ID]int{}
	depth := 0
	cur := id
	for {
		out[cur] = depth
		if cur == idx.Root() {
			break
		}
		parent, ok := idx.Parent(cur)
		if !ok {
			break
		}
		cur = parent
		depth++
	}
	return out
}

// deriveSelector implements spec.md §4.8 step 2/3.
func deriveSelector(idx *index.Index, ids []substrate.ID, l substrate.ID) selector {
	tags := map[string]bool{}
	depths := map[int]bool{}
	var elementCount, valueCount, otherCount int

	for _, id := range ids {
		n, ok := idx.Get(id)
		if !ok {
			continue
		}
		depths[depthFrom(idx, l, id)] = true
		switch n.Kind {
		case schema.KindElement:
			elementCount++
			tags[n.Tag] = true
		case schema.KindValue:
			valueCount++
		default:
			otherCount++
		}
	}

	sel := selector{}
	if len(tags) == 1 && valueCount == 0 {
		for t := range tags {
			sel.tag, sel.tagDefined = t, true
		}
	}
	if len(depths) == 1 {
		for d := range depths {
			sel.depth, sel.depthDefined = d, true
		}
	}
	switch {
	case valueCount == 0 && otherCount == 0 && elementCount > 0:
		sel.kind, sel.kindDefined = schema.KindElement, true
	case elementCount == 0 && otherCount == 0 && valueCount > 0:
		sel.kind, sel.kindDefined = schema.KindValue, true
	}
	return sel
}

// depthFrom walks id's parent chain up to l, counting steps.
func depthFrom(idx *index.Index, l, id substrate.ID) int {
	depth := 0
	cur := id
	for cur != l {
		parent, ok := idx.Parent(cur)
		if !ok {
			return depth
		}
		cur = parent
		depth++
	}
	return depth
}

// expand performs the DFS from l (spec.md §4.8 step 4), collecting
// every visited node at depth > 0 that matches every defined selector
// field, in traversal order.
func expand(idx *index.Index, l substrate.ID, sel selector) []substrate.ID {
	var out []substrate.ID
	var walk func(id substrate.ID, depth int)
	walk = func(id substrate.ID, depth int) {
		if depth > 0 {
			if n, ok := idx.Get(id); ok && sel.matches(n, depth) {
				out = append(out, id)
			}
		}
		for _, c := range idx.Children(id) {
			walk(c, depth+1)
		}
	}
	walk(l, 0)
	return out
}

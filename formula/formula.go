package formula

import (
	"fmt"

	"github.com/cshekharsharma/doctree/index"
	"github.com/cshekharsharma/doctree/schema"
	"github.com/cshekharsharma/doctree/substrate"
)

// DefaultMaxDepth is the evaluator's default recursion depth guard
// (spec.md §4.10: "max recursion depth (default 100)").
const DefaultMaxDepth = 100

// Evaluator is a pure evaluator over one Indexed View. It holds no
// mutable document state of its own — Evaluate only reads through idx.
type Evaluator struct {
	idx      *index.Index
	registry *Registry
	maxDepth int
}

// New binds an Evaluator to idx and registry, using DefaultMaxDepth.
func New(idx *index.Index, registry *Registry) *Evaluator {
	return &Evaluator{idx: idx, registry: registry, maxDepth: DefaultMaxDepth}
}

// WithMaxDepth overrides the recursion depth guard.
func (e *Evaluator) WithMaxDepth(depth int) *Evaluator {
	e.maxDepth = depth
	return e
}

// errSentinel formats the `"#ERR: <reason>"` string sentinel spec.md
// §4.10/§7 requires evaluation to return instead of propagating an
// error across the core's public boundary.
func errSentinel(reason string) string {
	return "#ERR: " + reason
}

func isErr(v any) bool {
	s, ok := v.(string)
	return ok && len(s) >= 5 && s[:5] == "#ERR:"
}

// Evaluate computes the value of node id: a value node's text, a ref's
// resolved target (recursively), or a formula's result in whichever of
// the two modes its children presence selects (spec.md §4.10). Every
// top-level call gets its own cycle-detection visited set.
func (e *Evaluator) Evaluate(id substrate.ID) any {
	return e.eval(id, 0, map[substrate.ID]bool{})
}

func (e *Evaluator) eval(id substrate.ID, depth int, visited map[substrate.ID]bool) any {
	if depth > e.maxDepth {
		return errSentinel("max recursion depth exceeded")
	}
	n, ok := e.idx.Get(id)
	if !ok {
		return errSentinel(fmt.Sprintf("node not found: %s", id.String()))
	}

	switch n.Kind {
	case schema.KindValue:
		return n.Text

	case schema.KindRef:
		if visited[id] {
			return errSentinel("cycle detected")
		}
		if n.Target.IsZero() {
			return errSentinel("dangling ref target")
		}
		target, ok := e.idx.Get(n.Target)
		if !ok {
			return errSentinel("dangling ref target")
		}
		visited[id] = true
		defer delete(visited, id)
		return e.evalNode(target, depth+1, visited)

	case schema.KindFormula:
		if visited[id] {
			return errSentinel("cycle detected")
		}
		visited[id] = true
		defer delete(visited, id)
		if len(n.Children) > 0 {
			return e.evalChildArgs(n, depth, visited)
		}
		return e.evalRPN(n, depth, visited)

	default:
		// element and action nodes carry no scalar value.
		return nil
	}
}

// evalNode is eval's body re-entered with an already-materialized node,
// used by ref resolution so it doesn't re-fetch from the index.
func (e *Evaluator) evalNode(n schema.Node, depth int, visited map[substrate.ID]bool) any {
	switch n.Kind {
	case schema.KindValue:
		return n.Text
	case schema.KindRef, schema.KindFormula:
		return e.eval(n.ID, depth, visited)
	default:
		return nil
	}
}

// evalChildArgs implements child-args mode (spec.md §4.10): each child
// is evaluated per its own kind (value→text, ref→resolve-and-recurse,
// formula→recurse, element→nil), the results collected as args in
// child order, then dispatched to the named operation.
func (e *Evaluator) evalChildArgs(n schema.Node, depth int, visited map[substrate.ID]bool) any {
	args := make([]any, 0, len(n.Children))
	for _, childID := range n.Children {
		args = append(args, e.eval(childID, depth+1, visited))
	}
	for _, a := range args {
		if isErr(a) {
			return a
		}
	}
	return e.dispatch(n.Operation, args)
}

// evalRPN implements RPN-on-siblings mode (spec.md §4.10): walk n's
// preceding siblings plus itself (in document order), pushing
// value/ref results onto a stack and treating every encountered
// childless-formula sibling as a reducer that pops its operation's
// arity (or the whole stack, if variadic) and pushes the result.
// Element and action siblings are skipped. The top of stack at the end
// is the result; an empty stack is an error.
func (e *Evaluator) evalRPN(n schema.Node, depth int, visited map[substrate.ID]bool) any {
	parent, ok := e.idx.Parent(n.ID)
	var siblings []substrate.ID
	if ok {
		siblings = e.idx.Children(parent)
	} else {
		siblings = []substrate.ID{n.ID}
	}

	selfIndex := -1
	for i, s := range siblings {
		if s == n.ID {
			selfIndex = i
			break
		}
	}
	if selfIndex < 0 {
		siblings = []substrate.ID{n.ID}
		selfIndex = 0
	}

	var stack []any
	for i := 0; i <= selfIndex; i++ {
		sib, ok := e.idx.Get(siblings[i])
		if !ok {
			continue
		}
		switch sib.Kind {
		case schema.KindValue, schema.KindRef:
			v := e.eval(sib.ID, depth+1, visited)
			if isErr(v) {
				return v
			}
			stack = append(stack, v)
		case schema.KindFormula:
			if len(sib.Children) > 0 {
				v := e.eval(sib.ID, depth+1, visited)
				if isErr(v) {
					return v
				}
				stack = append(stack, v)
				continue
			}
			if errv := e.reduce(sib.Operation, &stack); errv != "" {
				return errSentinel(errv)
			}
		case schema.KindElement, schema.KindAction:
			// skipped per spec.md §4.10
		}
	}

	if len(stack) == 0 {
		return errSentinel("empty stack")
	}
	return stack[len(stack)-1]
}

// reduce pops the operation named name's arity (or the entire stack, if
// variadic) off *stack and pushes its result, mutating *stack in place.
// Returns a non-empty reason string on failure instead of mutating the
// stack.
func (e *Evaluator) reduce(name string, stack *[]any) string {
	op, ok := e.registry.Lookup(name)
	if !ok {
		return fmt.Sprintf("unknown operation: %s", name)
	}
	s := *stack
	var args []any
	if op.Arity == Variadic {
		args = append([]any{}, s...)
		s = s[:0]
	} else {
		if len(s) < op.Arity {
			return fmt.Sprintf("arity mismatch for %s: stack has %d, need %d", name, len(s), op.Arity)
		}
		args = append([]any{}, s[len(s)-op.Arity:]...)
		s = s[:len(s)-op.Arity]
	}
	result, err := op.Execute(args)
	if err != nil {
		return err.Error()
	}
	*stack = append(s, result)
	return ""
}

// dispatch looks up name, checks arity against args, and executes —
// the shared tail of child-args mode (spec.md §4.10: "look up the
// operation by name, check arity ... execute").
func (e *Evaluator) dispatch(name string, args []any) any {
	op, ok := e.registry.Lookup(name)
	if !ok {
		return errSentinel(fmt.Sprintf("unknown operation: %s", name))
	}
	if op.Arity != Variadic && len(args) != op.Arity {
		return errSentinel(fmt.Sprintf("arity mismatch for %s: got %d, want %d", name, len(args), op.Arity))
	}
	result, err := op.Execute(args)
	if err != nil {
		return errSentinel(err.Error())
	}
	return result
}

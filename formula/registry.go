// Package formula implements the Formula Evaluator (spec.md §4.10): a
// pure evaluator over the Indexed View supporting both child-args and
// RPN-on-siblings modes, with cycle and depth guards. Operations
// themselves are supplied by the host as a (name, arity, execute)
// registry, matching the operator-table shape
// wayneeseguin-graft's Evaluator dispatches through (consulted for the
// registry pattern only; graft's own dataflow machinery is unrelated).
package formula

import (
	"fmt"
	"strconv"
)

// Variadic marks an Operation that consumes the whole argument list (or
// the whole RPN stack) rather than a fixed count.
const Variadic = -1

// Operation is one host-provided named function: Arity is the number of
// arguments Execute expects, or Variadic. Execute must be pure and total
// over its declared arity; evaluation-level errors (arity mismatch,
// unknown name) are caught by the Evaluator before Execute ever runs.
type Operation struct {
	Name    string
	Arity   int
	Execute func(args []any) (any, error)
}

// Registry is a lookup table of named operations, keyed case-sensitively
// by Name, matching how formula nodes store `operation` (spec.md §3).
type Registry struct {
	ops map[string]Operation
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{ops: map[string]Operation{}}
}

// Register adds or replaces op under op.Name.
func (r *Registry) Register(op Operation) {
	r.ops[op.Name] = op
}

// Lookup returns the operation named name and whether it exists.
func (r *Registry) Lookup(name string) (Operation, bool) {
	op, ok := r.ops[name]
	return op, ok
}

// DefaultRegistry returns a small built-in arithmetic/string operation
// set, enough to drive the RPN seed scenario in spec.md §8 ("value '5',
// value '1', formula 'add' ... yields 7") and to exercise child-args
// mode in tests without every host having to hand-roll the same basic
// operators.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(Operation{Name: "add", Arity: 2, Execute: numReduce(func(a, b float64) float64 { return a + b })})
	r.Register(Operation{Name: "sub", Arity: 2, Execute: numReduce(func(a, b float64) float64 { return a - b })})
	r.Register(Operation{Name: "mul", Arity: 2, Execute: numReduce(func(a, b float64) float64 { return a * b })})
	r.Register(Operation{Name: "div", Arity: 2, Execute: func(args []any) (any, error) {
		a, err := toNumber(args[0])
		if err != nil {
			return nil, err
		}
		b, err := toNumber(args[1])
		if err != nil {
			return nil, err
		}
		if b == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return a / b, nil
	}})
	r.Register(Operation{Name: "sum", Arity: Variadic, Execute: func(args []any) (any, error) {
		var total float64
		for _, a := range args {
			n, err := toNumber(a)
			if err != nil {
				return nil, err
			}
			total += n
		}
		return total, nil
	}})
	r.Register(Operation{Name: "concat", Arity: Variadic, Execute: func(args []any) (any, error) {
		out := ""
		for _, a := range args {
			out += toText(a)
		}
		return out, nil
	}})
	return r
}

func numReduce(f func(a, b float64) float64) func([]any) (any, error) {
	return func(args []any) (any, error) {
		a, err := toNumber(args[0])
		if err != nil {
			return nil, err
		}
		b, err := toNumber(args[1])
		if err != nil {
			return nil, err
		}
		return f(a, b), nil
	}
}

func toNumber(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", n)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("not a number: %v", v)
	}
}

func toText(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'g', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

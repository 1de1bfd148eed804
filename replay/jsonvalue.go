package replay

import "github.com/cshekharsharma/doctree/substrate"

// substituteValue is the uniform tree walk spec.md §9 calls for in
// place of reflecting over a Record<string, unknown>: a generalized
// patch's Data/Value fields are already decoded into Go's own
// JSON-shaped value space (string | float64 | bool | nil | []any |
// map[string]any), so the {scalar, array, object} cases fall directly
// out of a type switch on any — no separate wrapper type is needed to
// get the walk-and-substitute behavior.
//
// A string leaf matching the symbolic-identifier pattern ("$0", "$1",
// ...) is replaced by vars[s] when bound; an unresolved symbol is left
// literal, per spec.md §4.6.2a.
func substituteValue(v any, vars map[string]string) any {
	switch val := v.(type) {
	case string:
		if substrate.IsSymbol(val) {
			if resolved, ok := vars[val]; ok {
				return resolved
			}
		}
		return val
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, vv := range val {
			out[k] = substituteValue(vv, vars)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, vv := range val {
			out[i] = substituteValue(vv, vars)
		}
		return out
	default:
		return val
	}
}

// substituteID resolves a single target/parent/sourceId string field: a
// bound symbol becomes its concrete id, an unbound symbol (or an
// already-concrete id) passes through unchanged.
func substituteID(s string, vars map[string]string) string {
	if substrate.IsSymbol(s) {
		if resolved, ok := vars[s]; ok {
			return resolved
		}
	}
	return s
}

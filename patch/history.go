package patch

import (
	"sync"

	"github.com/cshekharsharma/doctree/substrate"
)

// History is the append-only recording window described by spec.md
// §4.5: every local commit's derived patches accumulate here until
// Clear resets the window.
type History struct {
	mu      sync.Mutex
	patches []Patch
}

// NewHistory starts recording doc's local commits and returns a
// disposer to stop.
func NewHistory(doc *substrate.Doc) (*History, func()) {
	h := &History{}
	disposer := doc.Subscribe(func(ev substrate.Event) {
		derived := Derive(ev)
		if len(derived) == 0 {
			return
		}
		h.mu.Lock()
		h.patches = append(h.patches, derived...)
		h.mu.Unlock()
	})
	return h, disposer
}

// Snapshot returns a copy of the recorded patches in recording order.
func (h *History) Snapshot() []Patch {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Patch, len(h.patches))
	copy(out, h.patches)
	return out
}

// Clear resets the recording window (spec.md §4.5: "clear_history
// resets the window").
func (h *History) Clear() {
	h.mu.Lock()
	h.patches = nil
	h.mu.Unlock()
}

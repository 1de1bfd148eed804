package substrate

import (
	"sync"
	"time"
)

// defaultMaxSteps and defaultMergeInterval are the substrate's undo
// manager defaults (spec.md §4.7): up to 100 steps retained, and edits
// landing within a second of each other coalesce into a single undo
// step so a burst of keystrokes undoes as one action instead of one
// per character.
const (
	defaultMaxSteps      = 100
	defaultMergeInterval = time.Second
)

// undoUnit is one coalesced local edit: the diffs that happened and the
// diffs that reverse them, applied in the opposite order.
type undoUnit struct {
	forward []Diff
	inverse []Diff
	at      time.Time
}

// UndoManager is the local-only undo/redo stack described by spec.md
// §4.7. It never sees remote or imported commits — Doc only calls push
// from Emit1/EmitMany/EndBatch, all of which are local-origin paths.
// There is no teacher precedent for this (the teacher repo has no undo
// manager); shaped directly from the spec using the same
// mutex-guarded-struct idiom as the teacher's GCounter/PNCounter.
type UndoManager struct {
	mu            sync.Mutex
	doc           *Doc
	maxSteps      int
	mergeInterval time.Duration

	undoStack []undoUnit
	redoStack []undoUnit
}

func newUndoManager(doc *Doc, maxSteps int, mergeInterval time.Duration) *UndoManager {
	return &UndoManager{doc: doc, maxSteps: maxSteps, mergeInterval: mergeInterval}
}

// push records one local edit, merging it into the top of the undo
// stack when it arrives within mergeInterval of the previous one, and
// clears the redo stack (a fresh local edit invalidates any pending
// redo, same as every mainstream undo stack).
func (u *UndoManager) push(forward, inverse []Diff) {
	u.mu.Lock()
	defer u.mu.Unlock()

	now := time.Now()
	u.redoStack = nil

	if n := len(u.undoStack); n > 0 {
		top := &u.undoStack[n-1]
		if now.Sub(top.at) < u.mergeInterval {
			top.forward = append(top.forward, forward...)
			// Undoing the merged unit must reverse the newer edit first,
			// so its inverse goes in front of what was already queued.
			top.inverse = append(append([]Diff{}, inverse...), top.inverse...)
			top.at = now
			return
		}
	}

	u.undoStack = append(u.undoStack, undoUnit{forward: forward, inverse: inverse, at: now})
	if len(u.undoStack) > u.maxSteps {
		u.undoStack = u.undoStack[len(u.undoStack)-u.maxSteps:]
	}
}

// CanUndo reports whether Undo would do anything.
func (u *UndoManager) CanUndo() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.undoStack) > 0
}

// CanRedo reports whether Redo would do anything.
func (u *UndoManager) CanRedo() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.redoStack) > 0
}

// Undo reverses the most recent local edit as one new local commit,
// moving it to the redo stack, and reports whether there was anything
// to undo (spec.md §4.7 seed scenario 4: "undo after create ... L is
// not in the live index").
func (u *UndoManager) Undo() bool {
	u.mu.Lock()
	if len(u.undoStack) == 0 {
		u.mu.Unlock()
		return false
	}
	n := len(u.undoStack)
	unit := u.undoStack[n-1]
	u.undoStack = u.undoStack[:n-1]
	u.redoStack = append(u.redoStack, unit)
	u.mu.Unlock()

	u.doc.mu.Lock()
	for _, diff := range unit.inverse {
		u.doc.applyDiff(diff)
	}
	u.doc.mu.Unlock()
	u.doc.Commit(OriginLocal, unit.inverse)
	return true
}

// Redo reapplies the most recently undone edit, moving it back onto the
// undo stack, and reports whether there was anything to redo.
func (u *UndoManager) Redo() bool {
	u.mu.Lock()
	if len(u.redoStack) == 0 {
		u.mu.Unlock()
		return false
	}
	n := len(u.redoStack)
	unit := u.redoStack[n-1]
	u.redoStack = u.redoStack[:n-1]
	u.undoStack = append(u.undoStack, unit)
	u.mu.Unlock()

	u.doc.mu.Lock()
	for _, diff := range unit.forward {
		u.doc.applyDiff(diff)
	}
	u.doc.mu.Unlock()
	u.doc.Commit(OriginLocal, unit.forward)
	return true
}

// Undo exposes the document's undo manager.
func (d *Doc) Undo() bool { return d.undo.Undo() }

// Redo exposes the document's undo manager.
func (d *Doc) Redo() bool { return d.undo.Redo() }

// CanUndo reports whether Undo would currently do anything.
func (d *Doc) CanUndo() bool { return d.undo.CanUndo() }

// CanRedo reports whether Redo would currently do anything.
func (d *Doc) CanRedo() bool { return d.undo.CanRedo() }

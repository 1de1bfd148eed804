package substrate

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDoc_ExportImportUpdateConverges(t *testing.T) {
	alice := NewDoc(1)
	bob := NewDoc(2)

	rootID, fwd, inv := alice.CreateNode(Zero, 0, map[string]any{"kind": "doc"})
	alice.Emit1(fwd, inv)
	alice.SetRoot(rootID)

	hID, fwd, inv := alice.CreateNode(rootID, 0, map[string]any{"kind": "element", "tag": "h1"})
	alice.Emit1(fwd, inv)
	_ = hID

	snap, err := alice.ExportSnapshot()
	require.NoError(t, err)
	require.NoError(t, bob.ImportSnapshot(snap))
	require.True(t, bob.Tree().Live(hID))

	// Concurrent edits: alice moves h1, bob tags it differently.
	eID, fwd, inv := alice.CreateNode(rootID, 1, map[string]any{"kind": "element", "tag": "p"})
	alice.Emit1(fwd, inv)

	fromAlice := alice.CurrentFrontier()
	fwd2, invDel, deleted := alice.DeleteNode(hID)
	require.True(t, deleted)
	alice.Emit1(fwd2, invDel)

	fromBob := bob.CurrentFrontier()
	bobFwd, bobInv := bob.SetField(hID, SubMeta, "tag", "h2")
	bob.Emit1(bobFwd, bobInv)

	deltaFromAlice, err := alice.ExportUpdate(fromBob)
	require.NoError(t, err)
	deltaFromBob, err := bob.ExportUpdate(fromAlice)
	require.NoError(t, err)

	require.NoError(t, alice.ApplyUpdate(deltaFromBob))
	require.NoError(t, bob.ApplyUpdate(deltaFromAlice))

	require.Equal(t, alice.Tree().Live(hID), bob.Tree().Live(hID))
	require.Equal(t, alice.Tree().Live(eID), bob.Tree().Live(eID))
}

func TestDoc_UndoRedoRoundTrip(t *testing.T) {
	d := NewDoc(1)
	rootID, fwd, inv := d.CreateNode(Zero, 0, map[string]any{"kind": "doc"})
	d.Emit1(fwd, inv)
	d.SetRoot(rootID)

	nodeID, fwd, inv := d.CreateNode(rootID, 0, map[string]any{"kind": "element", "tag": "div"})
	d.Emit1(fwd, inv)
	require.True(t, d.Tree().Live(nodeID))

	require.True(t, d.Undo())
	require.False(t, d.Tree().Live(nodeID))

	require.True(t, d.Redo())
	require.True(t, d.Tree().Live(nodeID))

	require.False(t, d.CanRedo())
	require.True(t, d.CanUndo())
}

func TestDoc_SpliceTextRoundTrip(t *testing.T) {
	d := NewDoc(1)
	rootID, fwd, inv := d.CreateNode(Zero, 0, map[string]any{"kind": "doc"})
	d.Emit1(fwd, inv)
	d.SetRoot(rootID)

	valueID, fwd, inv := d.CreateNode(rootID, 0, map[string]any{"kind": "value"})
	d.Emit1(fwd, inv)

	fwd, inv = d.SpliceText(valueID, 0, 0, "hello")
	d.Emit1(fwd, inv)
	require.Equal(t, "hello", d.TextOf(valueID).String())

	fwd, inv = d.SpliceText(valueID, 1, 3, "ipp")
	d.Emit1(fwd, inv)
	require.Equal(t, "hippo", d.TextOf(valueID).String())

	// Undo the second splice restores "hello" exactly (spec round-trip law).
	undoFwd := inv
	d.applyDiff(undoFwd)
	require.Equal(t, "hello", d.TextOf(valueID).String())
}

func TestTree_ConcurrentDeleteBeatsMove(t *testing.T) {
	tr := newTree()
	root := ID{}
	tr.place(ID{Counter: 1, Peer: 1}, root, 0, ID{Counter: 1, Peer: 1})
	node := ID{Counter: 1, Peer: 1}

	// Peer 1 deletes, peer 2 concurrently moves the same node.
	tr.applyRemote(node, root, tr.entries[node].Order, ID{Counter: 2, Peer: 1}, true)
	tr.applyRemote(node, ID{Counter: 5, Peer: 2}, "m", ID{Counter: 2, Peer: 2}, false)

	require.False(t, tr.Live(node))
}

package substrate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ID uniquely identifies a node assigned by the CRDT substrate on
// creation. It generalizes the teacher's RGA ID{Timestamp int64, NodeID
// string}: Counter plays the role of Timestamp (a per-peer monotonic
// counter, not a wall clock), and Peer replaces the free-form NodeID
// string with the document's 64-bit peer identity (spec.md §6).
//
// IDs are globally unique and totally ordered by creation causality only
// partially: no assumption of monotonic numeric order across peers holds.
type ID struct {
	Counter uint32
	Peer    uint64
}

// Zero is the sentinel empty ID returned on failure instead of a
// propagated error (spec.md §7: "typed empty sentinels on failure").
var Zero = ID{}

// IsZero reports whether id is the empty sentinel.
func (id ID) IsZero() bool {
	return id == Zero
}

// String formats id as "<counter>@<peer>", the canonical identifier
// format from spec.md §6.
func (id ID) String() string {
	return fmt.Sprintf("%d@%d", id.Counter, id.Peer)
}

var idPattern = regexp.MustCompile(`^\d+@\d+$`)

// ParseID parses the canonical "<counter>@<peer>" format. It returns the
// Zero sentinel and false if s does not match.
func ParseID(s string) (ID, bool) {
	if !idPattern.MatchString(s) {
		return Zero, false
	}
	parts := strings.SplitN(s, "@", 2)
	counter, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return Zero, false
	}
	peer, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return Zero, false
	}
	return ID{Counter: uint32(counter), Peer: peer}, true
}

var symbolPattern = regexp.MustCompile(`^\$\d+$`)

// IsSymbol reports whether s is a replay symbolic identifier of the form
// "$0", "$1", ... (spec.md §6).
func IsSymbol(s string) bool {
	return symbolPattern.MatchString(s)
}

// Greater gives a deterministic total order over concurrently created
// siblings: higher Counter wins, Peer breaks ties. This is the same
// tie-break rule as the teacher's ID.Greater (higher Timestamp, then
// NodeID lexicographic), generalized to a numeric Peer.
func (id ID) Greater(other ID) bool {
	if id.Counter != other.Counter {
		return id.Counter > other.Counter
	}
	return id.Peer > other.Peer
}

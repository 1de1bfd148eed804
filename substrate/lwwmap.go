package substrate

// lwwEntry is one last-writer-wins slot inside a Map. It generalizes the
// teacher's GCounter per-peer-slot technique (gcounter.go: "slots map
// NodeID -> Count", merged by taking the max per slot) from "slot value =
// monotonic int, merge = max" to "slot value = (value, stamp), merge =
// keep the entry with the greater stamp" — an LWW-register instead of a
// grow-only counter, but the same "one independent slot per key, merge
// slot-by-slot" shape.
type lwwEntry struct {
	Value   any
	Stamp   ID
	Deleted bool
}

// Map is a last-writer-wins map container, used for element attrs and
// for each node's reserved-key metadata (kind, tag, operation, ...).
type Map struct {
	owner   ID
	entries map[string]*lwwEntry
}

func newMap(owner ID) *Map {
	return &Map{owner: owner, entries: make(map[string]*lwwEntry)}
}

func (m *Map) ContainerID() ID { return m.owner }

// Set writes key=value, stamped for LWW resolution.
func (m *Map) Set(key string, value any, stamp ID) {
	m.entries[key] = &lwwEntry{Value: value, Stamp: stamp}
}

// Delete removes key (represented as a tombstoned slot, not absence, so
// concurrent re-adds still resolve by stamp). Spec.md §9: "undefined /
// optional attribute values are represented by an explicit deletion
// action on the map, not a sentinel placeholder."
func (m *Map) Delete(key string, stamp ID) {
	m.entries[key] = &lwwEntry{Deleted: true, Stamp: stamp}
}

// Get returns the current value of key and whether it is live.
func (m *Map) Get(key string) (any, bool) {
	e, ok := m.entries[key]
	if !ok || e.Deleted {
		return nil, false
	}
	return e.Value, true
}

// Keys returns the live keys, order unspecified.
func (m *Map) Keys() []string {
	var keys []string
	for k, e := range m.entries {
		if !e.Deleted {
			keys = append(keys, k)
		}
	}
	return keys
}

// Snapshot returns a plain map of the live key/value pairs.
func (m *Map) Snapshot() map[string]any {
	out := make(map[string]any, len(m.entries))
	for k, e := range m.entries {
		if !e.Deleted {
			out[k] = e.Value
		}
	}
	return out
}

// applyRemote integrates a remote write to key, keeping whichever stamp
// is greater — the direct map analog of gcounter.go's per-slot max.
func (m *Map) applyRemote(key string, value any, stamp ID, deleted bool) {
	cur, ok := m.entries[key]
	if !ok || stamp.Greater(cur.Stamp) {
		m.entries[key] = &lwwEntry{Value: value, Stamp: stamp, Deleted: deleted}
	}
}

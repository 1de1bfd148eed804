// Package substrate implements the CRDT Substrate Adaptor: an opaque
// handle over a replicated ordered tree with last-writer-wins parent and
// position, last-writer-wins maps, op-based text and ordered lists,
// frontiers, and byte-level export/import.
//
// Every container here participates in the same join-semilattice
// discipline as a state-based CRDT: merges must be commutative,
// associative and idempotent so that replicas converge regardless of
// delivery order.
package substrate

// Container is the base interface every CRDT container in the substrate
// satisfies. It has no Merge method: remote state enters through Doc
// (ApplyUpdate, ImportSnapshot), which resolves concurrent writes to each
// container by comparing their stamps.
type Container interface {
	// ContainerID returns the identifier of the node this container
	// belongs to, so a diff naming only a container can be resolved back
	// to its owning node (see package patch, Derive).
	ContainerID() ID
}

// Origin classifies where a batch of commit events came from.
type Origin int

const (
	// OriginLocal marks events produced by this process's own mutations.
	OriginLocal Origin = iota
	// OriginRemote marks events applied from another peer's update bytes.
	OriginRemote
	// OriginImport marks events applied from a full snapshot import.
	OriginImport
	// OriginCheckout marks events produced by a time-travel checkout.
	OriginCheckout
)

func (o Origin) String() string {
	switch o {
	case OriginLocal:
		return "local"
	case OriginRemote:
		return "remote"
	case OriginImport:
		return "import"
	case OriginCheckout:
		return "checkout"
	default:
		return "unknown"
	}
}

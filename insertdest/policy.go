// Package insertdest implements the insert-destination family: the base
// tuple/batch entry points every policy shares, and the three checkout
// policies (always-create, block-pool, partition-aware) modeled as a
// tagged variant.
package insertdest

import (
	"insertdest/bus"
	"insertdest/internal/base"
	"insertdest/relation"
	"insertdest/storagemgr"
)

// policy is the internal strategy interface every Destination delegates
// to. It is unexported: callers only ever see a *Destination constructed
// through one of the New* constructors, collapsing what could have been a
// deep class hierarchy with virtual dispatch into a single type with an
// internal variant.
type policy interface {
	// checkout returns a handle ready for insertion. t is consulted only by
	// partition-aware policies to route to the correct partition; other
	// policies ignore it.
	checkout(mgr storagemgr.StorageManager, layout relation.Layout, t relation.Tuple) (*storagemgr.BlockHandle, error)

	// returnBlock returns h to the pool for future reuse (the CHECKED_OUT
	// -> AVAILABLE transition). Policies with no pool (always-create) seal
	// instead.
	returnBlock(threadID bus.ThreadID, notifier *bus.Notifier, h *storagemgr.BlockHandle) error

	// seal performs the CHECKED_OUT -> DONE transition: rebuild, record in
	// done_ids, notify the foreman, release the handle.
	seal(threadID bus.ThreadID, notifier *bus.Notifier, h *storagemgr.BlockHandle) error

	// sealIfStillAvailable seals blockID only if it is still sitting in a
	// pool unclaimed by any other worker; it is a no-op returning false if
	// the block was already checked out, sealed, or never tracked. It backs
	// the always_mark_full path of partition-routed bulk inserts, which
	// cannot hold a handle across the whole call the way a single-partition
	// bulk insert can.
	sealIfStillAvailable(threadID bus.ThreadID, notifier *bus.Notifier, blockID base.BlockID) (bool, error)

	// partitioningAttribute returns the schema attribute index this policy
	// partitions on, or -1 if it does not partition.
	partitioningAttribute() int

	// partiallyFilled drains every unsealed available block, transferring
	// ownership to the caller. Idempotent: a second call returns nil.
	partiallyFilled() []*storagemgr.BlockHandle

	// poolSize reports how many blocks currently sit available (loaded
	// handles plus known-but-unloaded ids) without removing them, purely for
	// observability (metrics.Recorder's pool-depth gauge).
	poolSize() int

	// touched returns the full sealed-block id log.
	touched() []base.BlockID

	// addAllBlocksFromRelation primes the policy's available-but-not-loaded
	// set from every block id the storage manager already knows about.
	addAllBlocksFromRelation(mgr storagemgr.StorageManager, relationID uint32)
}

package storagemgr

import (
	"sync/atomic"

	"insertdest/internal/base"
	"insertdest/relation"
)

// BlockHandle is an exclusive, movable reference to a loaded, mutable
// block. Construction pins the block in the storage manager; Release
// unpins it. Go has no compiler-enforced move semantics, so BlockHandle
// enforces "non-copyable" at runtime: Release is safe to call at most once,
// and a released handle panics on further use, the same class of
// programmer error reference-counting bookkeeping guards against.
//
// At most one BlockHandle exists system-wide per block id: the manager
// that hands one out will not hand out another for the same id until this
// handle is released.
type BlockHandle struct {
	block    Block
	unpin    func(base.BlockID)
	released atomic.Bool
}

func newBlockHandle(block Block, unpin func(base.BlockID)) *BlockHandle {
	return &BlockHandle{block: block, unpin: unpin}
}

// ID returns the underlying block's id.
func (h *BlockHandle) ID() base.BlockID {
	h.checkAlive()
	return h.block.ID()
}

// InsertTuple attempts to insert t into the underlying block.
func (h *BlockHandle) InsertTuple(t relation.Tuple) bool {
	h.checkAlive()
	return h.block.InsertTuple(t)
}

// BulkInsertTuples absorbs as many tuples as fit from accessor.
func (h *BlockHandle) BulkInsertTuples(accessor relation.ValueAccessor) int {
	h.checkAlive()
	return h.block.BulkInsertTuples(accessor)
}

// Rebuild finalizes the underlying block's on-block indexes.
func (h *BlockHandle) Rebuild() {
	h.checkAlive()
	h.block.Rebuild()
}

// TupleCount returns the number of tuples currently stored in the block.
func (h *BlockHandle) TupleCount() int {
	h.checkAlive()
	return h.block.TupleCount()
}

// Release relinquishes the handle, unpinning the block. Release must be
// called exactly once; calling it a second time is a programmer error and
// panics, mirroring the "at most one handle per block" invariant.
func (h *BlockHandle) Release() {
	if !h.released.CompareAndSwap(false, true) {
		panic("storagemgr: BlockHandle released more than once")
	}
	if h.unpin != nil {
		h.unpin(h.block.ID())
	}
}

func (h *BlockHandle) checkAlive() {
	if h.released.Load() {
		panic("storagemgr: use of BlockHandle after Release")
	}
}

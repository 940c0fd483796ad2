package base

import "sync/atomic"

// BlockID is an opaque 64-bit identifier assigned by the storage manager at
// block creation. Callers must not assume any ordering or structure beyond
// uniqueness.
type BlockID uint64

// InvalidBlockID is never returned by a real storage manager and is useful
// as a zero-value sentinel in tests.
const InvalidBlockID BlockID = 0

// AtomicBlockCounter hands out monotonically increasing block ids. It backs
// reference StorageManager implementations that need to mint new ids
// without a central allocator.
type AtomicBlockCounter struct {
	next atomic.Uint64
}

// Next returns a fresh, never-before-returned block id.
func (c *AtomicBlockCounter) Next() BlockID {
	return BlockID(c.next.Add(1))
}

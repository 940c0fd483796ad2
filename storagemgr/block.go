package storagemgr

import (
	"sync"

	"insertdest/internal/base"
	"insertdest/relation"
)

// Block is the mutable, size-bounded storage container an insert
// destination writes tuples into. Block is an external collaborator: this
// package treats it as opaque beyond the operations the insert-destination
// family needs.
type Block interface {
	// ID returns this block's opaque identifier.
	ID() base.BlockID
	// InsertTuple attempts to append t. accepted is false once the block
	// has no room left; the caller must seal and retry against a fresh
	// block.
	InsertTuple(t relation.Tuple) (accepted bool)
	// BulkInsertTuples absorbs as many tuples as fit from accessor,
	// advancing it as it goes, and returns how many were inserted. It never
	// returns an error; running out of room simply stops the absorption
	// with the accessor left positioned at the first unread tuple.
	BulkInsertTuples(accessor relation.ValueAccessor) (inserted int)
	// Rebuild finalizes on-block indexes. Called once, immediately before a
	// block is sealed.
	Rebuild()
	// TupleCount returns how many tuples are currently stored in the
	// block.
	TupleCount() int
}

// memBlock is a reference in-memory Block implementation bounded by
// layout.MaxTuples: a bounded, mutable container that refuses further
// writes once full, guarded by its own lock because a Block may in
// principle be inspected (TupleCount) from a different goroutine than the
// one holding its BlockHandle.
type memBlock struct {
	mu     sync.Mutex
	id     base.BlockID
	layout relation.Layout
	tuples []relation.Tuple
	built  bool
}

func newMemBlock(id base.BlockID, layout relation.Layout) *memBlock {
	cap := layout.MaxTuples
	if cap <= 0 {
		cap = defaultMaxTuplesPerBlock
	}
	return &memBlock{
		id:     id,
		layout: relation.Layout{Name: layout.Name, MaxTuples: cap},
	}
}

// defaultMaxTuplesPerBlock is used when a layout does not specify a bound,
// standing in for the megabyte-scale physical bound a real storage block
// would enforce.
const defaultMaxTuplesPerBlock = 4096

func (b *memBlock) ID() base.BlockID { return b.id }

func (b *memBlock) InsertTuple(t relation.Tuple) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.tuples) >= b.layout.MaxTuples {
		return false
	}
	b.tuples = append(b.tuples, t)
	return true
}

func (b *memBlock) BulkInsertTuples(accessor relation.ValueAccessor) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	inserted := 0
	for len(b.tuples) < b.layout.MaxTuples {
		if !accessor.Next() {
			break
		}
		b.tuples = append(b.tuples, accessor.Current())
		inserted++
	}
	return inserted
}

func (b *memBlock) Rebuild() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.built = true
}

func (b *memBlock) TupleCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.tuples)
}

package storagemgr

import (
	"sync"

	"github.com/cockroachdb/errors"

	"insertdest/internal/base"
	"insertdest/relation"
)

// StorageManager is the external collaborator that creates and loads
// blocks. It is treated as an opaque, thread-safe service; this package
// only depends on the operations the insert-destination family calls.
type StorageManager interface {
	// CreateBlock allocates and pins a brand-new, empty block laid out per
	// layout.
	CreateBlock(layout relation.Layout) (*BlockHandle, error)
	// GetBlock loads and pins an existing block by id.
	GetBlock(id base.BlockID) (*BlockHandle, error)
	// BlockIDsForRelation enumerates every block id known to belong to
	// relationID, for addAllBlocksFromRelation.
	BlockIDsForRelation(relationID uint32) []base.BlockID
}

// MemManager is a pure in-memory StorageManager, used by tests and as the
// backing store of the demo CLI. It enforces the "at most
// one handle per block" invariant by tracking which ids are currently
// checked out.
type MemManager struct {
	mu       sync.Mutex
	counter  base.AtomicBlockCounter
	blocks   map[base.BlockID]*memBlock
	byRel    map[uint32][]base.BlockID
	pinned   map[base.BlockID]bool
	relOf    map[base.BlockID]uint32
	relation uint32
}

// NewMemManager constructs an empty in-memory manager scoped to a single
// relation id, matching the way an insert destination is bound to exactly
// one relation for its lifetime.
func NewMemManager(relationID uint32) *MemManager {
	return &MemManager{
		blocks:   make(map[base.BlockID]*memBlock),
		byRel:    make(map[uint32][]base.BlockID),
		pinned:   make(map[base.BlockID]bool),
		relOf:    make(map[base.BlockID]uint32),
		relation: relationID,
	}
}

// CreateBlock implements StorageManager.
func (m *MemManager) CreateBlock(layout relation.Layout) (*BlockHandle, error) {
	m.mu.Lock()
	id := m.counter.Next()
	blk := newMemBlock(id, layout)
	m.blocks[id] = blk
	m.byRel[m.relation] = append(m.byRel[m.relation], id)
	m.relOf[id] = m.relation
	m.pinned[id] = true
	m.mu.Unlock()

	return newBlockHandle(blk, m.unpin), nil
}

// GetBlock implements StorageManager.
func (m *MemManager) GetBlock(id base.BlockID) (*BlockHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	blk, ok := m.blocks[id]
	if !ok {
		return nil, errors.Wrapf(base.ErrStorageUnavailable, "block %d does not exist", id)
	}
	if m.pinned[id] {
		return nil, errors.Wrapf(base.ErrStorageUnavailable, "block %d already pinned", id)
	}
	m.pinned[id] = true
	return newBlockHandle(blk, m.unpin), nil
}

// BlockIDsForRelation implements StorageManager.
func (m *MemManager) BlockIDsForRelation(relationID uint32) []base.BlockID {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := m.byRel[relationID]
	out := make([]base.BlockID, len(ids))
	copy(out, ids)
	return out
}

func (m *MemManager) unpin(id base.BlockID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pinned[id] = false
}

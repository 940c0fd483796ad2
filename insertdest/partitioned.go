package insertdest

import (
	"sync"

	"insertdest/bus"
	"insertdest/internal/base"
	"insertdest/relation"
	"insertdest/storagemgr"
)

// partitionState is one partition's pool, mirroring poolPolicy exactly but
// scoped to a single partition id and guarded by its own mutex.
type partitionState struct {
	mu            sync.Mutex
	availableRefs []*storagemgr.BlockHandle
	availableIDs  []base.BlockID
	doneIDs       []base.BlockID
}

// partitionedPolicy implements partition-aware routing: each tuple is
// routed to a partition by partitionAttr, then pool semantics apply per
// partition with per-partition locking. A worker touches at most one
// partition mutex at a time, so there is no lock-ordering hazard.
type partitionedPolicy struct {
	partitionAttr int
	scheme        relation.PartitionScheme
	states        []*partitionState

	// checkedOut remembers which partition a currently-outstanding handle
	// came from, so returnBlock/seal (which only receive the handle) can
	// find their way back to the right partitionState without scanning
	// every partition. It is its own tiny lock rather than reusing any
	// partitionState's mutex, since a lookup here never needs to happen
	// while holding a partition lock.
	checkedOutMu sync.Mutex
	checkedOut   map[base.BlockID]int
}

func newPartitionedPolicy(partitionAttr int, scheme relation.PartitionScheme) *partitionedPolicy {
	n := scheme.NumPartitions()
	states := make([]*partitionState, n)
	for i := range states {
		states[i] = &partitionState{}
	}
	return &partitionedPolicy{
		partitionAttr: partitionAttr,
		scheme:        scheme,
		states:        states,
		checkedOut:    make(map[base.BlockID]int),
	}
}

func (p *partitionedPolicy) rememberCheckedOut(id base.BlockID, part int) {
	p.checkedOutMu.Lock()
	p.checkedOut[id] = part
	p.checkedOutMu.Unlock()
}

func (p *partitionedPolicy) forgetCheckedOut(id base.BlockID) {
	p.checkedOutMu.Lock()
	delete(p.checkedOut, id)
	p.checkedOutMu.Unlock()
}

func (p *partitionedPolicy) partitionFor(t relation.Tuple) int {
	value := t.ValueOf(p.partitionAttr)
	return p.scheme.PartitionFor(relation.AttributeBytes(value))
}

func (p *partitionedPolicy) checkout(mgr storagemgr.StorageManager, layout relation.Layout, t relation.Tuple) (*storagemgr.BlockHandle, error) {
	part := p.partitionFor(t)
	return p.checkoutForPartition(mgr, layout, part)
}

// checkoutForPartition is used both by checkout, once it has resolved a
// tuple's partition, and directly by the bulk-insert fallback path, which
// already knows which partition a tuple belongs to and must not
// re-evaluate the partitioning function on a zero-value tuple.
func (p *partitionedPolicy) checkoutForPartition(mgr storagemgr.StorageManager, layout relation.Layout, part int) (*storagemgr.BlockHandle, error) {
	st := p.states[part]

	st.mu.Lock()
	if n := len(st.availableRefs); n > 0 {
		h := st.availableRefs[n-1]
		st.availableRefs = st.availableRefs[:n-1]
		st.mu.Unlock()
		p.rememberCheckedOut(h.ID(), part)
		return h, nil
	}
	if n := len(st.availableIDs); n > 0 {
		id := st.availableIDs[n-1]
		st.availableIDs = st.availableIDs[:n-1]
		st.mu.Unlock()

		h, err := mgr.GetBlock(id)
		if err != nil {
			return nil, wrapStorageErr(err)
		}
		p.rememberCheckedOut(id, part)
		return h, nil
	}
	st.mu.Unlock()

	h, err := mgr.CreateBlock(layout)
	if err != nil {
		return nil, wrapStorageErr(err)
	}
	p.rememberCheckedOut(h.ID(), part)
	return h, nil
}

func (p *partitionedPolicy) returnBlock(_ bus.ThreadID, _ *bus.Notifier, h *storagemgr.BlockHandle) error {
	part := p.partitionOf(h.ID())
	st := p.states[part]
	st.mu.Lock()
	st.availableRefs = append(st.availableRefs, h)
	st.mu.Unlock()
	return nil
}

// partitionOf answers which partition a checked-out block belongs to by
// checking where it would currently be recorded, falling back to
// re-deriving nothing: since a checked-out handle isn't present in any
// availableRefs list, we track a lightweight reverse index instead of
// scanning. See checkedOut.
func (p *partitionedPolicy) partitionOf(id base.BlockID) int {
	p.checkedOutMu.Lock()
	defer p.checkedOutMu.Unlock()
	return p.checkedOut[id]
}

func (p *partitionedPolicy) seal(threadID bus.ThreadID, notifier *bus.Notifier, h *storagemgr.BlockHandle) error {
	part := p.partitionOf(h.ID())
	st := p.states[part]
	return sealHandle(threadID, notifier, h, func(id base.BlockID) {
		st.mu.Lock()
		st.doneIDs = append(st.doneIDs, id)
		st.mu.Unlock()
		p.forgetCheckedOut(id)
	})
}

func (p *partitionedPolicy) sealForPartition(threadID bus.ThreadID, notifier *bus.Notifier, part int, h *storagemgr.BlockHandle) error {
	st := p.states[part]
	return sealHandle(threadID, notifier, h, func(id base.BlockID) {
		st.mu.Lock()
		st.doneIDs = append(st.doneIDs, id)
		st.mu.Unlock()
		p.forgetCheckedOut(id)
	})
}

func (p *partitionedPolicy) sealIfStillAvailable(threadID bus.ThreadID, notifier *bus.Notifier, blockID base.BlockID) (bool, error) {
	for part, st := range p.states {
		st.mu.Lock()
		idx := -1
		for i, h := range st.availableRefs {
			if h.ID() == blockID {
				idx = i
				break
			}
		}
		if idx < 0 {
			st.mu.Unlock()
			continue
		}
		h := st.availableRefs[idx]
		st.availableRefs = append(st.availableRefs[:idx], st.availableRefs[idx+1:]...)
		st.mu.Unlock()

		if err := p.sealForPartition(threadID, notifier, part, h); err != nil {
			return true, err
		}
		return true, nil
	}
	return false, nil
}

func (p *partitionedPolicy) partitioningAttribute() int { return p.partitionAttr }

func (p *partitionedPolicy) partiallyFilled() []*storagemgr.BlockHandle {
	var out []*storagemgr.BlockHandle
	for _, st := range p.states {
		st.mu.Lock()
		out = append(out, st.availableRefs...)
		st.availableRefs = nil
		st.mu.Unlock()
	}
	return out
}

func (p *partitionedPolicy) poolSize() int {
	n := 0
	for _, st := range p.states {
		st.mu.Lock()
		n += len(st.availableRefs) + len(st.availableIDs)
		st.mu.Unlock()
	}
	return n
}

// touched aggregates every partition's done_ids in a single pass, answering
// getTouchedBlocks across all partitions at once.
func (p *partitionedPolicy) touched() []base.BlockID {
	var out []base.BlockID
	for _, st := range p.states {
		st.mu.Lock()
		out = append(out, st.doneIDs...)
		st.mu.Unlock()
	}
	return out
}

// addAllBlocksFromRelation adds every existing block of the relation to
// partition 0's pool; it does not determine a block's home partition. The
// storage manager does not itself know about partitions and has no way to
// report a block's partitioning-attribute value without loading it.
// Callers that persist partition assignment out of band should prefer
// AddBlockToPool directly.
func (p *partitionedPolicy) addAllBlocksFromRelation(mgr storagemgr.StorageManager, relationID uint32) {
	ids := mgr.BlockIDsForRelation(relationID)
	for _, id := range ids {
		p.AddBlockToPool(id, 0)
	}
}

// AddBlockToPool appends blockID to partitionID's available_ids under that
// partition's lock.
func (p *partitionedPolicy) AddBlockToPool(blockID base.BlockID, partitionID int) {
	st := p.states[partitionID]
	st.mu.Lock()
	st.availableIDs = append(st.availableIDs, blockID)
	st.mu.Unlock()
}

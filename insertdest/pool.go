package insertdest

import (
	"sync"

	"insertdest/bus"
	"insertdest/internal/base"
	"insertdest/relation"
	"insertdest/storagemgr"
)

// poolPolicy implements block-pool reuse: a pool of partially filled blocks
// is maintained and reused first-fit before any new block is created.
//
// mu stands in for a single spin mutex; Go has no portable user-space
// spinlock primitive so a sync.Mutex substitutes for it everywhere in this
// module. Every mutation, including the storage-manager I/O in checkout,
// happens under mu. That I/O under lock is a known contention point; a
// future implementation could release the lock across it provided it
// reacquires before touching the available sets.
type poolPolicy struct {
	mu            sync.Mutex
	availableRefs []*storagemgr.BlockHandle
	availableIDs  []base.BlockID
	doneIDs       []base.BlockID
}

func newPoolPolicy() *poolPolicy {
	return &poolPolicy{}
}

func (p *poolPolicy) checkout(mgr storagemgr.StorageManager, layout relation.Layout, _ relation.Tuple) (*storagemgr.BlockHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.checkoutLocked(mgr, layout)
}

// checkoutLocked implements a fixed preference order: an already-loaded
// handle, then a known-but-unloaded id, then a fresh block. Callers must
// hold p.mu.
func (p *poolPolicy) checkoutLocked(mgr storagemgr.StorageManager, layout relation.Layout) (*storagemgr.BlockHandle, error) {
	if n := len(p.availableRefs); n > 0 {
		h := p.availableRefs[n-1]
		p.availableRefs = p.availableRefs[:n-1]
		return h, nil
	}

	if n := len(p.availableIDs); n > 0 {
		id := p.availableIDs[n-1]
		h, err := mgr.GetBlock(id)
		if err != nil {
			return nil, wrapStorageErr(err)
		}
		p.availableIDs = p.availableIDs[:n-1]
		return h, nil
	}

	h, err := mgr.CreateBlock(layout)
	if err != nil {
		return nil, wrapStorageErr(err)
	}
	return h, nil
}

func (p *poolPolicy) returnBlock(_ bus.ThreadID, _ *bus.Notifier, h *storagemgr.BlockHandle) error {
	p.mu.Lock()
	p.availableRefs = append(p.availableRefs, h)
	p.mu.Unlock()
	return nil
}

func (p *poolPolicy) seal(threadID bus.ThreadID, notifier *bus.Notifier, h *storagemgr.BlockHandle) error {
	return sealHandle(threadID, notifier, h, func(id base.BlockID) {
		p.mu.Lock()
		p.doneIDs = append(p.doneIDs, id)
		p.mu.Unlock()
	})
}

func (p *poolPolicy) sealIfStillAvailable(threadID bus.ThreadID, notifier *bus.Notifier, blockID base.BlockID) (bool, error) {
	p.mu.Lock()
	idx := -1
	for i, h := range p.availableRefs {
		if h.ID() == blockID {
			idx = i
			break
		}
	}
	if idx < 0 {
		p.mu.Unlock()
		return false, nil
	}
	h := p.availableRefs[idx]
	p.availableRefs = append(p.availableRefs[:idx], p.availableRefs[idx+1:]...)
	p.mu.Unlock()

	if err := p.seal(threadID, notifier, h); err != nil {
		return true, err
	}
	return true, nil
}

func (p *poolPolicy) partitioningAttribute() int { return -1 }

func (p *poolPolicy) partiallyFilled() []*storagemgr.BlockHandle {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := p.availableRefs
	p.availableRefs = nil
	return out
}

func (p *poolPolicy) poolSize() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.availableRefs) + len(p.availableIDs)
}

func (p *poolPolicy) touched() []base.BlockID {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]base.BlockID, len(p.doneIDs))
	copy(out, p.doneIDs)
	return out
}

func (p *poolPolicy) addAllBlocksFromRelation(mgr storagemgr.StorageManager, relationID uint32) {
	ids := mgr.BlockIDsForRelation(relationID)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.availableIDs = append(p.availableIDs, ids...)
}

package insertdest

import (
	"sync"

	"insertdest/bus"
	"insertdest/internal/base"
	"insertdest/relation"
	"insertdest/storagemgr"
)

// alwaysCreatePolicy implements the always-create policy: every checkout is
// a freshly created block, and every return seals it. full=false is treated
// the same as full=true because there is no pool to return a partial block
// to.
type alwaysCreatePolicy struct {
	mu      sync.Mutex
	doneIDs []base.BlockID
}

func newAlwaysCreatePolicy() *alwaysCreatePolicy {
	return &alwaysCreatePolicy{}
}

func (p *alwaysCreatePolicy) checkout(mgr storagemgr.StorageManager, layout relation.Layout, _ relation.Tuple) (*storagemgr.BlockHandle, error) {
	h, err := mgr.CreateBlock(layout)
	if err != nil {
		return nil, wrapStorageErr(err)
	}
	return h, nil
}

func (p *alwaysCreatePolicy) returnBlock(threadID bus.ThreadID, notifier *bus.Notifier, h *storagemgr.BlockHandle) error {
	// No pool exists; a "returned, not full" block is sealed anyway.
	return p.seal(threadID, notifier, h)
}

func (p *alwaysCreatePolicy) seal(threadID bus.ThreadID, notifier *bus.Notifier, h *storagemgr.BlockHandle) error {
	return sealHandle(threadID, notifier, h, func(id base.BlockID) {
		p.mu.Lock()
		p.doneIDs = append(p.doneIDs, id)
		p.mu.Unlock()
	})
}

func (p *alwaysCreatePolicy) sealIfStillAvailable(bus.ThreadID, *bus.Notifier, base.BlockID) (bool, error) {
	// Always-create never keeps a block available for later reuse, so
	// there is nothing to seal-if-available: every block is sealed at the
	// moment it is returned.
	return false, nil
}

func (p *alwaysCreatePolicy) partitioningAttribute() int { return -1 }

func (p *alwaysCreatePolicy) partiallyFilled() []*storagemgr.BlockHandle {
	// No-op: always-create never produces a partial block that outlives a
	// single checkout/return cycle.
	return nil
}

func (p *alwaysCreatePolicy) poolSize() int { return 0 }

func (p *alwaysCreatePolicy) touched() []base.BlockID {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]base.BlockID, len(p.doneIDs))
	copy(out, p.doneIDs)
	return out
}

func (p *alwaysCreatePolicy) addAllBlocksFromRelation(storagemgr.StorageManager, uint32) {
	// Always-create never reuses existing blocks, so priming has nothing
	// to do.
}

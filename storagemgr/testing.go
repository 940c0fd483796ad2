package storagemgr

// NewHandleForTesting wraps a synthetic Block in a BlockHandle with no
// unpin callback, for tests elsewhere in this module that need a
// StorageManager test double exercising edge-case Block behavior (e.g. a
// block that rejects every insert) without standing up a full MemManager.
func NewHandleForTesting(block Block) *BlockHandle {
	return newBlockHandle(block, nil)
}

package insertdest

import (
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"insertdest/bus"
	"insertdest/internal/base"
	"insertdest/relation"
	"insertdest/storagemgr"
)

// taggedBlock is a Block double that remembers which partition its first
// tuple belonged to and flags mismatch if a later tuple disagrees. Since
// partitionedPolicy never hands a block out to more than one partition's
// pool, a correctly routing implementation can never trip the flag.
type taggedBlock struct {
	mu            sync.Mutex
	id            base.BlockID
	capacity      int
	tuples        int
	hasOwner      bool
	owner         int
	partitionAttr int
	scheme        relation.PartitionScheme
	mismatch      *atomic.Bool
}

func (b *taggedBlock) ID() base.BlockID { return b.id }

func (b *taggedBlock) InsertTuple(t relation.Tuple) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.tuples >= b.capacity {
		return false
	}
	part := b.scheme.PartitionFor(relation.AttributeBytes(t.ValueOf(b.partitionAttr)))
	if !b.hasOwner {
		b.owner, b.hasOwner = part, true
	} else if b.owner != part {
		b.mismatch.Store(true)
	}
	b.tuples++
	return true
}

func (b *taggedBlock) BulkInsertTuples(accessor relation.ValueAccessor) int {
	inserted := 0
	for {
		pos := accessor.Position()
		if !accessor.Next() {
			break
		}
		if !b.InsertTuple(accessor.Current()) {
			accessor.RewindTo(pos)
			break
		}
		inserted++
	}
	return inserted
}

func (b *taggedBlock) Rebuild() {}

func (b *taggedBlock) TupleCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tuples
}

// taggedManager hands out taggedBlocks and keeps them addressable by id so a
// test can re-inspect a sealed block's tuple count after the fact.
type taggedManager struct {
	mu            sync.Mutex
	counter       base.AtomicBlockCounter
	blocks        map[base.BlockID]*taggedBlock
	partitionAttr int
	scheme        relation.PartitionScheme
	mismatch      *atomic.Bool
}

func (m *taggedManager) CreateBlock(layout relation.Layout) (*storagemgr.BlockHandle, error) {
	blk := &taggedBlock{
		id:            m.counter.Next(),
		capacity:      layout.MaxTuples,
		partitionAttr: m.partitionAttr,
		scheme:        m.scheme,
		mismatch:      m.mismatch,
	}
	m.mu.Lock()
	m.blocks[blk.id] = blk
	m.mu.Unlock()
	return storagemgr.NewHandleForTesting(blk), nil
}

func (m *taggedManager) GetBlock(id base.BlockID) (*storagemgr.BlockHandle, error) {
	m.mu.Lock()
	blk, ok := m.blocks[id]
	m.mu.Unlock()
	if !ok {
		return nil, base.ErrStorageUnavailable
	}
	return storagemgr.NewHandleForTesting(blk), nil
}

func (m *taggedManager) BlockIDsForRelation(uint32) []base.BlockID { return nil }

// Two workers racing 20,000 inserts each into a 16-partition destination:
// no crash, every partition's blocks stay single-owner, and the final
// sealed+partial tuple count matches what was inserted. A watchdog fails the
// test if insert progress ever stalls for a full second, standing in for
// scenario 6's "no tuple in the wrong partition, monotonic
// non-blocking progress" at a scale a unit test can actually run.
func TestPartitionAwareConcurrentInsertNoCrossPartitionLeak(t *testing.T) {
	const numWorkers = 2
	const tuplesPerWorker = 20000
	const numPartitions = 16
	const blockCap = 64

	schema := partitionedSchema(numPartitions, blockCap)
	scheme := schema.PartitionInfo.Scheme
	partitionAttr := schema.AttributeIndex("p")
	require.GreaterOrEqual(t, partitionAttr, 0)

	var mismatch atomic.Bool
	mgr := &taggedManager{
		blocks:        make(map[base.BlockID]*taggedBlock),
		partitionAttr: partitionAttr,
		scheme:        scheme,
		mismatch:      &mismatch,
	}

	transport := bus.NewChannelBus(256)
	clients := bus.NewClientMap()
	notifier := bus.NewNotifier(transport, clients, bus.ClientID(0), schema.RelationID, 0)

	dest, err := NewPartitionAware(schema, nil, mgr, notifier, 0)
	require.NoError(t, err)

	for w := 0; w < numWorkers; w++ {
		lane := transport.Receive(bus.ClientID(w+1), bus.ClientID(0))
		go func(lane <-chan bus.TaggedMessage) {
			for range lane {
			}
		}(lane)
	}

	var progress atomic.Int64
	stopWatchdog := make(chan struct{})
	stalled := make(chan struct{}, 1)
	go func() {
		ticker := time.NewTicker(20 * time.Millisecond)
		defer ticker.Stop()
		last := int64(-1)
		stillCount := 0
		for {
			select {
			case <-stopWatchdog:
				return
			case <-ticker.C:
				cur := progress.Load()
				if cur == last {
					stillCount++
					if stillCount > 50 {
						select {
						case stalled <- struct{}{}:
						default:
						}
						return
					}
				} else {
					stillCount = 0
				}
				last = cur
			}
		}
	}()

	g := new(errgroup.Group)
	for w := 0; w < numWorkers; w++ {
		threadID := bus.ThreadID(w + 1)
		clients.Register(threadID, bus.ClientID(w+1))

		workerIdx := w
		g.Go(func() error {
			rng := rand.New(rand.NewSource(int64(workerIdx) + 1))
			for i := 0; i < tuplesPerWorker; i++ {
				p := rng.Intn(numPartitions)
				if err := dest.InsertTuple(threadID, relation.Tuple{Values: []any{i, p}}); err != nil {
					return err
				}
				progress.Add(1)
			}
			return nil
		})
	}

	runErr := g.Wait()
	close(stopWatchdog)
	require.NoError(t, runErr)

	select {
	case <-stalled:
		t.Fatal("insert progress stalled for over a second")
	default:
	}

	assert.False(t, mismatch.Load(), "a block received tuples from more than one partition")

	sealedTuples := 0
	for _, id := range dest.GetTouchedBlocks() {
		h, err := mgr.GetBlock(id)
		require.NoError(t, err)
		sealedTuples += h.TupleCount()
	}
	partialTuples := 0
	for _, h := range dest.GetPartiallyFilledBlocks() {
		partialTuples += h.TupleCount()
	}

	assert.Equal(t, numWorkers*tuplesPerWorker, sealedTuples+partialTuples)
}

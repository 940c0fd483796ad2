package insertdest

import (
	"time"

	"github.com/cockroachdb/errors"

	"insertdest/bus"
	"insertdest/internal/base"
	"insertdest/metrics"
	"insertdest/relation"
	"insertdest/storagemgr"
)

// Destination is the base insert destination: common state
// shared by every policy, plus the tuple/batch entry points that delegate
// to the active policy's checkout/return/seal hooks. It is the single
// concrete type callers construct; the policy variant (Design Note 1) is
// selected by which New* constructor built it.
type Destination struct {
	schema        *relation.Schema
	layout        relation.Layout
	mgr           storagemgr.StorageManager
	notifier      *bus.Notifier
	operatorIndex uint32
	policy        policy
	policyName    string
	recorder      metrics.Recorder
}

// Option configures optional, non-essential behavior of a Destination,
// following pkg/options.go's functional-options pattern rather than
// reaching for a config library.
type Option interface {
	apply(*Destination)
}

type optionFunc func(*Destination)

func (f optionFunc) apply(d *Destination) { f(d) }

// WithRecorder attaches a metrics.Recorder that observes checkout latency,
// sealed-block counts, and pool depth. Destinations built without this
// option record nothing.
func WithRecorder(r metrics.Recorder) Option {
	return optionFunc(func(d *Destination) { d.recorder = r })
}

func newDestination(schema *relation.Schema, layout relation.Layout, mgr storagemgr.StorageManager, notifier *bus.Notifier, operatorIndex uint32, p policy, policyName string, opts []Option) *Destination {
	d := &Destination{
		schema:        schema,
		layout:        layout,
		mgr:           mgr,
		notifier:      notifier,
		operatorIndex: operatorIndex,
		policy:        p,
		policyName:    policyName,
		recorder:      metrics.NopRecorder{},
	}
	for _, opt := range opts {
		opt.apply(d)
	}
	return d
}

// NewAlwaysCreate constructs a destination using the always-create policy:
// every checkout is a freshly created block.
func NewAlwaysCreate(schema *relation.Schema, layout *relation.Layout, mgr storagemgr.StorageManager, notifier *bus.Notifier, operatorIndex uint32, opts ...Option) *Destination {
	l := schema.LayoutOrDefault(layout)
	return newDestination(schema, l, mgr, notifier, operatorIndex, newAlwaysCreatePolicy(), "always_create", opts)
}

// NewBlockPool constructs a destination using the block-pool policy:
// partially filled blocks are reused first-fit.
func NewBlockPool(schema *relation.Schema, layout *relation.Layout, mgr storagemgr.StorageManager, notifier *bus.Notifier, operatorIndex uint32, opts ...Option) *Destination {
	l := schema.LayoutOrDefault(layout)
	return newDestination(schema, l, mgr, notifier, operatorIndex, newPoolPolicy(), "block_pool", opts)
}

// NewPartitionAware constructs a destination using the partition-aware
// policy. schema.PartitionInfo must be non-nil.
func NewPartitionAware(schema *relation.Schema, layout *relation.Layout, mgr storagemgr.StorageManager, notifier *bus.Notifier, operatorIndex uint32, opts ...Option) (*Destination, error) {
	if schema.PartitionInfo == nil {
		return nil, base.ErrPartitionSchemeMissing
	}
	attrIdx := schema.AttributeIndex(schema.PartitionInfo.Attribute)
	if attrIdx < 0 {
		return nil, errors.Wrapf(base.ErrValidationFailure, "partitioning attribute %q not found in schema", schema.PartitionInfo.Attribute)
	}
	l := schema.LayoutOrDefault(layout)
	return newDestination(schema, l, mgr, notifier, operatorIndex, newPartitionedPolicy(attrIdx, schema.PartitionInfo.Scheme), "partition_aware", opts), nil
}

// checkout wraps policy.checkout with a checkout-latency observation, kept
// on Destination rather than inside each policy so every policy is
// instrumented identically regardless of how it implements checkout.
func (d *Destination) checkout(layout relation.Layout, t relation.Tuple) (*storagemgr.BlockHandle, error) {
	start := time.Now()
	h, err := d.policy.checkout(d.mgr, layout, t)
	d.recorder.ObserveCheckoutLatency(d.policyName, time.Since(start))
	return h, err
}

// seal wraps policy.seal with a sealed-block count increment.
func (d *Destination) seal(threadID bus.ThreadID, h *storagemgr.BlockHandle) error {
	if err := d.policy.seal(threadID, d.notifier, h); err != nil {
		return err
	}
	d.recorder.IncSealedBlocks(d.policyName)
	d.recorder.SetPoolDepth(d.policyName, d.policy.poolSize())
	return nil
}

// returnBlock wraps policy.returnBlock with a pool-depth refresh.
func (d *Destination) returnBlock(threadID bus.ThreadID, h *storagemgr.BlockHandle) error {
	if err := d.policy.returnBlock(threadID, d.notifier, h); err != nil {
		return err
	}
	d.recorder.SetPoolDepth(d.policyName, d.policy.poolSize())
	return nil
}

// AddAllBlocksFromRelation primes the destination's pool from every block
// id the storage manager already knows about for this relation.
func (d *Destination) AddAllBlocksFromRelation() {
	d.policy.addAllBlocksFromRelation(d.mgr, d.schema.RelationID)
}

// AddBlockToPool seeds a specific block id into the given partition's pool.
// Only meaningful for a partition-aware destination; it panics if called
// on any other policy, since there is no partition to address.
func (d *Destination) AddBlockToPool(blockID base.BlockID, partitionID int) {
	pp, ok := d.policy.(*partitionedPolicy)
	if !ok {
		panic("insertdest: AddBlockToPool requires a partition-aware destination")
	}
	pp.AddBlockToPool(blockID, partitionID)
}

// GetPartitioningAttribute returns the schema attribute index this
// destination partitions on, or -1 if it does not partition.
func (d *Destination) GetPartitioningAttribute() int {
	return d.policy.partitioningAttribute()
}

// InsertTuple persists t to some block of the relation, sealing blocks that
// fill. threadID identifies the calling worker for pipeline-notification
// routing.
func (d *Destination) InsertTuple(threadID bus.ThreadID, t relation.Tuple) error {
	return d.insertOne(threadID, t)
}

// InsertTupleInBatch behaves like InsertTuple but may skip per-tuple
// rebuild bookkeeping; the caller must ensure the destination is flushed
// (GetPartiallyFilledBlocks/GetTouchedBlocks called only once quiesced)
// before relying on every block having been sealed. This implementation
// defers on-block index maintenance to seal time in both paths, so
// InsertTuple and InsertTupleInBatch share one implementation; the
// distinction exists at the API boundary for callers migrating
// batch-oriented call sites off per-tuple rebuild assumptions.
func (d *Destination) InsertTupleInBatch(threadID bus.ThreadID, t relation.Tuple) error {
	return d.insertOne(threadID, t)
}

func (d *Destination) insertOne(threadID bus.ThreadID, t relation.Tuple) error {
	h, err := d.checkout(d.layout, t)
	if err != nil {
		return err
	}

	if h.InsertTuple(t) {
		return d.returnBlock(threadID, h)
	}

	// The block is full: seal it and retry exactly once against a fresh
	// block.
	if err := d.seal(threadID, h); err != nil {
		return err
	}

	// The retry goes to a newly created block, never a pooled one, so a
	// second rejection really means the tuple is oversized.
	start := time.Now()
	h2, err := d.mgr.CreateBlock(d.layout)
	d.recorder.ObserveCheckoutLatency(d.policyName, time.Since(start))
	if err != nil {
		return wrapStorageErr(err)
	}
	if pp, ok := d.policy.(*partitionedPolicy); ok {
		pp.rememberCheckedOut(h2.ID(), pp.partitionFor(t))
	}

	if h2.InsertTuple(t) {
		return d.returnBlock(threadID, h2)
	}

	// A second rejection against a freshly created block means the tuple
	// itself cannot fit anywhere: a fatal programmer error.
	// The block is still sealed so its pin isn't leaked while the fatal
	// error propagates.
	_ = d.seal(threadID, h2)
	return errors.Wrapf(base.ErrOversizedTuple, "tuple does not fit in a freshly created block")
}

// InsertTuples inserts every tuple in order, equivalent to a sequence of
// InsertTupleInBatch calls followed by an implicit flush at the end.
func (d *Destination) InsertTuples(threadID bus.ThreadID, tuples []relation.Tuple) error {
	for _, t := range tuples {
		if err := d.InsertTupleInBatch(threadID, t); err != nil {
			return err
		}
	}
	return nil
}

// BulkInsertTuples consumes every tuple in accessor: acquire a block,
// absorb as many tuples as fit, seal and loop while the accessor still has
// unread rows, and on exhaustion return the last block with full =
// alwaysMarkFull.
//
// For a partition-aware destination, tuples in accessor are not assumed to
// share a partition; this falls back to per-tuple routing, which trivially
// preserves each tuple's relative order within whatever block it lands in
// since the accessor is drained strictly in order.
func (d *Destination) BulkInsertTuples(threadID bus.ThreadID, accessor relation.ValueAccessor, alwaysMarkFull bool) error {
	if d.policy.partitioningAttribute() >= 0 {
		return d.bulkInsertPartitioned(threadID, accessor, alwaysMarkFull)
	}
	return d.bulkInsertUnpartitioned(threadID, accessor, alwaysMarkFull)
}

// BulkInsertTuplesWithRemappedAttributes projects every tuple through
// attrMap before insertion.
func (d *Destination) BulkInsertTuplesWithRemappedAttributes(threadID bus.ThreadID, attrMap []int, accessor relation.ValueAccessor, alwaysMarkFull bool) error {
	projected := relation.NewProjectingAccessor(accessor, attrMap)
	return d.BulkInsertTuples(threadID, projected, alwaysMarkFull)
}

func (d *Destination) bulkInsertUnpartitioned(threadID bus.ThreadID, accessor relation.ValueAccessor, alwaysMarkFull bool) error {
	var zero relation.Tuple
	h, err := d.checkout(d.layout, zero)
	if err != nil {
		return err
	}

	for {
		h.BulkInsertTuples(accessor)

		pos := accessor.Position()
		if accessor.Next() {
			// Still more rows: this block is full, seal it and continue
			// into a fresh one.
			accessor.RewindTo(pos)
			if err := d.seal(threadID, h); err != nil {
				return err
			}
			h, err = d.checkout(d.layout, zero)
			if err != nil {
				return err
			}
			continue
		}

		// Accessor exhausted.
		if alwaysMarkFull {
			return d.seal(threadID, h)
		}
		return d.returnBlock(threadID, h)
	}
}

// bulkInsertPartitioned implements the per-tuple routing fallback for
// partition-aware destinations. always_mark_full applies per-partition:
// the current block of every partition touched by this call is sealed at
// the end when alwaysMarkFull is set.
//
// This path calls pp.checkoutForPartition/returnBlock/sealForPartition
// directly rather than through d.checkout/d.returnBlock/d.seal, so per-tuple
// routed inserts are not reflected in the checkout-latency, sealed-block and
// pool-depth metrics; the per-tuple
// volume here would dominate the histogram with routing overhead rather
// than genuine checkout cost.
func (d *Destination) bulkInsertPartitioned(threadID bus.ThreadID, accessor relation.ValueAccessor, alwaysMarkFull bool) error {
	pp := d.policy.(*partitionedPolicy)

	touchedPartitions := make(map[int]base.BlockID)

	for accessor.Next() {
		t := accessor.Current()
		part := pp.partitionFor(t)

		h, err := pp.checkoutForPartition(d.mgr, d.layout, part)
		if err != nil {
			return err
		}

		if h.InsertTuple(t) {
			touchedPartitions[part] = h.ID()
			if err := pp.returnBlock(threadID, d.notifier, h); err != nil {
				return err
			}
			continue
		}

		if err := pp.sealForPartition(threadID, d.notifier, part, h); err != nil {
			return err
		}
		h2, err := d.mgr.CreateBlock(d.layout)
		if err != nil {
			return wrapStorageErr(err)
		}
		pp.rememberCheckedOut(h2.ID(), part)
		if !h2.InsertTuple(t) {
			_ = pp.sealForPartition(threadID, d.notifier, part, h2)
			return errors.Wrapf(base.ErrOversizedTuple, "tuple does not fit in a freshly created block")
		}
		touchedPartitions[part] = h2.ID()
		if err := pp.returnBlock(threadID, d.notifier, h2); err != nil {
			return err
		}
	}

	if !alwaysMarkFull {
		return nil
	}
	for _, blockID := range touchedPartitions {
		if _, err := pp.sealIfStillAvailable(threadID, d.notifier, blockID); err != nil {
			return err
		}
	}
	return nil
}

// GetTouchedBlocks returns the full list of sealed block ids for this
// destination. Valid only once the destination is quiesced.
func (d *Destination) GetTouchedBlocks() []base.BlockID {
	return d.policy.touched()
}

// GetPartiallyFilledBlocks transfers ownership of every unsealed available
// block to the caller, emptying the destination's pool. A second call
// returns nil.
func (d *Destination) GetPartiallyFilledBlocks() []*storagemgr.BlockHandle {
	return d.policy.partiallyFilled()
}

// forSortCollaborator returns a narrow InternalBuilder handle for the
// sort/merge-run collaborator. It is unexported; outside this package the
// only way to obtain one is the exported ForSortCollaborator wrapper, so the
// friend-like grant is visible at each call site without exporting the
// destination's internals broadly.
func (d *Destination) forSortCollaborator() InternalBuilder {
	return internalBuilder{d: d}
}

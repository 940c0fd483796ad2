package insertdest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insertdest/bus"
	"insertdest/internal/base"
	"insertdest/relation"
	"insertdest/storagemgr"
)

func newTestDestination(t *testing.T, schema *relation.Schema) (*Destination, *storagemgr.MemManager, *bus.ChannelBus) {
	t.Helper()
	mgr := storagemgr.NewMemManager(schema.RelationID)
	transport := bus.NewChannelBus(256)
	clients := bus.NewClientMap()
	clients.Register(bus.ThreadID(1), bus.ClientID(1))
	notifier := bus.NewNotifier(transport, clients, bus.ClientID(0), schema.RelationID, 0)
	return NewAlwaysCreate(schema, nil, mgr, notifier, 0), mgr, transport
}

func simpleSchema() *relation.Schema {
	return &relation.Schema{
		RelationID:    1,
		Name:          "R",
		Attributes:    []relation.Attribute{{Name: "a", Type: relation.AttributeTypeInt}},
		DefaultLayout: relation.Layout{Name: "default", MaxTuples: 400},
	}
}

// Three batches of one tuple each against always-create: three sealed
// blocks, three distinct notifications, zero partials.
func TestAlwaysCreateThreeSingleTupleBatches(t *testing.T) {
	schema := simpleSchema()
	dest, _, transport := newTestDestination(t, schema)

	for i := 0; i < 3; i++ {
		require.NoError(t, dest.InsertTupleInBatch(bus.ThreadID(1), relation.Tuple{Values: []any{i}}))
	}

	touched := dest.GetTouchedBlocks()
	assert.Len(t, touched, 3)
	assert.Empty(t, dest.GetPartiallyFilledBlocks())

	seen := map[uint64]bool{}
	for i := 0; i < 3; i++ {
		msg := <-transport.Receive(bus.ClientID(1), bus.ClientID(0))
		seen[uint64(msg.Payload.BlockID)] = true
	}
	assert.Len(t, seen, 3)
}

// rejectingBlock rejects every insert, modeling a tuple that does not fit
// even in a freshly created, empty block.
type rejectingBlock struct {
	id base.BlockID
}

func (b rejectingBlock) ID() base.BlockID                            { return b.id }
func (b rejectingBlock) InsertTuple(relation.Tuple) bool             { return false }
func (b rejectingBlock) BulkInsertTuples(relation.ValueAccessor) int { return 0 }
func (b rejectingBlock) Rebuild()                                    {}
func (b rejectingBlock) TupleCount() int                             { return 0 }

// alwaysFullManager hands out blocks that reject every insert.
type alwaysFullManager struct {
	counter base.AtomicBlockCounter
}

func (m *alwaysFullManager) CreateBlock(relation.Layout) (*storagemgr.BlockHandle, error) {
	return storagemgr.NewHandleForTesting(rejectingBlock{id: m.counter.Next()}), nil
}

func (m *alwaysFullManager) GetBlock(base.BlockID) (*storagemgr.BlockHandle, error) {
	return nil, base.ErrStorageUnavailable
}

func (m *alwaysFullManager) BlockIDsForRelation(uint32) []base.BlockID { return nil }

func TestAlwaysCreateOversizedTupleIsFatal(t *testing.T) {
	schema := simpleSchema()
	transport := bus.NewChannelBus(16)
	clients := bus.NewClientMap()
	clients.Register(bus.ThreadID(1), bus.ClientID(1))
	notifier := bus.NewNotifier(transport, clients, bus.ClientID(0), schema.RelationID, 0)

	dest := NewAlwaysCreate(schema, nil, &alwaysFullManager{}, notifier, 0)

	err := dest.InsertTuple(bus.ThreadID(1), relation.Tuple{Values: []any{1}})
	assert.Error(t, err)
}

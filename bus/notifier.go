package bus

import (
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"insertdest/internal/base"
)

// Notifier builds and sends the three-field pipeline message announcing a
// sealed block. It resolves the sending worker's bus client
// id through the process-wide ClientMap because the seal call site lives
// deep inside the storage stack.
//
// Grounded on pkg/memtable/memtable.go's Flush handoff: a single-purpose
// "announce completion downstream" callback, generalized here from an
// in-process channel handoff to a typed bus message.
type Notifier struct {
	bus           MessageBus
	clients       *ClientMap
	foremanClient ClientID
	relationID    uint32
	operatorIndex uint32
}

// NewNotifier constructs a Notifier bound to one relational operator's
// output. foremanClient is resolved once at construction (it does not
// change for the lifetime of a query).
func NewNotifier(b MessageBus, clients *ClientMap, foremanClient ClientID, relationID, operatorIndex uint32) *Notifier {
	return &Notifier{
		bus:           b,
		clients:       clients,
		foremanClient: foremanClient,
		relationID:    relationID,
		operatorIndex: operatorIndex,
	}
}

// NotifySeal sends one pipeline notification for blockID, sent from
// threadID's registered bus client. A send failure is retried once before
// surfacing ErrBusSendFailure; the caller (the seal protocol in insertdest)
// treats that as fatal.
func (n *Notifier) NotifySeal(threadID ThreadID, blockID base.BlockID) error {
	senderClient, ok := n.clients.Lookup(threadID)
	if !ok {
		return errors.Wrapf(base.ErrBusSendFailure, "thread %d never registered a bus client id", threadID)
	}

	msg := TaggedMessage{
		Type:          MessageTypeDataPipeline,
		CorrelationID: uuid.New(),
		Payload: PipelineMessage{
			OperatorIndex: n.operatorIndex,
			RelationID:    n.relationID,
			BlockID:       blockID,
		},
	}

	err := n.bus.Send(senderClient, n.foremanClient, msg)
	if err == nil {
		return nil
	}

	// One retry before giving up.
	if err := n.bus.Send(senderClient, n.foremanClient, msg); err != nil {
		return errors.Wrapf(base.ErrBusSendFailure, "notifying foreman of sealed block %d: %v", blockID, err)
	}
	return nil
}

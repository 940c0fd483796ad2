package bus

import (
	"sync"

	"github.com/google/uuid"
)

// TaggedMessage is one envelope on the bus: a typed payload plus the
// correlation id used for log-joining. The correlation id is bus-envelope
// metadata, not part of the wire contract.
type TaggedMessage struct {
	Type          string
	CorrelationID uuid.UUID
	Payload       PipelineMessage
}

// MessageBus is the reliable typed-message transport an insert destination
// sends pipeline notifications over. The bus is an external collaborator;
// this interface exposes only the single operation the insert-destination
// family calls.
type MessageBus interface {
	// Send delivers msg from sender to receiver. Send is fire-and-forget:
	// it does not block on the receiver processing the message, only on
	// handing it to the transport. Messages from a single sender to a
	// single receiver are delivered in the order they were sent.
	Send(sender, receiver ClientID, msg TaggedMessage) error
}

// ChannelBus is a reliable in-process MessageBus: each (sender, receiver)
// pair gets its own ordered, buffered channel so that a full lane never
// blocks senders on other lanes; finding a lane briefly takes one shared
// mutex. No global ordering is promised, only per-sender-receiver order.
type ChannelBus struct {
	mu    sync.Mutex
	lanes map[laneKey]chan TaggedMessage
	depth int
}

type laneKey struct {
	sender   ClientID
	receiver ClientID
}

// NewChannelBus constructs a bus whose per-lane channels buffer up to
// depth messages before Send blocks.
func NewChannelBus(depth int) *ChannelBus {
	if depth <= 0 {
		depth = 64
	}
	return &ChannelBus{lanes: make(map[laneKey]chan TaggedMessage), depth: depth}
}

// Send implements MessageBus.
func (b *ChannelBus) Send(sender, receiver ClientID, msg TaggedMessage) error {
	lane := b.laneFor(sender, receiver)
	lane <- msg
	return nil
}

// Receive returns the channel for a given (sender, receiver) lane so a test
// foreman stand-in can drain it. Receiving from a lane that no sender has
// used yet creates that lane, so messages sent on it later arrive on the
// returned channel.
func (b *ChannelBus) Receive(sender, receiver ClientID) <-chan TaggedMessage {
	return b.laneFor(sender, receiver)
}

func (b *ChannelBus) laneFor(sender, receiver ClientID) chan TaggedMessage {
	key := laneKey{sender: sender, receiver: receiver}

	b.mu.Lock()
	defer b.mu.Unlock()

	lane, ok := b.lanes[key]
	if !ok {
		lane = make(chan TaggedMessage, b.depth)
		b.lanes[key] = lane
	}
	return lane
}

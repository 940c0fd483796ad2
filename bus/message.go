// Package bus implements the pipeline-notification contract: the typed
// message an insert destination sends to the foreman when a block seals,
// the process-wide thread-id to bus-client-id map, and a reliable
// in-process message transport.
package bus

import "insertdest/internal/base"

// ClientID identifies one endpoint on the message bus: a worker thread or
// the foreman.
type ClientID uint32

// MessageTypeDataPipeline is the globally reserved message-type code for a
// pipeline notification.
const MessageTypeDataPipeline = "data-pipeline"

// PipelineMessage announces that block_id of relation_id, produced by the
// operator at operator_index, has just been sealed. Wire layout is exactly
// these three little-endian fields; nothing else is part of the wire
// contract.
type PipelineMessage struct {
	OperatorIndex uint32
	RelationID    uint32
	BlockID       base.BlockID
}

package bus

import (
	"encoding/binary"

	"insertdest/internal/base"
)

// WireSize is the fixed encoded size of a PipelineMessage: two uint32
// fields plus one uint64 field, all little-endian.
const WireSize = 4 + 4 + 8

// Encode serializes m to its wire representation.
func (m PipelineMessage) Encode() []byte {
	buf := make([]byte, WireSize)
	binary.LittleEndian.PutUint32(buf[0:4], m.OperatorIndex)
	binary.LittleEndian.PutUint32(buf[4:8], m.RelationID)
	binary.LittleEndian.PutUint64(buf[8:16], uint64(m.BlockID))
	return buf
}

// DecodePipelineMessage parses the wire representation produced by Encode.
func DecodePipelineMessage(buf []byte) (PipelineMessage, bool) {
	if len(buf) != WireSize {
		return PipelineMessage{}, false
	}
	return PipelineMessage{
		OperatorIndex: binary.LittleEndian.Uint32(buf[0:4]),
		RelationID:    binary.LittleEndian.Uint32(buf[4:8]),
		BlockID:       base.BlockID(binary.LittleEndian.Uint64(buf[8:16])),
	}, true
}

package relation

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// PartitionInfo describes a relation's partitioning: which attribute drives
// it, how many partitions exist, and the total function from an attribute
// value to a partition id.
type PartitionInfo struct {
	Attribute string
	Count     int
	Scheme    PartitionScheme
}

// PartitionScheme is the total function tuple -> partition_id, keyed off a
// single attribute's value. Implementations must be safe for concurrent use
// by many worker goroutines.
type PartitionScheme interface {
	// PartitionFor maps an attribute value's canonical byte encoding to a
	// partition id in [0, NumPartitions).
	PartitionFor(value []byte) int
	// NumPartitions returns the fixed partition count for this scheme.
	NumPartitions() int
}

// HashPartitionScheme is the default PartitionScheme: xxhash of the
// attribute's bytes, reduced modulo the partition count. Grounded on
// cockroachdb-pebble's use of xxhash to bucket sstable block contents.
type HashPartitionScheme struct {
	numPartitions int
}

// NewHashPartitionScheme constructs a scheme with the given number of
// partitions. A non-positive numPartitions is treated as 1.
func NewHashPartitionScheme(numPartitions int) *HashPartitionScheme {
	if numPartitions <= 0 {
		numPartitions = 1
	}
	return &HashPartitionScheme{numPartitions: numPartitions}
}

// PartitionFor implements PartitionScheme.
func (h *HashPartitionScheme) PartitionFor(value []byte) int {
	sum := xxhash.Sum64(value)
	return int(sum % uint64(h.numPartitions))
}

// NumPartitions implements PartitionScheme.
func (h *HashPartitionScheme) NumPartitions() int {
	return h.numPartitions
}

// EncodeInt64 is a small helper for callers building attribute-value byte
// slices to feed to PartitionFor, matching the common case of an integer
// partitioning attribute.
func EncodeInt64(v int64) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(v))
	return buf[:]
}

// AttributeBytes canonicalizes a tuple attribute value into the byte
// representation PartitionScheme.PartitionFor expects. It supports the
// scalar attribute types listed in AttributeType; any other dynamic type
// falls back to fmt.Sprint, which is stable but not compact.
func AttributeBytes(v any) []byte {
	switch t := v.(type) {
	case []byte:
		return t
	case string:
		return []byte(t)
	case int:
		return EncodeInt64(int64(t))
	case int32:
		return EncodeInt64(int64(t))
	case int64:
		return EncodeInt64(t)
	case uint64:
		return EncodeInt64(int64(t))
	case bool:
		if t {
			return []byte{1}
		}
		return []byte{0}
	default:
		return []byte(fmt.Sprint(t))
	}
}

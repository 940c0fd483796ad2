package relation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashPartitionSchemeStable(t *testing.T) {
	scheme := NewHashPartitionScheme(8)

	value := AttributeBytes(int64(42))
	first := scheme.PartitionFor(value)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, scheme.PartitionFor(value))
	}
	assert.GreaterOrEqual(t, first, 0)
	assert.Less(t, first, 8)
}

func TestHashPartitionSchemeSpread(t *testing.T) {
	scheme := NewHashPartitionScheme(4)
	seen := make(map[int]bool)
	for i := int64(0); i < 1000; i++ {
		seen[scheme.PartitionFor(AttributeBytes(i))] = true
	}
	assert.Len(t, seen, 4)
}

func TestHashPartitionSchemeDegenerate(t *testing.T) {
	scheme := NewHashPartitionScheme(0)
	assert.Equal(t, 1, scheme.NumPartitions())
	assert.Equal(t, 0, scheme.PartitionFor(AttributeBytes("anything")))
}

func TestAttributeBytes(t *testing.T) {
	assert.Equal(t, []byte("hello"), AttributeBytes("hello"))
	assert.Equal(t, EncodeInt64(7), AttributeBytes(int64(7)))
	assert.Equal(t, EncodeInt64(7), AttributeBytes(int(7)))
	assert.Equal(t, []byte{1}, AttributeBytes(true))
	assert.Equal(t, []byte{0}, AttributeBytes(false))
}

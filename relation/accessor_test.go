package relation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSliceAccessorIteration(t *testing.T) {
	tuples := []Tuple{
		{Values: []any{1}},
		{Values: []any{2}},
		{Values: []any{3}},
	}
	acc := NewSliceAccessor(tuples)

	var got []any
	for acc.Next() {
		got = append(got, acc.Current().Values[0])
	}
	assert.Equal(t, []any{1, 2, 3}, got)
	assert.False(t, acc.Next())
}

func TestSliceAccessorRewind(t *testing.T) {
	acc := NewSliceAccessor([]Tuple{{Values: []any{1}}, {Values: []any{2}}})

	require.True(t, acc.Next())
	pos := acc.Position()
	require.True(t, acc.Next())
	assert.Equal(t, 2, acc.Current().Values[0])

	acc.RewindTo(pos)
	require.True(t, acc.Next())
	assert.Equal(t, 2, acc.Current().Values[0])
}

func TestProjectingAccessor(t *testing.T) {
	tuples := []Tuple{{Values: []any{"a", "b", "c"}}}
	acc := NewProjectingAccessor(NewSliceAccessor(tuples), []int{2, 0})

	require.True(t, acc.Next())
	assert.Equal(t, []any{"c", "a"}, acc.Current().Values)
}

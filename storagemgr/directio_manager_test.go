package storagemgr

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ncw/directio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insertdest/internal/base"
	"insertdest/relation"
)

func TestDirectIOManagerCreateBlockStampsAlignedFile(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewDirectIOManager(dir, 1)
	require.NoError(t, err)

	h, err := mgr.CreateBlock(relation.Layout{Name: "default", MaxTuples: 4})
	require.NoError(t, err)

	matches, err := filepath.Glob(filepath.Join(dir, "block-*.bin"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	info, err := os.Stat(matches[0])
	require.NoError(t, err)
	assert.EqualValues(t, directio.BlockSize, info.Size())

	h.Release()
	require.NoError(t, mgr.Close())
}

func TestDirectIOManagerRebuildMarksFileFinalized(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewDirectIOManager(dir, 1)
	require.NoError(t, err)

	h, err := mgr.CreateBlock(relation.Layout{Name: "default", MaxTuples: 4})
	require.NoError(t, err)
	require.True(t, h.InsertTuple(relation.Tuple{Values: []any{1}}))

	h.Rebuild()

	matches, err := filepath.Glob(filepath.Join(dir, "block-*.bin"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	contents, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	require.NotEmpty(t, contents)
	assert.EqualValues(t, 1, contents[0])

	h.Release()
	require.NoError(t, mgr.Close())
}

func TestDirectIOManagerGetBlockReusesBackingFile(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewDirectIOManager(dir, 1)
	require.NoError(t, err)

	h, err := mgr.CreateBlock(relation.Layout{Name: "default", MaxTuples: 4})
	require.NoError(t, err)
	id := h.ID()
	h.Release()

	h2, err := mgr.GetBlock(id)
	require.NoError(t, err)
	assert.Equal(t, id, h2.ID())
	assert.Equal(t, 0, h2.TupleCount())

	ids := mgr.BlockIDsForRelation(1)
	assert.Equal(t, []base.BlockID{id}, ids)

	h2.Release()
	require.NoError(t, mgr.Close())
}

//go:build cgo

package archive

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/codegraph/internal/graph"
)

func TestKuzuArchive_SaveLoadRoundTrip(t *testing.T) {
	a, err := NewKuzuArchive()
	require.NoError(t, err)
	defer a.Close()

	ctx := context.Background()
	snap := testSnapshot()
	require.NoError(t, a.Save(ctx, snap))

	loaded, err := a.Load(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, snap.Nodes, loaded.Nodes)
	assert.ElementsMatch(t, snap.Edges, loaded.Edges)
}

func TestKuzuArchive_SaveReplacesPrevious(t *testing.T) {
	a, err := NewKuzuArchive()
	require.NoError(t, err)
	defer a.Close()

	ctx := context.Background()
	snap := testSnapshot()
	require.NoError(t, a.Save(ctx, snap))

	smaller := &graph.Snapshot{Nodes: snap.Nodes[:1]}
	require.NoError(t, a.Save(ctx, smaller))

	loaded, err := a.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, loaded.Nodes, 1)
	assert.Empty(t, loaded.Edges)
}

func TestKuzuArchive_RestoreIntoStore(t *testing.T) {
	a, err := NewKuzuArchive()
	require.NoError(t, err)
	defer a.Close()

	ctx := context.Background()
	require.NoError(t, a.Save(ctx, testSnapshot()))
	loaded, err := a.Load(ctx)
	require.NoError(t, err)

	store := graph.NewMemStore()
	defer store.Close()
	require.NoError(t, Restore(ctx, "repo", loaded, store))

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Nodes)
	assert.Equal(t, 2, stats.Edges)
}

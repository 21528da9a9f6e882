package gallery

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryAddAndListNewestFirst(t *testing.T) {
	ctx := context.Background()
	g := NewMemory()

	first, err := g.Add(ctx, "alice", Item{ImageURL: "http://x/1.png", Prompt: "a fox", Type: "text-to-image"})
	require.NoError(t, err)
	second, err := g.Add(ctx, "alice", Item{ImageURL: "http://x/2.png", Prompt: "a wolf", Type: "inpainting"})
	require.NoError(t, err)

	assert.NotEmpty(t, first.ID)
	assert.False(t, first.Timestamp.IsZero())
	assert.NotEqual(t, first.ID, second.ID)

	items, err := g.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, second.ID, items[0].ID, "most recent item comes first")
	assert.Equal(t, first.ID, items[1].ID)
}

func TestMemoryOwnersAreIsolated(t *testing.T) {
	ctx := context.Background()
	g := NewMemory()

	_, err := g.Add(ctx, "alice", Item{ImageURL: "http://x/1.png"})
	require.NoError(t, err)

	items, err := g.List(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestMemoryRemove(t *testing.T) {
	ctx := context.Background()
	g := NewMemory()

	kept, err := g.Add(ctx, "alice", Item{ImageURL: "http://x/1.png"})
	require.NoError(t, err)
	doomed, err := g.Add(ctx, "alice", Item{ImageURL: "http://x/2.png"})
	require.NoError(t, err)

	require.NoError(t, g.Remove(ctx, "alice", doomed.ID))

	items, err := g.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, kept.ID, items[0].ID)

	assert.ErrorIs(t, g.Remove(ctx, "alice", doomed.ID), ErrNotFound)
	assert.ErrorIs(t, g.Remove(ctx, "bob", kept.ID), ErrNotFound)
}

func TestMemoryClear(t *testing.T) {
	ctx := context.Background()
	g := NewMemory()

	_, err := g.Add(ctx, "alice", Item{ImageURL: "http://x/1.png"})
	require.NoError(t, err)
	_, err = g.Add(ctx, "bob", Item{ImageURL: "http://x/2.png"})
	require.NoError(t, err)

	require.NoError(t, g.Clear(ctx, "alice"))

	items, err := g.List(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, items)

	others, err := g.List(ctx, "bob")
	require.NoError(t, err)
	assert.Len(t, others, 1, "clearing one owner leaves the others alone")
}

func TestTypeLabel(t *testing.T) {
	assert.Equal(t, "Text To Image", TypeLabel("text-to-image"))
	assert.Equal(t, "Inpainting", TypeLabel("inpainting"))
	assert.Equal(t, "", TypeLabel(""))
}

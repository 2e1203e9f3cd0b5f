package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/balllder/holiday-wheel/internal/store"
	"github.com/balllder/holiday-wheel/internal/store/storetest"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "data", "puzzles.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return openTemp(t) })
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "puzzles.db")

	st, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, st.SeedDefaults(ctx))
	pz, err := st.NextUnused(ctx, "main", nil)
	require.NoError(t, err)
	require.NoError(t, st.MarkUsed(ctx, "main", pz.ID))
	require.NoError(t, st.MarkUsed(ctx, "main", pz.ID))
	require.NoError(t, st.Close())

	st, err = Open(path)
	require.NoError(t, err)
	defer st.Close()

	require.NoError(t, st.SeedDefaults(ctx))
	counts, err := st.Counts(ctx, "main", nil)
	require.NoError(t, err)
	assert.Equal(t, len(store.DefaultPuzzles), counts.Total)
	assert.Equal(t, 1, counts.Used)
}

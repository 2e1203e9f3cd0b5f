// Package storetest holds the behaviour every store.Store backend must share.
package storetest

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/balllder/holiday-wheel/internal"
	"github.com/balllder/holiday-wheel/internal/store"
)

// Run exercises a backend. newStore must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Run("SeedAndDraw", func(t *testing.T) { testSeedAndDraw(t, newStore(t)) })
	t.Run("PackFilter", func(t *testing.T) { testPackFilter(t, newStore(t)) })
	t.Run("RoomConfig", func(t *testing.T) { testRoomConfig(t, newStore(t)) })
	t.Run("Users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("Rooms", func(t *testing.T) { testRooms(t, newStore(t)) })
	t.Run("Import", func(t *testing.T) { testImport(t, newStore(t)) })
}

func testSeedAndDraw(t *testing.T, st store.Store) {
	ctx := context.Background()
	require.NoError(t, st.SeedDefaults(ctx))
	require.NoError(t, st.SeedDefaults(ctx))

	counts, err := st.Counts(ctx, "main", nil)
	require.NoError(t, err)
	assert.Equal(t, internal.PuzzleCounts{Total: len(store.DefaultPuzzles), Used: 0, Unused: len(store.DefaultPuzzles)}, counts)

	seen := map[int64]bool{}
	for range store.DefaultPuzzles {
		pz, err := st.NextUnused(ctx, "main", nil)
		require.NoError(t, err)
		assert.False(t, seen[pz.ID], "puzzle %d drawn twice", pz.ID)
		assert.Equal(t, strings.ToUpper(pz.Answer), pz.Answer)
		seen[pz.ID] = true
		require.NoError(t, st.MarkUsed(ctx, "main", pz.ID))
	}

	_, err = st.NextUnused(ctx, "main", nil)
	assert.True(t, errors.Is(err, store.ErrNoPuzzles))

	// used marks are per room
	_, err = st.NextUnused(ctx, "other", nil)
	assert.NoError(t, err)

	require.NoError(t, st.ClearUsed(ctx, "main"))
	counts, err = st.Counts(ctx, "main", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, counts.Used)
}

func testPackFilter(t *testing.T, st store.Store) {
	ctx := context.Background()
	_, err := st.AddPuzzles(ctx, nil, []store.PuzzleLine{{Category: "Thing", Answer: "sled"}})
	require.NoError(t, err)

	packID, err := st.EnsurePack(ctx, "Winter")
	require.NoError(t, err)
	again, err := st.EnsurePack(ctx, "Winter")
	require.NoError(t, err)
	assert.Equal(t, packID, again)

	n, err := st.AddPuzzles(ctx, &packID, []store.PuzzleLine{
		{Category: "Place", Answer: "north pole"},
		{Category: "Thing", Answer: "snow globe"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	name, err := st.PackName(ctx, packID)
	require.NoError(t, err)
	assert.Equal(t, "Winter", name)
	_, err = st.PackName(ctx, packID+100)
	assert.True(t, errors.Is(err, store.ErrNotFound))

	packs, err := st.ListPacks(ctx)
	require.NoError(t, err)
	require.Len(t, packs, 1)
	assert.Equal(t, internal.Pack{ID: packID, Name: "Winter", PuzzleCount: 2}, packs[0])

	for i := 0; i < 2; i++ {
		pz, err := st.NextUnused(ctx, "main", &packID)
		require.NoError(t, err)
		assert.Contains(t, []string{"NORTH POLE", "SNOW GLOBE"}, pz.Answer)
		require.NoError(t, st.MarkUsed(ctx, "main", pz.ID))
	}
	_, err = st.NextUnused(ctx, "main", &packID)
	assert.True(t, errors.Is(err, store.ErrNoPuzzles))

	counts, err := st.Counts(ctx, "main", &packID)
	require.NoError(t, err)
	assert.Equal(t, internal.PuzzleCounts{Total: 2, Used: 2, Unused: 0}, counts)

	pz, err := st.NextUnused(ctx, "main", nil)
	require.NoError(t, err)
	assert.Equal(t, "SLED", pz.Answer)
}

func testRoomConfig(t *testing.T, st store.Store) {
	ctx := context.Background()
	cfg, err := st.RoomConfig(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, internal.DefaultVowelCost, cfg.VowelCost)
	assert.Equal(t, internal.DefaultFinalSeconds, cfg.FinalSeconds)
	assert.Equal(t, internal.DefaultFinalJackpot, cfg.FinalJackpot)
	assert.Equal(t, internal.DefaultPrizeReplaceCash, cfg.PrizeReplaceCashValues)
	assert.Nil(t, cfg.ActivePackID)

	cfg.VowelCost = 300
	cfg.FinalSeconds = 45
	cfg.FinalJackpot = 25000
	cfg.PrizeReplaceCashValues = []int{100, 200}
	require.NoError(t, st.SaveRoomConfig(ctx, "main", cfg))

	packID, err := st.EnsurePack(ctx, "Songs")
	require.NoError(t, err)
	require.NoError(t, st.SetActivePack(ctx, "main", &packID))

	got, err := st.RoomConfig(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, 300, got.VowelCost)
	assert.Equal(t, 45, got.FinalSeconds)
	assert.Equal(t, 25000, got.FinalJackpot)
	assert.Equal(t, []int{100, 200}, got.PrizeReplaceCashValues)
	require.NotNil(t, got.ActivePackID)
	assert.Equal(t, packID, *got.ActivePackID)
	assert.NotZero(t, got.UpdatedAt)

	require.NoError(t, st.SetActivePack(ctx, "main", nil))
	got, err = st.RoomConfig(ctx, "main")
	require.NoError(t, err)
	assert.Nil(t, got.ActivePackID)

	other, err := st.RoomConfig(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, internal.DefaultVowelCost, other.VowelCost)
}

func testUsers(t *testing.T, st store.Store) {
	ctx := context.Background()
	u, err := st.CreateUser(ctx, " Elf@North.Pole ", "hash", "Buddy")
	require.NoError(t, err)
	assert.NotZero(t, u.ID)
	assert.Equal(t, "elf@north.pole", u.Email)

	_, err = st.CreateUser(ctx, "elf@north.pole", "hash2", "Other")
	assert.True(t, errors.Is(err, store.ErrEmailTaken))

	byEmail, err := st.UserByEmail(ctx, "ELF@north.pole")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)
	assert.Equal(t, "hash", byEmail.PasswordHash)

	byID, err := st.UserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Buddy", byID.DisplayName)

	require.NoError(t, st.TouchLogin(ctx, u.ID))

	_, err = st.UserByID(ctx, u.ID+1000)
	assert.True(t, errors.Is(err, store.ErrNotFound))
	_, err = st.UserByEmail(ctx, "nobody@north.pole")
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func testRooms(t *testing.T, st store.Store) {
	ctx := context.Background()
	require.NoError(t, st.TouchRoom(ctx, "main", 0))
	require.NoError(t, st.TouchRoom(ctx, "party", 7))
	require.NoError(t, st.TouchRoom(ctx, "party", 0))

	rooms, err := st.ActiveRooms(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, rooms, 2)

	names := []string{rooms[0].Name, rooms[1].Name}
	assert.ElementsMatch(t, []string{"main", "party"}, names)
	for _, ra := range rooms {
		if ra.Name == "party" {
			require.NotNil(t, ra.CreatedBy)
			assert.Equal(t, int64(7), *ra.CreatedBy)
		}
	}

	rooms, err = st.ActiveRooms(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, rooms)
}

func testImport(t *testing.T, st store.Store) {
	ctx := context.Background()
	doc := `{"packs":[
		{"name":"Carols","puzzles":[{"category":"Song","answer":"Silent Night"},{"category":"","answer":"skip"},{"answer":"no category"}]},
		{"name":"","puzzles":[{"category":"Thing","answer":"nameless"}]},
		{"name":"Empty","puzzles":[]},
		{"name":"Food","puzzles":[{"category":"Food","answer":"eggnog"}]}
	]}`
	res, err := store.ImportPacks(ctx, st, strings.NewReader(doc))
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, 2, res.TotalAdded)
	assert.Equal(t, []store.ImportedPack{{Name: "Carols", Added: 1}, {Name: "Food", Added: 1}}, res.Packs)

	packs, err := st.ListPacks(ctx)
	require.NoError(t, err)
	require.Len(t, packs, 2)
	assert.Equal(t, "Carols", packs[0].Name)
	assert.Equal(t, "Food", packs[1].Name)
}

package internal

import (
	"encoding/json"
	"math/rand"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRoom(names ...string) *Room {
	r := NewRoom("test", rand.New(rand.NewSource(3)), time.Now)
	for i, n := range names {
		r.Players = append(r.Players, NewPlayer(i, n))
	}
	r.SetPuzzle(Puzzle{ID: 1, Category: "Phrase", Answer: "hello world"})
	return r
}

func TestSetPuzzleResetsRound(t *testing.T) {
	r := newTestRoom("a", "b")
	r.Players[0].RoundBank = 800
	r.Revealed.Add('H')
	r.Used.Add('Q')
	idx := 4
	r.LastSpinIndex = &idx

	r.SetPuzzle(Puzzle{ID: 2, Category: "Thing", Answer: "snow globe"})

	assert.Equal(t, "SNOW GLOBE", r.Puzzle.Answer)
	assert.Empty(t, r.Revealed)
	assert.Empty(t, r.Used)
	assert.Equal(t, 0, r.Players[0].RoundBank)
	assert.Nil(t, r.LastSpinIndex)
}

func TestClearTurnStateKeepsLastSpin(t *testing.T) {
	r := newTestRoom("a")
	idx := 7
	w := Cash(500)
	r.WheelIndex, r.LastSpinIndex, r.CurrentWedge = &idx, &idx, &w

	r.ClearTurnState()

	assert.Nil(t, r.WheelIndex)
	assert.Nil(t, r.CurrentWedge)
	require.NotNil(t, r.LastSpinIndex)
	assert.Equal(t, 7, *r.LastSpinIndex)
}

func TestAdvancePlayerWraps(t *testing.T) {
	r := newTestRoom("a", "b", "c")
	for _, want := range []int{1, 2, 0} {
		r.AdvancePlayer()
		assert.Equal(t, want, r.ActiveIdx)
	}

	empty := newTestRoom()
	empty.AdvancePlayer()
	assert.Equal(t, 0, empty.ActiveIdx)
}

func TestRemovePlayerAdjustsActive(t *testing.T) {
	r := newTestRoom("a", "b", "c")
	r.ActiveIdx = 2
	r.RemovePlayer(2)
	assert.Equal(t, 0, r.ActiveIdx)
	assert.Len(t, r.Players, 2)

	r = newTestRoom("a", "b", "c")
	r.ActiveIdx = 1
	r.RemovePlayer(2)
	assert.Equal(t, 1, r.ActiveIdx)
	assert.Nil(t, r.RemovePlayer(5))
}

func TestRemoveEarlierPlayerKeepsTurn(t *testing.T) {
	r := newTestRoom("a", "b", "c")
	idx := 3
	w := Cash(900)
	r.ActiveIdx = 2
	r.WheelIndex, r.CurrentWedge = &idx, &w

	removed := r.RemovePlayer(0)

	require.NotNil(t, removed)
	assert.Equal(t, "a", removed.Name)
	assert.Equal(t, 1, r.ActiveIdx)
	assert.Equal(t, "c", r.Players[r.ActiveIdx].Name)
	assert.Equal(t, []int{0, 1}, []int{r.Players[0].Id, r.Players[1].Id})
	require.NotNil(t, r.CurrentWedge)
	assert.Equal(t, 900, r.CurrentWedge.Amount)
}

func TestRemoveActivePlayerClearsSpin(t *testing.T) {
	r := newTestRoom("a", "b", "c")
	idx := 3
	w := Cash(900)
	r.ActiveIdx = 1
	r.WheelIndex, r.LastSpinIndex, r.CurrentWedge = &idx, &idx, &w

	r.RemovePlayer(1)

	assert.Equal(t, 1, r.ActiveIdx)
	assert.Equal(t, "c", r.Players[r.ActiveIdx].Name)
	assert.Nil(t, r.CurrentWedge)
	assert.Nil(t, r.WheelIndex)
	assert.NotNil(t, r.LastSpinIndex)
}

func TestRemovePlayerRemapsTiebreakerSlots(t *testing.T) {
	r := newTestRoom("a", "b", "c", "d")
	r.Tossup.AllowedPlayerIdxs = []int{1, 3}

	r.RemovePlayer(0)
	assert.Equal(t, []int{0, 2}, r.Tossup.AllowedPlayerIdxs)

	r.RemovePlayer(0)
	assert.Equal(t, []int{1}, r.Tossup.AllowedPlayerIdxs)

	r = newTestRoom("a", "b")
	r.RemovePlayer(0)
	assert.Nil(t, r.Tossup.AllowedPlayerIdxs)
}

func TestSetActiveClearsSpin(t *testing.T) {
	r := newTestRoom("a", "b")
	w := Cash(500)
	r.CurrentWedge = &w

	r.SetActive(0)
	assert.NotNil(t, r.CurrentWedge)

	r.SetActive(1)
	assert.Equal(t, 1, r.ActiveIdx)
	assert.Nil(t, r.CurrentWedge)
}

func TestSolveMatches(t *testing.T) {
	r := newTestRoom("a")
	assert.True(t, r.SolveMatches("  Hello World "))
	assert.False(t, r.SolveMatches("HELLO  WORLD"))
	assert.False(t, r.SolveMatches(""))
}

func TestTossupRevealOrderKeepsDuplicates(t *testing.T) {
	r := newTestRoom("a")
	r.BuildTossupRevealOrder()

	got := make([]string, len(r.Tossup.RevealOrder))
	for i, ch := range r.Tossup.RevealOrder {
		got[i] = string(ch)
	}
	sort.Strings(got)
	assert.Equal(t, []string{"D", "E", "H", "L", "L", "L", "O", "O", "R", "W"}, got)

	newly := 0
	for len(r.Tossup.RevealOrder) > 0 {
		newly += r.TossupRevealStep(1)
	}
	assert.Equal(t, 7, newly)
	assert.Equal(t, 0, r.TossupRevealStep(1))
}

func TestFinalPicks(t *testing.T) {
	r := newTestRoom("a")
	r.Final.Consonants = []rune{'B', 'C'}
	assert.False(t, r.FinalAllPicksComplete())

	r.Final.Consonants = append(r.Final.Consonants, 'D')
	assert.False(t, r.FinalAllPicksComplete())
	r.Final.Vowel = 'A'
	assert.True(t, r.FinalAllPicksComplete())

	r.FinalRevealPicks()
	for _, ch := range "BCDA" {
		assert.True(t, r.Revealed.Has(ch))
		assert.True(t, r.Used.Has(ch))
	}
}

func TestFinalRemainingSeconds(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	r := NewRoom("t", rand.New(rand.NewSource(1)), func() time.Time { return now })
	assert.Nil(t, r.FinalRemainingSeconds())

	r.Final.EndsAt = now.Add(12*time.Second + 400*time.Millisecond)
	require.NotNil(t, r.FinalRemainingSeconds())
	assert.Equal(t, 12, *r.FinalRemainingSeconds())

	r.Final.EndsAt = now.Add(-time.Second)
	assert.Equal(t, 0, *r.FinalRemainingSeconds())
}

func TestPlayerBankRound(t *testing.T) {
	p := NewPlayer(0, "a")
	p.Total = 100
	p.RoundBank = 400
	p.RoundPrizes = []Prize{{Name: "MUG", Value: 500}}

	p.BankRound()

	assert.Equal(t, 500, p.Total)
	assert.Equal(t, 1000, p.TVTotal())
	assert.Empty(t, p.RoundPrizes)
	snap := CreatePlayerSnapshot(p)
	assert.Equal(t, 500, snap.PrizeValueTotal)
	assert.False(t, snap.Claimed)
}

func TestWedgeJSON(t *testing.T) {
	wheel := []Wedge{Cash(500), Bankrupt(), LoseATurn(), FreePlay(), PrizeWedge("GIFT CARD")}
	b, err := json.Marshal(wheel)
	require.NoError(t, err)
	assert.JSONEq(t, `[500,"BANKRUPT","LOSE A TURN","FREE PLAY",{"type":"PRIZE","name":"GIFT CARD"}]`, string(b))

	var back []Wedge
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, wheel, back)

	var w Wedge
	assert.Error(t, json.Unmarshal([]byte(`"JACKPOT"`), &w))
	assert.Error(t, json.Unmarshal([]byte(`{"type":"CAR"}`), &w))
}

func TestParseLetter(t *testing.T) {
	ch, ok := ParseLetter(" q ")
	assert.True(t, ok)
	assert.Equal(t, 'Q', ch)

	for _, bad := range []string{"", "ab", "1", "é"} {
		_, ok := ParseLetter(bad)
		assert.False(t, ok, bad)
	}
	assert.Equal(t, 3, CountLetter("HELLO WORLD", 'L'))
	assert.Equal(t, []string{"A", "B"}, NewLetterSet("ba1").Sorted())
}

func TestNewLetterSetIgnoresCase(t *testing.T) {
	set := NewLetterSet("rStlne")
	for _, ch := range "RSTLNE" {
		assert.True(t, set.Has(ch), string(ch))
	}
	assert.Len(t, set.Sorted(), 6)
}

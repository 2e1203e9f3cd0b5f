package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/balllder/holiday-wheel/internal"
)

func TestGuessConsonantOnCashWedge(t *testing.T) {
	f := newFixture(t)
	f.fillWheel(internal.Cash(500))

	f.spin(ann)
	f.guess(ann, "l")

	f.locked(func(r *internal.Room) {
		assert.Equal(t, 1500, r.Players[0].RoundBank)
		assert.Equal(t, 0, r.ActiveIdx)
		assert.True(t, r.Revealed.Has('L'))
		assert.True(t, r.Used.Has('L'))
		assert.Nil(t, r.CurrentWedge)
		assert.Nil(t, r.WheelIndex)
		require.NotNil(t, r.LastSpinIndex)
	})
	assert.Equal(t, "3 L(s). +$1500", f.out.lastToast(ann.Conn))
}

func TestGuessMissAdvancesTurn(t *testing.T) {
	f := newFixture(t)
	f.fillWheel(internal.Cash(500))

	f.spin(ann)
	f.guess(ann, "Z")

	f.locked(func(r *internal.Room) {
		assert.Equal(t, 1, r.ActiveIdx)
		assert.Nil(t, r.CurrentWedge)
		assert.True(t, r.Used.Has('Z'))
		assert.False(t, r.Revealed.Has('Z'))
	})
	assert.Equal(t, "No Z's.", f.out.lastToast(ann.Conn))
}

func TestGuessMissWrapsAround(t *testing.T) {
	f := newFixture(t)
	f.fillWheel(internal.Cash(300))
	f.locked(func(r *internal.Room) { r.ActiveIdx = 2 })

	f.spin(cy)
	f.guess(cy, "Q")

	f.locked(func(r *internal.Room) { assert.Equal(t, 0, r.ActiveIdx) })
}

func TestVowelCostDeductedOnHitAndMiss(t *testing.T) {
	f := newFixture(t)
	f.locked(func(r *internal.Room) { r.Players[0].RoundBank = 500 })

	// no spin needed to buy a vowel
	f.guess(ann, "O")
	f.locked(func(r *internal.Room) {
		assert.Equal(t, 250, r.Players[0].RoundBank)
		assert.True(t, r.Revealed.Has('O'))
		assert.Equal(t, 0, r.ActiveIdx)
	})

	f.guess(ann, "A")
	f.locked(func(r *internal.Room) {
		assert.Equal(t, 0, r.Players[0].RoundBank)
		assert.False(t, r.Revealed.Has('A'))
		assert.Equal(t, 1, r.ActiveIdx)
	})
}

func TestVowelNeedsEnoughBank(t *testing.T) {
	f := newFixture(t)
	f.locked(func(r *internal.Room) { r.Players[0].RoundBank = 100 })

	f.guess(ann, "E")

	f.locked(func(r *internal.Room) {
		assert.Equal(t, 100, r.Players[0].RoundBank)
		assert.False(t, r.Used.Has('E'))
	})
	assert.Equal(t, "Need $250 to buy a vowel.", f.out.lastToast(ann.Conn))
}

func TestConsonantNeedsSpin(t *testing.T) {
	f := newFixture(t)
	f.guess(ann, "L")

	f.locked(func(r *internal.Room) { assert.False(t, r.Used.Has('L')) })
	assert.Equal(t, "Spin before guessing a consonant.", f.out.lastToast(ann.Conn))
}

func TestUsedLetterNeverMutates(t *testing.T) {
	f := newFixture(t)
	f.fillWheel(internal.Cash(500))
	f.spin(ann)
	f.guess(ann, "L")
	f.spin(ann)

	before := f.snapshot()
	f.guess(ann, "L")
	after := f.snapshot()

	assert.Equal(t, before.Players[0].RoundBank, after.Players[0].RoundBank)
	assert.Equal(t, before.Revealed, after.Revealed)
	assert.Equal(t, before.ActiveIdx, after.ActiveIdx)
	assert.Equal(t, "L already used.", f.out.lastToast(ann.Conn))
}

func TestOnlyActivePlayerGuesses(t *testing.T) {
	f := newFixture(t)
	f.fillWheel(internal.Cash(500))
	f.spin(ann)

	f.guess(bob, "L")
	assert.Equal(t, "Only the active player can guess.", f.out.lastToast(bob.Conn))

	// the host may spin but not guess
	f.guess(host, "L")
	assert.Equal(t, "Only the active player can guess.", f.out.lastToast(host.Conn))
	f.locked(func(r *internal.Room) { assert.False(t, r.Used.Has('L')) })
}

func TestSpinAuthorization(t *testing.T) {
	f := newFixture(t)
	f.fillWheel(internal.Cash(650))

	f.spin(bob)
	assert.Equal(t, "Only the active player can spin.", f.out.lastToast(bob.Conn))
	f.locked(func(r *internal.Room) { assert.Nil(t, r.WheelIndex) })

	f.spin(host)
	f.locked(func(r *internal.Room) {
		require.NotNil(t, r.CurrentWedge)
		assert.Equal(t, internal.Cash(650), *r.CurrentWedge)
	})
}

func TestSpinBankruptForfeitsRound(t *testing.T) {
	f := newFixture(t)
	f.fillWheel(internal.Bankrupt())
	f.locked(func(r *internal.Room) {
		r.Players[0].Total = 2000
		r.Players[0].RoundBank = 900
		r.Players[0].RoundPrizes = []internal.Prize{{Name: "HOLIDAY MUG", Value: 500}}
	})

	f.spin(ann)

	f.locked(func(r *internal.Room) {
		p := r.Players[0]
		assert.Equal(t, 0, p.RoundBank)
		assert.Empty(t, p.RoundPrizes)
		assert.Equal(t, 2000, p.Total)
		assert.Equal(t, 1, r.ActiveIdx)
		assert.Nil(t, r.CurrentWedge)
		require.NotNil(t, r.LastSpinIndex)
	})
	assert.Contains(t, f.out.roomToasts("main"), "Ann hit BANKRUPT!")
}

func TestSpinLoseATurnKeepsBank(t *testing.T) {
	f := newFixture(t)
	f.fillWheel(internal.LoseATurn())
	f.locked(func(r *internal.Room) { r.Players[0].RoundBank = 700 })

	f.spin(ann)

	f.locked(func(r *internal.Room) {
		assert.Equal(t, 700, r.Players[0].RoundBank)
		assert.Equal(t, 1, r.ActiveIdx)
	})
}

func TestSpinOutsideNormalPhase(t *testing.T) {
	f := newFixture(t)
	f.locked(func(r *internal.Room) { r.Phase = internal.PhaseFinal })

	f.spin(ann)
	assert.Equal(t, "Spin is only allowed during normal rounds.", f.out.lastToast(ann.Conn))
}

func TestPrizeWedgeDedupAndReplacement(t *testing.T) {
	f := newFixture(t)
	f.fillWheel(internal.PrizeWedge("GIFT CARD"))

	f.spin(ann)
	var landed int
	f.locked(func(r *internal.Room) { landed = *r.LastSpinIndex })
	f.guess(ann, "L")

	f.locked(func(r *internal.Room) {
		p := r.Players[0]
		require.Len(t, p.RoundPrizes, 1)
		assert.Equal(t, "GIFT CARD", p.RoundPrizes[0].Name)
		assert.Contains(t, internal.DefaultPrizeReplaceCash, p.RoundPrizes[0].Value)
		replaced := r.Wheel[landed]
		assert.Equal(t, internal.WedgeCash, replaced.Kind)
		assert.Contains(t, internal.DefaultPrizeReplaceCash, replaced.Amount)
		assert.Equal(t, 0, r.ActiveIdx)
	})

	// land on another GIFT CARD slot
	f.locked(func(r *internal.Room) {
		for i := range r.Wheel {
			r.Wheel[i] = internal.PrizeWedge("GIFT CARD")
		}
	})
	f.spin(ann)
	f.guess(ann, "D")

	f.locked(func(r *internal.Room) {
		assert.Len(t, r.Players[0].RoundPrizes, 1)
	})
}

func TestPrizeMissForfeitsTurn(t *testing.T) {
	f := newFixture(t)
	f.fillWheel(internal.PrizeWedge("HOLIDAY MUG"))

	f.spin(ann)
	f.guess(ann, "Z")

	f.locked(func(r *internal.Room) {
		assert.Empty(t, r.Players[0].RoundPrizes)
		assert.Equal(t, 1, r.ActiveIdx)
	})
	assert.Equal(t, "Missed! Lost the prize and your turn.", f.out.lastToast(ann.Conn))
}

func TestFreePlayMissKeepsTurn(t *testing.T) {
	f := newFixture(t)
	f.fillWheel(internal.FreePlay())

	f.spin(ann)
	f.guess(ann, "Z")

	f.locked(func(r *internal.Room) {
		assert.Equal(t, 0, r.ActiveIdx)
		assert.Nil(t, r.CurrentWedge)
	})

	f.spin(ann)
	f.guess(ann, "W")
	assert.Equal(t, "1 W(s). Free Play!", f.out.lastToast(ann.Conn))
}

func TestWrongSolveAdvancesOneEachTime(t *testing.T) {
	f := newFixture(t)

	want := []int{1, 2, 0, 1}
	for _, idx := range want {
		f.solve(host, "GOODBYE MOON")
		f.locked(func(r *internal.Room) { assert.Equal(t, idx, r.ActiveIdx) })
	}
	assert.Equal(t, "Incorrect solve.", f.out.lastToast(host.Conn))
}

func TestSolveRejectsEmptyAndBystanders(t *testing.T) {
	f := newFixture(t)

	f.solve(ann, "   ")
	assert.Equal(t, "Type a solve attempt.", f.out.lastToast(ann.Conn))

	f.solve(bob, "HELLO WORLD")
	assert.Equal(t, "Only the active player can solve.", f.out.lastToast(bob.Conn))
	f.locked(func(r *internal.Room) { assert.Equal(t, int64(999), r.Puzzle.ID) })
}

func TestCorrectSolveBanksRoundAndLoadsNext(t *testing.T) {
	f := newFixture(t)
	f.locked(func(r *internal.Room) {
		r.Players[0].RoundBank = 1500
		r.Players[0].RoundPrizes = []internal.Prize{{Name: "GIFT CARD", Value: 2000}}
		r.Players[1].RoundBank = 400
	})

	f.solve(ann, "  hello world ")

	f.locked(func(r *internal.Room) {
		p := r.Players[0]
		assert.Equal(t, 1500, p.Total)
		assert.Equal(t, []internal.Prize{{Name: "GIFT CARD", Value: 2000}}, p.Prizes)
		assert.Equal(t, 0, p.RoundBank)
		assert.Equal(t, 0, r.Players[1].RoundBank)
		assert.NotEqual(t, int64(999), r.Puzzle.ID)
		assert.Empty(t, r.Revealed)
		assert.Equal(t, 0, r.ActiveIdx)
	})
	assert.Contains(t, f.out.lastToast(ann.Conn), "Solved! Next puzzle loaded")
}

func TestApplySpinRecordsOutcome(t *testing.T) {
	room := internal.NewRoom("t", nil, nil)
	room.Players = []*internal.Player{internal.NewPlayer(0, "A"), internal.NewPlayer(1, "B")}
	room.Wheel = []internal.Wedge{internal.Cash(900), internal.Bankrupt()}

	w := applySpin(room, 0)
	assert.Equal(t, internal.Cash(900), w)
	require.NotNil(t, room.WheelIndex)
	assert.Equal(t, 0, *room.WheelIndex)

	room.Players[0].RoundBank = 300
	applySpin(room, 1)
	assert.Equal(t, 0, room.Players[0].RoundBank)
	assert.Equal(t, 1, room.ActiveIdx)
	assert.Nil(t, room.WheelIndex)
	require.NotNil(t, room.LastSpinIndex)
	assert.Equal(t, 1, *room.LastSpinIndex)
}

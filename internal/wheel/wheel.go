// Package wheel builds wheel layouts with evenly spaced special wedges.
package wheel

import (
	"math/rand"

	"github.com/balllder/holiday-wheel/internal"
)

// Base returns a fresh copy of the standard wedge multiset.
func Base() []internal.Wedge {
	return []internal.Wedge{
		internal.Cash(500),
		internal.Cash(550),
		internal.Cash(600),
		internal.Cash(650),
		internal.Cash(700),
		internal.Cash(800),
		internal.Cash(900),
		internal.Cash(300),
		internal.Cash(350),
		internal.Cash(400),
		internal.Cash(450),
		internal.Cash(1000),
		internal.Cash(1500),
		internal.Cash(2000),
		internal.FreePlay(),
		internal.PrizeWedge("GIFT CARD"),
		internal.PrizeWedge("HOLIDAY MUG"),
		internal.PrizeWedge("STOCKING STUFFER"),
		internal.Bankrupt(),
		internal.LoseATurn(),
	}
}

// Build shuffles wedges so the special ones land roughly total/specials apart.
// Each special gets a jittered target slot and walks forward to the next free
// slot; cash fills whatever is left in shuffled order. The input is not modified.
func Build(wedges []internal.Wedge, rng *rand.Rand) []internal.Wedge {
	var special, cash []internal.Wedge
	for _, w := range wedges {
		if w.IsSpecial() {
			special = append(special, w)
		} else {
			cash = append(cash, w)
		}
	}
	rng.Shuffle(len(special), func(i, j int) { special[i], special[j] = special[j], special[i] })
	rng.Shuffle(len(cash), func(i, j int) { cash[i], cash[j] = cash[j], cash[i] })

	total := len(wedges)
	if len(special) == 0 {
		return cash
	}
	spacing := total / len(special)

	result := make([]internal.Wedge, total)
	taken := make([]bool, total)
	for i, w := range special {
		pos := (i*spacing + rng.Intn(max(0, spacing-2)+1)) % total
		for taken[pos] {
			pos = (pos + 1) % total
		}
		result[pos] = w
		taken[pos] = true
	}

	next := 0
	for i := range result {
		if !taken[i] {
			result[i] = cash[next]
			next++
		}
	}
	return result
}

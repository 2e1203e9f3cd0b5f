package game

import "github.com/balllder/holiday-wheel/internal"

// PickTVWinnerIndexes returns the indexes of every player tied for the highest
// TV total. An empty room reports [0].
func PickTVWinnerIndexes(players []*internal.Player) []int {
	if len(players) == 0 {
		return []int{0}
	}
	best := players[0].TVTotal()
	for _, p := range players[1:] {
		best = max(best, p.TVTotal())
	}
	winners := make([]int, 0, 1)
	for i, p := range players {
		if p.TVTotal() == best {
			winners = append(winners, i)
		}
	}
	return winners
}

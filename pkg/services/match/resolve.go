package match

import "github.com/fadedpez/rpsarena/pkg/entities"

const (
	// RatingChange is the base rating swing for a decisive 1v1 result
	RatingChange = 25

	// PrizePercent of the pot goes to the winner; the rest is rake and leaves circulation
	PrizePercent = 90
)

// Resolve compares two moves from player A's side: (a - b) mod 3 gives
// 0 for a draw, 1 when A wins and 2 when B wins.
func Resolve(a, b entities.Move) entities.Outcome {
	diff := ((a.Value()-b.Value())%3 + 3) % 3
	return entities.Outcome(diff)
}

// Prize is the winner's share of a pot, rounded down
func Prize(pot int64) int64 {
	return pot * PrizePercent / 100
}

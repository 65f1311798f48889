// Package rating implements the Elo expected-score and rating-delta math.
package rating

import "math"

// DefaultK is the K-factor applied when callers do not configure one.
const DefaultK = 32

// Outcome is the actual result for one side of a match.
type Outcome float64

// Match outcomes from the perspective of one competitor.
const (
	Loss Outcome = 0
	Draw Outcome = 0.5
	Win  Outcome = 1
)

// ExpectedScore returns the predicted score for a competitor rated a
// against one rated b: 1 / (1 + 10^((b-a)/400)). The result is in (0,1)
// and ExpectedScore(a,b) + ExpectedScore(b,a) == 1.
func ExpectedScore(a, b int) float64 {
	return 1.0 / (1.0 + math.Pow(10, float64(b-a)/400.0))
}

// Next returns the post-match rating for a competitor rated old against
// an opponent rated opponent, given the actual outcome and K-factor.
//
// The result is rounded to the nearest integer on every call rather
// than carrying the real-valued rating forward. Repeated small updates
// can therefore drift from the mathematically exact value; that loss is
// part of the rating contract and must not be "fixed" by deferring the
// rounding.
func Next(old, opponent int, outcome Outcome, k int) int {
	return int(math.Round(float64(old) + float64(k)*(float64(outcome)-ExpectedScore(old, opponent))))
}

// NextPair returns both post-match ratings for a decisive or drawn
// match, computed from the pre-match values on both sides.
func NextPair(winner, loser int, isDraw bool, k int) (int, int) {
	winnerOutcome, loserOutcome := Win, Loss
	if isDraw {
		winnerOutcome, loserOutcome = Draw, Draw
	}
	return Next(winner, loser, winnerOutcome, k), Next(loser, winner, loserOutcome, k)
}

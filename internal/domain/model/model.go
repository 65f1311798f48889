// Package model contains domain models passed between layers.
package model

import "time"

// Competitor is a ranked participant. The id is opaque and immutable;
// the rating is mutated only through the match pipeline.
type Competitor struct {
	ID     string `json:"id"`
	Rating int    `json:"rating"`
}

// MatchRecord is one row of the append-only match log. When IsDraw is
// true, WinnerID and LoserID keep the reported order but the outcome
// is symmetric.
type MatchRecord struct {
	SequenceID int64     `json:"sequenceId"`
	WinnerID   string    `json:"winner"`
	LoserID    string    `json:"loser"`
	IsDraw     bool      `json:"draw"`
	OccurredAt time.Time `json:"occurredAt"`
}

// MatchResult carries both post-commit competitors for one match.
type MatchResult struct {
	Winner Competitor `json:"winner"`
	Loser  Competitor `json:"loser"`
}

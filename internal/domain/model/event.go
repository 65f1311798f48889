package model

// EventKind tags the RankingEvent union.
type EventKind string

// Ranking event kinds published over the event stream.
const (
	EventPlayerCreated EventKind = "PlayerCreated"
	EventRankingUpdate EventKind = "RankingUpdate"
	EventError         EventKind = "Error"
)

// RankingEvent is the tagged union pushed to subscribers. Exactly one
// of Competitor or Message is set, depending on Kind. Events are
// ephemeral: published once, never persisted.
type RankingEvent struct {
	Kind       EventKind   `json:"kind"`
	Competitor *Competitor `json:"competitor,omitempty"`
	Message    string      `json:"message,omitempty"`
}

// PlayerCreated builds a creation event for c.
func PlayerCreated(c Competitor) RankingEvent {
	return RankingEvent{Kind: EventPlayerCreated, Competitor: &c}
}

// RankingUpdate builds a rating change event for c.
func RankingUpdate(c Competitor) RankingEvent {
	return RankingEvent{Kind: EventRankingUpdate, Competitor: &c}
}

// ErrorEvent builds an error event with a message.
func ErrorEvent(msg string) RankingEvent {
	return RankingEvent{Kind: EventError, Message: msg}
}

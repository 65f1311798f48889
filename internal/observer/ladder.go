package observer

import (
	"sort"
	"sync"

	"github.com/tkarami/elorank/internal/domain/model"
)

// Ladder is the observer-side view of the ranking, kept rating-descending.
//
// Apply is idempotent, so replaying an update the snapshot already
// reflected leaves the ladder unchanged. Competitors with equal ratings
// keep their prior relative order; a competitor whose update creates a
// new tie slots in after the existing holders of that rating.
type Ladder struct {
	mu      sync.RWMutex
	entries []model.Competitor
}

// NewLadder creates an empty ladder.
func NewLadder() *Ladder {
	return &Ladder{}
}

// Apply merges one competitor into the ladder: replace the existing
// entry or insert a new one, then restore rating-descending order.
func (l *Ladder) Apply(competitor model.Competitor) {
	l.mu.Lock()
	defer l.mu.Unlock()

	replaced := false
	for i := range l.entries {
		if l.entries[i].ID == competitor.ID {
			l.entries[i] = competitor
			replaced = true
			break
		}
	}
	if !replaced {
		l.entries = append(l.entries, competitor)
	}

	sort.SliceStable(l.entries, func(i, j int) bool {
		return l.entries[i].Rating > l.entries[j].Rating
	})
}

// ApplyAll merges a snapshot, in order.
func (l *Ladder) ApplyAll(competitors []model.Competitor) {
	for _, c := range competitors {
		l.Apply(c)
	}
}

// Snapshot returns a copy of the ladder; mutating it never affects the
// view.
func (l *Ladder) Snapshot() []model.Competitor {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]model.Competitor, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len reports how many competitors the ladder currently tracks.
func (l *Ladder) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

package observer

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/tkarami/elorank/internal/domain/model"
	"github.com/tkarami/elorank/pkg/logger"
)

// Scheduler defaults.
const (
	DefaultInterval        = time.Second
	DefaultDrawProbability = 0.1
)

// MatchReporter submits one match outcome.
type MatchReporter interface {
	ReportMatch(ctx context.Context, winnerID, loserID string, isDraw bool) (model.MatchResult, error)
}

// Roster lists the competitors the scheduler can pair up.
type Roster interface {
	Snapshot() []model.Competitor
}

// Scheduler periodically generates a random match between two distinct
// known competitors. It is a two-state machine: Start and Stop are both
// idempotent, and at most one ticker runs at a time. A failed report is
// logged and the schedule continues.
type Scheduler struct {
	reporter MatchReporter
	roster   Roster
	interval time.Duration
	drawProb float64
	rng      *rand.Rand
	log      logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithInterval sets the tick interval.
func WithInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithDrawProbability sets the chance a generated match is a draw.
func WithDrawProbability(p float64) SchedulerOption {
	return func(s *Scheduler) {
		if p >= 0 && p <= 1 {
			s.drawProb = p
		}
	}
}

// WithRand sets the random source, fixed in tests for determinism.
func WithRand(rng *rand.Rand) SchedulerOption {
	return func(s *Scheduler) {
		s.rng = rng
	}
}

// WithSchedulerLogger sets the logger for tick diagnostics.
func WithSchedulerLogger(log logger.Logger) SchedulerOption {
	return func(s *Scheduler) {
		s.log = log
	}
}

// NewScheduler creates an idle scheduler over the given reporter and
// roster.
func NewScheduler(reporter MatchReporter, roster Roster, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		reporter: reporter,
		roster:   roster,
		interval: DefaultInterval,
		drawProb: DefaultDrawProbability,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if s.log == nil {
		s.log = logger.Named("observer.scheduler")
	}
	return s
}

// Start begins ticking. Calling Start on a running scheduler is a
// no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(ctx, s.done)
}

// Stop halts ticking and waits for the loop to exit. Calling Stop on
// an idle scheduler is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether the scheduler currently holds a ticker.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

func (s *Scheduler) run(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick generates and reports one random match, or skips the beat when
// fewer than two competitors are known.
func (s *Scheduler) tick(ctx context.Context) {
	roster := s.roster.Snapshot()
	if len(roster) < 2 {
		s.log.Debug(ctx, "skipping tick, not enough competitors", logger.Int("known", len(roster)))
		return
	}

	i := s.rng.Intn(len(roster))
	j := s.rng.Intn(len(roster) - 1)
	if j >= i {
		j++
	}

	winner, loser := roster[i].ID, roster[j].ID
	isDraw := s.rng.Float64() < s.drawProb

	if _, err := s.reporter.ReportMatch(ctx, winner, loser, isDraw); err != nil {
		s.log.Warn(ctx, "failed to report generated match",
			logger.String("winner", winner),
			logger.String("loser", loser),
			logger.Error(err))
		return
	}
	s.log.Debug(ctx, "reported generated match",
		logger.String("winner", winner),
		logger.String("loser", loser),
		logger.Any("draw", isDraw))
}

package observer_test

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/tkarami/elorank/internal/domain/model"
	"github.com/tkarami/elorank/internal/observer"
)

// recordingReporter captures every reported match.
type recordingReporter struct {
	mu      sync.Mutex
	matches []reportedMatch
	err     error
}

type reportedMatch struct {
	winner, loser string
	draw          bool
}

func (r *recordingReporter) ReportMatch(_ context.Context, winnerID, loserID string, isDraw bool) (model.MatchResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.matches = append(r.matches, reportedMatch{winner: winnerID, loser: loserID, draw: isDraw})
	if r.err != nil {
		return model.MatchResult{}, r.err
	}
	return model.MatchResult{}, nil
}

func (r *recordingReporter) recorded() []reportedMatch {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]reportedMatch, len(r.matches))
	copy(out, r.matches)
	return out
}

// staticRoster serves a fixed competitor list.
type staticRoster struct {
	competitors []model.Competitor
}

func (s *staticRoster) Snapshot() []model.Competitor {
	out := make([]model.Competitor, len(s.competitors))
	copy(out, s.competitors)
	return out
}

func waitForMatches(t *testing.T, reporter *recordingReporter, n int) []reportedMatch {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if got := reporter.recorded(); len(got) >= n {
			return got
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d reported matches", n)
	return nil
}

func TestDefaultConfig(t *testing.T) {
	Convey("Given the simulation defaults", t, func() {
		cfg := observer.DefaultConfig()

		Convey("Then they describe a runnable simulation", func() {
			So(cfg.BaseURL, ShouldNotBeBlank)
			So(cfg.Bots, ShouldBeGreaterThanOrEqualTo, 2)
			So(cfg.Interval, ShouldEqual, observer.DefaultInterval)
			So(cfg.DrawProbability, ShouldEqual, observer.DefaultDrawProbability)
			So(cfg.Timeout, ShouldBeGreaterThan, 0)
		})
	})
}

func TestScheduler_Lifecycle(t *testing.T) {
	Convey("Given an idle scheduler", t, func() {
		reporter := &recordingReporter{}
		roster := &staticRoster{}
		scheduler := observer.NewScheduler(reporter, roster,
			observer.WithInterval(time.Hour))

		Convey("Then it is not running", func() {
			So(scheduler.Running(), ShouldBeFalse)
		})

		Convey("When started twice and stopped twice", func() {
			scheduler.Start(context.Background())
			scheduler.Start(context.Background())
			So(scheduler.Running(), ShouldBeTrue)

			scheduler.Stop()
			scheduler.Stop()

			Convey("Then both transitions are idempotent", func() {
				So(scheduler.Running(), ShouldBeFalse)
			})
		})

		Convey("When restarted after a stop", func() {
			scheduler.Start(context.Background())
			scheduler.Stop()
			scheduler.Start(context.Background())
			defer scheduler.Stop()

			Convey("Then it runs again", func() {
				So(scheduler.Running(), ShouldBeTrue)
			})
		})
	})
}

func TestScheduler_Ticks(t *testing.T) {
	Convey("Given fewer than two known competitors", t, func() {
		reporter := &recordingReporter{}
		roster := &staticRoster{competitors: []model.Competitor{{ID: "only", Rating: 1000}}}
		scheduler := observer.NewScheduler(reporter, roster,
			observer.WithInterval(time.Millisecond))

		Convey("When several ticks elapse", func() {
			scheduler.Start(context.Background())
			time.Sleep(30 * time.Millisecond)
			scheduler.Stop()

			Convey("Then no match is reported", func() {
				So(reporter.recorded(), ShouldBeEmpty)
			})
		})
	})

	Convey("Given a roster of three competitors", t, func() {
		reporter := &recordingReporter{}
		roster := &staticRoster{competitors: []model.Competitor{
			{ID: "a", Rating: 1000},
			{ID: "b", Rating: 1000},
			{ID: "c", Rating: 1000},
		}}
		scheduler := observer.NewScheduler(reporter, roster,
			observer.WithInterval(time.Millisecond),
			observer.WithRand(rand.New(rand.NewSource(7))))

		Convey("When matches are generated", func() {
			scheduler.Start(context.Background())
			got := waitForMatches(t, reporter, 20)
			scheduler.Stop()

			Convey("Then every match pairs two distinct known competitors", func() {
				known := map[string]bool{"a": true, "b": true, "c": true}
				for _, m := range got {
					So(known[m.winner], ShouldBeTrue)
					So(known[m.loser], ShouldBeTrue)
					So(m.winner, ShouldNotEqual, m.loser)
				}
			})
		})
	})

	Convey("Given a reporter that always fails", t, func() {
		reporter := &recordingReporter{err: errors.New("boom")}
		roster := &staticRoster{competitors: []model.Competitor{
			{ID: "a", Rating: 1000},
			{ID: "b", Rating: 1000},
		}}
		scheduler := observer.NewScheduler(reporter, roster,
			observer.WithInterval(time.Millisecond))

		Convey("When ticks keep failing", func() {
			scheduler.Start(context.Background())
			got := waitForMatches(t, reporter, 5)
			scheduler.Stop()

			Convey("Then the schedule continues past the failures", func() {
				So(len(got), ShouldBeGreaterThanOrEqualTo, 5)
			})
		})
	})
}

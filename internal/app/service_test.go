package service_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/tkarami/elorank/internal/adapters/repository"
	service "github.com/tkarami/elorank/internal/app"
	"github.com/tkarami/elorank/internal/domain/model"
	"github.com/tkarami/elorank/pkg/logger"
	"github.com/tkarami/elorank/pkg/metrics"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		os.Exit(1)
	}
	os.Exit(m.Run())
}

func startTestService(t *testing.T, opts ...service.Option) *service.Service {
	t.Helper()
	opts = append([]service.Option{
		service.WithDBPath(filepath.Join(t.TempDir(), "service.db")),
	}, opts...)
	svc := service.New(opts...)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("failed to start service: %v", err)
	}
	t.Cleanup(svc.Stop)
	return svc
}

func intPtr(v int) *int { return &v }

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New(
			service.WithDBPath(filepath.Join(t.TempDir(), "lifecycle.db")),
		)

		Convey("When it has not been started", func() {
			Convey("Then operations are refused", func() {
				_, err := svc.ReportMatch(context.Background(), "a", "b", false)
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)

				_, err = svc.Subscribe()
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			})
		})

		Convey("When started twice", func() {
			So(svc.Start(context.Background()), ShouldBeNil)
			So(svc.Start(context.Background()), ShouldBeNil)
			defer svc.Stop()

			Convey("Then it reports started once", func() {
				stats := svc.GetStats()
				So(stats["started"], ShouldBeTrue)
			})
		})
	})
}

func TestService_CreateCompetitor(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := startTestService(t)

		Convey("When creating without an explicit rating on an empty store", func() {
			c, err := svc.CreateCompetitor(ctx, "alice", nil)

			Convey("Then the fallback default applies", func() {
				So(err, ShouldBeNil)
				So(c.Rating, ShouldEqual, 1000)
			})
		})

		Convey("When creating with an explicit rating", func() {
			c, err := svc.CreateCompetitor(ctx, "bob", intPtr(1500))

			Convey("Then that rating is stored", func() {
				So(err, ShouldBeNil)
				So(c.Rating, ShouldEqual, 1500)
			})

			Convey("And a later default pull reflects the population mean", func() {
				So(err, ShouldBeNil)
				_, err := svc.CreateCompetitor(ctx, "carol", intPtr(1000))
				So(err, ShouldBeNil)

				d, err := svc.CreateCompetitor(ctx, "dave", nil)
				So(err, ShouldBeNil)
				So(d.Rating, ShouldEqual, 1250) // round((1500+1000)/2)
			})
		})

		Convey("When the id is empty", func() {
			_, err := svc.CreateCompetitor(ctx, "  ", nil)

			Convey("Then the request is invalid", func() {
				So(errors.Is(err, service.ErrInvalidRequest), ShouldBeTrue)
			})
		})

		Convey("When the id is already taken", func() {
			_, err := svc.CreateCompetitor(ctx, "alice", intPtr(1000))
			So(err, ShouldBeNil)

			_, err = svc.CreateCompetitor(ctx, "alice", intPtr(1700))

			Convey("Then creation fails and the original rating survives", func() {
				So(errors.Is(err, repository.ErrAlreadyExists), ShouldBeTrue)

				ladder, err := svc.Ranking(ctx)
				So(err, ShouldBeNil)
				So(len(ladder), ShouldEqual, 1)
				So(ladder[0].Rating, ShouldEqual, 1000)
			})
		})
	})
}

func TestService_ReportMatch(t *testing.T) {
	Convey("Given a started service with two competitors", t, func() {
		ctx := context.Background()
		svc := startTestService(t)

		_, err := svc.CreateCompetitor(ctx, "a", nil)
		So(err, ShouldBeNil)
		_, err = svc.CreateCompetitor(ctx, "b", intPtr(1000))
		So(err, ShouldBeNil)

		Convey("When a participant id is missing", func() {
			_, err := svc.ReportMatch(ctx, "a", "", false)

			Convey("Then the request is invalid and nothing changed", func() {
				So(errors.Is(err, service.ErrInvalidRequest), ShouldBeTrue)

				ladder, _ := svc.Ranking(ctx)
				for _, c := range ladder {
					So(c.Rating, ShouldEqual, 1000)
				}
			})
		})

		Convey("When a participant is unknown", func() {
			_, err := svc.ReportMatch(ctx, "a", "ghost", false)

			Convey("Then it fails distinctly from a malformed request", func() {
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
				So(errors.Is(err, service.ErrInvalidRequest), ShouldBeFalse)
			})
		})

		Convey("When a decisive match is reported with a live subscriber", func() {
			sub, err := svc.Subscribe()
			So(err, ShouldBeNil)
			defer svc.Unsubscribe(sub)

			res, err := svc.ReportMatch(ctx, "a", "b", false)

			Convey("Then the response carries both updated competitors", func() {
				So(err, ShouldBeNil)
				So(res.Winner, ShouldResemble, model.Competitor{ID: "a", Rating: 1016})
				So(res.Loser, ShouldResemble, model.Competitor{ID: "b", Rating: 984})
			})

			Convey("And exactly one RankingUpdate per competitor arrives, winner first", func() {
				So(err, ShouldBeNil)

				first := receiveEvent(t, sub.Events())
				second := receiveEvent(t, sub.Events())

				So(first.Kind, ShouldEqual, model.EventRankingUpdate)
				So(first.Competitor.ID, ShouldEqual, "a")
				So(first.Competitor.Rating, ShouldEqual, 1016)

				So(second.Kind, ShouldEqual, model.EventRankingUpdate)
				So(second.Competitor.ID, ShouldEqual, "b")
				So(second.Competitor.Rating, ShouldEqual, 984)

				select {
				case ev := <-sub.Events():
					So(ev, ShouldBeZeroValue) // no third event expected
				case <-time.After(50 * time.Millisecond):
				}
			})
		})

		Convey("When the ranking is read after a match", func() {
			_, err := svc.ReportMatch(ctx, "b", "a", false)
			So(err, ShouldBeNil)

			ladder, err := svc.Ranking(ctx)

			Convey("Then it is sorted descending by rating", func() {
				So(err, ShouldBeNil)
				So(len(ladder), ShouldEqual, 2)
				So(ladder[0], ShouldResemble, model.Competitor{ID: "b", Rating: 1016})
				So(ladder[1], ShouldResemble, model.Competitor{ID: "a", Rating: 984})
			})
		})
	})
}

func receiveEvent(t *testing.T, ch <-chan model.RankingEvent) model.RankingEvent {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return model.RankingEvent{}
	}
}

// brokenStore fails every operation, standing in for a store whose
// backing database has gone bad.
type brokenStore struct {
	err error
}

func (b *brokenStore) Get(context.Context, string) (model.Competitor, error) {
	return model.Competitor{}, b.err
}

func (b *brokenStore) Create(context.Context, string, int) (model.Competitor, error) {
	return model.Competitor{}, b.err
}

func (b *brokenStore) CommitMatch(context.Context, string, string, bool) (model.MatchResult, error) {
	return model.MatchResult{}, b.err
}

func (b *brokenStore) List(context.Context) ([]model.Competitor, error) { return nil, b.err }

func (b *brokenStore) DefaultInitialRating(context.Context) (int, error) { return 0, b.err }

func (b *brokenStore) Matches(context.Context, int) ([]model.MatchRecord, error) {
	return nil, b.err
}

func (b *brokenStore) Count(context.Context) int { return 0 }

func (b *brokenStore) Close() error { return nil }

// rejectedMatches reads the current value of the rejected-matches
// counter for one reason label off the metrics registry.
func rejectedMatches(t *testing.T, reason string) float64 {
	t.Helper()
	families, err := metrics.GetRegistry().Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != "elorank_ranker_matches_rejected_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "reason" && l.GetValue() == reason {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestService_RejectionTaxonomy(t *testing.T) {
	Convey("Given a started service with one competitor", t, func() {
		ctx := context.Background()
		svc := startTestService(t)
		_, err := svc.CreateCompetitor(ctx, "a", nil)
		So(err, ShouldBeNil)

		Convey("When a participant is unknown", func() {
			beforeUnknown := rejectedMatches(t, "unknown_competitor")
			beforeStorage := rejectedMatches(t, "storage_error")
			_, err := svc.ReportMatch(ctx, "a", "ghost", false)

			Convey("Then only the unknown_competitor label moves", func() {
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
				So(rejectedMatches(t, "unknown_competitor"), ShouldEqual, beforeUnknown+1)
				So(rejectedMatches(t, "storage_error"), ShouldEqual, beforeStorage)
			})
		})
	})

	Convey("Given a service whose store fails every commit", t, func() {
		ctx := context.Background()
		storeErr := errors.New("database disk image is malformed")
		svc := startTestService(t, service.WithStore(&brokenStore{err: storeErr}))

		sub, err := svc.Subscribe()
		So(err, ShouldBeNil)
		defer svc.Unsubscribe(sub)

		Convey("When a match report hits the storage failure", func() {
			beforeStorage := rejectedMatches(t, "storage_error")
			beforeUnknown := rejectedMatches(t, "unknown_competitor")
			_, err := svc.ReportMatch(ctx, "a", "b", false)

			Convey("Then it is labeled a storage error, not an unknown competitor", func() {
				So(errors.Is(err, storeErr), ShouldBeTrue)
				So(rejectedMatches(t, "storage_error"), ShouldEqual, beforeStorage+1)
				So(rejectedMatches(t, "unknown_competitor"), ShouldEqual, beforeUnknown)
			})

			Convey("And subscribers are told via an Error event", func() {
				So(err, ShouldNotBeNil)
				ev := receiveEvent(t, sub.Events())
				So(ev.Kind, ShouldEqual, model.EventError)
				So(ev.Message, ShouldEqual, "match commit failed")
				So(ev.Competitor, ShouldBeNil)
			})
		})
	})
}

func TestService_Stats(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := startTestService(t)

		_, err := svc.CreateCompetitor(ctx, "a", nil)
		So(err, ShouldBeNil)
		sub, err := svc.Subscribe()
		So(err, ShouldBeNil)
		defer svc.Unsubscribe(sub)

		Convey("When stats are read", func() {
			stats := svc.GetStats()

			Convey("Then they reflect the live state", func() {
				So(stats["started"], ShouldBeTrue)
				So(stats["competitors"], ShouldEqual, 1)
				So(stats["subscribers"], ShouldEqual, 1)
				So(stats["kFactor"], ShouldEqual, 32)
			})
		})
	})
}

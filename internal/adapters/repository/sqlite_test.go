package repository_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/tkarami/elorank/internal/adapters/repository"
)

func openTestStore(t *testing.T, opts ...repository.Option) *repository.SQLiteStore {
	t.Helper()
	store, err := repository.Open(context.Background(), filepath.Join(t.TempDir(), "test.db"), opts...)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_CreateAndGet(t *testing.T) {
	Convey("Given an open rating store", t, func() {
		ctx := context.Background()
		store := openTestStore(t)

		Convey("When creating a competitor", func() {
			c, err := store.Create(ctx, "alice", 1000)

			Convey("Then it should be retrievable", func() {
				So(err, ShouldBeNil)
				So(c.ID, ShouldEqual, "alice")
				So(c.Rating, ShouldEqual, 1000)

				got, err := store.Get(ctx, "alice")
				So(err, ShouldBeNil)
				So(got, ShouldResemble, c)
			})

			Convey("And creating the same id again should fail without mutation", func() {
				_, err := store.Create(ctx, "alice", 1500)
				So(errors.Is(err, repository.ErrAlreadyExists), ShouldBeTrue)

				got, err := store.Get(ctx, "alice")
				So(err, ShouldBeNil)
				So(got.Rating, ShouldEqual, 1000)
			})
		})

		Convey("When getting an unknown competitor", func() {
			_, err := store.Get(ctx, "ghost")

			Convey("Then it should return not found", func() {
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})
	})
}

func TestSQLiteStore_DefaultInitialRating(t *testing.T) {
	Convey("Given an open rating store", t, func() {
		ctx := context.Background()
		store := openTestStore(t, repository.WithInitialRatingFallback(1000))

		Convey("When the store is empty", func() {
			r, err := store.DefaultInitialRating(ctx)

			Convey("Then it should return the fallback", func() {
				So(err, ShouldBeNil)
				So(r, ShouldEqual, 1000)
			})
		})

		Convey("When competitors exist", func() {
			_, _ = store.Create(ctx, "a", 1000)
			_, _ = store.Create(ctx, "b", 1101)

			r, err := store.DefaultInitialRating(ctx)

			Convey("Then it should return the rounded mean", func() {
				So(err, ShouldBeNil)
				So(r, ShouldEqual, 1051) // round(2101/2) = round(1050.5)
			})
		})
	})
}

func TestSQLiteStore_CommitMatch(t *testing.T) {
	Convey("Given a store with two equally rated competitors", t, func() {
		ctx := context.Background()
		store := openTestStore(t, repository.WithKFactor(32))
		_, _ = store.Create(ctx, "a", 1000)
		_, _ = store.Create(ctx, "b", 1000)

		Convey("When committing a decisive match", func() {
			res, err := store.CommitMatch(ctx, "a", "b", false)

			Convey("Then the winner gains 16 and the loser drops 16", func() {
				So(err, ShouldBeNil)
				So(res.Winner.Rating, ShouldEqual, 1016)
				So(res.Loser.Rating, ShouldEqual, 984)
			})

			Convey("And both updates should be durable", func() {
				So(err, ShouldBeNil)
				a, _ := store.Get(ctx, "a")
				b, _ := store.Get(ctx, "b")
				So(a.Rating, ShouldEqual, 1016)
				So(b.Rating, ShouldEqual, 984)
			})

			Convey("And exactly one match record should be appended", func() {
				So(err, ShouldBeNil)
				recs, err := store.Matches(ctx, 10)
				So(err, ShouldBeNil)
				So(len(recs), ShouldEqual, 1)
				So(recs[0].WinnerID, ShouldEqual, "a")
				So(recs[0].LoserID, ShouldEqual, "b")
				So(recs[0].IsDraw, ShouldBeFalse)
				So(recs[0].SequenceID, ShouldEqual, 1)
			})
		})

		Convey("When committing a draw between equal ratings", func() {
			res, err := store.CommitMatch(ctx, "a", "b", true)

			Convey("Then neither rating moves but the match is logged", func() {
				So(err, ShouldBeNil)
				So(res.Winner.Rating, ShouldEqual, 1000)
				So(res.Loser.Rating, ShouldEqual, 1000)

				recs, err := store.Matches(ctx, 10)
				So(err, ShouldBeNil)
				So(len(recs), ShouldEqual, 1)
				So(recs[0].IsDraw, ShouldBeTrue)
			})
		})

		Convey("When one participant is unknown", func() {
			_, err := store.CommitMatch(ctx, "a", "ghost", false)

			Convey("Then it should fail with not found and mutate nothing", func() {
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)

				a, _ := store.Get(ctx, "a")
				So(a.Rating, ShouldEqual, 1000)

				recs, err := store.Matches(ctx, 10)
				So(err, ShouldBeNil)
				So(len(recs), ShouldEqual, 0)
			})
		})
	})
}

func TestSQLiteStore_ConcurrentDisjointPairs(t *testing.T) {
	Convey("Given N disjoint pairs of competitors", t, func() {
		ctx := context.Background()
		store := openTestStore(t)

		const pairs = 16
		for i := 0; i < pairs; i++ {
			_, _ = store.Create(ctx, fmt.Sprintf("w%d", i), 1000)
			_, _ = store.Create(ctx, fmt.Sprintf("l%d", i), 1000)
		}

		Convey("When all matches are reported concurrently", func() {
			var wg sync.WaitGroup
			errs := make([]error, pairs)
			for i := 0; i < pairs; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_, errs[i] = store.CommitMatch(ctx, fmt.Sprintf("w%d", i), fmt.Sprintf("l%d", i), false)
				}(i)
			}
			wg.Wait()

			Convey("Then every competitor matches its sequential result", func() {
				for i := 0; i < pairs; i++ {
					So(errs[i], ShouldBeNil)
					w, _ := store.Get(ctx, fmt.Sprintf("w%d", i))
					l, _ := store.Get(ctx, fmt.Sprintf("l%d", i))
					So(w.Rating, ShouldEqual, 1016)
					So(l.Rating, ShouldEqual, 984)
				}

				recs, err := store.Matches(ctx, pairs*2)
				So(err, ShouldBeNil)
				So(len(recs), ShouldEqual, pairs)
			})
		})
	})
}

func TestSQLiteStore_ConcurrentSharedCompetitor(t *testing.T) {
	Convey("Given two reports sharing one opponent", t, func() {
		ctx := context.Background()
		store := openTestStore(t)
		_, _ = store.Create(ctx, "a", 1000)
		_, _ = store.Create(ctx, "b", 1000)
		_, _ = store.Create(ctx, "x", 1000)

		Convey("When both matches commit concurrently", func() {
			var wg sync.WaitGroup
			var errA, errB error
			wg.Add(2)
			go func() {
				defer wg.Done()
				_, errA = store.CommitMatch(ctx, "a", "x", false)
			}()
			go func() {
				defer wg.Done()
				_, errB = store.CommitMatch(ctx, "b", "x", false)
			}()
			wg.Wait()

			Convey("Then both effects land in some serial order", func() {
				So(errA, ShouldBeNil)
				So(errB, ShouldBeNil)

				// Either serial order: the first winner ends at 1016, the
				// second at 1015 (x already weakened), and x at 969.
				a, _ := store.Get(ctx, "a")
				b, _ := store.Get(ctx, "b")
				x, _ := store.Get(ctx, "x")
				So(x.Rating, ShouldEqual, 969)
				So(a.Rating+b.Rating, ShouldEqual, 2031)
				So(a.Rating, ShouldBeIn, []int{1015, 1016})
				So(b.Rating, ShouldBeIn, []int{1015, 1016})
			})
		})
	})
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/tkarami/elorank/internal/domain/model"
	"github.com/tkarami/elorank/internal/domain/rating"
	"github.com/tkarami/elorank/pkg/metrics"
	_ "modernc.org/sqlite"
)

// Default store configuration constants.
const (
	defaultFallbackRating = 1000
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS competitors (
	id     TEXT PRIMARY KEY,
	rating INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS matches (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	winner      TEXT NOT NULL,
	loser       TEXT NOT NULL,
	draw        INTEGER NOT NULL,
	occurred_at INTEGER NOT NULL
);
`

// SQLiteStore implements Store over a single SQLite file.
//
// CommitMatch is serialized by commitMu so a concurrent report can
// never read a rating that another in-flight commit is about to
// overwrite. SQLite has a single writer anyway; the mutex makes the
// read-modify-write a critical section on our side of the driver too.
type SQLiteStore struct {
	db             *sql.DB
	kFactor        int
	fallbackRating int

	commitMu sync.Mutex
}

// Open opens (and if needed creates) the rating store at path and
// applies the schema.
func Open(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	s := &SQLiteStore{
		db:             db,
		kFactor:        rating.DefaultK,
		fallbackRating: defaultFallbackRating,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Get returns the competitor with the given id.
func (s *SQLiteStore) Get(ctx context.Context, id string) (model.Competitor, error) {
	var c model.Competitor
	row := s.db.QueryRowContext(ctx, `SELECT id, rating FROM competitors WHERE id = ?`, id)
	if err := row.Scan(&c.ID, &c.Rating); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Competitor{}, ErrNotFound
		}
		return model.Competitor{}, fmt.Errorf("get competitor: %w", err)
	}
	return c, nil
}

// Create inserts a new competitor with the given initial rating.
func (s *SQLiteStore) Create(ctx context.Context, id string, initialRating int) (model.Competitor, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO competitors (id, rating) VALUES (?, ?) ON CONFLICT (id) DO NOTHING`,
		id, initialRating,
	)
	if err != nil {
		return model.Competitor{}, fmt.Errorf("create competitor: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return model.Competitor{}, fmt.Errorf("create competitor: %w", err)
	}
	if affected == 0 {
		return model.Competitor{}, ErrAlreadyExists
	}
	return model.Competitor{ID: id, Rating: initialRating}, nil
}

// CommitMatch applies one reported match as a single atomic unit.
func (s *SQLiteStore) CommitMatch(ctx context.Context, winnerID, loserID string, isDraw bool) (model.MatchResult, error) {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	start := time.Now()
	defer func() {
		metrics.RecordCommitLatency(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.MatchResult{}, fmt.Errorf("begin commit: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	winnerBefore, err := ratingOf(ctx, tx, winnerID)
	if err != nil {
		return model.MatchResult{}, err
	}
	loserBefore, err := ratingOf(ctx, tx, loserID)
	if err != nil {
		return model.MatchResult{}, err
	}

	// Both next ratings derive from the pre-match values; neither side
	// observes the other's in-flight result.
	winnerAfter, loserAfter := rating.NextPair(winnerBefore, loserBefore, isDraw, s.kFactor)

	if _, err := tx.ExecContext(ctx, `UPDATE competitors SET rating = ? WHERE id = ?`, winnerAfter, winnerID); err != nil {
		return model.MatchResult{}, fmt.Errorf("update winner rating: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE competitors SET rating = ? WHERE id = ?`, loserAfter, loserID); err != nil {
		return model.MatchResult{}, fmt.Errorf("update loser rating: %w", err)
	}

	occurredAt := time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO matches (winner, loser, draw, occurred_at) VALUES (?, ?, ?, ?)`,
		winnerID, loserID, boolToInt(isDraw), occurredAt.UnixMilli(),
	); err != nil {
		return model.MatchResult{}, fmt.Errorf("append match record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return model.MatchResult{}, fmt.Errorf("commit match: %w", err)
	}

	metrics.RecordRatingUpdate()
	metrics.RecordRatingUpdate()

	return model.MatchResult{
		Winner: model.Competitor{ID: winnerID, Rating: winnerAfter},
		Loser:  model.Competitor{ID: loserID, Rating: loserAfter},
	}, nil
}

// List returns all competitors ordered by rating descending. Equal
// ratings order by id so repeated reads are stable.
func (s *SQLiteStore) List(ctx context.Context) ([]model.Competitor, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, rating FROM competitors ORDER BY rating DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list competitors: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.Competitor
	for rows.Next() {
		var c model.Competitor
		if err := rows.Scan(&c.ID, &c.Rating); err != nil {
			return nil, fmt.Errorf("scan competitor: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list competitors: %w", err)
	}
	return out, nil
}

// DefaultInitialRating returns the rounded mean of all current ratings,
// or the fallback when the store is empty.
func (s *SQLiteStore) DefaultInitialRating(ctx context.Context) (int, error) {
	var avg sql.NullFloat64
	row := s.db.QueryRowContext(ctx, `SELECT AVG(rating) FROM competitors`)
	if err := row.Scan(&avg); err != nil {
		return 0, fmt.Errorf("average rating: %w", err)
	}
	if !avg.Valid {
		return s.fallbackRating, nil
	}
	return int(avg.Float64 + 0.5), nil
}

// Matches returns the most recent match records, newest first.
func (s *SQLiteStore) Matches(ctx context.Context, limit int) ([]model.MatchRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, winner, loser, draw, occurred_at FROM matches ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.MatchRecord
	for rows.Next() {
		var (
			rec  model.MatchRecord
			draw int
			at   int64
		)
		if err := rows.Scan(&rec.SequenceID, &rec.WinnerID, &rec.LoserID, &draw, &at); err != nil {
			return nil, fmt.Errorf("scan match record: %w", err)
		}
		rec.IsDraw = draw != 0
		rec.OccurredAt = time.UnixMilli(at).UTC()
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	return out, nil
}

// Count returns the number of competitors tracked in the store.
func (s *SQLiteStore) Count(ctx context.Context) int {
	var n int
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM competitors`)
	if err := row.Scan(&n); err != nil {
		return 0
	}
	return n
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close sqlite db: %w", err)
	}
	return nil
}

// ratingOf reads a competitor's current rating inside tx.
func ratingOf(ctx context.Context, tx *sql.Tx, id string) (int, error) {
	var r int
	row := tx.QueryRowContext(ctx, `SELECT rating FROM competitors WHERE id = ?`, id)
	if err := row.Scan(&r); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("read rating: %w", err)
	}
	return r, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/tkarami/elorank/internal/adapters/broker"
	"github.com/tkarami/elorank/internal/adapters/repository"
	"github.com/tkarami/elorank/internal/domain/model"
	"github.com/tkarami/elorank/internal/domain/rating"
	"github.com/tkarami/elorank/pkg/logger"
	"github.com/tkarami/elorank/pkg/metrics"
)

// Service wires the rating store and the subscription broker behind the
// operations the HTTP layer needs: competitor creation, match
// processing, ranking reads and event stream subscriptions.
type Service struct {
	mu sync.RWMutex

	// Core components
	store    repository.Store
	ownStore bool
	events   *broker.Broker

	// Configuration
	dbPath           string
	kFactor          int
	initialRating    int
	subscriberBuffer int

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithDBPath sets the SQLite file backing the rating store.
func WithDBPath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.dbPath = path
		}
	}
}

// WithKFactor sets the Elo K-factor applied to every match.
func WithKFactor(k int) Option {
	return func(s *Service) {
		if k > 0 {
			s.kFactor = k
		}
	}
}

// WithInitialRating sets the fallback rating for an empty store.
func WithInitialRating(r int) Option {
	return func(s *Service) {
		if r > 0 {
			s.initialRating = r
		}
	}
}

// WithSubscriberBuffer bounds each event stream subscriber's channel.
func WithSubscriberBuffer(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.subscriberBuffer = size
		}
	}
}

// WithStore injects a pre-opened rating store; when unset, Start opens
// the SQLite store at the configured path.
func WithStore(st repository.Store) Option {
	return func(s *Service) {
		if st != nil {
			s.store = st
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		dbPath:           "elorank.db",
		kFactor:          rating.DefaultK,
		initialRating:    1000,
		subscriberBuffer: 64,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start opens the rating store and creates the subscription broker.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	// An injected store is used as-is; an owned one is (re)opened here.
	if s.store == nil || s.ownStore {
		store, err := repository.Open(ctx, s.dbPath,
			repository.WithKFactor(s.kFactor),
			repository.WithInitialRatingFallback(s.initialRating),
		)
		if err != nil {
			return err
		}
		s.store = store
		s.ownStore = true
	}
	s.events = broker.New(
		broker.WithBufferSize(s.subscriberBuffer),
	)

	s.started = true
	s.logger.Info(ctx, "ranking service started",
		logger.String("dbPath", s.dbPath),
		logger.Int("kFactor", s.kFactor),
		logger.Int("subscriberBuffer", s.subscriberBuffer),
	)

	return nil
}

// Stop tears down the broker and closes the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping ranking service...")

	// Closed components stay referenced: in-flight callers that passed
	// the started check may still touch them, and both are safe to use
	// after Close.
	if s.events != nil {
		_ = s.events.Close()
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Error(ctx, "failed to close store", logger.Error(err))
		}
	}

	s.started = false
	s.logger.Info(ctx, "ranking service stopped")
}

// CreateCompetitor registers a new competitor. When initialRating is
// nil the store's default (rounded mean, or the configured fallback on
// an empty store) is used. Emits a PlayerCreated event on success.
func (s *Service) CreateCompetitor(ctx context.Context, id string, initialRating *int) (model.Competitor, error) {
	if !s.running() {
		return model.Competitor{}, ErrNotStarted
	}
	if strings.TrimSpace(id) == "" {
		return model.Competitor{}, ErrInvalidRequest
	}

	r := 0
	if initialRating != nil {
		r = *initialRating
	} else {
		var err error
		r, err = s.store.DefaultInitialRating(ctx)
		if err != nil {
			return model.Competitor{}, err
		}
	}

	c, err := s.store.Create(ctx, id, r)
	if err != nil {
		return model.Competitor{}, err
	}

	metrics.RecordPlayerCreated()
	metrics.UpdateCompetitorCount(s.store.Count(ctx))
	s.events.Publish(ctx, model.PlayerCreated(c))

	s.logger.Debug(ctx, "competitor created",
		logger.String("id", c.ID),
		logger.Int("rating", c.Rating),
	)

	return c, nil
}

// ReportMatch validates and commits one reported match, then emits two
// RankingUpdate events in winner-then-loser order. The events are
// published only after the commit is durable; a failed commit emits
// nothing.
func (s *Service) ReportMatch(ctx context.Context, winnerID, loserID string, isDraw bool) (model.MatchResult, error) {
	if !s.running() {
		return model.MatchResult{}, ErrNotStarted
	}
	if strings.TrimSpace(winnerID) == "" || strings.TrimSpace(loserID) == "" {
		metrics.RecordMatchRejected("invalid_request")
		return model.MatchResult{}, ErrInvalidRequest
	}

	res, err := s.store.CommitMatch(ctx, winnerID, loserID, isDraw)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			metrics.RecordMatchRejected("unknown_competitor")
		} else {
			metrics.RecordMatchRejected("storage_error")
			s.events.Publish(ctx, model.ErrorEvent("match commit failed"))
			s.logger.Error(ctx, "match commit failed",
				logger.String("winner", winnerID),
				logger.String("loser", loserID),
				logger.Error(err),
			)
		}
		return model.MatchResult{}, err
	}

	metrics.RecordMatchProcessed()
	s.events.Publish(ctx, model.RankingUpdate(res.Winner))
	s.events.Publish(ctx, model.RankingUpdate(res.Loser))

	s.logger.Debug(ctx, "match committed",
		logger.String("winner", res.Winner.ID),
		logger.String("loser", res.Loser.ID),
		logger.Bool("draw", isDraw),
	)

	return res, nil
}

// Ranking returns all competitors ordered by rating descending.
func (s *Service) Ranking(ctx context.Context) ([]model.Competitor, error) {
	if !s.running() {
		return nil, ErrNotStarted
	}
	return s.store.List(ctx)
}

// Subscribe opens a new event stream subscription.
func (s *Service) Subscribe() (*broker.Subscriber, error) {
	if !s.running() {
		return nil, ErrNotStarted
	}
	return s.events.Subscribe()
}

// Unsubscribe removes an event stream subscription.
func (s *Service) Unsubscribe(sub *broker.Subscriber) {
	if !s.running() {
		return
	}
	s.events.Unsubscribe(sub)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started": s.started,
		"kFactor": s.kFactor,
	}

	if s.started {
		ctx := context.Background()
		competitors := s.store.Count(ctx)
		subscribers := s.events.Count()

		stats["competitors"] = competitors
		stats["subscribers"] = subscribers

		metrics.UpdateCompetitorCount(competitors)
		metrics.UpdateSubscriberCount(subscribers)
	}

	return stats
}

func (s *Service) running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

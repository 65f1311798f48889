package observer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tkarami/elorank/pkg/logger"
)

// Run executes a full simulation: register bots, reconcile a live
// ladder view, and generate random matches until the context ends.
func Run(ctx context.Context, config *Config) error {
	log := logger.Named("observer")
	start := time.Now()

	log.Info(ctx, "starting ranking simulation",
		logger.String("baseURL", config.BaseURL),
		logger.Int("bots", config.Bots),
		logger.String("interval", config.Interval.String()),
		logger.Float64("drawProbability", config.DrawProbability))

	client := NewClient(config.BaseURL, config.Timeout)

	if err := client.Health(ctx); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	if err := registerBots(ctx, client, config.Bots, log); err != nil {
		return err
	}

	view := NewView(client)
	if err := view.Start(ctx); err != nil {
		return fmt.Errorf("failed to start ladder view: %w", err)
	}
	defer view.Close()

	scheduler := NewScheduler(client, view.Ladder(),
		WithInterval(config.Interval),
		WithDrawProbability(config.DrawProbability))
	scheduler.Start(ctx)
	defer scheduler.Stop()

	if config.Duration > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(config.Duration):
		}
	} else {
		<-ctx.Done()
	}

	scheduler.Stop()
	view.Close()
	displayLadder(view.Ladder(), log)

	log.Info(context.Background(), "simulation finished",
		logger.Int64("elapsedMs", time.Since(start).Milliseconds()))
	return nil
}

// registerBots creates the bot competitors, tolerating ones that
// already exist from a previous run.
func registerBots(ctx context.Context, client *Client, count int, log logger.Logger) error {
	for i := 1; i <= count; i++ {
		id := fmt.Sprintf("bot-%02d", i)
		competitor, err := client.CreateCompetitor(ctx, id, nil)
		switch {
		case err == nil:
			log.Info(ctx, "registered bot",
				logger.String("id", competitor.ID),
				logger.Int("rating", competitor.Rating))
		case errors.Is(err, ErrAlreadyExists):
			log.Debug(ctx, "bot already registered", logger.String("id", id))
		default:
			return fmt.Errorf("failed to register bot %s: %w", id, err)
		}
	}
	return nil
}

func displayLadder(ladder *Ladder, log logger.Logger) {
	ctx := context.Background()
	for rank, competitor := range ladder.Snapshot() {
		log.Info(ctx, "final standing",
			logger.Int("rank", rank+1),
			logger.String("id", competitor.ID),
			logger.Int("rating", competitor.Rating))
	}
}

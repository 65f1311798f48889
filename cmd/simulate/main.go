package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/tkarami/elorank/internal/observer"
	"github.com/tkarami/elorank/pkg/logger"
)

func main() {
	defaults := observer.DefaultConfig()
	var (
		baseURL  = flag.String("url", defaults.BaseURL, "Base URL of the ranking service")
		bots     = flag.Int("bots", defaults.Bots, "Number of bot competitors to register")
		interval = flag.Duration("interval", defaults.Interval, "Delay between generated matches")
		drawProb = flag.Float64("draw", defaults.DrawProbability, "Probability a generated match is a draw")
		timeout  = flag.Duration("timeout", defaults.Timeout, "HTTP request timeout")
		duration = flag.Duration("duration", 0, "How long to run (0 runs until interrupted)")
		verbose  = flag.Bool("verbose", false, "Enable debug logging")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	config := &observer.Config{
		BaseURL:         *baseURL,
		Bots:            *bots,
		Interval:        *interval,
		DrawProbability: *drawProb,
		Timeout:         *timeout,
		Duration:        *duration,
		Verbose:         *verbose,
	}

	if err := observer.Run(ctx, config); err != nil {
		os.Stderr.WriteString("simulation failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}

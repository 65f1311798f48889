package observer

import "time"

// Config holds settings for a simulation run.
type Config struct {
	BaseURL         string        // Base URL of the ranking service
	Bots            int           // Number of bot competitors to register
	Interval        time.Duration // Delay between generated matches
	DrawProbability float64       // Chance a generated match is a draw
	Timeout         time.Duration // HTTP request timeout
	Duration        time.Duration // How long to run; 0 means until interrupted
	Verbose         bool          // Enable debug logging
}

// DefaultConfig returns the simulation defaults.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:         "http://localhost:8080",
		Bots:            8,
		Interval:        DefaultInterval,
		DrawProbability: DefaultDrawProbability,
		Timeout:         10 * time.Second,
	}
}

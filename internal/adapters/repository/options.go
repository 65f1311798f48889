package repository

// Option applies a configuration option to the SQLiteStore.
type Option func(*SQLiteStore)

// WithKFactor sets the Elo K-factor applied by CommitMatch.
func WithKFactor(k int) Option {
	return func(s *SQLiteStore) {
		if k > 0 {
			s.kFactor = k
		}
	}
}

// WithInitialRatingFallback sets the rating returned by
// DefaultInitialRating when the store holds no competitors.
func WithInitialRatingFallback(rating int) Option {
	return func(s *SQLiteStore) {
		if rating > 0 {
			s.fallbackRating = rating
		}
	}
}

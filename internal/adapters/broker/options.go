package broker

import "github.com/tkarami/elorank/pkg/logger"

// Option applies a configuration option to the Broker.
type Option func(*Broker)

// WithBufferSize bounds each subscriber's event channel. A subscriber
// that falls this many events behind is disconnected.
func WithBufferSize(size int) Option {
	return func(b *Broker) {
		if size > 0 {
			b.bufferSize = size
		}
	}
}

// WithLogger sets a custom logger for the broker.
func WithLogger(l logger.Logger) Option {
	return func(b *Broker) {
		if l != nil {
			b.logger = l
		}
	}
}

// Package broker fans ranking events out to live event stream subscribers.
//
// The broker is an explicit object owned by the service lifecycle; it
// keeps no replay log. Subscribers joining after a publish never see
// that event and are expected to pull a full snapshot first.
package broker

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/tkarami/elorank/internal/domain/model"
	"github.com/tkarami/elorank/pkg/logger"
	"github.com/tkarami/elorank/pkg/metrics"
)

// Default broker configuration constants.
const (
	defaultBufferSize = 64
)

// Subscriber is one open event stream. It is owned by the broker for
// its connection lifetime; consumers read from Events until it closes.
type Subscriber struct {
	id     string
	events chan model.RankingEvent
}

// ID returns the subscriber's unique id.
func (s *Subscriber) ID() string { return s.id }

// Events returns the subscriber's receive channel. The channel closes
// when the subscriber is removed, for any reason.
func (s *Subscriber) Events() <-chan model.RankingEvent { return s.events }

// Broker holds the live subscriber set and publishes events to all of
// them. Delivery is best-effort and FIFO per subscriber; a subscriber
// whose buffer overflows is disconnected permanently rather than
// allowed to stall the rest.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[string]*Subscriber
	bufferSize  int
	closed      bool

	logger logger.Logger
}

// New creates a broker with the given options.
func New(opts ...Option) *Broker {
	b := &Broker{
		subscribers: make(map[string]*Subscriber),
		bufferSize:  defaultBufferSize,
		logger:      logger.Get().Named("broker"),
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Subscribe registers a new subscriber and returns its handle.
func (b *Broker) Subscribe() (*Subscriber, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrClosed
	}

	sub := &Subscriber{
		id:     uuid.NewString(),
		events: make(chan model.RankingEvent, b.bufferSize),
	}
	b.subscribers[sub.id] = sub
	metrics.UpdateSubscriberCount(len(b.subscribers))

	return sub, nil
}

// Unsubscribe removes a subscriber and closes its channel. Removing a
// subscriber that is already gone has no effect.
func (b *Broker) Unsubscribe(sub *Subscriber) {
	if sub == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subscribers[sub.id]; !ok {
		return
	}
	delete(b.subscribers, sub.id)
	close(sub.events)
	metrics.UpdateSubscriberCount(len(b.subscribers))
}

// Publish delivers the event to every currently live subscriber.
// Sends are non-blocking: a subscriber whose buffer is full is dropped
// and disconnected so it cannot delay delivery to others.
func (b *Broker) Publish(ctx context.Context, event model.RankingEvent) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}

	var overflowed []*Subscriber
	for _, sub := range b.subscribers {
		select {
		case sub.events <- event:
			metrics.RecordEventPublished()
		default:
			overflowed = append(overflowed, sub)
		}
	}
	b.mu.RUnlock()

	for _, sub := range overflowed {
		b.logger.Warn(ctx, "dropping slow subscriber",
			logger.String("subscriber", sub.id),
			logger.Int("buffer", b.bufferSize),
		)
		metrics.RecordEventDropped()
		metrics.RecordErrorByComponent("broker", "overflow")
		b.Unsubscribe(sub)
	}
}

// Count returns the number of live subscribers.
func (b *Broker) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close tears down the broker, closing every subscriber channel.
// Publish and Subscribe calls after Close are no-ops and errors.
func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	for id, sub := range b.subscribers {
		delete(b.subscribers, id)
		close(sub.events)
	}
	metrics.UpdateSubscriberCount(0)

	return nil
}

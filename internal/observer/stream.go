package observer

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/tkarami/elorank/internal/domain/model"
	"github.com/tkarami/elorank/pkg/logger"
)

const dataPrefix = "data: "

// Subscribe opens the GET /ranking/events stream and decodes each SSE
// message into a RankingEvent. The returned channel closes when the
// stream ends, whether by context cancellation or a server-side drop.
//
// A dedicated client without a request timeout carries the stream; the
// regular timeout would sever a healthy long-lived connection.
func (c *Client) Subscribe(ctx context.Context) (<-chan model.RankingEvent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/ranking/events", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	streamClient := &http.Client{Transport: c.client.Transport}
	resp, err := streamClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET /ranking/events: %v: %w", err, ErrUnreachable)
	}
	if resp.StatusCode != http.StatusOK {
		drain(resp)
		return nil, fmt.Errorf("event stream returned status %d: %w", resp.StatusCode, ErrUnreachable)
	}

	events := make(chan model.RankingEvent)
	go func() {
		defer close(events)
		defer func() { _ = resp.Body.Close() }()

		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, dataPrefix) {
				continue
			}
			var ev model.RankingEvent
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, dataPrefix)), &ev); err != nil {
				continue
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return events, nil
}

// View keeps a Ladder reconciled against the live service: it holds
// the event subscription open, loads a full snapshot, then applies
// every streamed update. Subscribing before snapshotting means updates
// racing the snapshot are buffered and replayed; the idempotent merge
// absorbs the overlap.
type View struct {
	client *Client
	ladder *Ladder
	log    logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// ViewOption configures a View.
type ViewOption func(*View)

// WithViewLogger sets the logger used for stream diagnostics.
func WithViewLogger(log logger.Logger) ViewOption {
	return func(v *View) {
		v.log = log
	}
}

// NewView creates a view over the given client.
func NewView(client *Client, opts ...ViewOption) *View {
	v := &View{
		client: client,
		ladder: NewLadder(),
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.log == nil {
		v.log = logger.Named("observer.view")
	}
	return v
}

// Ladder exposes the reconciled ladder.
func (v *View) Ladder() *Ladder {
	return v.ladder
}

// Start subscribes, snapshots, and begins applying live events.
func (v *View) Start(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.cancel != nil {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)

	events, err := v.client.Subscribe(ctx)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	snapshot, err := v.client.Ranking(ctx)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to fetch ranking snapshot: %w", err)
	}
	v.ladder.ApplyAll(snapshot)

	v.cancel = cancel
	v.done = make(chan struct{})
	go v.consume(ctx, events, v.done)
	return nil
}

// Close stops event delivery and waits for the consumer to exit.
func (v *View) Close() {
	v.mu.Lock()
	cancel, done := v.cancel, v.done
	v.cancel, v.done = nil, nil
	v.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (v *View) consume(ctx context.Context, events <-chan model.RankingEvent, done chan<- struct{}) {
	defer close(done)

	for ev := range events {
		switch ev.Kind {
		case model.EventPlayerCreated, model.EventRankingUpdate:
			if ev.Competitor != nil {
				v.ladder.Apply(*ev.Competitor)
			}
		case model.EventError:
			v.log.Warn(ctx, "error event on ranking stream", logger.String("message", ev.Message))
		}
	}

	if ctx.Err() == nil {
		v.log.Warn(ctx, "ranking stream ended", logger.Error(ErrStreamClosed))
	}
}

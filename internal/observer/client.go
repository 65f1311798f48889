package observer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tkarami/elorank/internal/domain/model"
)

// Client is a thin HTTP client for the ranking service API.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

type competitorRequest struct {
	ID     string `json:"id"`
	Rating *int   `json:"rating,omitempty"`
}

type matchRequest struct {
	Winner string `json:"winner"`
	Loser  string `json:"loser"`
	Draw   bool   `json:"draw"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Health verifies the service answers GET /health.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.get(ctx, "/health")
	if err != nil {
		return err
	}
	defer drain(resp)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d: %w", resp.StatusCode, ErrUnreachable)
	}
	return nil
}

// CreateCompetitor registers a competitor, optionally at an explicit
// starting rating.
func (c *Client) CreateCompetitor(ctx context.Context, id string, rating *int) (model.Competitor, error) {
	resp, err := c.post(ctx, "/competitor", competitorRequest{ID: id, Rating: rating})
	if err != nil {
		return model.Competitor{}, err
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return model.Competitor{}, statusError(resp)
	}
	var competitor model.Competitor
	if err := json.NewDecoder(resp.Body).Decode(&competitor); err != nil {
		return model.Competitor{}, fmt.Errorf("failed to decode competitor: %w", err)
	}
	return competitor, nil
}

// ReportMatch submits one match outcome and returns both updated sides.
func (c *Client) ReportMatch(ctx context.Context, winnerID, loserID string, isDraw bool) (model.MatchResult, error) {
	resp, err := c.post(ctx, "/match", matchRequest{Winner: winnerID, Loser: loserID, Draw: isDraw})
	if err != nil {
		return model.MatchResult{}, err
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return model.MatchResult{}, statusError(resp)
	}
	var result model.MatchResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return model.MatchResult{}, fmt.Errorf("failed to decode match result: %w", err)
	}
	return result, nil
}

// Ranking fetches the full ladder snapshot, rating-descending.
func (c *Client) Ranking(ctx context.Context) ([]model.Competitor, error) {
	resp, err := c.get(ctx, "/ranking")
	if err != nil {
		return nil, err
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}
	var ladder []model.Competitor
	if err := json.NewDecoder(resp.Body).Decode(&ladder); err != nil {
		return nil, fmt.Errorf("failed to decode ranking: %w", err)
	}
	return ladder, nil
}

func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %v: %w", path, err, ErrUnreachable)
	}
	return resp, nil
}

func (c *Client) post(ctx context.Context, path string, body interface{}) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("POST %s: %v: %w", path, err, ErrUnreachable)
	}
	return resp, nil
}

// statusError maps an API error body to the observer sentinel kinds.
func statusError(resp *http.Response) error {
	var apiErr errorResponse
	_ = json.NewDecoder(resp.Body).Decode(&apiErr)

	var kind error
	switch resp.StatusCode {
	case http.StatusBadRequest:
		kind = ErrBadRequest
	case http.StatusConflict:
		kind = ErrAlreadyExists
	case http.StatusUnprocessableEntity:
		kind = ErrUnknownCompetitor
	default:
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, apiErr.Message)
	}
	if apiErr.Message != "" {
		return fmt.Errorf("%s: %w", apiErr.Message, kind)
	}
	return kind
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

package draftsim

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gavelhq/gavel/pkg/logger"
)

// Client drives the service API over HTTP
type Client struct {
	httpClient *http.Client
	baseURL    string
	log        logger.Logger
}

// NewClient creates an API client for the given configuration
func NewClient(cfg Config) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		log:        logger.Named("draftsim.client"),
	}
}

// WaitReady polls the readiness endpoint until the service answers or
// the context expires
func (c *Client) WaitReady(ctx context.Context) error {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		status, err := c.probe(ctx, "/readyz")
		if err == nil && status == StatusOK {
			return nil
		}
		select {
		case <-ctx.Done():
			if err != nil {
				return fmt.Errorf("service not ready: %w", err)
			}
			return fmt.Errorf("service not ready: status %d", status)
		case <-ticker.C:
		}
	}
}

// ConfigureDraft resets the draft with the given parameters and returns
// the draft id the service settled on
func (c *Client) ConfigureDraft(ctx context.Context, cfg Config) (string, error) {
	req := map[string]interface{}{
		"draft_id":     cfg.DraftID,
		"total_budget": cfg.TotalBudget,
		"total_slots":  cfg.TotalSlots,
	}
	var resp struct {
		Status  string `json:"status"`
		DraftID string `json:"draft_id"`
	}
	status, err := c.send(ctx, http.MethodPost, "/api/v1/draft", req, &resp)
	if err != nil {
		return "", err
	}
	if status != StatusOK {
		return "", fmt.Errorf("configure draft: status %d", status)
	}
	return resp.DraftID, nil
}

// LoadProjections replaces the projection pool
func (c *Client) LoadProjections(ctx context.Context, rows []ProjectionRow) (int, error) {
	var resp struct {
		Status string `json:"status"`
		Count  int    `json:"count"`
	}
	status, err := c.send(ctx, http.MethodPut, "/api/v1/projections", rows, &resp)
	if err != nil {
		return 0, err
	}
	if status != StatusOK {
		return 0, fmt.Errorf("load projections: status %d", status)
	}
	return resp.Count, nil
}

// SubmitPick submits one pick and returns the ack with the HTTP status
func (c *Client) SubmitPick(ctx context.Context, pick Pick) (Ack, int, error) {
	var ack Ack
	status, err := c.send(ctx, http.MethodPost, "/api/v1/picks", pick, &ack)
	if err != nil {
		return Ack{}, status, err
	}
	return ack, status, nil
}

// Snapshot fetches the latest inflation snapshot. A 503 means the draft
// has not produced one yet; the caller decides whether to keep waiting.
func (c *Client) Snapshot(ctx context.Context) (Snapshot, int, error) {
	var snap Snapshot
	status, err := c.getJSON(ctx, "/api/v1/inflation", &snap)
	return snap, status, err
}

// Board fetches the top n entries of the draft board
func (c *Client) Board(ctx context.Context, n int) ([]BoardEntry, error) {
	var entries []BoardEntry
	status, err := c.getJSON(ctx, fmt.Sprintf("/api/v1/board?n=%d", n), &entries)
	if err != nil {
		return nil, err
	}
	if status != StatusOK {
		return nil, fmt.Errorf("board: status %d", status)
	}
	return entries, nil
}

// Rank fetches the board entry for one player
func (c *Client) Rank(ctx context.Context, playerID string) (BoardEntry, error) {
	var entry BoardEntry
	status, err := c.getJSON(ctx, "/api/v1/players/"+playerID+"/rank", &entry)
	if err != nil {
		return BoardEntry{}, err
	}
	if status != StatusOK {
		return BoardEntry{}, fmt.Errorf("rank %s: status %d", playerID, status)
	}
	return entry, nil
}

// SubmitResult aggregates the outcome of the submission phase
type SubmitResult struct {
	Successful int
	Duplicate  int
	Failed     int
	Latencies  []time.Duration
}

// SubmitPicks pushes picks through a worker pool and collects per-pick
// latencies. Workers keep local tallies that are merged after the pool
// drains, so the hot path takes no locks.
func (c *Client) SubmitPicks(ctx context.Context, picks []Pick, workers int) SubmitResult {
	if workers < 1 {
		workers = 1
	}
	jobs := make(chan Pick, workers*WorkerChannelMultiplier)

	var wg sync.WaitGroup
	var processed atomic.Int64
	var lastReport atomic.Int64
	total := int64(len(picks))

	results := make([]SubmitResult, workers)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			local := &results[slot]
			for pick := range jobs {
				start := time.Now()
				ack, status, err := c.SubmitPick(ctx, pick)
				local.Latencies = append(local.Latencies, time.Since(start))

				switch {
				case err != nil:
					local.Failed++
					c.log.Debug(ctx, "pick submission failed",
						logger.String("event_id", pick.EventID), logger.Error(err))
				case ack.Duplicate:
					local.Duplicate++
				case status == StatusAccepted || status == StatusOK:
					local.Successful++
				default:
					local.Failed++
					c.log.Debug(ctx, "pick submission rejected",
						logger.String("event_id", pick.EventID), logger.Int("status", status))
				}

				reportProgress(processed.Add(1), total, &lastReport)
			}
		}(w)
	}

	for _, pick := range picks {
		jobs <- pick
	}
	close(jobs)
	wg.Wait()
	fmt.Println()

	var merged SubmitResult
	for _, r := range results {
		merged.Successful += r.Successful
		merged.Duplicate += r.Duplicate
		merged.Failed += r.Failed
		merged.Latencies = append(merged.Latencies, r.Latencies...)
	}
	return merged
}

// reportProgress rewrites the progress line, throttled so concurrent
// workers do not flood the terminal. The atomic swap keeps the throttle
// race-free without a mutex.
func reportProgress(done, total int64, last *atomic.Int64) {
	now := time.Now().UnixNano()
	prev := last.Load()
	if done < total && now-prev < int64(ProgressReportInterval) {
		return
	}
	if !last.CompareAndSwap(prev, now) && done < total {
		return
	}
	fmt.Printf("\r  submitted %d/%d picks", done, total)
}

// probe issues a GET and reports only the status code
func (c *Client) probe(ctx context.Context, path string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

// getJSON issues a GET and decodes the response body into out
func (c *Client) getJSON(ctx context.Context, path string, out interface{}) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != StatusOK {
		return resp.StatusCode, nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}
	return resp.StatusCode, nil
}

// send issues a JSON request and decodes the response into out. Error
// statuses decode the service's error envelope into the returned error
// so failures carry the server's own message.
func (c *Client) send(ctx context.Context, method, path string, payload, out interface{}) (int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return resp.StatusCode, decodeError(resp.StatusCode, data)
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

// decodeError turns the service's error envelope into a Go error
func decodeError(status int, body []byte) error {
	var envelope struct {
		Status string `json:"status"`
		Error  struct {
			Kind    string `json:"kind"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		return fmt.Errorf("status %d (%s): %s", status, envelope.Error.Kind, envelope.Error.Message)
	}
	return fmt.Errorf("status %d", status)
}

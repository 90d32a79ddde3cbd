package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTP executes single tasks against a swarm daemon over its HTTP API. It
// is the transport under a Parallel fan-out: one POST per task, bounded
// concurrency handled by the caller.
type HTTP struct {
	baseURL string
	client  *http.Client
}

// NewHTTP creates a task executor targeting the daemon at baseURL
// (e.g. "http://127.0.0.1:8787").
func NewHTTP(baseURL string) *HTTP {
	return &HTTP{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

// Execute runs one task on the daemon. A transport or decode failure means
// the engine is unreachable and is reported as ErrUnavailable; a task that
// ran and failed comes back as a Result with Success=false.
func (h *HTTP) Execute(ctx context.Context, task Task) (*Result, error) {
	body, err := json.Marshal(task)
	if err != nil {
		return nil, fmt.Errorf("failed to encode task: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+"/v1/execute", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build task request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: daemon returned %s", ErrUnavailable, resp.Status)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: bad task response: %v", ErrUnavailable, err)
	}

	return &result, nil
}

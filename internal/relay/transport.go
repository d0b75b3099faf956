package relay

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Transport issues one timed HTTP call to the relay endpoint per invocation.
// It carries no business knowledge: retry, pulse and restore policy live in
// the Client.
type Transport struct {
	client  *http.Client
	timeout time.Duration
}

func NewTransport(timeout time.Duration) *Transport {
	if timeout <= 0 {
		timeout = 4 * time.Second
	}
	return &Transport{
		client:  &http.Client{},
		timeout: timeout,
	}
}

// Call performs a single GET against url, bounded by the per-attempt
// timeout.  Timeouts and non-2xx statuses are failures.
func (t *Transport) Call(ctx context.Context, url string) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("relay request: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("relay call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("relay responded %d: %s", resp.StatusCode, string(body))
	}

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	return nil
}

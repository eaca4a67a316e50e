package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/marosg42/virtual-cluster/internal"
)

// Fetcher retrieves the agent inventory snapshot over HTTP.
type Fetcher struct {
	url    string
	client *http.Client
	log    *slog.Logger
}

func NewFetcher(url string, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		url:    url,
		client: &http.Client{Timeout: 30 * time.Second},
		log:    logger.With("component", "inventory"),
	}
}

// Agents fetches the full inventory. Transient failures are retried with
// backoff; a run cannot start without this snapshot.
func (f *Fetcher) Agents(ctx context.Context) ([]Agent, error) {
	return internal.RetryResultWithContext(ctx, 3, func() ([]Agent, error) {
		agents, err := f.fetch(ctx)
		if err != nil {
			f.log.Warn("Failed to retrieve agent data", "error", err)
		}
		return agents, err
	})
}

func (f *Fetcher) fetch(ctx context.Context) ([]Agent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build agent data request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch agent data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch agent data: unexpected status %s", resp.Status)
	}

	var agents []Agent
	if err := json.NewDecoder(resp.Body).Decode(&agents); err != nil {
		return nil, fmt.Errorf("decode agent data: %w", err)
	}
	return agents, nil
}

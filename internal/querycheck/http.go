package querycheck

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/okian/rigmatch/pkg/logger"
)

// Query outcomes.
const (
	outcomeOK       = "ok"
	outcomeNotFound = "not_found"
	outcomeFailed   = "failed"
)

// HTTPClient wraps http.Client with timeout
type HTTPClient struct {
	client *http.Client
}

// newHTTPClient creates a new HTTP client with timeout
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{client: &http.Client{Timeout: timeout}}
}

// Get performs a GET request
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with JSON body
func (c *HTTPClient) Post(ctx context.Context, url string, body any) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// readResponseBody reads and closes the response body
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer func() { _ = resp.Body.Close() }()
	return io.ReadAll(resp.Body)
}

// send posts q and decodes the response. A 404 (anchor not in the catalog)
// is an expected outcome for random ids.
func send(ctx context.Context, client *HTTPClient, baseURL string, q Query) (Response, string, error) {
	var body any = q.Similar
	if q.Kind == KindCompatible {
		body = q.Compatible
	}
	resp, err := client.Post(ctx, baseURL+"/"+q.Kind, body)
	if err != nil {
		return Response{}, outcomeFailed, err
	}
	data, err := readResponseBody(resp)
	if err != nil {
		return Response{}, outcomeFailed, err
	}
	switch resp.StatusCode {
	case http.StatusOK:
		var out Response
		if err := json.Unmarshal(data, &out); err != nil {
			return Response{}, outcomeFailed, fmt.Errorf("decode %s response: %w", q.Kind, err)
		}
		return out, outcomeOK, nil
	case http.StatusNotFound:
		return Response{}, outcomeNotFound, nil
	default:
		return Response{}, outcomeFailed, fmt.Errorf("%s returned %d: %s", q.Kind, resp.StatusCode, bytes.TrimSpace(data))
	}
}

// runQueries sends queries concurrently and checks every successful
// response. It returns the violations found.
func runQueries(ctx context.Context, cfg *Config, queries []Query, stats *Stats) []Violation {
	log := logger.Get()
	log.Info(ctx, "sending queries", logger.Int("queries", len(queries)), logger.Int("workers", cfg.Workers))

	client := newHTTPClient(cfg.Timeout)
	var (
		sent, ok, notFound, failed int64
		mu                         sync.Mutex
		violations                 []Violation
	)

	queryChan := make(chan Query, cfg.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for q := range queryChan {
				if ctx.Err() != nil {
					return
				}
				resp, outcome, err := send(ctx, client, cfg.BaseURL, q)
				atomic.AddInt64(&sent, 1)
				switch outcome {
				case outcomeOK:
					atomic.AddInt64(&ok, 1)
				case outcomeNotFound:
					atomic.AddInt64(&notFound, 1)
					continue
				default:
					atomic.AddInt64(&failed, 1)
					if cfg.Verbose {
						log.Warn(ctx, "query failed", logger.String("query", q.ID), logger.Error(err))
					}
					continue
				}
				if vs := checkResponse(q, resp); len(vs) > 0 {
					mu.Lock()
					violations = append(violations, vs...)
					mu.Unlock()
				}
			}
		}()
	}

	go func() {
		defer close(queryChan)
		for _, q := range queries {
			select {
			case <-ctx.Done():
				return
			case queryChan <- q:
			}
		}
	}()
	wg.Wait()

	stats.QueriesSent = int(atomic.LoadInt64(&sent))
	stats.QueriesOK = int(atomic.LoadInt64(&ok))
	stats.QueriesNotFound = int(atomic.LoadInt64(&notFound))
	stats.QueriesFailed = int(atomic.LoadInt64(&failed))
	stats.Violations = len(violations)
	return violations
}

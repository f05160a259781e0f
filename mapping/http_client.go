package mapping

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

const (
	// DefaultFetchTimeout bounds a single download of a coordinate list
	DefaultFetchTimeout = 30 * time.Second

	// DefaultMaxRetries is how many downloads are attempted before giving up
	DefaultMaxRetries = 3

	defaultBaseBackoff = 500 * time.Millisecond

	// coordinate lists are a few hundred rows; anything past 8 MB is not one
	maxListBytes = 8 << 20
)

// FetchOption configures how coordinate lists are downloaded
type FetchOption func(*fetchPolicy)

type fetchPolicy struct {
	timeout  time.Duration
	attempts int
	backoff  time.Duration
	client   *http.Client
}

func newFetchPolicy(opts []FetchOption) fetchPolicy {
	p := fetchPolicy{
		timeout:  DefaultFetchTimeout,
		attempts: DefaultMaxRetries,
		backoff:  defaultBaseBackoff,
	}
	for _, opt := range opts {
		opt(&p)
	}
	if p.attempts < 1 {
		p.attempts = 1
	}
	if p.client == nil {
		p.client = &http.Client{Timeout: p.timeout}
	}
	return p
}

// delay before the given attempt (1-based retries): backoff, 2*backoff, 4*backoff...
func (p fetchPolicy) delay(attempt int) time.Duration {
	return p.backoff << (attempt - 1)
}

// WithTimeout sets the per-request timeout. Ignored when WithHTTPClient is used.
func WithTimeout(d time.Duration) FetchOption {
	return func(p *fetchPolicy) { p.timeout = d }
}

// WithMaxRetries sets the number of attempts; values below 1 mean one attempt
func WithMaxRetries(n int) FetchOption {
	return func(p *fetchPolicy) { p.attempts = n }
}

// WithBaseBackoff sets the delay before the first retry; it doubles per retry
func WithBaseBackoff(d time.Duration) FetchOption {
	return func(p *fetchPolicy) { p.backoff = d }
}

// WithHTTPClient replaces the default client
func WithHTTPClient(client *http.Client) FetchOption {
	return func(p *fetchPolicy) { p.client = client }
}

// permanentError is a download failure another attempt cannot fix: a
// malformed list or a client-side HTTP status.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// FetchWalls downloads a wall list and parses it with LoadWalls. Network
// failures and 5xx/429 responses are retried; a list that does not parse
// fails immediately.
func FetchWalls(ctx context.Context, url string, opts ...FetchOption) ([]Segment, error) {
	return fetchList(ctx, url, LoadWalls, opts)
}

// FetchStartPositions downloads a start position list and parses it with
// LoadStartPositions, with the same retry rules as FetchWalls.
func FetchStartPositions(ctx context.Context, url string, opts ...FetchOption) ([]Point, error) {
	return fetchList(ctx, url, LoadStartPositions, opts)
}

func fetchList[T any](ctx context.Context, url string, parse func(io.Reader) (T, error), opts []FetchOption) (T, error) {
	var zero T
	if url == "" {
		return zero, fmt.Errorf("fetch input: URL is empty")
	}

	policy := newFetchPolicy(opts)

	var lastErr error
	for attempt := 0; attempt < policy.attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return zero, fmt.Errorf("fetch input: %w", ctx.Err())
			case <-time.After(policy.delay(attempt)):
			}
		}

		list, err := fetchOnce(ctx, policy.client, url, parse)
		if err == nil {
			return list, nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return zero, fmt.Errorf("fetch input: %w", perm.err)
		}
		if ctx.Err() != nil {
			return zero, fmt.Errorf("fetch input: %w", ctx.Err())
		}
		lastErr = err
		log.Printf("Fetching %s failed (attempt %d/%d): %v", url, attempt+1, policy.attempts, err)
	}

	return zero, fmt.Errorf("fetch input: all %d attempts failed: %w", policy.attempts, lastErr)
}

// fetchOnce downloads url once and parses the body. Parse errors and 4xx
// statuses (other than 429) come back as *permanentError.
func fetchOnce[T any](ctx context.Context, client *http.Client, url string, parse func(io.Reader) (T, error)) (T, error) {
	var zero T

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return zero, &permanentError{fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("Accept", "text/csv, text/plain")

	resp, err := client.Do(req)
	if err != nil {
		return zero, fmt.Errorf("HTTP GET %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return zero, fmt.Errorf("HTTP GET %s: status %d", url, resp.StatusCode)
	default:
		return zero, &permanentError{fmt.Errorf("HTTP GET %s: status %d", url, resp.StatusCode)}
	}

	// read fully first so a dropped connection is retried, not reported as
	// a malformed list
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxListBytes))
	if err != nil {
		return zero, fmt.Errorf("reading response from %s: %w", url, err)
	}

	list, err := parse(bytes.NewReader(body))
	if err != nil {
		return zero, &permanentError{fmt.Errorf("%s: %w", url, err)}
	}
	return list, nil
}

package docstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/tastemap/backend/internal/domain"
)

// DefaultMaxAttempts is the number of tries when ClientConfig.MaxAttempts is unset
const DefaultMaxAttempts = 3

// ClientConfig holds configuration for the document store client
type ClientConfig struct {
	BaseURL string
	APIKey  string
	// Timeout bounds a single HTTP attempt
	Timeout time.Duration
	// RequestsPerSecond and Burst pace outgoing requests
	RequestsPerSecond float64
	Burst             int
	// MaxAttempts is the number of tries for transient failures
	MaxAttempts int
	// BaseBackoff is the wait after the first failed attempt; it doubles per attempt
	BaseBackoff time.Duration
}

// Client handles communication with the remote preference document service
type Client struct {
	httpClient  *http.Client
	apiKey      string
	baseURL     string
	rateLimiter *rate.Limiter
	maxAttempts int
	baseBackoff time.Duration
	logger      zerolog.Logger
}

// NewClient creates a new document store client
func NewClient(config ClientConfig, logger zerolog.Logger) *Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	rps := config.RequestsPerSecond
	if rps <= 0 {
		rps = 50
	}
	burst := config.Burst
	if burst <= 0 {
		burst = 10
	}

	attempts := config.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}

	backoff := config.BaseBackoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		apiKey:      config.APIKey,
		baseURL:     config.BaseURL,
		rateLimiter: rate.NewLimiter(rate.Limit(rps), burst),
		maxAttempts: attempts,
		baseBackoff: backoff,
		logger:      logger.With().Str("component", "docstore").Logger(),
	}
}

// GetPreferences fetches the profile document of userID.
// Returns domain.ErrPreferencesNotFound on 404.
func (c *Client) GetPreferences(ctx context.Context, userID string) (*ProfileDocument, error) {
	body, err := c.do(ctx, http.MethodGet, c.documentURL(userID), nil)
	if err != nil {
		return nil, err
	}

	var doc ProfileDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("%w: failed to decode document: %v", domain.ErrPreferenceStoreFailure, err)
	}

	return &doc, nil
}

// PutPreferences stores the profile document, replacing any previous version
func (c *Client) PutPreferences(ctx context.Context, doc *ProfileDocument) error {
	if doc == nil || doc.UserID == "" {
		return fmt.Errorf("%w: document without user id", domain.ErrInvalidRequest)
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	_, err = c.do(ctx, http.MethodPut, c.documentURL(doc.UserID), payload)
	return err
}

func (c *Client) documentURL(userID string) string {
	return fmt.Sprintf("%s/v1/users/%s/preferences", c.baseURL, url.PathEscape(userID))
}

// do executes a request, retrying transport errors, 429 and 5xx responses
// with exponential backoff. 404 maps to ErrPreferencesNotFound.
func (c *Client) do(ctx context.Context, method, reqURL string, payload []byte) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}

		body, status, err := c.attempt(ctx, method, reqURL, payload)
		switch {
		case err != nil:
			c.logger.Debug().Err(err).Int("attempt", attempt).Str("method", method).Msg("request error")
			lastErr = fmt.Errorf("%w: %v", domain.ErrPreferenceStoreFailure, err)
		case status == http.StatusNotFound:
			return nil, domain.ErrPreferencesNotFound
		case status == http.StatusTooManyRequests:
			c.logger.Debug().Int("attempt", attempt).Str("method", method).Msg("throttled by remote store")
			lastErr = fmt.Errorf("%w: %w", domain.ErrPreferenceStoreFailure, domain.ErrRateLimited)
		case status >= 500:
			c.logger.Debug().Int("attempt", attempt).Int("status", status).Str("method", method).Msg("server error")
			lastErr = fmt.Errorf("%w: status %d", domain.ErrPreferenceStoreFailure, status)
		case status < 200 || status > 299:
			// Client errors are not transient
			return nil, fmt.Errorf("%w: status %d, body: %s", domain.ErrPreferenceStoreFailure, status, string(body))
		default:
			return body, nil
		}

		if attempt == c.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.exponentialBackoff(attempt)):
		}
	}

	c.logger.Warn().Err(lastErr).Str("method", method).Str("url", reqURL).Msg("all retries failed")
	return nil, lastErr
}

func (c *Client) attempt(ctx context.Context, method, reqURL string, payload []byte) ([]byte, int, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "TasteMap/1.0")
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

// exponentialBackoff returns baseBackoff * 2^(attempt-1)
func (c *Client) exponentialBackoff(attempt int) time.Duration {
	return c.baseBackoff * time.Duration(1<<(attempt-1))
}

// BackoffWithin returns a base backoff whose doubling waits across attempts
// use at most half of budget, leaving the rest for the requests themselves.
func BackoffWithin(budget time.Duration, attempts int) time.Duration {
	if attempts <= 1 || budget <= 0 {
		return 0
	}
	waits := time.Duration(1<<(attempts-1)) - 1
	return max(budget/2/waits, time.Millisecond)
}

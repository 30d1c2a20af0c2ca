package footballdata

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"

	"github.com/riskibarqy/livescore-sync/internal/platform/logging"
	"github.com/riskibarqy/livescore-sync/internal/platform/resilience"
	"github.com/riskibarqy/livescore-sync/internal/usecase"
)

const (
	defaultBaseURL = "https://api.football-data.org/v4"
	maxBodyBytes   = 2 << 20
)

// ErrTransient marks failures worth retrying on the next cycle.
var ErrTransient = crerr.Wrap(usecase.ErrProviderTransient, "football-data")

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	Token          string
	Timeout        time.Duration
	MaxRetries     int
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client reads single matches from the football-data.org v4 API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	maxRetries int
	logger     *logging.Logger
	breaker    *resilience.CircuitBreaker
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		token:      strings.TrimSpace(cfg.Token),
		maxRetries: max(cfg.MaxRetries, 0),
		logger:     logger.Named("footballdata"),
		breaker:    resilience.NewCircuitBreakerFromConfig(cfg.CircuitBreaker).OnStateChange(resilience.LogTransitions(logger, "football-data")),
	}
}

// FetchMatch returns nil, nil when the provider answers 429, 5xx or any other
// non-2xx status. Transport failures, undecodable bodies and an open circuit
// return an error wrapping ErrTransient.
func (c *Client) FetchMatch(ctx context.Context, matchID int64) (*usecase.ExternalMatch, error) {
	if matchID <= 0 {
		return nil, fmt.Errorf("%w: match id must be greater than zero", usecase.ErrInvalidInput)
	}

	if err := c.breaker.Allow(); err != nil {
		c.logger.WarnContext(ctx, "football-data circuit breaker rejected request", "state", c.breaker.State(), "match_id", matchID)
		return nil, crerr.Wrapf(ErrTransient, "circuit %s", c.breaker.State())
	}

	url := c.baseURL + "/matches/" + strconv.FormatInt(matchID, 10)
	status, raw, err := c.executeRequest(ctx, url)
	c.breaker.Record(err != nil || isRetryableStatus(status))
	if err != nil {
		return nil, err
	}

	switch {
	case isRetryableStatus(status):
		c.logger.WarnContext(ctx, "football-data asked to back off, retrying next cycle",
			"match_id", matchID,
			"status", status,
			"body", abbreviateBody(raw),
		)
		return nil, nil
	case status < 200 || status >= 300:
		c.logger.ErrorContext(ctx, "football-data rejected match request",
			"match_id", matchID,
			"status", status,
			"body", abbreviateBody(raw),
		)
		return nil, nil
	}

	var payload matchEnvelope
	if err := sonic.Unmarshal(raw, &payload); err != nil {
		return nil, crerr.Wrapf(ErrTransient, "decode match %d: %v", matchID, err)
	}
	match := payload.match()
	if match.ID == 0 {
		match.ID = matchID
	}
	return match.toExternal(), nil
}

func (c *Client) executeRequest(ctx context.Context, url string) (int, []byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return 0, nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if c.token != "" {
			req.Header.Set("X-Auth-Token", c.token)
		}

		resp, err := c.httpClient.Do(req)
		if err == nil {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
			_ = resp.Body.Close()
			if readErr == nil {
				return resp.StatusCode, raw, nil
			}
			lastErr = crerr.Wrapf(ErrTransient, "read response body: %v", readErr)
		} else {
			lastErr = crerr.Wrapf(ErrTransient, "send request: %s", c.sanitize(err.Error()))
		}

		if attempt == c.maxRetries {
			break
		}
		timer := time.NewTimer(time.Duration(attempt+1) * 500 * time.Millisecond)
		select {
		case <-ctx.Done():
			timer.Stop()
			return 0, nil, ctx.Err()
		case <-timer.C:
		}
	}

	c.logger.WarnContext(ctx, "football-data request failed", "url", url, "error", lastErr)
	return 0, nil, lastErr
}

func (c *Client) sanitize(text string) string {
	if c.token == "" {
		return text
	}
	return strings.ReplaceAll(text, c.token, "REDACTED")
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

func abbreviateBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) <= 240 {
		return text
	}
	return text[:240] + "..."
}

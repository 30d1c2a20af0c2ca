package jobqueue

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/valyala/bytebufferpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/riskibarqy/livescore-sync/internal/platform/logging"
	"github.com/riskibarqy/livescore-sync/internal/platform/resilience"
	"github.com/riskibarqy/livescore-sync/internal/usecase"
)

// ErrTransient marks publish failures the scheduler may retry.
var ErrTransient = crerr.Wrap(usecase.ErrDependencyUnavailable, "qstash")

const maxLoggedBody = 2048

type QStashPublisherConfig struct {
	HTTPClient       *http.Client
	BaseURL          string
	Token            string
	TargetBaseURL    string
	Retries          int
	InternalJobToken string
	Timeout          time.Duration
	CircuitBreaker   resilience.CircuitBreakerConfig
}

// QStashPublisher schedules the next live-score trigger as a delayed HTTP
// call back into this service.
type QStashPublisher struct {
	client           *http.Client
	publishBase      string
	token            string
	targetBase       string
	retries          int
	internalJobToken string
	logger           *logging.Logger
	breaker          *resilience.CircuitBreaker
}

// NewQStashPublisher validates both base URLs up front so a misconfigured
// deployment fails at startup instead of on the first publish.
func NewQStashPublisher(cfg QStashPublisherConfig, logger *logging.Logger) (*QStashPublisher, error) {
	if logger == nil {
		logger = logging.Default()
	}
	publishBase, err := validateHTTPBaseURL(cfg.BaseURL)
	if err != nil {
		return nil, crerr.Wrap(err, "invalid QSTASH_BASE_URL")
	}
	targetBase, err := validateHTTPBaseURL(cfg.TargetBaseURL)
	if err != nil {
		return nil, crerr.Wrap(err, "invalid QSTASH_TARGET_BASE_URL")
	}

	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	return &QStashPublisher{
		client:           client,
		publishBase:      publishBase,
		token:            strings.TrimSpace(cfg.Token),
		targetBase:       targetBase,
		retries:          max(cfg.Retries, 0),
		internalJobToken: strings.TrimSpace(cfg.InternalJobToken),
		logger:           logger.Named("qstash"),
		breaker:          resilience.NewCircuitBreakerFromConfig(cfg.CircuitBreaker).OnStateChange(resilience.LogTransitions(logger, "qstash")),
	}, nil
}

func (p *QStashPublisher) Enqueue(ctx context.Context, path string, payload any, delay time.Duration, deduplicationID string) error {
	path = "/" + strings.TrimLeft(strings.TrimSpace(path), "/")
	if path == "/" {
		return fmt.Errorf("%w: job path is required", usecase.ErrInvalidInput)
	}
	if err := p.breaker.Allow(); err != nil {
		p.logger.WarnContext(ctx, "qstash circuit breaker rejected publish", "state", p.breaker.State(), "path", path)
		return crerr.Wrapf(ErrTransient, "circuit %s", p.breaker.State())
	}

	if payload == nil {
		payload = map[string]any{}
	}
	body, err := sonic.Marshal(payload)
	if err != nil {
		return crerr.Wrap(err, "marshal job payload")
	}

	targetURL := p.targetBase + path
	publishURL := p.publishBase + "/v2/publish/" + targetURL
	delayHeader := formatDelay(delay)
	deduplicationID = strings.TrimSpace(deduplicationID)

	preview := curlPreview(publishURL, delayHeader, p.retries, deduplicationID, truncate(string(body), maxLoggedBody), p.internalJobToken != "")
	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.SetAttributes(
			attribute.String("qstash.target_url", targetURL),
			attribute.String("qstash.delay", delayHeader),
			attribute.String("qstash.deduplication_id", deduplicationID),
			attribute.String("qstash.curl_preview", preview),
		)
	}
	p.logger.DebugContext(ctx, "qstash publish request", "target_url", targetURL, "curl_preview", preview)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, publishURL, bytes.NewReader(body))
	if err != nil {
		return crerr.Wrap(err, "build qstash request")
	}
	req.Header.Set("Authorization", "Bearer "+p.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Upstash-Method", http.MethodPost)
	if p.retries > 0 {
		req.Header.Set("Upstash-Retries", strconv.Itoa(p.retries))
	}
	if delay > 0 {
		req.Header.Set("Upstash-Delay", delayHeader)
	}
	if deduplicationID != "" {
		req.Header.Set("Upstash-Deduplication-Id", deduplicationID)
	}
	if p.internalJobToken != "" {
		req.Header.Set("Upstash-Forward-X-Internal-Job-Token", p.internalJobToken)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.breaker.RecordFailure()
		return crerr.Wrapf(ErrTransient, "publish %s: %v", targetURL, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode/100 != 2 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxLoggedBody))
		text := strings.TrimSpace(string(raw))
		if isRetryableStatus(resp.StatusCode) {
			p.breaker.RecordFailure()
			return crerr.Wrapf(ErrTransient, "publish %s status=%d body=%s", targetURL, resp.StatusCode, text)
		}
		p.breaker.RecordSuccess()
		return crerr.Newf("publish %s status=%d body=%s", targetURL, resp.StatusCode, text)
	}

	p.breaker.RecordSuccess()
	p.logger.InfoContext(ctx, "next live-score run scheduled",
		"path", path,
		"delay", delayHeader,
		"deduplication_id", deduplicationID,
	)
	return nil
}

func formatDelay(delay time.Duration) string {
	if delay <= 0 {
		return "0s"
	}
	return strconv.Itoa(int(delay.Round(time.Second).Seconds())) + "s"
}

func validateHTTPBaseURL(raw string) (string, error) {
	candidate := strings.TrimSpace(raw)
	if candidate == "" {
		return "", crerr.New("value is empty")
	}
	parsed, err := url.Parse(candidate)
	if err != nil {
		return "", crerr.Wrapf(err, "parse %q", candidate)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", crerr.Newf("%q uses unsupported scheme %q", candidate, parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", crerr.Newf("%q has empty host", candidate)
	}
	return strings.TrimRight(candidate, "/"), nil
}

// curlPreview renders a copy-pasteable request with secrets masked.
func curlPreview(publishURL, delay string, retries int, deduplicationID, body string, forwardsToken bool) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	write := func(parts ...string) {
		for _, part := range parts {
			if buf.Len() > 0 {
				_ = buf.WriteByte(' ')
			}
			_, _ = buf.WriteString(part)
		}
	}
	header := func(value string) { write("-H", shellQuote(value)) }

	write("curl", "-X", "POST", shellQuote(publishURL))
	header("Authorization: Bearer ***")
	header("Content-Type: application/json")
	header("Upstash-Method: POST")
	if retries > 0 {
		header("Upstash-Retries: " + strconv.Itoa(retries))
	}
	if delay != "0s" {
		header("Upstash-Delay: " + delay)
	}
	if deduplicationID != "" {
		header("Upstash-Deduplication-Id: " + deduplicationID)
	}
	if forwardsToken {
		header("Upstash-Forward-X-Internal-Job-Token: ***")
	}
	write("-d", shellQuote(body))
	return buf.String()
}

func shellQuote(value string) string {
	return "'" + strings.ReplaceAll(value, "'", `'"'"'`) + "'"
}

func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	return value[:limit] + "...(truncated)"
}

func isRetryableStatus(code int) bool {
	return code == http.StatusRequestTimeout ||
		code == http.StatusTooManyRequests ||
		code >= http.StatusInternalServerError
}

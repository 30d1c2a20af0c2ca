package onesignal

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/valyala/bytebufferpool"
	"github.com/valyala/fasthttp"

	"github.com/riskibarqy/livescore-sync/internal/platform/logging"
	"github.com/riskibarqy/livescore-sync/internal/platform/resilience"
	"github.com/riskibarqy/livescore-sync/internal/usecase"
)

const defaultBaseURL = "https://onesignal.com/api/v1"

// ErrTransient marks 429/5xx answers, transport failures and an open circuit.
var ErrTransient = crerr.Wrap(usecase.ErrProviderTransient, "onesignal")

type ClientConfig struct {
	HTTPClient     *fasthttp.Client
	BaseURL        string
	AppID          string
	APIKey         string
	Timeout        time.Duration
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client talks to the OneSignal REST API over fasthttp.
type Client struct {
	httpClient *fasthttp.Client
	baseURL    string
	appID      string
	apiKey     string
	timeout    time.Duration
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
		httpClient = &fasthttp.Client{
			Name:                "livescore-sync",
			MaxIdleConnDuration: time.Minute,
		}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		appID:      strings.TrimSpace(cfg.AppID),
		apiKey:     strings.TrimSpace(cfg.APIKey),
		timeout:    timeout,
		logger:     logger.Named("onesignal"),
		breaker:    resilience.NewCircuitBreakerFromConfig(cfg.CircuitBreaker).OnStateChange(resilience.LogTransitions(logger, "onesignal")),
	}
}

type notificationRequest struct {
	AppID            string            `json:"app_id"`
	IncludePlayerIDs []string          `json:"include_player_ids"`
	Headings         map[string]string `json:"headings"`
	Contents         map[string]string `json:"contents"`
	Data             map[string]any    `json:"data,omitempty"`
}

type notificationResponse struct {
	ID         string `json:"id"`
	Recipients int    `json:"recipients"`
	Errors     any    `json:"errors"`
}

func (c *Client) SendNotification(ctx context.Context, msg usecase.PushMessage) (usecase.PushResponse, error) {
	if len(msg.Recipients) == 0 {
		return usecase.PushResponse{}, fmt.Errorf("%w: no recipients", usecase.ErrInvalidInput)
	}

	body := notificationRequest{
		AppID:            c.appID,
		IncludePlayerIDs: msg.Recipients,
		Headings:         map[string]string{"en": msg.Title},
		Contents:         map[string]string{"en": msg.Body},
		Data:             msg.Data,
	}

	status, raw, err := c.do(ctx, fasthttp.MethodPost, c.baseURL+"/notifications", body)
	if err != nil {
		return usecase.PushResponse{}, err
	}

	var decoded notificationResponse
	if len(raw) > 0 {
		if err := sonic.Unmarshal(raw, &decoded); err != nil {
			return usecase.PushResponse{}, crerr.Wrapf(ErrTransient, "decode notification response: %v", err)
		}
	}

	out := usecase.PushResponse{
		NotificationID:    strings.TrimSpace(decoded.ID),
		Recipients:        decoded.Recipients,
		Errors:            flattenErrors(decoded.Errors),
		InvalidRecipients: invalidPlayerIDs(decoded.Errors),
	}
	if status < 200 || status >= 300 {
		if len(out.Errors) == 0 {
			out.Errors = []string{fmt.Sprintf("status %d", status)}
		}
		out.NotificationID = ""
		c.logger.WarnContext(ctx, "onesignal rejected notification",
			"status", status,
			"recipients", len(msg.Recipients),
			"errors", out.Errors,
		)
	}
	return out, nil
}

// GetPlayer reads the device record. A 404 is reported as an invalid
// identifier so the caller can mark the token dead.
func (c *Client) GetPlayer(ctx context.Context, playerID string) (usecase.PushPlayer, error) {
	playerID = strings.TrimSpace(playerID)
	if playerID == "" {
		return usecase.PushPlayer{}, fmt.Errorf("%w: player id is required", usecase.ErrInvalidInput)
	}

	endpoint := c.baseURL + "/players/" + url.PathEscape(playerID)
	if c.appID != "" {
		endpoint += "?app_id=" + url.QueryEscape(c.appID)
	}

	status, raw, err := c.do(ctx, fasthttp.MethodGet, endpoint, nil)
	if err != nil {
		return usecase.PushPlayer{}, err
	}
	if status == fasthttp.StatusNotFound {
		return usecase.PushPlayer{Identifier: playerID, InvalidIdentifier: true}, nil
	}
	if status < 200 || status >= 300 {
		return usecase.PushPlayer{}, fmt.Errorf("onesignal player lookup status=%d", status)
	}

	doc := map[string]any{}
	if err := sonic.Unmarshal(raw, &doc); err != nil {
		return usecase.PushPlayer{}, crerr.Wrapf(ErrTransient, "decode player: %v", err)
	}
	return parsePlayer(playerID, doc), nil
}

// do runs one request through the breaker. 429 and 5xx come back as errors
// wrapping ErrTransient; other statuses are returned to the caller.
func (c *Client) do(ctx context.Context, method, endpoint string, payload any) (int, []byte, error) {
	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}
	if err := c.breaker.Allow(); err != nil {
		return 0, nil, crerr.Wrapf(ErrTransient, "circuit %s", c.breaker.State())
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(endpoint)
	req.Header.SetMethod(method)
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Basic "+c.apiKey)
	}

	if payload != nil {
		buf := bytebufferpool.Get()
		defer bytebufferpool.Put(buf)
		if err := sonic.ConfigDefault.NewEncoder(buf).Encode(payload); err != nil {
			c.breaker.RecordSuccess()
			return 0, nil, fmt.Errorf("encode onesignal payload: %w", err)
		}
		req.Header.SetContentType("application/json")
		req.SetBody(buf.B)
	}

	deadline := time.Now().Add(c.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}

	if err := c.httpClient.DoDeadline(req, resp, deadline); err != nil {
		c.breaker.RecordFailure()
		c.logger.WarnContext(ctx, "onesignal request failed", "method", method, "error", err)
		return 0, nil, crerr.Wrapf(ErrTransient, "%s onesignal: %s", method, c.sanitize(err.Error()))
	}

	status := resp.StatusCode()
	raw := append([]byte(nil), resp.Body()...)
	if status == fasthttp.StatusTooManyRequests || status >= fasthttp.StatusInternalServerError {
		c.breaker.RecordFailure()
		c.logger.WarnContext(ctx, "onesignal asked to back off", "method", method, "status", status)
		return status, nil, crerr.Wrapf(ErrTransient, "%s onesignal status=%d", method, status)
	}
	c.breaker.RecordSuccess()
	return status, raw, nil
}

func (c *Client) sanitize(text string) string {
	if c.apiKey == "" {
		return text
	}
	return strings.ReplaceAll(text, c.apiKey, "REDACTED")
}

func parsePlayer(playerID string, doc map[string]any) usecase.PushPlayer {
	out := usecase.PushPlayer{Identifier: playerID, Raw: doc}
	if id, ok := doc["identifier"].(string); ok && id != "" {
		out.Identifier = id
	}
	if invalid, ok := doc["invalid_identifier"].(bool); ok {
		out.InvalidIdentifier = invalid
	}
	if types, ok := doc["notification_types"].(float64); ok {
		v := int(types)
		out.NotificationTypes = &v
	}
	if lastActive, ok := doc["last_active"].(float64); ok && lastActive > 0 {
		at := time.Unix(int64(lastActive), 0).UTC()
		out.LastActive = &at
	}
	return out
}

// invalidPlayerIDs pulls the refused tokens out of an
// {"invalid_player_ids": [...]} errors object.
func invalidPlayerIDs(raw any) []string {
	doc, ok := raw.(map[string]any)
	if !ok {
		return nil
	}
	items, ok := doc["invalid_player_ids"].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if id, ok := item.(string); ok && strings.TrimSpace(id) != "" {
			out = append(out, id)
		}
	}
	return out
}

// flattenErrors accepts the shapes OneSignal uses for "errors": a list of
// strings or an object keyed by error kind.
func flattenErrors(raw any) []string {
	switch v := raw.(type) {
	case nil:
		return nil
	case string:
		if strings.TrimSpace(v) == "" {
			return nil
		}
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
		return out
	case map[string]any:
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		out := make([]string, 0, len(keys))
		for _, key := range keys {
			switch items := v[key].(type) {
			case []any:
				parts := make([]string, 0, len(items))
				for _, item := range items {
					parts = append(parts, fmt.Sprint(item))
				}
				out = append(out, key+": "+strings.Join(parts, ","))
			default:
				out = append(out, fmt.Sprintf("%s: %v", key, items))
			}
		}
		return out
	default:
		return []string{fmt.Sprint(v)}
	}
}

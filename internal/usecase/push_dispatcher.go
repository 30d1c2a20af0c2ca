package usecase

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/riskibarqy/livescore-sync/internal/platform/logging"
)

type DispatchResult struct {
	Accepted               bool
	NotificationID         string
	ProviderRecipientCount int
	Errors                 []string
	InvalidTokens          []string
}

// Delivered reports whether the provider created a notification. A delivered
// result with errors reached some devices and must not be resent.
func (r DispatchResult) Delivered() bool {
	return r.NotificationID != ""
}

// PushDispatcher sends one push and interprets the provider answer.
type PushDispatcher struct {
	provider PushProvider
	limiter  *rate.Limiter
	logger   *logging.Logger
}

// NewPushDispatcher paces sends at perSecond; zero or less disables pacing.
func NewPushDispatcher(provider PushProvider, perSecond float64, logger *logging.Logger) *PushDispatcher {
	if logger == nil {
		logger = logging.Default()
	}
	limit := rate.Inf
	burst := 1
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
		burst = max(1, int(perSecond))
	}
	return &PushDispatcher{
		provider: provider,
		limiter:  rate.NewLimiter(limit, burst),
		logger:   logger,
	}
}

// Send treats a provider notification id with no errors as accepted even when
// the provider's recipient count is lower than the tokens sent; that counter
// is known to lag.
func (d *PushDispatcher) Send(ctx context.Context, tokens []string, title, body string, data map[string]any) (DispatchResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PushDispatcher.Send")
	defer span.End()

	if len(tokens) == 0 {
		return DispatchResult{}, fmt.Errorf("%w: no device tokens", ErrInvalidInput)
	}
	if err := d.limiter.Wait(ctx); err != nil {
		return DispatchResult{}, fmt.Errorf("wait for push rate limit: %w", err)
	}

	resp, err := d.provider.SendNotification(ctx, PushMessage{
		Recipients: tokens,
		Title:      title,
		Body:       body,
		Data:       data,
	})
	if err != nil {
		return DispatchResult{Errors: []string{err.Error()}}, fmt.Errorf("send push: %w", err)
	}

	result := DispatchResult{
		Accepted:               resp.NotificationID != "" && len(resp.Errors) == 0,
		NotificationID:         resp.NotificationID,
		ProviderRecipientCount: resp.Recipients,
		Errors:                 resp.Errors,
		InvalidTokens:          resp.InvalidRecipients,
	}

	d.logger.DebugContext(ctx, "push dispatched",
		"notification_id", resp.NotificationID,
		"accepted", result.Accepted,
		"tokens_sent", len(tokens),
		"provider_recipients", resp.Recipients,
		"provider_errors", len(resp.Errors),
	)
	if result.Accepted && resp.Recipients < len(tokens) {
		d.logger.InfoContext(ctx, "push provider under-reported recipients",
			"notification_id", resp.NotificationID,
			"tokens_sent", len(tokens),
			"provider_recipients", resp.Recipients,
		)
	}
	return result, nil
}

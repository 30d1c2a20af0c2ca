package httpapi

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/riskibarqy/livescore-sync/internal/platform/logging"
	"github.com/riskibarqy/livescore-sync/internal/usecase"
)

// LiveSyncRunner runs one poll, diff and notify cycle.
type LiveSyncRunner interface {
	Run(ctx context.Context) (usecase.RunResult, error)
}

type Handler struct {
	liveSync  LiveSyncRunner
	lock      usecase.LockInspector
	logger    *logging.Logger
	validator *validator.Validate
}

func NewHandler(liveSync LiveSyncRunner, lock usecase.LockInspector, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		liveSync:  liveSync,
		lock:      lock,
		logger:    logger.Named("httpapi"),
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

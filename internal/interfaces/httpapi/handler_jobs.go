package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"

	"github.com/riskibarqy/livescore-sync/internal/usecase"
)

// liveSyncJobRequest is the optional trigger body. Schedulers may send none.
type liveSyncJobRequest struct {
	DispatchID string `json:"dispatch_id" validate:"omitempty,max=128,printascii"`
	Source     string `json:"source" validate:"omitempty,oneof=cron qstash manual cli"`
}

type liveSyncJobResponse struct {
	Success bool               `json:"success"`
	Message string             `json:"message"`
	Run     *usecase.RunResult `json:"run,omitempty"`
}

func (h *Handler) RunLiveSyncJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunLiveSyncJob")
	defer span.End()

	if h.liveSync == nil {
		writeError(ctx, w, fmt.Errorf("%w: live sync is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	req, err := h.decodeLiveSyncJobRequest(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	dispatchID := strings.TrimSpace(req.DispatchID)
	if dispatchID == "" {
		dispatchID = strings.TrimSpace(r.Header.Get("Upstash-Message-Id"))
	}
	logger := h.logger.With("dispatch_id", dispatchID, "source", req.Source)

	result, err := h.liveSync.Run(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "live sync job failed", "run_id", result.RunID, "error", err)
		writeError(ctx, w, err)
		return
	}

	logger.InfoContext(ctx, "live sync job finished",
		"run_id", result.RunID,
		"status", result.Status,
		"elapsed_ms", result.Elapsed.Milliseconds(),
	)
	writeSuccess(ctx, w, http.StatusOK, liveSyncJobResponse{
		Success: true,
		Message: result.Message,
		Run:     &result,
	})
}

func (h *Handler) GetRunLock(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetRunLock")
	defer span.End()

	if h.lock == nil {
		writeError(ctx, w, fmt.Errorf("%w: run lock inspection is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	status, err := h.lock.Inspect(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "inspect run lock failed", "error", err)
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, status)
}

func (h *Handler) decodeLiveSyncJobRequest(r *http.Request) (liveSyncJobRequest, error) {
	var req liveSyncJobRequest
	if r.Body == nil || r.Method == http.MethodGet {
		req.Source = strings.TrimSpace(r.URL.Query().Get("source"))
		return req, h.validateLiveSyncJobRequest(req)
	}

	decoder := jsoniter.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return liveSyncJobRequest{}, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err)
	}
	return req, h.validateLiveSyncJobRequest(req)
}

func (h *Handler) validateLiveSyncJobRequest(req liveSyncJobRequest) error {
	if err := h.validator.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return fmt.Errorf("%w: %s failed %q", usecase.ErrInvalidInput, fieldErrs[0].Field(), fieldErrs[0].Tag())
		}
		return fmt.Errorf("%w: %v", usecase.ErrInvalidInput, err)
	}
	return nil
}

package httpapi

import (
	"net/http"

	"github.com/riskibarqy/livescore-sync/internal/platform/logging"
)

func NewRouter(
	handler *Handler,
	metrics http.Handler,
	logger *logging.Logger,
	internalJobToken string,
) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}
	logger = logger.Named("httpapi")

	mux := http.NewServeMux()
	registerSystemRoutes(mux, handler, metrics)
	registerInternalJobRoutes(mux, handler, internalJobToken)

	return RequestTracing(RequestLogging(logger, recoverPanic(logger, mux)))
}

func recoverPanic(logger *logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := startSpan(r.Context(), "httpapi.recoverPanic")
		defer span.End()

		defer func() {
			if rec := recover(); rec != nil {
				logger.ErrorContext(ctx, "panic recovered", "panic", rec, "path", r.URL.Path)
				writeInternalError(ctx, w)
			}
		}()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

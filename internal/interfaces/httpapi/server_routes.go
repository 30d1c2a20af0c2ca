package httpapi

import (
	"net/http"

	"github.com/riskibarqy/livescore-sync/internal/usecase"
)

func registerSystemRoutes(mux *http.ServeMux, handler *Handler, metrics http.Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}
}

func registerInternalJobRoutes(mux *http.ServeMux, handler *Handler, internalJobToken string) {
	// Schedulers differ on the verb they fire with, so the trigger accepts both.
	run := RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunLiveSyncJob))
	mux.Handle("GET "+usecase.LiveSyncJobPath, run)
	mux.Handle("POST "+usecase.LiveSyncJobPath, run)
	mux.Handle("GET "+usecase.LiveSyncJobPath+"/lock", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.GetRunLock)))
}

package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/riskibarqy/livescore-sync/internal/usecase"
)

func TestRunMetrics_ObserveRun(t *testing.T) {
	t.Parallel()

	m, err := NewRunMetrics("livescore")
	if err != nil {
		t.Fatalf("NewRunMetrics error: %v", err)
	}

	m.ObserveRun(usecase.RunResult{
		Status:          usecase.RunStatusCompleted,
		FixturesPolled:  4,
		ProviderSkipped: 1,
		OrphanScores:    2,
		Events:          map[string]int{"scoreChanged": 2},
		Notifications:   usecase.DeliveryReport{Sent: 3, Partial: 1, Failed: 1},
	}, 2*time.Second)
	m.ObserveRun(usecase.RunResult{Status: usecase.RunStatusSkipped}, 0)

	if got := testutil.ToFloat64(m.runsTotal.WithLabelValues(usecase.RunStatusCompleted)); got != 1 {
		t.Fatalf("unexpected completed runs got=%v want=1", got)
	}
	if got := testutil.ToFloat64(m.runsTotal.WithLabelValues(usecase.RunStatusSkipped)); got != 1 {
		t.Fatalf("unexpected skipped runs got=%v want=1", got)
	}
	if got := testutil.ToFloat64(m.fixturesPolled); got != 4 {
		t.Fatalf("unexpected fixtures polled got=%v want=4", got)
	}
	if got := testutil.ToFloat64(m.eventsTotal.WithLabelValues("scoreChanged")); got != 2 {
		t.Fatalf("unexpected events got=%v want=2", got)
	}
	if got := testutil.ToFloat64(m.pushesTotal.WithLabelValues("sent")); got != 3 {
		t.Fatalf("unexpected sent pushes got=%v want=3", got)
	}
	if got := testutil.ToFloat64(m.pushesTotal.WithLabelValues("partial")); got != 1 {
		t.Fatalf("unexpected partial pushes got=%v want=1", got)
	}
	if got := testutil.ToFloat64(m.orphanScores); got != 2 {
		t.Fatalf("unexpected orphan gauge got=%v want=2", got)
	}
}

func TestRunMetrics_Handler(t *testing.T) {
	t.Parallel()

	m, err := NewRunMetrics("livescore")
	if err != nil {
		t.Fatalf("NewRunMetrics error: %v", err)
	}
	m.ObserveRun(usecase.RunResult{Status: usecase.RunStatusCompleted}, time.Second)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status got=%d want=200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "livescore_live_sync_runs_total") {
		t.Fatalf("metrics body missing run counter")
	}
}

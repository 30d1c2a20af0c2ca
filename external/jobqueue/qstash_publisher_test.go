package jobqueue

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/riskibarqy/livescore-sync/internal/platform/resilience"
	"github.com/riskibarqy/livescore-sync/internal/usecase"
)

func TestQStashPublisher_EnqueueSetsSchedulingHeaders(t *testing.T) {
	t.Parallel()

	var (
		gotPath    string
		gotHeaders http.Header
		gotBody    string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotHeaders = r.Header.Clone()
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	publisher, err := NewQStashPublisher(QStashPublisherConfig{
		BaseURL:          srv.URL,
		Token:            "qstash-token",
		TargetBaseURL:    "https://livescore.example.com/",
		Retries:          2,
		InternalJobToken: "job-token",
	}, nil)
	if err != nil {
		t.Fatalf("NewQStashPublisher error: %v", err)
	}

	err = publisher.Enqueue(context.Background(), usecase.LiveSyncJobPath, map[string]any{"dispatch_id": "live-scores-gw5"}, 90*time.Second, " live-scores-gw5 ")
	if err != nil {
		t.Fatalf("Enqueue error: %v", err)
	}

	wantPath := "/v2/publish/https://livescore.example.com" + usecase.LiveSyncJobPath
	if gotPath != wantPath {
		t.Fatalf("unexpected publish path got=%s want=%s", gotPath, wantPath)
	}
	checks := map[string]string{
		"Authorization":                        "Bearer qstash-token",
		"Upstash-Delay":                        "90s",
		"Upstash-Retries":                      "2",
		"Upstash-Deduplication-Id":             "live-scores-gw5",
		"Upstash-Forward-X-Internal-Job-Token": "job-token",
	}
	for key, want := range checks {
		if got := gotHeaders.Get(key); got != want {
			t.Fatalf("unexpected header %s got=%q want=%q", key, got, want)
		}
	}
	if !strings.Contains(gotBody, `"dispatch_id":"live-scores-gw5"`) {
		t.Fatalf("unexpected body: %s", gotBody)
	}
}

func TestQStashPublisher_ServerErrorIsTransient(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	publisher, err := NewQStashPublisher(QStashPublisherConfig{
		BaseURL:        srv.URL,
		TargetBaseURL:  "https://livescore.example.com",
		CircuitBreaker: resilience.CircuitBreakerConfig{Enabled: true, FailureThreshold: 1, OpenTimeout: time.Hour},
	}, nil)
	if err != nil {
		t.Fatalf("NewQStashPublisher error: %v", err)
	}

	err = publisher.Enqueue(context.Background(), "jobs", nil, 0, "")
	if !errors.Is(err, ErrTransient) || !errors.Is(err, usecase.ErrDependencyUnavailable) {
		t.Fatalf("expected transient error, got=%v", err)
	}
	err = publisher.Enqueue(context.Background(), "jobs", nil, 0, "")
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("expected open circuit error, got=%v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("unexpected publish calls got=%d want=1", got)
	}
}

func TestNewQStashPublisher_RejectsBadURLs(t *testing.T) {
	t.Parallel()

	if _, err := NewQStashPublisher(QStashPublisherConfig{BaseURL: "ftp://x", TargetBaseURL: "https://ok"}, nil); err == nil {
		t.Fatalf("expected error for unsupported scheme")
	}
	if _, err := NewQStashPublisher(QStashPublisherConfig{BaseURL: "https://qstash.io"}, nil); err == nil {
		t.Fatalf("expected error for empty target")
	}
}

func TestCurlPreviewMasksSecrets(t *testing.T) {
	t.Parallel()

	preview := curlPreview("https://q/v2/publish/x", "30s", 0, "id-1", `{"a":"it's"}`, true)
	if strings.Contains(preview, "qstash-token") || !strings.Contains(preview, "Bearer ***") {
		t.Fatalf("token not masked: %s", preview)
	}
	if !strings.Contains(preview, "Upstash-Delay: 30s") || !strings.Contains(preview, "Upstash-Deduplication-Id: id-1") {
		t.Fatalf("missing headers: %s", preview)
	}
	if !strings.Contains(preview, `'{"a":"it'"'"'s"}'`) {
		t.Fatalf("body not shell quoted: %s", preview)
	}
}

package notifications_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"creatorsync/internal/config"
	"creatorsync/internal/logging"
	"creatorsync/internal/notifications"
)

func TestNewServiceFallsBackToLogWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""

	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "info", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("logging.New: %v", err)
	}
	svc := notifications.NewService(&cfg, logger)
	payload := notifications.Payload{
		"run_type": "enrichment",
		"status":   "completed",
		"counters": map[string]int{"enriched": 3},
	}
	if err := svc.Publish(context.Background(), notifications.EventRunCompleted, payload); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `"event_type":"run_completed"`) || !strings.Contains(out, `"enriched":3`) {
		t.Fatalf("expected run report in log output, got %s", out)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		event          notifications.Event
		payload        notifications.Payload
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name:          "run started",
			event:         notifications.EventRunStarted,
			payload:       notifications.Payload{"run_type": "sync", "run_id": "r-1"},
			expectTitle:   "creatorsync - sync started",
			expectMessage: "Started sync run r-1",
			expectTags:    "creatorsync,sync,started",
		},
		{
			name:  "run completed",
			event: notifications.EventRunCompleted,
			payload: notifications.Payload{
				"run_type":    "enrichment",
				"status":      "completed",
				"stop_reason": "batch_complete",
				"duration":    "42s",
				"counters":    map[string]int{"not_found": 1, "enriched": 2},
			},
			expectTitle:   "creatorsync - enrichment complete",
			expectMessage: "enrichment run completed (batch_complete) in 42s\nenriched=2 not_found=1",
			expectTags:    "creatorsync,enrichment,completed",
		},
		{
			name:  "run failed",
			event: notifications.EventRunCompleted,
			payload: notifications.Payload{
				"run_type":    "sync",
				"status":      "failed",
				"stop_reason": "api_error",
				"error":       "order feed unauthorized",
			},
			expectTitle:    "creatorsync - sync failed",
			expectMessage:  "sync run failed (api_error)\nError: order feed unauthorized",
			expectTags:     "creatorsync,sync,error",
			expectPriority: "high",
		},
		{
			name:           "test",
			event:          notifications.EventTest,
			expectTitle:    "creatorsync - Test",
			expectMessage:  "Notification system test",
			expectTags:     "creatorsync,test",
			expectPriority: "low",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				title    string
				tags     string
				priority string
				body     string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Errorf("read body: %v", err)
				}
				captured.body = string(body)
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5
			cfg.Notifications.RunStarted = true

			svc := notifications.NewService(&cfg, nil)
			if err := svc.Publish(context.Background(), tc.event, tc.payload); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceIgnoresDisabledEvents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected call for disabled event: %s", r.URL.String())
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.RunStarted = false

	svc := notifications.NewService(&cfg, nil)
	if err := svc.Publish(context.Background(), notifications.EventRunStarted, notifications.Payload{"run_type": "sync"}); err != nil {
		t.Fatalf("expected no error for disabled event, got %v", err)
	}
}

func TestNtfyServiceReportsHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic locked", http.StatusForbidden)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL

	svc := notifications.NewService(&cfg, nil)
	err := svc.Publish(context.Background(), notifications.EventTest, nil)
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected ntfy status error, got %v", err)
	}
}

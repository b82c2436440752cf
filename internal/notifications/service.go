package notifications

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"creatorsync/internal/config"
	"creatorsync/internal/logging"
)

const userAgent = "creatorsync/0.1.0"

// Event identifies a run lifecycle milestone.
type Event string

const (
	EventRunStarted   Event = "run_started"
	EventRunCompleted Event = "run_completed"
	EventTest         Event = "test"
)

// Payload carries event attributes. Known keys: run_type, run_id, status,
// stop_reason, duration, counters (map[string]int), error.
type Payload map[string]any

// Service publishes events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds the configured sink: ntfy when a topic is set, otherwise
// the structured log. Events disabled in config are dropped.
func NewService(cfg *config.Config, logger *slog.Logger) Service {
	if cfg == nil {
		return noopService{}
	}
	enabled := map[Event]bool{
		EventRunStarted:   cfg.Notifications.RunStarted,
		EventRunCompleted: cfg.Notifications.RunCompleted,
		EventTest:         true,
	}

	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return &logService{logger: logging.NewComponentLogger(logger, "notifications"), enabled: enabled}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		enabled:  enabled,
	}
}

// NewNoop returns a service that drops every event.
func NewNoop() Service {
	return noopService{}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

func format(event Event, payload Payload) message {
	runType := stringValue(payload, "run_type")
	if runType == "" {
		runType = "run"
	}
	switch event {
	case EventRunStarted:
		return message{
			title: "creatorsync - " + runType + " started",
			body:  fmt.Sprintf("Started %s run %s", runType, stringValue(payload, "run_id")),
			tags:  []string{"creatorsync", runType, "started"},
		}
	case EventRunCompleted:
		status := stringValue(payload, "status")
		var b strings.Builder
		fmt.Fprintf(&b, "%s run %s", runType, status)
		if reason := stringValue(payload, "stop_reason"); reason != "" {
			fmt.Fprintf(&b, " (%s)", reason)
		}
		if d := stringValue(payload, "duration"); d != "" {
			fmt.Fprintf(&b, " in %s", d)
		}
		if counters := formatCounters(payload["counters"]); counters != "" {
			b.WriteString("\n")
			b.WriteString(counters)
		}
		msg := message{
			title: "creatorsync - " + runType + " complete",
			body:  b.String(),
			tags:  []string{"creatorsync", runType, "completed"},
		}
		if errText := stringValue(payload, "error"); errText != "" || status == "failed" {
			msg.title = "creatorsync - " + runType + " failed"
			if errText != "" {
				msg.body += "\nError: " + errText
			}
			msg.tags = []string{"creatorsync", runType, "error"}
			msg.priority = "high"
		}
		return msg
	default:
		return message{
			title:    "creatorsync - Test",
			body:     "Notification system test",
			tags:     []string{"creatorsync", "test"},
			priority: "low",
		}
	}
}

func stringValue(payload Payload, key string) string {
	v, ok := payload[key]
	if !ok || v == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

func formatCounters(raw any) string {
	counters, ok := raw.(map[string]int)
	if !ok || len(counters) == 0 {
		return ""
	}
	names := make([]string, 0, len(counters))
	for name := range counters {
		names = append(names, name)
	}
	slices.Sort(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s=%d", name, counters[name]))
	}
	return strings.Join(parts, " ")
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	enabled  map[Event]bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if n == nil || n.client == nil || !n.enabled[event] {
		return nil
	}
	return n.send(ctx, format(event, payload))
}

func (n *ntfyService) send(ctx context.Context, data message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type logService struct {
	logger  *slog.Logger
	enabled map[Event]bool
}

func (l *logService) Publish(ctx context.Context, event Event, payload Payload) error {
	if !l.enabled[event] {
		return nil
	}
	msg := format(event, payload)
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, string(event)),
		logging.String("title", msg.title),
	}
	if counters, ok := payload["counters"].(map[string]int); ok {
		attrs = append(attrs, logging.Any("counters", counters))
	}
	logging.WithContext(ctx, l.logger).Info(msg.body, logging.Args(attrs...)...)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }

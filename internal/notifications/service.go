package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"reportwatch/internal/config"
)

const userAgent = "reportwatch/0.1"

// Event names a notification template.
type Event string

const (
	EventFilesFound     Event = "files_found"
	EventFilesNotFound  Event = "files_not_found"
	EventRetryScheduled Event = "retry_scheduled"
	EventCompleted      Event = "completed"
	EventError          Event = "error"
	EventTest           Event = "test"
)

// Payload carries template values keyed by name.
type Payload map[string]any

// Service publishes notifications.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// Events disabled in cfg are accepted and dropped.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		enabled: map[Event]bool{
			EventFilesFound:     cfg.Notifications.Found,
			EventFilesNotFound:  cfg.Notifications.NotFound,
			EventRetryScheduled: cfg.Notifications.Retry,
			EventCompleted:      cfg.Notifications.Completed,
			EventError:          cfg.Notifications.Errors,
			EventTest:           true,
		},
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	enabled  map[Event]bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if !n.enabled[event] {
		return nil
	}
	msg, ok := render(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func render(event Event, p Payload) (message, bool) {
	switch event {
	case EventFilesFound:
		return message{
			title: "Reportwatch - Files Found",
			body:  fmt.Sprintf("📄 Found %d files (%s)", p.int("found"), p.text("trigger")),
			tags:  []string{"reportwatch", "files", "found"},
		}, true
	case EventFilesNotFound:
		return message{
			title: "Reportwatch - No Files",
			body:  fmt.Sprintf("No matching files found (%s)", p.text("trigger")),
			tags:  []string{"reportwatch", "files", "missing"},
		}, true
	case EventRetryScheduled:
		return message{
			title: "Reportwatch - Retry Scheduled",
			body:  "🔁 " + p.text("message"),
			tags:  []string{"reportwatch", "retry"},
		}, true
	case EventCompleted:
		body := fmt.Sprintf("✅ Processed %d files in %s", p.int("processed"), p.text("duration"))
		if skipped := p.int("skipped"); skipped > 0 {
			body += fmt.Sprintf(" (%d already processed)", skipped)
		}
		return message{
			title: "Reportwatch - Processing Complete",
			body:  body,
			tags:  []string{"reportwatch", "processing", "completed"},
		}, true
	case EventError:
		var b strings.Builder
		b.WriteString("❌ Error")
		if label := p.text("context"); label != "" {
			b.WriteString(" during ")
			b.WriteString(label)
		}
		b.WriteString(": ")
		if errText := p.text("error"); errText != "" {
			b.WriteString(errText)
		} else {
			b.WriteString("unknown")
		}
		return message{
			title:    "Reportwatch - Error",
			body:     b.String(),
			tags:     []string{"reportwatch", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "Reportwatch - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"reportwatch", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func (p Payload) text(key string) string {
	v, ok := p[key]
	if !ok || v == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

func (p Payload) int(key string) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	default:
		return 0
	}
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
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

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }

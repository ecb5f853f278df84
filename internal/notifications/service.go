package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"anchorage/internal/config"
)

const userAgent = "Anchorage/0.1.0"

// Service defines the notification surface exposed to the loop and CLI.
type Service interface {
	NotifyNodeOnline(ctx context.Context, peerID, multiaddress string) error
	NotifySnapshotPublished(ctx context.Context, cid string, secured bool) error
	NotifyQueueProcessed(ctx context.Context, done, failed int) error
	NotifyError(ctx context.Context, err error, operation string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
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
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyNodeOnline(ctx context.Context, peerID, multiaddress string) error {
	message := fmt.Sprintf("Node online: %s", strings.TrimSpace(peerID))
	if multiaddress = strings.TrimSpace(multiaddress); multiaddress != "" {
		message += "\n" + multiaddress
	}
	data := payload{
		title:   "Anchorage - Node Online",
		message: message,
		tags:    []string{"anchorage", "node", "online"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifySnapshotPublished(ctx context.Context, cid string, secured bool) error {
	message := "Status snapshot published"
	if cid = strings.TrimSpace(cid); cid != "" {
		message += ": " + cid
	}
	if secured {
		message += " (secured)"
	}
	data := payload{
		title:   "Anchorage - Snapshot",
		message: message,
		tags:    []string{"anchorage", "snapshot", "published"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyQueueProcessed(ctx context.Context, done, failed int) error {
	data := payload{
		title:   "Anchorage - Queue",
		message: fmt.Sprintf("Queue drained: %d fetched, %d failed", done, failed),
		tags:    []string{"anchorage", "queue", "processed"},
	}
	if failed > 0 {
		data.priority = "high"
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, operation string) error {
	var builder strings.Builder
	builder.WriteString("Error")
	if operation = strings.TrimSpace(operation); operation != "" {
		builder.WriteString(" during ")
		builder.WriteString(operation)
	}
	if err != nil {
		builder.WriteString(": ")
		builder.WriteString(err.Error())
	}
	data := payload{
		title:    "Anchorage - Error",
		message:  builder.String(),
		tags:     []string{"anchorage", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Anchorage - Test",
		message:  "Notification system test",
		tags:     []string{"anchorage", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
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

type noopService struct{}

func (noopService) NotifyNodeOnline(context.Context, string, string) error      { return nil }
func (noopService) NotifySnapshotPublished(context.Context, string, bool) error { return nil }
func (noopService) NotifyQueueProcessed(context.Context, int, int) error        { return nil }
func (noopService) NotifyError(context.Context, error, string) error            { return nil }
func (noopService) TestNotification(context.Context) error                      { return nil }

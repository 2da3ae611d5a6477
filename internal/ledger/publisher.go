package ledger

import (
	"context"
	"log/slog"
	"time"

	"github.com/mmynk/settlewise/internal/metrics"
	"github.com/mmynk/settlewise/internal/models"
)

// Publisher broadcasts events to a group's listeners.
type Publisher interface {
	Publish(ctx context.Context, groupID string, event models.Event) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, models.Event) error { return nil }

// notifier publishes committed changes. Failures are logged and swallowed.
type notifier struct {
	publisher Publisher
	metrics   *metrics.Metrics
	now       func() time.Time
}

func (n notifier) publish(ctx context.Context, event models.Event) {
	if n.publisher == nil {
		return
	}
	if event.At == 0 {
		event.At = n.now().Unix()
	}
	if err := n.publisher.Publish(ctx, event.GroupID, event); err != nil {
		slog.Warn("Failed to publish event", "type", event.Type, "group_id", event.GroupID, "error", err)
		return
	}
	n.metrics.EventPublished(string(event.Type))
}

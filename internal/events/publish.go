package events

import (
	"context"
	"fmt"
	"time"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/metrics"
)

// Publish sends one event with a bounded wait. Delivery failures are logged
// and counted, never returned.
func Publish(ctx context.Context, p Publisher, topic, key string, event map[string]any) {
	if p == nil {
		return
	}
	if _, ok := event["at"]; !ok {
		event["at"] = time.Now().UTC().Format(time.RFC3339)
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := p.PublishEvent(ctx, topic, key, event); err != nil {
		metrics.EventPublishFailures.WithLabelValues(topic).Inc()
		logging.FromContext(ctx).Error("kafka_publish_error", "topic", topic, "type", event["type"], "error", err)
	}
}

func Key(id uint) string {
	return fmt.Sprint(id)
}

package events

import (
	"context"
	"log/slog"

	"github.com/fieldvault/fieldvault/internal/metrics"
)

// NewAuditLogSubscriber returns a handler that writes each event to the audit
// log with structured fields. Only the fields present on the event are
// logged.
func NewAuditLogSubscriber(logger *slog.Logger) Handler {
	return func(ctx context.Context, event Event) {
		attrs := []any{
			slog.String("event_id", event.ID.String()),
			slog.String("event_type", string(event.Type)),
			slog.Time("occurred_at", event.OccurredAt),
		}
		if event.KeyID != "" {
			attrs = append(attrs, slog.String("key_id", event.KeyID))
		}
		if event.KeyVersion != 0 {
			attrs = append(attrs, slog.Uint64("key_version", uint64(event.KeyVersion)))
		}
		if event.FieldID != "" {
			attrs = append(attrs, slog.String("field_id", event.FieldID))
		}
		if event.Token != "" {
			attrs = append(attrs, slog.String("token", event.Token))
		}
		if event.Sensitivity != "" {
			attrs = append(attrs, slog.String("sensitivity", event.Sensitivity))
		}
		for key, value := range event.Metadata {
			attrs = append(attrs, slog.String("meta_"+key, value))
		}

		logger.Info("audit event", attrs...)
	}
}

// NewMetricsSubscriber returns a handler that counts published events by type.
func NewMetricsSubscriber(business metrics.BusinessMetrics) Handler {
	return func(ctx context.Context, event Event) {
		business.RecordOperation(ctx, "events", string(event.Type), "published")
	}
}

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/iyhunko/catalog-admin/internal/model"
	"github.com/iyhunko/catalog-admin/internal/repository"
	"github.com/iyhunko/catalog-admin/internal/sqs"
)

const outboxBatchSize = 100

// MessagePublisher sends catalog notifications.
type MessagePublisher interface {
	PublishProductMessage(ctx context.Context, msg sqs.ProductMessage) error
}

// OutboxWorker polls the events table and publishes pending events
type OutboxWorker struct {
	eventRepo    repository.Repository
	eventUpdater repository.EventStatusUpdater
	publisher    MessagePublisher
	interval     time.Duration
	stopChan     chan struct{}
}

// NewOutboxWorker creates a new OutboxWorker
func NewOutboxWorker(eventRepo repository.Repository, eventUpdater repository.EventStatusUpdater, publisher MessagePublisher, interval time.Duration) *OutboxWorker {
	return &OutboxWorker{
		eventRepo:    eventRepo,
		eventUpdater: eventUpdater,
		publisher:    publisher,
		interval:     interval,
		stopChan:     make(chan struct{}),
	}
}

// Start begins processing events from the outbox
func (w *OutboxWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	slog.Info("Outbox worker started", slog.Duration("interval", w.interval))

	for {
		select {
		case <-ctx.Done():
			slog.Info("Outbox worker stopped by context")
			return
		case <-w.stopChan:
			slog.Info("Outbox worker stopped")
			return
		case <-ticker.C:
			if _, err := w.ProcessPending(ctx); err != nil {
				slog.Error("Failed to retrieve pending events", slog.Any("err", err))
			}
		}
	}
}

// Stop stops the outbox worker
func (w *OutboxWorker) Stop() {
	close(w.stopChan)
}

// ProcessPending publishes one batch of pending events and returns how many
// were published.
func (w *OutboxWorker) ProcessPending(ctx context.Context) (int, error) {
	query := repository.NewQuery().With(repository.StatusField, string(model.EventStatusPending))
	query.Limit = outboxBatchSize
	resources, err := w.eventRepo.List(ctx, *query)
	if err != nil {
		return 0, fmt.Errorf("failed to list pending events: %w", err)
	}

	if len(resources) == 0 {
		return 0, nil
	}

	slog.Debug("Processing pending events", slog.Int("count", len(resources)))

	published := 0
	for _, resource := range resources {
		event, ok := resource.(*model.Event)
		if !ok {
			slog.Error("Invalid event type in outbox")
			continue
		}

		status := model.EventStatusProcessed
		if err := w.publish(ctx, event); err != nil {
			slog.Error("Failed to process event",
				slog.String("event_id", event.ID.String()),
				slog.String("event_type", event.EventType),
				slog.Any("err", err))
			status = model.EventStatusFailed
		} else {
			published++
		}

		if err := w.eventUpdater.UpdateStatus(ctx, event.ID, status); err != nil {
			slog.Error("Failed to update event status",
				slog.String("event_id", event.ID.String()),
				slog.String("status", string(status)),
				slog.Any("err", err))
			continue
		}
		slog.Info("Event processed",
			slog.String("event_id", event.ID.String()),
			slog.String("event_type", event.EventType),
			slog.String("status", string(status)))
	}

	return published, nil
}

func (w *OutboxWorker) publish(ctx context.Context, event *model.Event) error {
	var msg sqs.ProductMessage
	if err := json.Unmarshal(event.EventData, &msg); err != nil {
		return fmt.Errorf("failed to decode event data: %w", err)
	}
	return w.publisher.PublishProductMessage(ctx, msg)
}

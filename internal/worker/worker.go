package worker

import (
	"context"
	"fmt"
	"log"

	"iap-service/internal/broker"
	"iap-service/internal/models"
	"iap-service/internal/util"

	"go.uber.org/zap"
)

// ProcessedEventStore tracks consumed event ids so replayed messages are
// recorded once.
type ProcessedEventStore interface {
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
}

// AuditWorker consumes purchase events and writes a deduplicated audit
// trail. The HTTP path never depends on it.
type AuditWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	store        ProcessedEventStore
	logger       *zap.Logger
}

// NewAuditWorker creates a new audit worker
func NewAuditWorker(consumer *broker.Consumer, store ProcessedEventStore) *AuditWorker {
	w := &AuditWorker{
		consumer: consumer,
		store:    store,
		logger:   util.GetLogger(),
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnPurchaseVerified(w.handlePurchaseVerified)
	w.eventHandler = eventHandler

	return w
}

// Start starts the worker
func (w *AuditWorker) Start(ctx context.Context) error {
	log.Println("Starting audit worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *AuditWorker) Stop() error {
	log.Println("Stopping audit worker...")
	return w.consumer.Close()
}

func (w *AuditWorker) handlePurchaseVerified(ctx context.Context, event *models.PurchaseVerifiedEvent) error {
	processed, err := w.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		util.AuditEventsTotal.WithLabelValues("duplicate").Inc()
		w.logger.Info("Event already processed", zap.String("event_id", event.EventID))
		return nil
	}

	w.logger.Info("Purchase audit",
		zap.String("event_id", event.EventID),
		zap.String("user_id", event.UserID),
		zap.String("product_id", event.ProductID),
		zap.String("role", event.Role),
		zap.Int64("credits", event.Credits),
		zap.Bool("already_recorded", event.AlreadyRecorded))

	if err := w.store.MarkEventProcessed(ctx, event.EventID, event.EventType); err != nil {
		return fmt.Errorf("failed to mark event processed: %w", err)
	}

	util.AuditEventsTotal.WithLabelValues("processed").Inc()
	return nil
}

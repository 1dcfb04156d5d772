package worker

import (
	"context"
	"log"

	"tailorworks/internal/broker"
	"tailorworks/internal/service"
)

// AuditWorker consumes order events and appends them to each tenant's
// audit-trail collection
type AuditWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
}

// NewAuditWorker creates a new audit worker
func NewAuditWorker(consumer *broker.Consumer, recorder *service.AuditRecorder) *AuditWorker {
	eventHandler := broker.NewEventHandler()
	eventHandler.OnOrderCreated(recorder.RecordCreated)
	eventHandler.OnOrderUpdated(recorder.RecordUpdated)

	return &AuditWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
	}
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

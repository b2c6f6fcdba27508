package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/FacuPal/arq-microservicios/internal/metrics"
	"github.com/FacuPal/arq-microservicios/internal/model"
	"github.com/FacuPal/arq-microservicios/lib/kafka"
)

// Kept in sync with the notifier's topic; the worker republishes the exact
// payload that failed there.
const notificationTopic = "send_notification"

type Worker struct {
	repo           *Repository
	interval       time.Duration
	batchSize      int
	maxRetries     int
	baseRetryDelay time.Duration
	isRunning      bool
	stopCh         chan struct{}
}

func NewWorker(repo *Repository) *Worker {
	return &Worker{
		repo:           repo,
		interval:       10 * time.Second,
		batchSize:      50,
		maxRetries:     5,
		baseRetryDelay: 500 * time.Millisecond,
		stopCh:         make(chan struct{}),
	}
}

func (w *Worker) Start() {
	if w.isRunning {
		logrus.Warn("outbox worker is already running")
		return
	}
	w.isRunning = true
	logrus.Info("starting outbox worker")
	go w.processLoop()
}

func (w *Worker) Stop() {
	if !w.isRunning {
		return
	}
	close(w.stopCh)
	w.isRunning = false
}

func (w *Worker) processLoop() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			w.processEvents()
		case <-w.stopCh:
			logrus.Info("stopping outbox worker")
			return
		}
	}
}

func (w *Worker) processEvents() {
	events, err := w.repo.pending(w.maxRetries, w.batchSize, w.baseRetryDelay)
	if err != nil {
		logrus.WithError(err).Error("failed to fetch outbox events")
		return
	}
	if len(events) == 0 {
		return
	}
	for _, event := range events {
		var processingErr error
		switch event.EventType {
		case "notification":
			processingErr = w.republish(event)
		default:
			processingErr = fmt.Errorf("unknown event type: %s", event.EventType)
			logrus.Warn(processingErr)
		}
		if processingErr != nil {
			w.markFailed(event, processingErr)
		} else {
			w.markProcessed(event)
		}
	}
}

func (w *Worker) republish(event model.OutboxEvent) error {
	producer := kafka.NewProducer()
	defer producer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	// The stored payload is already the wire format; republish it untouched.
	if err := producer.Send(ctx, notificationTopic, event.AggregateID, json.RawMessage(event.EventData)); err != nil {
		logrus.WithError(err).WithField("event_id", event.ID).Warn("outbox event failed to republish")
		return err
	}

	metrics.NotificationsPublishedTotal.Inc()
	logrus.WithField("event_id", event.ID).Info("outbox event republished")
	return nil
}

func (w *Worker) markProcessed(event model.OutboxEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()
	now := time.Now()
	updates := map[string]interface{}{
		"status":       model.OutboxStatusProcessed,
		"processed_at": &now,
		"last_error":   nil,
	}

	if err := w.repo.db.WithContext(ctx).Model(&event).Updates(updates).Error; err != nil {
		logrus.WithError(err).WithField("event_id", event.ID).Error("failed to mark outbox event as processed")
	}
}

func (w *Worker) markFailed(event model.OutboxEvent, processingErr error) {
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	newRetryCount := event.RetryCount + 1
	status := model.OutboxStatusPending
	if newRetryCount >= w.maxRetries {
		status = model.OutboxStatusFailed
		logrus.WithField("event_id", event.ID).Errorf("outbox event failed permanently after %d retries: %v", w.maxRetries, processingErr)
	}

	now := time.Now()
	errorString := processingErr.Error()
	updates := map[string]interface{}{
		"status":       status,
		"retry_count":  newRetryCount,
		"last_error":   &errorString,
		"processed_at": &now,
	}

	if err := w.repo.db.WithContext(ctx).Model(&event).Updates(updates).Error; err != nil {
		logrus.WithError(err).WithField("event_id", event.ID).Error("failed to update outbox event retry status")
	}
}

// Package notifier dispatches delivery notifications to the message broker.
// Dispatch is fire-and-forget from the workflow's point of view: Notify never
// blocks the caller, and a failed publish ends up in the outbox for retry
// instead of failing the already-persisted event.
package notifier

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/FacuPal/arq-microservicios/internal/metrics"
	"github.com/FacuPal/arq-microservicios/internal/model"
	"github.com/FacuPal/arq-microservicios/internal/outbox"
	"github.com/FacuPal/arq-microservicios/lib/kafka"
)

const (
	Topic         = "send_notification"
	channelBuffer = 1000
)

// Message is the payload the notification service consumes.
type Message struct {
	NotificationType string `json:"notificationType"`
	TrackingNumber   int    `json:"trackingNumber"`
	UserID           string `json:"userId"`
}

// KafkaNotifier publishes messages from a background worker fed by a buffered
// channel.
type KafkaNotifier struct {
	outbox *outbox.Repository
	input  chan Message

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    sync.WaitGroup
}

func New(outboxRepo *outbox.Repository) *KafkaNotifier {
	return &KafkaNotifier{
		outbox: outboxRepo,
		input:  make(chan Message, channelBuffer),
	}
}

func (n *KafkaNotifier) Start() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.running {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	n.cancel = cancel
	n.running = true
	n.done.Add(1)
	go n.worker(ctx)
	logrus.WithField("topic", Topic).Info("notification dispatcher started")
}

func (n *KafkaNotifier) Stop() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.running {
		return
	}
	n.cancel()
	n.done.Wait()
	n.running = false
	logrus.Info("notification dispatcher stopped")
}

// Notify queues a notification for dispatch. A full queue diverts straight to
// the outbox rather than blocking or dropping.
func (n *KafkaNotifier) Notify(notificationType string, trackingNumber int, userID string) {
	msg := Message{
		NotificationType: notificationType,
		TrackingNumber:   trackingNumber,
		UserID:           userID,
	}
	select {
	case n.input <- msg:
	default:
		logrus.WithField("notification_type", notificationType).Warn("notification queue full, diverting to outbox")
		n.toOutbox(msg)
	}
}

func (n *KafkaNotifier) worker(ctx context.Context) {
	defer n.done.Done()
	producer := kafka.NewProducer()
	defer producer.Close()

	for {
		select {
		case <-ctx.Done():
			// Drain what is already queued before exiting.
			for {
				select {
				case msg := <-n.input:
					n.publish(ctx, producer, msg)
				default:
					return
				}
			}
		case msg := <-n.input:
			n.publish(ctx, producer, msg)
		}
	}
}

func (n *KafkaNotifier) publish(ctx context.Context, producer *kafka.Producer, msg Message) {
	key := strconv.Itoa(msg.TrackingNumber)
	if err := producer.Send(ctx, Topic, key, msg); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"notification_type": msg.NotificationType,
			"tracking_number":   msg.TrackingNumber,
		}).Warn("failed to publish notification, diverting to outbox")
		n.toOutbox(msg)
		return
	}
	metrics.NotificationsPublishedTotal.Inc()
}

func (n *KafkaNotifier) toOutbox(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		logrus.WithError(err).Error("failed to marshal notification for outbox")
		return
	}
	entry := model.OutboxEvent{
		ID:          uuid.New(),
		AggregateID: strconv.Itoa(msg.TrackingNumber),
		EventType:   "notification",
		EventData:   data,
		Status:      model.OutboxStatusPending,
	}
	if err := n.outbox.Create(&entry); err != nil {
		logrus.WithError(err).Error("failed to persist notification to outbox")
		return
	}
	metrics.NotificationsOutboxedTotal.Inc()
}

package delivery

import (
	"context"
	"time"

	"github.com/FacuPal/arq-microservicios/internal/model"
)

// OrderInfo is what the order service knows about an order.
type OrderInfo struct {
	OrderID string    `json:"orderId"`
	UserID  string    `json:"userId"`
	Status  string    `json:"status"`
	Created time.Time `json:"created"`
}

// EventStore is the append-only event log. Rows are never mutated or deleted.
type EventStore interface {
	Append(ctx context.Context, event *model.DeliveryEvent) error
	// ByTrackingNumber returns the full history ordered by created ascending.
	ByTrackingNumber(ctx context.Context, trackingNumber int) ([]model.DeliveryEvent, error)
	// FirstByOrderID returns any event of the order, or nil when none exists.
	FirstByOrderID(ctx context.Context, orderID string) (*model.DeliveryEvent, error)
	// All returns the whole log ordered by created ascending.
	All(ctx context.Context) ([]model.DeliveryEvent, error)
}

// ProjectionStore holds at most one live projection per tracking number.
type ProjectionStore interface {
	// ByTrackingNumber returns the live projection, or nil when none exists.
	ByTrackingNumber(ctx context.Context, trackingNumber int) (*model.DeliveryProjection, error)
	// Replace discards any stale projection for the tracking number and
	// persists the fresh one.
	Replace(ctx context.Context, projection *model.DeliveryProjection) error
	Delete(ctx context.Context, trackingNumber int) error
}

// FailureStore records diagnostic snapshots of rebuilds that found an
// inconsistent history.
type FailureStore interface {
	Record(ctx context.Context, failed *model.FailedDeliveryProjection) error
}

// SequenceStore hands out tracking numbers. Next must be atomic across
// concurrent callers and service instances.
type SequenceStore interface {
	Next(ctx context.Context) (int, error)
}

// OrderClient resolves order data from the order service.
type OrderClient interface {
	GetOrder(ctx context.Context, token, orderID string) (*OrderInfo, error)
}

// Notifier dispatches user notifications. Implementations are fire-and-forget:
// a failed dispatch must never fail the operation that triggered it.
type Notifier interface {
	Notify(notificationType string, trackingNumber int, userID string)
}

// Notification types emitted by the workflow.
const (
	NotificationCreated         = "delivery_created"
	NotificationDelivered       = "delivery_delivered"
	NotificationCanceled        = "delivery_canceled"
	NotificationReturnRequested = "delivery_return_requested"
	NotificationReturned        = "delivery_returned"
)

// Package repo holds the gorm-backed implementations of the delivery stores.
package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/FacuPal/arq-microservicios/internal/model"
)

// EventRepository persists the append-only delivery event log.
type EventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) Append(ctx context.Context, event *model.DeliveryEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *EventRepository) ByTrackingNumber(ctx context.Context, trackingNumber int) ([]model.DeliveryEvent, error) {
	var events []model.DeliveryEvent
	err := r.db.WithContext(ctx).
		Where("tracking_number = ?", trackingNumber).
		Order("created ASC").
		Find(&events).Error
	return events, err
}

func (r *EventRepository) FirstByOrderID(ctx context.Context, orderID string) (*model.DeliveryEvent, error) {
	var event model.DeliveryEvent
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created ASC").
		First(&event).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *EventRepository) All(ctx context.Context) ([]model.DeliveryEvent, error) {
	var events []model.DeliveryEvent
	err := r.db.WithContext(ctx).Order("created ASC").Find(&events).Error
	return events, err
}

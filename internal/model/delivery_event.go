package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DeliveryEvent is one immutable row of the append-only event log. All events
// of a delivery share the trackingNumber assigned at creation, and the Created
// timestamp is the sole ordering key when the history is replayed.
type DeliveryEvent struct {
	ID                uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	OrderID           string    `json:"orderId" gorm:"index;not null"`
	TrackingNumber    int       `json:"trackingNumber" gorm:"index;not null"`
	EventType         Status    `json:"eventType" gorm:"type:varchar(32);not null"`
	LastKnownLocation string    `json:"lastKnownLocation"`
	Created           time.Time `json:"created"`
	Updated           time.Time `json:"updated"`
}

func (DeliveryEvent) TableName() string { return "deliveryEvent" }

// BeforeSave refreshes the bookkeeping timestamp. Business fields are never
// rewritten after creation; the log is append-only.
func (e *DeliveryEvent) BeforeSave(tx *gorm.DB) error {
	e.Updated = time.Now()
	return nil
}

func (e *DeliveryEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Created.IsZero() {
		e.Created = time.Now()
	}
	return nil
}

// NewDeliveryEvent builds an event ready to append.
func NewDeliveryEvent(orderID string, trackingNumber int, eventType Status, location string) *DeliveryEvent {
	return &DeliveryEvent{
		ID:                uuid.New(),
		OrderID:           orderID,
		TrackingNumber:    trackingNumber,
		EventType:         eventType,
		LastKnownLocation: location,
		Created:           time.Now(),
	}
}

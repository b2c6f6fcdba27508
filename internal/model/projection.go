package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// TrackingEvent is the lightweight entry mirrored from the event log into a
// projection, kept readable even when the fold that produced it failed.
type TrackingEvent struct {
	EventType    Status    `json:"eventType"`
	LocationName string    `json:"locationName"`
	UpdateDate   time.Time `json:"updateDate"`
}

// TrackingEventsJSON packs tracking events for the JSON column.
func TrackingEventsJSON(events []TrackingEvent) datatypes.JSON {
	b, err := json.Marshal(events)
	if err != nil {
		return datatypes.JSON("[]")
	}
	return datatypes.JSON(b)
}

// TrackingEventsFromLog converts raw log rows into their projection mirror.
func TrackingEventsFromLog(events []DeliveryEvent) []TrackingEvent {
	out := make([]TrackingEvent, 0, len(events))
	for _, e := range events {
		out = append(out, TrackingEvent{
			EventType:    e.EventType,
			LocationName: e.LastKnownLocation,
			UpdateDate:   e.Created,
		})
	}
	return out
}

// DeliveryProjection is the derived current-state view of one delivery. It is
// a disposable cache: deleted and rebuilt from the event log on demand, never
// patched incrementally. At most one row exists per trackingNumber.
type DeliveryProjection struct {
	ID                uuid.UUID      `json:"id" gorm:"type:char(36);primaryKey"`
	TrackingNumber    int            `json:"trackingNumber" gorm:"uniqueIndex;not null"`
	OrderID           string         `json:"orderId" gorm:"not null"`
	UserID            string         `json:"userId" gorm:"index"`
	Status            Status         `json:"status" gorm:"type:varchar(32);not null"`
	LastKnownLocation string         `json:"lastKnownLocation"`
	TrackingEvents    datatypes.JSON `json:"trackingEvents"`
	Created           time.Time      `json:"created"`
	Updated           time.Time      `json:"updated"`
}

func (DeliveryProjection) TableName() string { return "deliveryProjection" }

// TrackingEventList unpacks the JSON column.
func (p *DeliveryProjection) TrackingEventList() ([]TrackingEvent, error) {
	var events []TrackingEvent
	if len(p.TrackingEvents) == 0 {
		return events, nil
	}
	err := json.Unmarshal(p.TrackingEvents, &events)
	return events, err
}

// FailedDeliveryProjection is the diagnostic record written when a rebuild
// detects an inconsistent event history. Rows accumulate for operator
// inspection and are never updated or served to users.
type FailedDeliveryProjection struct {
	ID             uuid.UUID      `json:"id" gorm:"type:char(36);primaryKey"`
	TrackingNumber int            `json:"trackingNumber" gorm:"index;not null"`
	OrderID        string         `json:"orderId"`
	UserID         string         `json:"userId"`
	FailedMessage  string         `json:"failedMessage" gorm:"type:text"`
	TrackingEvents datatypes.JSON `json:"trackingEvents"`
	Created        time.Time      `json:"created"`
}

func (FailedDeliveryProjection) TableName() string { return "failedDeliveryProjection" }

// TrackingSequence is the single-row, atomically incremented allocator state
// for tracking numbers. Owned by the persistence layer so concurrent instances
// never hand out the same number.
type TrackingSequence struct {
	ID    int   `gorm:"primaryKey"`
	Value int64 `gorm:"not null"`
}

func (TrackingSequence) TableName() string { return "trackingSequence" }

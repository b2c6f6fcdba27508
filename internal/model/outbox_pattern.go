package model

import (
	"time"

	"github.com/google/uuid"
)

// Outbox row states.
const (
	OutboxStatusPending   = "pending"
	OutboxStatusProcessed = "processed"
	OutboxStatusFailed    = "failed"
)

// OutboxEvent holds a notification whose broker publish failed, waiting for
// the outbox worker to retry it.
type OutboxEvent struct {
	ID          uuid.UUID  `json:"id" gorm:"type:char(36);primaryKey"`
	AggregateID string     `json:"aggregate_id" gorm:"index"`
	EventType   string     `json:"event_type"`
	EventData   []byte     `json:"event_data" gorm:"type:json"`
	Status      string     `json:"status" gorm:"default:'pending'"`
	CreatedAt   time.Time  `json:"created_at"`
	ProcessedAt *time.Time `json:"processed_at"`
	RetryCount  int        `json:"retry_count" gorm:"default:0"`
	LastError   *string    `json:"last_error"`
}

// Package outbox stores notifications whose broker publish failed and retries
// them in the background, so a publish failure never rolls back or fails the
// operation that produced the notification.
package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/FacuPal/arq-microservicios/internal/model"
)

const dbTimeout = 10 * time.Second

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(event *model.OutboxEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	return r.db.WithContext(ctx).Create(event).Error
}

// pending returns rows that are new or whose exponential backoff has elapsed.
func (r *Repository) pending(maxRetries, batchSize int, baseRetryDelay time.Duration) ([]model.OutboxEvent, error) {
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	var events []model.OutboxEvent
	err := r.db.WithContext(ctx).
		Where("status = ? AND retry_count < ?", model.OutboxStatusPending, maxRetries).
		Where(
			"retry_count = 0 OR NOW() >= DATE_ADD(processed_at, INTERVAL POWER(2, retry_count - 1) * ? SECOND)",
			baseRetryDelay.Seconds(),
		).
		Order("created_at ASC").
		Limit(batchSize).
		Find(&events).Error

	return events, err
}

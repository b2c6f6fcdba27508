package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/FacuPal/arq-microservicios/internal/model"
)

const sequenceRowID = 1

// SequenceRepository allocates tracking numbers from a single, atomically
// incremented row. The row lock taken by the UPDATE serializes concurrent
// allocations across all service instances, so no process-local cache or
// max-scan race exists on the hot path.
type SequenceRepository struct {
	db *gorm.DB
}

func NewSequenceRepository(db *gorm.DB) *SequenceRepository {
	return &SequenceRepository{db: db}
}

func (r *SequenceRepository) Next(ctx context.Context) (int, error) {
	var next int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row model.TrackingSequence
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", sequenceRowID).
			First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Bootstrap: seed from the highest number already in the log so
			// histories created before the sequence existed stay unique.
			seed, seedErr := r.maxTrackingNumber(tx)
			if seedErr != nil {
				return seedErr
			}
			row = model.TrackingSequence{ID: sequenceRowID, Value: int64(seed)}
			if createErr := tx.Create(&row).Error; createErr != nil {
				return createErr
			}
		} else if err != nil {
			return err
		}

		row.Value++
		if err := tx.Model(&model.TrackingSequence{}).
			Where("id = ?", sequenceRowID).
			Update("value", row.Value).Error; err != nil {
			return err
		}
		next = int(row.Value)
		return nil
	})
	return next, err
}

func (r *SequenceRepository) maxTrackingNumber(tx *gorm.DB) (int, error) {
	var max int
	err := tx.Model(&model.DeliveryEvent{}).
		Select("COALESCE(MAX(tracking_number), 0)").
		Scan(&max).Error
	return max, err
}

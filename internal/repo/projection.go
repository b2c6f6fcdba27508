package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/FacuPal/arq-microservicios/internal/model"
)

// ProjectionRepository persists the live projections, one row per tracking
// number.
type ProjectionRepository struct {
	db *gorm.DB
}

func NewProjectionRepository(db *gorm.DB) *ProjectionRepository {
	return &ProjectionRepository{db: db}
}

func (r *ProjectionRepository) ByTrackingNumber(ctx context.Context, trackingNumber int) (*model.DeliveryProjection, error) {
	var projection model.DeliveryProjection
	err := r.db.WithContext(ctx).
		Where("tracking_number = ?", trackingNumber).
		First(&projection).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &projection, nil
}

// Replace removes any stale row for the tracking number and inserts the fresh
// projection in one transaction, keeping the at-most-one-row invariant.
func (r *ProjectionRepository) Replace(ctx context.Context, projection *model.DeliveryProjection) error {
	if projection.ID == uuid.Nil {
		projection.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tracking_number = ?", projection.TrackingNumber).
			Delete(&model.DeliveryProjection{}).Error; err != nil {
			return err
		}
		return tx.Create(projection).Error
	})
}

func (r *ProjectionRepository) Delete(ctx context.Context, trackingNumber int) error {
	return r.db.WithContext(ctx).
		Where("tracking_number = ?", trackingNumber).
		Delete(&model.DeliveryProjection{}).Error
}

// FailureRepository records failed projection diagnostics, append-only.
type FailureRepository struct {
	db *gorm.DB
}

func NewFailureRepository(db *gorm.DB) *FailureRepository {
	return &FailureRepository{db: db}
}

func (r *FailureRepository) Record(ctx context.Context, failed *model.FailedDeliveryProjection) error {
	if failed.ID == uuid.Nil {
		failed.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(failed).Error
}

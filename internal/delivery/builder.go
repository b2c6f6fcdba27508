package delivery

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/FacuPal/arq-microservicios/internal/apperr"
	"github.com/FacuPal/arq-microservicios/internal/metrics"
	"github.com/FacuPal/arq-microservicios/internal/model"
)

// Builder rebuilds the current-state projection of a delivery from its event
// history. The replay implementation below folds the whole log every time;
// an incremental variant can be substituted without touching the workflow.
type Builder interface {
	Rebuild(ctx context.Context, token string, trackingNumber int) (*model.DeliveryProjection, error)
}

type replayBuilder struct {
	events      EventStore
	projections ProjectionStore
	failures    FailureStore
	orders      OrderClient
}

// NewReplayBuilder builds projections by full replay of the event log.
func NewReplayBuilder(events EventStore, projections ProjectionStore, failures FailureStore, orders OrderClient) Builder {
	return &replayBuilder{
		events:      events,
		projections: projections,
		failures:    failures,
		orders:      orders,
	}
}

// Rebuild discards any stale projection, replays the full history in creation
// order and persists the result. An inconsistent history is captured as a
// FailedDeliveryProjection before the rebuild fails, so the root cause
// survives the failed request; the event log itself is never touched.
func (b *replayBuilder) Rebuild(ctx context.Context, token string, trackingNumber int) (*model.DeliveryProjection, error) {
	started := time.Now()
	metrics.RebuildsTotal.Inc()

	if err := b.projections.Delete(ctx, trackingNumber); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "could not discard the stale projection", err)
	}

	events, err := b.events.ByTrackingNumber(ctx, trackingNumber)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "could not read the event history", err)
	}
	if len(events) == 0 {
		return nil, apperr.NotFound("the requested delivery does not exist")
	}

	order, err := b.orders.GetOrder(ctx, token, events[0].OrderID)
	if err != nil {
		metrics.RebuildsFailedTotal.Inc()
		return nil, err
	}

	now := time.Now()
	projection := &model.DeliveryProjection{
		TrackingNumber: trackingNumber,
		OrderID:        order.OrderID,
		UserID:         order.UserID,
		Status:         model.StatusPending,
		Created:        now,
		Updated:        now,
		// Attached before validation so a failed fold still leaves a
		// readable event trail behind.
		TrackingEvents: model.TrackingEventsJSON(model.TrackingEventsFromLog(events)),
	}

	result, foldErr := model.Fold(projection.OrderID, events)
	if foldErr != nil {
		metrics.RebuildsFailedTotal.Inc()
		b.recordFailure(ctx, projection, foldErr)
		return nil, apperr.Wrap(apperr.KindInternal, "could not compute the delivery status", foldErr)
	}

	projection.Status = result.Status
	projection.LastKnownLocation = result.LastKnownLocation
	if err := b.projections.Replace(ctx, projection); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "could not persist the projection", err)
	}

	metrics.RebuildDuration.Observe(time.Since(started).Seconds())
	return projection, nil
}

func (b *replayBuilder) recordFailure(ctx context.Context, projection *model.DeliveryProjection, foldErr *model.TransitionError) {
	failed := &model.FailedDeliveryProjection{
		TrackingNumber: projection.TrackingNumber,
		OrderID:        projection.OrderID,
		UserID:         projection.UserID,
		FailedMessage:  foldErr.Message,
		TrackingEvents: projection.TrackingEvents,
		Created:        time.Now(),
	}
	if err := b.failures.Record(ctx, failed); err != nil {
		logrus.WithError(err).WithField("tracking_number", projection.TrackingNumber).
			Error("failed to record failed delivery projection")
		return
	}
	metrics.FailedProjectionsTotal.Inc()
}

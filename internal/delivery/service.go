// Package delivery implements the delivery tracking core: the append-only
// event log workflow, the tracking number allocator, the projection builder
// and the listing query over the log.
package delivery

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/FacuPal/arq-microservicios/internal/apperr"
	"github.com/FacuPal/arq-microservicios/internal/metrics"
	"github.com/FacuPal/arq-microservicios/internal/model"
	"github.com/FacuPal/arq-microservicios/lib/keymutex"
)

// Service exposes the workflow operations callers invoke. Every mutating
// operation appends exactly one event and then rebuilds the projection, and
// the whole sequence is serialized per tracking number: two racing operations
// can never both act on the same stale projection.
type Service struct {
	events      EventStore
	projections ProjectionStore
	sequence    SequenceStore
	builder     Builder
	notifier    Notifier
	locks       *keymutex.KeyMutex
	pageSize    int
}

func NewService(events EventStore, projections ProjectionStore, sequence SequenceStore, builder Builder, notifier Notifier, pageSize int) *Service {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Service{
		events:      events,
		projections: projections,
		sequence:    sequence,
		builder:     builder,
		notifier:    notifier,
		locks:       keymutex.New(),
		pageSize:    pageSize,
	}
}

func trackingKey(trackingNumber int) string { return fmt.Sprintf("tracking:%d", trackingNumber) }

func orderKey(orderID string) string { return "order:" + orderID }

// Create registers a new delivery for a paid order and returns its tracking
// number. Creation is idempotent: a second call for the same order returns the
// number already assigned without appending another event, so a delivery that
// has moved past PENDING cannot be poisoned by a replayed trigger.
func (s *Service) Create(ctx context.Context, token, orderID, userID string) (int, error) {
	if orderID == "" {
		return 0, apperr.NewValidation().AddField("orderId", "cannot be empty")
	}

	s.locks.Lock(orderKey(orderID))
	defer s.locks.Unlock(orderKey(orderID))

	existing, err := s.events.FirstByOrderID(ctx, orderID)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, "could not read the event history", err)
	}
	if existing != nil {
		return existing.TrackingNumber, nil
	}

	trackingNumber, err := s.sequence.Next(ctx)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, "could not allocate a tracking number", err)
	}

	event := model.NewDeliveryEvent(orderID, trackingNumber, model.StatusPending, "")
	if err := s.events.Append(ctx, event); err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, "could not append the delivery event", err)
	}
	metrics.EventsAppendedTotal.Inc()

	projection, err := s.builder.Rebuild(ctx, token, trackingNumber)
	if err != nil {
		return 0, err
	}

	s.notifier.Notify(NotificationCreated, trackingNumber, projection.UserID)
	return trackingNumber, nil
}

// UpdateLocation appends the location event derived from the current status
// and returns the new event. The derivation follows the delivery direction:
// an outbound delivery moves to TRANSIT or DELIVERED, a return moves to
// TRANSIT_RETURN or RETURNED. Delivering to the customer while a return is
// pending is a contradiction and fails without appending anything.
func (s *Service) UpdateLocation(ctx context.Context, token string, trackingNumber int, location string, delivered bool) (*model.DeliveryEvent, error) {
	if location == "" {
		return nil, apperr.NewValidation().AddField("lastKnownLocation", "cannot be empty")
	}

	s.locks.Lock(trackingKey(trackingNumber))
	defer s.locks.Unlock(trackingKey(trackingNumber))

	projection, err := s.builder.Rebuild(ctx, token, trackingNumber)
	if err != nil {
		return nil, err
	}

	var eventType model.Status
	switch projection.Status {
	case model.StatusPending, model.StatusTransit:
		if delivered {
			eventType = model.StatusDelivered
		} else {
			eventType = model.StatusTransit
		}
	case model.StatusPendingReturn:
		if delivered {
			return nil, apperr.Internal("cannot deliver to the customer while a return is pending")
		}
		eventType = model.StatusTransitReturn
	case model.StatusTransitReturn:
		if delivered {
			eventType = model.StatusReturned
		} else {
			eventType = model.StatusTransitReturn
		}
	default:
		return nil, apperr.Internal("the delivery cannot update its location")
	}

	event := model.NewDeliveryEvent(projection.OrderID, trackingNumber, eventType, location)
	if err := s.events.Append(ctx, event); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "could not append the delivery event", err)
	}
	metrics.EventsAppendedTotal.Inc()

	projection, err = s.builder.Rebuild(ctx, token, trackingNumber)
	if err != nil {
		return nil, err
	}

	switch eventType {
	case model.StatusDelivered:
		s.notifier.Notify(NotificationDelivered, trackingNumber, projection.UserID)
	case model.StatusReturned:
		s.notifier.Notify(NotificationReturned, trackingNumber, projection.UserID)
	}

	return event, nil
}

// Cancel cancels a delivery currently in transit.
func (s *Service) Cancel(ctx context.Context, token string, trackingNumber int) error {
	s.locks.Lock(trackingKey(trackingNumber))
	defer s.locks.Unlock(trackingKey(trackingNumber))

	projection, err := s.builder.Rebuild(ctx, token, trackingNumber)
	if err != nil {
		return err
	}

	if projection.Status != model.StatusTransit {
		return apperr.Internal("only deliveries in transit can be canceled")
	}

	event := model.NewDeliveryEvent(projection.OrderID, trackingNumber, model.StatusCanceled, projection.LastKnownLocation)
	if err := s.events.Append(ctx, event); err != nil {
		return apperr.Wrap(apperr.KindInternal, "could not append the delivery event", err)
	}
	metrics.EventsAppendedTotal.Inc()

	projection, err = s.builder.Rebuild(ctx, token, trackingNumber)
	if err != nil {
		return err
	}

	s.notifier.Notify(NotificationCanceled, trackingNumber, projection.UserID)
	return nil
}

// RequestReturn starts the return flow for a delivered order. Only the owner
// of the delivery may request it.
func (s *Service) RequestReturn(ctx context.Context, token string, trackingNumber int, requestingUserID string) error {
	s.locks.Lock(trackingKey(trackingNumber))
	defer s.locks.Unlock(trackingKey(trackingNumber))

	projection, err := s.builder.Rebuild(ctx, token, trackingNumber)
	if err != nil {
		return err
	}

	if projection.UserID != requestingUserID {
		return apperr.Forbidden("you do not have permission to return this delivery")
	}
	if projection.Status != model.StatusDelivered {
		return apperr.Internal("only delivered orders can be returned")
	}

	event := model.NewDeliveryEvent(projection.OrderID, trackingNumber, model.StatusPendingReturn, projection.LastKnownLocation)
	if err := s.events.Append(ctx, event); err != nil {
		return apperr.Wrap(apperr.KindInternal, "could not append the delivery event", err)
	}
	metrics.EventsAppendedTotal.Inc()

	projection, err = s.builder.Rebuild(ctx, token, trackingNumber)
	if err != nil {
		return err
	}

	s.notifier.Notify(NotificationReturnRequested, trackingNumber, projection.UserID)
	return nil
}

// Get returns the live projection, rebuilding it when absent. Ownership is
// checked on every read, live or rebuilt; admins bypass the check.
func (s *Service) Get(ctx context.Context, token string, trackingNumber int, requestingUserID string, isAdmin bool) (*model.DeliveryProjection, error) {
	s.locks.Lock(trackingKey(trackingNumber))
	defer s.locks.Unlock(trackingKey(trackingNumber))

	projection, err := s.projections.ByTrackingNumber(ctx, trackingNumber)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "could not read the projection", err)
	}
	if projection == nil {
		projection, err = s.builder.Rebuild(ctx, token, trackingNumber)
		if err != nil {
			return nil, err
		}
	}

	if !isAdmin && projection.UserID != requestingUserID {
		return nil, apperr.Forbidden("you do not have permission to see this delivery")
	}
	return projection, nil
}

// Project forces a full rebuild regardless of the live projection. Admin only,
// enforced at the HTTP layer.
func (s *Service) Project(ctx context.Context, token string, trackingNumber int) (*model.DeliveryProjection, error) {
	s.locks.Lock(trackingKey(trackingNumber))
	defer s.locks.Unlock(trackingKey(trackingNumber))

	projection, err := s.builder.Rebuild(ctx, token, trackingNumber)
	if err != nil {
		logrus.WithError(err).WithField("tracking_number", trackingNumber).Warn("forced projection rebuild failed")
		return nil, err
	}
	return projection, nil
}

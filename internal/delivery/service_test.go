package delivery_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FacuPal/arq-microservicios/internal/apperr"
	"github.com/FacuPal/arq-microservicios/internal/delivery"
	"github.com/FacuPal/arq-microservicios/internal/model"
)

const testToken = "bearer test-token"

func seedHistory(f *fixture, orderID string, trackingNumber int, statuses ...model.Status) {
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	for i, status := range statuses {
		event := model.NewDeliveryEvent(orderID, trackingNumber, status, "warehouse")
		event.Created = base.Add(time.Duration(i) * time.Minute)
		_ = f.store.Append(context.Background(), event)
	}
}

func TestCreateAssignsTrackingNumberAndNotifies(t *testing.T) {
	f := newFixture().withOrder("order-1", "user-1")

	trackingNumber, err := f.service.Create(context.Background(), testToken, "order-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, trackingNumber)

	events, err := f.store.ByTrackingNumber(context.Background(), trackingNumber)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, model.StatusPending, events[0].EventType)
	assert.Equal(t, "order-1", events[0].OrderID)

	projection := f.store.ByTrackingNumberProjection(trackingNumber)
	require.NotNil(t, projection)
	assert.Equal(t, model.StatusPending, projection.Status)
	assert.Equal(t, "user-1", projection.UserID)

	created := f.notifier.byType(delivery.NotificationCreated)
	require.Len(t, created, 1)
	assert.Equal(t, "user-1", created[0].userID)
}

func TestCreateIsIdempotentPerOrder(t *testing.T) {
	f := newFixture().withOrder("order-1", "user-1")

	first, err := f.service.Create(context.Background(), testToken, "order-1", "user-1")
	require.NoError(t, err)
	second, err := f.service.Create(context.Background(), testToken, "order-1", "user-1")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, f.store.eventCount(first), "a replayed create must not append another event")
}

func TestCreateValidatesOrderID(t *testing.T) {
	f := newFixture()

	_, err := f.service.Create(context.Background(), testToken, "", "user-1")
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestCreateAllocatesDistinctNumbersPerOrder(t *testing.T) {
	f := newFixture().withOrder("order-1", "user-1").withOrder("order-2", "user-2")

	first, err := f.service.Create(context.Background(), testToken, "order-1", "user-1")
	require.NoError(t, err)
	second, err := f.service.Create(context.Background(), testToken, "order-2", "user-2")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestGetUnknownTrackingNumberIsNotFound(t *testing.T) {
	f := newFixture()

	_, err := f.service.Get(context.Background(), testToken, 99, "user-1", false)
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestRebuildCapturesInconsistentHistory(t *testing.T) {
	f := newFixture().withOrder("order-1", "user-1")
	// TRANSIT is required before DELIVERED; this history skips it.
	seedHistory(f, "order-1", 7, model.StatusPending, model.StatusDelivered)

	_, err := f.service.Get(context.Background(), testToken, 7, "user-1", false)
	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "could not compute the delivery status")

	require.Len(t, f.store.failures, 1)
	failed := f.store.failures[0]
	assert.Equal(t, 7, failed.TrackingNumber)
	assert.Equal(t, "order-1", failed.OrderID)
	assert.Contains(t, failed.FailedMessage, "PENDING -> DELIVERED")
	assert.NotEmpty(t, failed.TrackingEvents, "the partial event trail must survive the failed fold")

	assert.Nil(t, f.store.ByTrackingNumberProjection(7), "no live projection after a failed rebuild")
	assert.Equal(t, 2, f.store.eventCount(7), "the log is never rolled back")
}

func TestRebuildIsDeterministic(t *testing.T) {
	f := newFixture().withOrder("order-1", "user-1")
	seedHistory(f, "order-1", 3, model.StatusPending, model.StatusTransit, model.StatusDelivered)

	first, err := f.service.Project(context.Background(), testToken, 3)
	require.NoError(t, err)
	second, err := f.service.Project(context.Background(), testToken, 3)
	require.NoError(t, err)

	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.LastKnownLocation, second.LastKnownLocation)
	assert.Equal(t, first.TrackingEvents, second.TrackingEvents)
	assert.Equal(t, first.UserID, second.UserID)
}

func TestUpdateLocationMovesToTransit(t *testing.T) {
	f := newFixture().withOrder("order-1", "user-1")
	seedHistory(f, "order-1", 4, model.StatusPending)

	event, err := f.service.UpdateLocation(context.Background(), testToken, 4, "distribution center", false)
	require.NoError(t, err)
	assert.Equal(t, model.StatusTransit, event.EventType)
	assert.Equal(t, "distribution center", event.LastKnownLocation)

	projection := f.store.ByTrackingNumberProjection(4)
	require.NotNil(t, projection)
	assert.Equal(t, model.StatusTransit, projection.Status)
	assert.Equal(t, "distribution center", projection.LastKnownLocation)
}

func TestUpdateLocationDeliversAndNotifies(t *testing.T) {
	f := newFixture().withOrder("order-1", "user-1")
	seedHistory(f, "order-1", 4, model.StatusPending, model.StatusTransit)

	event, err := f.service.UpdateLocation(context.Background(), testToken, 4, "front door", true)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDelivered, event.EventType)

	require.Len(t, f.notifier.byType(delivery.NotificationDelivered), 1)
}

func TestUpdateLocationWhilePendingReturnContradiction(t *testing.T) {
	f := newFixture().withOrder("order-1", "user-1")
	seedHistory(f, "order-1", 4,
		model.StatusPending, model.StatusTransit, model.StatusDelivered, model.StatusPendingReturn)

	before := f.store.eventCount(4)
	_, err := f.service.UpdateLocation(context.Background(), testToken, 4, "front door", true)
	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "cannot deliver to the customer while a return is pending")
	assert.Equal(t, before, f.store.eventCount(4), "no event may be appended on contradiction")
}

func TestUpdateLocationMovesReturnToTransitReturn(t *testing.T) {
	f := newFixture().withOrder("order-1", "user-1")
	seedHistory(f, "order-1", 4,
		model.StatusPending, model.StatusTransit, model.StatusDelivered, model.StatusPendingReturn)

	event, err := f.service.UpdateLocation(context.Background(), testToken, 4, "pickup point", false)
	require.NoError(t, err)
	assert.Equal(t, model.StatusTransitReturn, event.EventType)
}

func TestUpdateLocationCompletesReturn(t *testing.T) {
	f := newFixture().withOrder("order-1", "user-1")
	seedHistory(f, "order-1", 4,
		model.StatusPending, model.StatusTransit, model.StatusDelivered,
		model.StatusPendingReturn, model.StatusTransitReturn)

	event, err := f.service.UpdateLocation(context.Background(), testToken, 4, "warehouse", true)
	require.NoError(t, err)
	assert.Equal(t, model.StatusReturned, event.EventType)
	require.Len(t, f.notifier.byType(delivery.NotificationReturned), 1)
}

func TestUpdateLocationOnTerminalStatusFails(t *testing.T) {
	f := newFixture().withOrder("order-1", "user-1")
	seedHistory(f, "order-1", 4, model.StatusPending, model.StatusTransit, model.StatusCanceled)

	_, err := f.service.UpdateLocation(context.Background(), testToken, 4, "nowhere", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot update its location")
}

func TestUpdateLocationUnknownDeliveryIsNotFound(t *testing.T) {
	f := newFixture()

	_, err := f.service.UpdateLocation(context.Background(), testToken, 123, "somewhere", false)
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestCancelRequiresTransit(t *testing.T) {
	f := newFixture().withOrder("order-1", "user-1")
	seedHistory(f, "order-1", 5, model.StatusPending)

	err := f.service.Cancel(context.Background(), testToken, 5)
	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "only deliveries in transit can be canceled")
	assert.Equal(t, 1, f.store.eventCount(5))
}

func TestCancelInTransit(t *testing.T) {
	f := newFixture().withOrder("order-1", "user-1")
	seedHistory(f, "order-1", 5, model.StatusPending, model.StatusTransit)

	require.NoError(t, f.service.Cancel(context.Background(), testToken, 5))

	projection := f.store.ByTrackingNumberProjection(5)
	require.NotNil(t, projection)
	assert.Equal(t, model.StatusCanceled, projection.Status)
	require.Len(t, f.notifier.byType(delivery.NotificationCanceled), 1)
}

func TestRequestReturnForbiddenForNonOwner(t *testing.T) {
	f := newFixture().withOrder("order-1", "u1")
	seedHistory(f, "order-1", 6, model.StatusPending, model.StatusTransit, model.StatusDelivered)

	err := f.service.RequestReturn(context.Background(), testToken, 6, "u2")
	require.Error(t, err)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	assert.Equal(t, 3, f.store.eventCount(6))
}

func TestRequestReturnRequiresDelivered(t *testing.T) {
	f := newFixture().withOrder("order-1", "u1")
	seedHistory(f, "order-1", 6, model.StatusPending, model.StatusTransit)

	err := f.service.RequestReturn(context.Background(), testToken, 6, "u1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only delivered orders can be returned")
}

func TestRequestReturnByOwner(t *testing.T) {
	f := newFixture().withOrder("order-1", "u1")
	seedHistory(f, "order-1", 6, model.StatusPending, model.StatusTransit, model.StatusDelivered)

	require.NoError(t, f.service.RequestReturn(context.Background(), testToken, 6, "u1"))

	projection := f.store.ByTrackingNumberProjection(6)
	require.NotNil(t, projection)
	assert.Equal(t, model.StatusPendingReturn, projection.Status)
	require.Len(t, f.notifier.byType(delivery.NotificationReturnRequested), 1)
}

func TestGetChecksOwnershipOnLiveProjection(t *testing.T) {
	f := newFixture().withOrder("order-1", "u1")
	seedHistory(f, "order-1", 8, model.StatusPending, model.StatusTransit)

	// First read rebuilds and persists the projection.
	_, err := f.service.Get(context.Background(), testToken, 8, "u1", false)
	require.NoError(t, err)
	require.NotNil(t, f.store.ByTrackingNumberProjection(8))

	// Ownership is re-checked even when the projection is already live.
	_, err = f.service.Get(context.Background(), testToken, 8, "u2", false)
	require.Error(t, err)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	// Admins bypass the ownership check.
	projection, err := f.service.Get(context.Background(), testToken, 8, "someone-else", true)
	require.NoError(t, err)
	assert.Equal(t, model.StatusTransit, projection.Status)
}

func TestRebuildFailsWhenOrderServiceFails(t *testing.T) {
	f := newFixture()
	f.orders.err = apperr.Internal("there was an error querying the order service")
	seedHistory(f, "order-1", 9, model.StatusPending)

	_, err := f.service.Get(context.Background(), testToken, 9, "u1", false)
	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
}

func TestProjectionMirrorsEventTrail(t *testing.T) {
	f := newFixture().withOrder("order-1", "u1")
	seedHistory(f, "order-1", 10, model.StatusPending, model.StatusTransit, model.StatusDelivered)

	projection, err := f.service.Project(context.Background(), testToken, 10)
	require.NoError(t, err)

	trail, err := projection.TrackingEventList()
	require.NoError(t, err)
	require.Len(t, trail, 3)
	assert.Equal(t, model.StatusPending, trail[0].EventType)
	assert.Equal(t, model.StatusDelivered, trail[2].EventType)
	assert.Equal(t, projection.Status, trail[len(trail)-1].EventType)
}

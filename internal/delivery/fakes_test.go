package delivery_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/FacuPal/arq-microservicios/internal/apperr"
	"github.com/FacuPal/arq-microservicios/internal/delivery"
	"github.com/FacuPal/arq-microservicios/internal/model"
)

// memStore is an in-memory stand-in for every persistence interface the
// service needs, so workflow semantics can be tested without a database.
type memStore struct {
	mu          sync.Mutex
	events      []model.DeliveryEvent
	projections map[int]*model.DeliveryProjection
	failures    []model.FailedDeliveryProjection
	seq         int64
}

func newMemStore() *memStore {
	return &memStore{projections: make(map[int]*model.DeliveryProjection)}
}

func (m *memStore) Append(ctx context.Context, event *model.DeliveryEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, *event)
	return nil
}

func (m *memStore) ByTrackingNumber(ctx context.Context, trackingNumber int) ([]model.DeliveryEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.DeliveryEvent
	for _, e := range m.events {
		if e.TrackingNumber == trackingNumber {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Created.Before(out[j].Created) })
	return out, nil
}

func (m *memStore) FirstByOrderID(ctx context.Context, orderID string) (*model.DeliveryEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.events {
		if e.OrderID == orderID {
			event := e
			return &event, nil
		}
	}
	return nil, nil
}

func (m *memStore) All(ctx context.Context) ([]model.DeliveryEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.DeliveryEvent, len(m.events))
	copy(out, m.events)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Created.Before(out[j].Created) })
	return out, nil
}

func (m *memStore) ByTrackingNumberProjection(trackingNumber int) *model.DeliveryProjection {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.projections[trackingNumber]
}

func (m *memStore) Replace(ctx context.Context, projection *model.DeliveryProjection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *projection
	m.projections[projection.TrackingNumber] = &copied
	return nil
}

func (m *memStore) Delete(ctx context.Context, trackingNumber int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.projections, trackingNumber)
	return nil
}

func (m *memStore) Record(ctx context.Context, failed *model.FailedDeliveryProjection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, *failed)
	return nil
}

func (m *memStore) Next(ctx context.Context) (int, error) {
	return int(atomic.AddInt64(&m.seq, 1)), nil
}

func (m *memStore) eventCount(trackingNumber int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.events {
		if e.TrackingNumber == trackingNumber {
			n++
		}
	}
	return n
}

// projectionStore adapts memStore's projection lookup to the interface.
type projectionStore struct{ *memStore }

func (p projectionStore) ByTrackingNumber(ctx context.Context, trackingNumber int) (*model.DeliveryProjection, error) {
	if projection := p.memStore.ByTrackingNumberProjection(trackingNumber); projection != nil {
		copied := *projection
		return &copied, nil
	}
	return nil, nil
}

type fakeOrders struct {
	mu     sync.Mutex
	orders map[string]delivery.OrderInfo
	err    error
}

func (f *fakeOrders) GetOrder(ctx context.Context, token, orderID string) (*delivery.OrderInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	order, ok := f.orders[orderID]
	if !ok {
		return nil, apperr.Internal(fmt.Sprintf("there was an error querying the order service: unknown order %s", orderID))
	}
	return &order, nil
}

type notification struct {
	notificationType string
	trackingNumber   int
	userID           string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []notification
}

func (f *fakeNotifier) Notify(notificationType string, trackingNumber int, userID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, notification{notificationType, trackingNumber, userID})
}

func (f *fakeNotifier) byType(notificationType string) []notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []notification
	for _, n := range f.sent {
		if n.notificationType == notificationType {
			out = append(out, n)
		}
	}
	return out
}

type fixture struct {
	store    *memStore
	orders   *fakeOrders
	notifier *fakeNotifier
	service  *delivery.Service
}

func newFixture() *fixture {
	store := newMemStore()
	orders := &fakeOrders{orders: make(map[string]delivery.OrderInfo)}
	notifier := &fakeNotifier{}
	builder := delivery.NewReplayBuilder(store, projectionStore{store}, store, orders)
	service := delivery.NewService(store, projectionStore{store}, store, builder, notifier, delivery.DefaultPageSize)
	return &fixture{store: store, orders: orders, notifier: notifier, service: service}
}

func (f *fixture) withOrder(orderID, userID string) *fixture {
	f.orders.mu.Lock()
	defer f.orders.mu.Unlock()
	f.orders.orders[orderID] = delivery.OrderInfo{OrderID: orderID, UserID: userID, Status: "payment_defined"}
	return f
}

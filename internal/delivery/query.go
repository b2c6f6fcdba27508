package delivery

import (
	"context"
	"sort"
	"time"

	"github.com/FacuPal/arq-microservicios/internal/apperr"
	"github.com/FacuPal/arq-microservicios/internal/model"
)

// DefaultPageSize is the fixed page size of the listing endpoint.
const DefaultPageSize = 10

// ListFilter narrows the delivery listing. Date filters apply to the creation
// date of the delivery, the earliest event of its history.
type ListFilter struct {
	Status *model.Status
	From   *time.Time
	To     *time.Time
	Page   int
}

// DeliverySummary is the lightweight per-delivery aggregate of the listing:
// the latest event decides status and location, the earliest decides the
// creation date. It is a cheap approximation computed without replay or
// validation, not the full projection.
type DeliverySummary struct {
	TrackingNumber    int          `json:"trackingNumber"`
	OrderID           string       `json:"orderId"`
	Status            model.Status `json:"status"`
	LastKnownLocation string       `json:"lastKnownLocation"`
	Created           time.Time    `json:"created"`
	Updated           time.Time    `json:"updated"`
}

// ListResult is one page of summaries.
type ListResult struct {
	Data []DeliverySummary `json:"data"`
	Page int               `json:"page"`
}

// List groups the raw event log by tracking number, applies the optional
// status and date filters and paginates with the fixed page size.
func (s *Service) List(ctx context.Context, filter ListFilter) (*ListResult, error) {
	events, err := s.events.All(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "could not read the event log", err)
	}

	summaries := summarize(events)

	filtered := summaries[:0]
	for _, summary := range summaries {
		if filter.Status != nil && summary.Status != *filter.Status {
			continue
		}
		if filter.From != nil && summary.Created.Before(*filter.From) {
			continue
		}
		if filter.To != nil && summary.Created.After(*filter.To) {
			continue
		}
		filtered = append(filtered, summary)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	start := (page - 1) * s.pageSize
	if start > len(filtered) {
		start = len(filtered)
	}
	end := start + s.pageSize
	if end > len(filtered) {
		end = len(filtered)
	}

	return &ListResult{Data: filtered[start:end], Page: page}, nil
}

// summarize folds the log into one summary per tracking number. The input is
// ordered by created ascending, so the last event seen per tracking number is
// the latest one.
func summarize(events []model.DeliveryEvent) []DeliverySummary {
	byTracking := make(map[int]*DeliverySummary)
	for _, event := range events {
		summary, ok := byTracking[event.TrackingNumber]
		if !ok {
			byTracking[event.TrackingNumber] = &DeliverySummary{
				TrackingNumber:    event.TrackingNumber,
				OrderID:           event.OrderID,
				Status:            event.EventType,
				LastKnownLocation: event.LastKnownLocation,
				Created:           event.Created,
				Updated:           event.Created,
			}
			continue
		}
		summary.Status = event.EventType
		summary.LastKnownLocation = event.LastKnownLocation
		summary.Updated = event.Created
	}

	summaries := make([]DeliverySummary, 0, len(byTracking))
	for _, summary := range byTracking {
		summaries = append(summaries, *summary)
	}
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].Created.Equal(summaries[j].Created) {
			return summaries[i].TrackingNumber < summaries[j].TrackingNumber
		}
		return summaries[i].Created.After(summaries[j].Created)
	})
	return summaries
}

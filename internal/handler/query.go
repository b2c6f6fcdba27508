package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/FacuPal/arq-microservicios/internal/apperr"
	"github.com/FacuPal/arq-microservicios/internal/delivery"
	"github.com/FacuPal/arq-microservicios/internal/model"
)

const dateLayout = "2006-01-02"

// Query is the raw listing filter from the request.
type Query struct {
	Status    string `query:"status"`
	StartDate string `query:"startDate"`
	EndDate   string `query:"endDate"`
	Page      int    `query:"page"`

	status *model.Status
	from   *time.Time
	to     *time.Time
}

// Parse reads and validates the query parameters.
func (q *Query) Parse(c *fiber.Ctx) error {
	if err := c.QueryParser(q); err != nil {
		return apperr.NewValidation().AddField("query", "invalid query parameters")
	}

	validation := apperr.NewValidation()

	if q.Status != "" {
		status, err := model.ParseStatus(q.Status)
		if err != nil {
			validation.AddField("status", err.Error())
		} else {
			q.status = &status
		}
	}
	if q.StartDate != "" {
		from, err := time.Parse(dateLayout, q.StartDate)
		if err != nil {
			validation.AddField("startDate", "must be a date formatted YYYY-MM-DD")
		} else {
			q.from = &from
		}
	}
	if q.EndDate != "" {
		to, err := time.Parse(dateLayout, q.EndDate)
		if err != nil {
			validation.AddField("endDate", "must be a date formatted YYYY-MM-DD")
		} else {
			// Inclusive end of day.
			endOfDay := to.Add(24*time.Hour - time.Nanosecond)
			q.to = &endOfDay
		}
	}
	if q.Page < 0 {
		validation.AddField("page", "must be positive")
	}
	if q.Page == 0 {
		q.Page = 1
	}

	if validation.HasErrors() {
		return validation
	}
	return nil
}

// Filter converts the parsed query into the service filter.
func (q *Query) Filter() delivery.ListFilter {
	return delivery.ListFilter{
		Status: q.status,
		From:   q.from,
		To:     q.to,
		Page:   q.Page,
	}
}

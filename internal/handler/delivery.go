package handler

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/FacuPal/arq-microservicios/internal/apperr"
	"github.com/FacuPal/arq-microservicios/internal/delivery"
	"github.com/FacuPal/arq-microservicios/internal/middleware"
)

// DeliveryHandler exposes the delivery workflow over HTTP.
type DeliveryHandler struct {
	service *delivery.Service
}

func NewDeliveryHandler(service *delivery.Service) *DeliveryHandler {
	return &DeliveryHandler{service: service}
}

// ListDeliveries handles GET /v1/delivery (admin).
func (h *DeliveryHandler) ListDeliveries(c *fiber.Ctx) error {
	var query Query
	if err := query.Parse(c); err != nil {
		return respondError(c, err)
	}

	result, err := h.service.List(c.UserContext(), query.Filter())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// GetDelivery handles GET /v1/delivery/:trackingNumber.
func (h *DeliveryHandler) GetDelivery(c *fiber.Ctx) error {
	trackingNumber, err := trackingNumberParam(c)
	if err != nil {
		return respondError(c, err)
	}

	session := middleware.SessionFrom(c)
	projection, err := h.service.Get(c.UserContext(), middleware.TokenFrom(c), trackingNumber, session.UserID, session.IsAdmin())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(projection)
}

type updateDeliveryRequest struct {
	LastKnownLocation string `json:"lastKnownLocation"`
	Delivered         bool   `json:"delivered"`
}

// UpdateDelivery handles PUT /v1/delivery/:trackingNumber (admin).
func (h *DeliveryHandler) UpdateDelivery(c *fiber.Ctx) error {
	trackingNumber, err := trackingNumberParam(c)
	if err != nil {
		return respondError(c, err)
	}

	var req updateDeliveryRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, apperr.NewValidation().AddField("body", "invalid request body"))
	}

	event, err := h.service.UpdateLocation(c.UserContext(), middleware.TokenFrom(c), trackingNumber, req.LastKnownLocation, req.Delivered)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "location updated successfully",
		"event":   event,
	})
}

// CancelDelivery handles DELETE /v1/delivery/:trackingNumber (admin).
func (h *DeliveryHandler) CancelDelivery(c *fiber.Ctx) error {
	trackingNumber, err := trackingNumberParam(c)
	if err != nil {
		return respondError(c, err)
	}

	if err := h.service.Cancel(c.UserContext(), middleware.TokenFrom(c), trackingNumber); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "delivery canceled successfully"})
}

// ReturnDelivery handles POST /v1/delivery/:trackingNumber/return.
func (h *DeliveryHandler) ReturnDelivery(c *fiber.Ctx) error {
	trackingNumber, err := trackingNumberParam(c)
	if err != nil {
		return respondError(c, err)
	}

	session := middleware.SessionFrom(c)
	if err := h.service.RequestReturn(c.UserContext(), middleware.TokenFrom(c), trackingNumber, session.UserID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "return requested successfully"})
}

// ProjectDelivery handles POST /v1/delivery/:trackingNumber/project (admin).
func (h *DeliveryHandler) ProjectDelivery(c *fiber.Ctx) error {
	trackingNumber, err := trackingNumberParam(c)
	if err != nil {
		return respondError(c, err)
	}

	projection, err := h.service.Project(c.UserContext(), middleware.TokenFrom(c), trackingNumber)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(projection)
}

func trackingNumberParam(c *fiber.Ctx) (int, error) {
	raw := c.Params("trackingNumber")
	trackingNumber, err := strconv.Atoi(raw)
	if err != nil || trackingNumber <= 0 {
		return 0, apperr.NewValidation().AddField("trackingNumber", "must be a positive integer")
	}
	return trackingNumber, nil
}

func respondError(c *fiber.Ctx, err error) error {
	var valErr *apperr.ValidationError
	if errors.As(err, &valErr) {
		return c.Status(fiber.StatusBadRequest).JSON(valErr)
	}

	status := fiber.StatusInternalServerError
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		status = fiber.StatusNotFound
	case apperr.KindForbidden:
		status = fiber.StatusForbidden
	case apperr.KindUnauthorized:
		status = fiber.StatusUnauthorized
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

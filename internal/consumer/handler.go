// Package consumer listens for the "order paid" signal and creates the
// delivery for the paid order.
package consumer

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/FacuPal/arq-microservicios/internal/delivery"
	"github.com/FacuPal/arq-microservicios/lib/kafka"
)

const (
	Topic         = "order_paid"
	consumerGroup = "delivery-service"
	concurrency   = 3
)

// OrderPaidMessage is the inbound event-creation trigger.
type OrderPaidMessage struct {
	OrderID string `json:"orderId"`
	UserID  string `json:"userId"`
	Status  string `json:"status"`
}

// OrderPaidProcessor creates deliveries from order-paid messages, using the
// configured service token for the projection's order lookup.
type OrderPaidProcessor struct {
	service      *delivery.Service
	serviceToken string
}

func NewOrderPaidProcessor(service *delivery.Service, serviceToken string) *OrderPaidProcessor {
	return &OrderPaidProcessor{service: service, serviceToken: serviceToken}
}

func (p *OrderPaidProcessor) Init() {
	go func() {
		worker := kafka.NewWorker[OrderPaidMessage](
			consumerGroup,
			[]string{Topic},
			concurrency,
			func(ctx context.Context, msg kafka.Message[OrderPaidMessage]) error {
				return p.Process(ctx, msg.Value)
			},
		)
		defer worker.Close()

		_ = worker.Run(context.Background())
	}()
}

func (p *OrderPaidProcessor) Process(ctx context.Context, msg OrderPaidMessage) error {
	logrus.WithFields(logrus.Fields{
		"order_id": msg.OrderID,
		"user_id":  msg.UserID,
		"status":   msg.Status,
	}).Info("consuming order_paid message")

	trackingNumber, err := p.service.Create(ctx, p.serviceToken, msg.OrderID, msg.UserID)
	if err != nil {
		logrus.WithError(err).WithField("order_id", msg.OrderID).Error("failed to create delivery")
		return err
	}

	logrus.WithFields(logrus.Fields{
		"order_id":        msg.OrderID,
		"tracking_number": trackingNumber,
	}).Info("delivery created")
	return nil
}

package main

import (
	"fmt"

	"github.com/FacuPal/arq-microservicios/app"
	"github.com/FacuPal/arq-microservicios/internal/client"
	"github.com/FacuPal/arq-microservicios/internal/consumer"
	"github.com/FacuPal/arq-microservicios/internal/delivery"
	"github.com/FacuPal/arq-microservicios/internal/handler"
	"github.com/FacuPal/arq-microservicios/internal/metrics"
	"github.com/FacuPal/arq-microservicios/internal/notifier"
	"github.com/FacuPal/arq-microservicios/internal/outbox"
	"github.com/FacuPal/arq-microservicios/internal/repo"
	"github.com/FacuPal/arq-microservicios/lib/kafka"
	"github.com/FacuPal/arq-microservicios/router"
)

func main() {
	app.Setup()
	fmt.Println("*************** SETUP KAFKA ***************")
	kafka.Setup()

	// Topics this service produces to and consumes from
	for _, topic := range []string{notifier.Topic, consumer.Topic} {
		if err := kafka.CreateTopic(topic, 3, 1); err != nil {
			fmt.Printf("Failed to create topic %s: %v\n", topic, err)
		}
	}

	metrics.Register()
	metricsPort := app.Config("METRICS_PORT")
	if metricsPort == "" {
		metricsPort = "9102"
	}
	metrics.Serve(metricsPort)

	db := app.Database.DB

	events := repo.NewEventRepository(db)
	projections := repo.NewProjectionRepository(db)
	failures := repo.NewFailureRepository(db)
	sequence := repo.NewSequenceRepository(db)
	orders := client.NewOrderServiceClient(app.Services.OrderServiceURL)
	sessions := client.NewAuthServiceClient(app.Services.AuthServiceURL)

	outboxRepo := outbox.NewRepository(db)

	// Notification dispatch with outbox fallback
	notifications := notifier.New(outboxRepo)
	notifications.Start()

	outboxWorker := outbox.NewWorker(outboxRepo)
	outboxWorker.Start()

	builder := delivery.NewReplayBuilder(events, projections, failures, orders)
	service := delivery.NewService(events, projections, sequence, builder, notifications,
		getPageSize())

	// Start order-paid consumer
	processor := consumer.NewOrderPaidProcessor(service, app.Services.ServiceToken)
	processor.Init()
	fmt.Println("Order-paid consumer started successfully")

	router.Setup(handler.NewDeliveryHandler(service), sessions)
}

func getPageSize() int {
	if size := app.Config("PAGE_SIZE"); size != "" {
		var n int
		if _, err := fmt.Sscanf(size, "%d", &n); err == nil && n > 0 {
			return n
		}
	}
	return delivery.DefaultPageSize
}

package router

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	mainapp "github.com/FacuPal/arq-microservicios/app"
	"github.com/FacuPal/arq-microservicios/internal/client"
	"github.com/FacuPal/arq-microservicios/internal/handler"
	"github.com/FacuPal/arq-microservicios/internal/middleware"
)

func Setup(deliveries *handler.DeliveryHandler, sessions client.SessionValidator) {
	app := fiber.New(fiber.Config{})
	app.Use(cors.New())
	app.Use(recover.New())
	setupRouter(app, deliveries, sessions)
	port := mainapp.Config("WEB_PORT")
	if len(port) == 0 {
		port = "3012"
	}
	fmt.Println("port=", port)
	app.Listen(":" + port)
}

func setupRouter(fiberApp *fiber.App, deliveries *handler.DeliveryHandler, sessions client.SessionValidator) {
	api := fiberApp.Group("/v1", logger.New())

	api.Get("/test.json", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": true, "message": "Pong"})
	})

	api.Use(middleware.RequireSession(sessions))
	admin := middleware.RequireAdmin()

	// Deliveries
	api.Get("/delivery", admin, deliveries.ListDeliveries)

	api.Get("/delivery/:trackingNumber", deliveries.GetDelivery)

	api.Put("/delivery/:trackingNumber", admin, deliveries.UpdateDelivery)

	api.Delete("/delivery/:trackingNumber", admin, deliveries.CancelDelivery)

	api.Post("/delivery/:trackingNumber/return", deliveries.ReturnDelivery)

	api.Post("/delivery/:trackingNumber/project", admin, deliveries.ProjectDelivery)
}

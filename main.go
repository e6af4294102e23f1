package main

import (
	"log"

	"github.com/coworkly/coworking-core/config"
	"github.com/coworkly/coworking-core/internal/consumer"
	"github.com/coworkly/coworking-core/internal/handler"
	"github.com/coworkly/coworking-core/internal/middleware"
	"github.com/coworkly/coworking-core/internal/repository"
	"github.com/coworkly/coworking-core/internal/service"
	"github.com/coworkly/coworking-core/pkg/database"
	"github.com/coworkly/coworking-core/pkg/rabbitmq"
	"github.com/labstack/echo/v4"
	echoMw "github.com/labstack/echo/v4/middleware"
)

func main() {
	cfg := config.Load()

	db := database.NewPostgresDB(cfg.DSN())

	// RabbitMQ consumer: sync spaces/tariffs/members from the catalog services
	mqConsumer, err := rabbitmq.NewConsumer(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to RabbitMQ: %v", err)
	}
	defer mqConsumer.Close()

	msgs, err := mqConsumer.Consume()
	if err != nil {
		log.Fatalf("failed to start consuming: %v", err)
	}

	// RabbitMQ publisher: booking.* / subscription.* domain events
	publisher, err := rabbitmq.NewPublisher(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to RabbitMQ publisher: %v", err)
	}
	defer publisher.Close()

	// Repositories
	spaceRepo := repository.NewSpaceRepository(db)
	memberRepo := repository.NewMemberRepository(db)
	tariffRepo := repository.NewTariffRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	subscriptionRepo := repository.NewSubscriptionRepository(db)
	bookingRepo := repository.NewBookingRepository(db)

	catalogConsumer := consumer.NewCatalogConsumer(spaceRepo, tariffRepo, memberRepo)
	catalogConsumer.Start(msgs)

	// Services
	ledger := service.NewLedger(memberRepo, transactionRepo)
	scheduler := service.NewScheduler(cfg.SlotMinutes, bookingRepo)
	subscriptionSvc := service.NewSubscriptionService(
		subscriptionRepo, tariffRepo, spaceRepo, bookingRepo, transactionRepo,
		ledger, scheduler, publisher,
	)
	bookingSvc := service.NewBookingService(
		bookingRepo, spaceRepo, subscriptionRepo, tariffRepo, transactionRepo,
		subscriptionSvc, ledger, scheduler, publisher, cfg.CancelBeforeHours,
	)
	readModels := service.NewReadModelService(bookingRepo, spaceRepo, subscriptionSvc)

	// Echo
	e := echo.New()
	e.HTTPErrorHandler = middleware.ErrorHandler
	e.Validator = handler.NewRequestValidator()
	e.Use(echoMw.RequestLoggerWithConfig(echoMw.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v echoMw.RequestLoggerValues) error {
			log.Printf("%s %s %d", v.Method, v.URI, v.Status)
			return nil
		},
	}))
	e.Use(echoMw.Recover())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok", "service": "coworking-core"})
	})

	handler.NewBookingHandler(bookingSvc, cfg.MinBookingMinutes, cfg.MaxBookingDaysAhead).RegisterRoutes(e)
	handler.NewSubscriptionHandler(subscriptionSvc).RegisterRoutes(e)
	handler.NewReadModelHandler(readModels, ledger).RegisterRoutes(e)

	log.Printf("Coworking Core starting on :%s", cfg.ServerPort)
	e.Logger.Fatal(e.Start(":" + cfg.ServerPort))
}

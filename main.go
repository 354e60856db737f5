package main

import (
	"log"

	"github.com/labstack/echo/v4"
	echoMw "github.com/labstack/echo/v4/middleware"
	"github.com/proteus100/acme-training/config"
	"github.com/proteus100/acme-training/internal/handler"
	"github.com/proteus100/acme-training/internal/middleware"
	"github.com/proteus100/acme-training/internal/notify"
	"github.com/proteus100/acme-training/internal/repository"
	"github.com/proteus100/acme-training/internal/service"
	"github.com/proteus100/acme-training/pkg/database"
	"github.com/proteus100/acme-training/pkg/rabbitmq"
)

func main() {
	cfg := config.Load()

	if cfg.StripeWebhookSecret == "" {
		log.Fatal("STRIPE_WEBHOOK_SECRET is required")
	}

	db := database.NewPostgresDB(cfg.DSN())

	// RabbitMQ publisher: booking-confirmation events for the email service
	publisher, err := rabbitmq.NewPublisher(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to RabbitMQ: %v", err)
	}
	defer publisher.Close()

	// Repositories
	eventRepo := repository.NewWebhookEventRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	bundleRepo := repository.NewBundleBookingRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	tenantRepo := repository.NewTenantRepository(db)

	// Services
	notifier := notify.New(publisher)
	payments := service.NewPaymentReconciler(bookingRepo, bundleRepo, paymentRepo, sessionRepo, notifier)
	subscriptions := service.NewSubscriptionLifecycle(subRepo, tenantRepo)
	invoices := service.NewInvoiceReconciler(invoiceRepo, subRepo, tenantRepo)
	processor := service.NewWebhookProcessor(eventRepo, payments, subscriptions, invoices)

	// Echo
	e := echo.New()
	e.HTTPErrorHandler = middleware.ErrorHandler
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
		return c.JSON(200, map[string]string{"status": "ok", "service": "payment-webhooks"})
	})

	handler.NewWebhookHandler(processor, cfg.StripeWebhookSecret).RegisterRoutes(e)

	log.Printf("Payment webhook service starting on :%s", cfg.ServerPort)
	e.Logger.Fatal(e.Start(":" + cfg.ServerPort))
}

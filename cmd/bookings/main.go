package main

import (
	"context"
	"turfbook/internal/bookings/events"
	bookingshandler "turfbook/internal/bookings/handler"
	"turfbook/internal/bookings/reaper"
	bookingsrepo "turfbook/internal/bookings/repository"
	bookingsservice "turfbook/internal/bookings/service"
	bookingsvalidator "turfbook/internal/bookings/validator"
	paymentsrepo "turfbook/internal/payments/repository"
	slotshandler "turfbook/internal/slots/handler"
	slotsservice "turfbook/internal/slots/service"
	turfshandler "turfbook/internal/turfs/handler"
	turfsrepo "turfbook/internal/turfs/repository"
	turfsservice "turfbook/internal/turfs/service"
	turfsvalidator "turfbook/internal/turfs/validator"
	usersrepo "turfbook/internal/users/repository"
	"turfbook/pkg/app"
	"turfbook/pkg/clock"
	"turfbook/pkg/config"
	"turfbook/pkg/contracts"
	mongotx "turfbook/pkg/db/mongo"
	"turfbook/pkg/kafka"
	kafka_config "turfbook/pkg/kafka/config"
	kafka_middleware "turfbook/pkg/kafka/middleware"

	"github.com/julienschmidt/httprouter"
)

const ServiceName = "bookings"

func main() {
	cfg := config.Load(ServiceName)
	if err := cfg.ValidateAuth(); err != nil {
		cfg.Log.Fatal("Refusing to start without a usable JWT secret", "error", err)
	}
	cfg.SetMongo()

	cfg.Log.Info("Starting Bookings service")
	db := cfg.Client.Database(cfg.MongoDatabaseName)
	txManager := mongotx.NewTransactionManager(cfg.Client.Mongo)

	turfRepo := turfsrepo.NewMongoTurfRepository(cfg, db)
	bookingRepo := bookingsrepo.NewMongoBookingRepository(cfg, db, txManager)
	paymentRepo := paymentsrepo.NewMongoPaymentRepository(cfg, db)
	userRepo := usersrepo.NewMongoUserRepository(cfg, db)
	leaseRepo := bookingsrepo.NewLeaseRepository(cfg, db)

	publisher, closePublisher := initPublisher(cfg)
	defer closePublisher()

	catalog := slotsservice.NewCatalog(turfRepo, bookingRepo, cfg, clock.System{})
	admission := bookingsservice.NewAdmissionService(
		bookingRepo,
		turfRepo,
		userRepo,
		paymentRepo,
		catalog,
		publisher,
		bookingsvalidator.NewBookingValidator(cfg.Log),
		cfg,
		clock.System{},
	)
	ledger := bookingsservice.NewLedgerService(bookingRepo, turfRepo, cfg)
	turfs := turfsservice.NewTurfService(turfRepo, turfsvalidator.NewTurfValidator(cfg.Log), cfg, clock.System{})

	bookingHandler := bookingshandler.NewBookingHandler(admission, ledger, cfg.Log)
	holdReaper := reaper.New(admission, leaseRepo, cfg)

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(
		contracts.HandlerFunc(func(router *httprouter.Router) {
			bookingHandler.RegisterRoutes(router, cfg.PaymentWebhookSecret)
		}),
		turfshandler.NewTurfHandler(turfs, cfg.Log),
		slotshandler.NewCatalogHandler(catalog, cfg.Log),
	)
	serverApp.AddWorker(reaper.LeaseName, contracts.WorkerFunc(func(ctx context.Context) error {
		holdReaper.Run(ctx)
		return nil
	}))

	cfg.Log.Info("Bookings service initialized", "database", cfg.MongoDatabaseName)
	serverApp.Run()
}

// initPublisher returns a Kafka-backed publisher when Kafka is enabled and a
// no-op publisher otherwise.
func initPublisher(cfg *config.Config) (bookingsservice.EventPublisher, func()) {
	if !cfg.KafkaEnabled {
		cfg.Log.Info("Kafka disabled, booking events will not be published")
		return events.NewNopPublisher(cfg.Log), func() {}
	}

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log)

	producer, err := kafka.NewProducer(kafkaCfg, kafkaCfg.BookingEventsTopic, kafkaCfg.BookingEventsDLQTopic, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	if kafkaCfg.EnableMiddleware {
		producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
		producer.Use(kafka_middleware.MetricsProducerMiddleware())
	}

	return events.NewKafkaPublisher(producer, ServiceName, cfg.Log), func() {
		if err := producer.Close(); err != nil {
			cfg.Log.Error("Failed to close Kafka producer", "error", err)
		}
	}
}

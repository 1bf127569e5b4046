package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"turfbook/internal/bookings/events"
	bookingsrepo "turfbook/internal/bookings/repository"
	bookingsservice "turfbook/internal/bookings/service"
	bookingsvalidator "turfbook/internal/bookings/validator"
	paymentsrepo "turfbook/internal/payments/repository"
	slotsservice "turfbook/internal/slots/service"
	turfsrepo "turfbook/internal/turfs/repository"
	usersrepo "turfbook/internal/users/repository"
	"turfbook/pkg/clock"
	"turfbook/pkg/config"
	mongotx "turfbook/pkg/db/mongo"
	"turfbook/pkg/kafka"
	kafka_config "turfbook/pkg/kafka/config"
	kafka_middleware "turfbook/pkg/kafka/middleware"
)

const ServiceName = "payment-events"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log)

	db := cfg.Client.Database(cfg.MongoDatabaseName)
	txManager := mongotx.NewTransactionManager(cfg.Client.Mongo)
	turfRepo := turfsrepo.NewMongoTurfRepository(cfg, db)
	bookingRepo := bookingsrepo.NewMongoBookingRepository(cfg, db, txManager)

	// Confirmations made here are published like the ones made over HTTP.
	producer, err := kafka.NewProducer(kafkaCfg, kafkaCfg.BookingEventsTopic, kafkaCfg.BookingEventsDLQTopic, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	defer producer.Close()
	if kafkaCfg.EnableMiddleware {
		producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
		producer.Use(kafka_middleware.MetricsProducerMiddleware())
	}

	admission := bookingsservice.NewAdmissionService(
		bookingRepo,
		turfRepo,
		usersrepo.NewMongoUserRepository(cfg, db),
		paymentsrepo.NewMongoPaymentRepository(cfg, db),
		slotsservice.NewCatalog(turfRepo, bookingRepo, cfg, clock.System{}),
		events.NewKafkaPublisher(producer, ServiceName, cfg.Log),
		bookingsvalidator.NewBookingValidator(cfg.Log),
		cfg,
		clock.System{},
	)

	consumer, err := kafka.NewConsumer(
		kafkaCfg,
		kafkaCfg.PaymentResultsTopic,
		kafkaCfg.ConsumerGroupID,
		kafkaCfg.PaymentResultsDLQTopic,
		events.PaymentResultHandler(admission, cfg.Log),
		cfg.Log,
	)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka consumer", "error", err)
	}
	if kafkaCfg.EnableMiddleware {
		consumer.Use(kafka_middleware.LoggingConsumerMiddleware(cfg.Log))
		consumer.Use(kafka_middleware.MetricsConsumerMiddleware())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg.Log.Info("Payment result consumer running", "topic", kafkaCfg.PaymentResultsTopic, "group_id", kafkaCfg.ConsumerGroupID)
	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		cfg.Log.Error("Payment result consumer stopped", "error", err)
	}

	if err := consumer.Close(); err != nil {
		cfg.Log.Error("Failed to close Kafka consumer", "error", err)
	}
	cfg.Log.Info("Payment result consumer stopped")
}

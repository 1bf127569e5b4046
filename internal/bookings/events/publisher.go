package events

import (
	"context"
	"fmt"
	"time"
	"turfbook/pkg/kafka"
	"turfbook/pkg/logger"
	"turfbook/pkg/middleware"
	"turfbook/pkg/model"
)

// Producer is satisfied by *kafka.Producer.
type Producer interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

// KafkaPublisher writes booking events keyed by booking id, so every event
// of one booking lands on the same partition in order.
type KafkaPublisher struct {
	producer Producer
	source   string
	log      *logger.Logger
}

func NewKafkaPublisher(producer Producer, source string, log *logger.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		producer: producer,
		source:   source,
		log:      log.Component("booking-events"),
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, eventType Type, booking *model.Booking) error {
	event := NewBookingEvent(eventType, booking, time.Now())

	builder := kafka.NewMessage().
		WithKey(booking.ID).
		WithValue(event).
		WithEventID(event.EventID).
		WithEventType(string(eventType)).
		WithCorrelationID(middleware.RequestID(ctx)).
		WithSchemaVersion(SchemaVersion).
		WithSource(p.source)
	if err := builder.Err(); err != nil {
		return fmt.Errorf("failed to encode %s for booking %s: %w", eventType, booking.ID, err)
	}

	if err := p.producer.Publish(ctx, builder.Build()); err != nil {
		return fmt.Errorf("failed to publish %s for booking %s: %w", eventType, booking.ID, err)
	}

	p.log.Debug("Booking event published",
		"event_id", event.EventID,
		"event_type", eventType,
		"booking_id", booking.ID,
	)
	return nil
}

// NopPublisher is used when Kafka is disabled.
type NopPublisher struct {
	log *logger.Logger
}

func NewNopPublisher(log *logger.Logger) *NopPublisher {
	return &NopPublisher{log: log}
}

func (p *NopPublisher) Publish(ctx context.Context, eventType Type, booking *model.Booking) error {
	p.log.Debug("Booking event dropped, Kafka disabled",
		"event_type", eventType,
		"booking_id", booking.ID,
	)
	return nil
}

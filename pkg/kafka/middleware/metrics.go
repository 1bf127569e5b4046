package kafka_middleware

import (
	"context"
	"time"
	"turfbook/pkg/kafka"
	"turfbook/pkg/metrics"
)

const (
	directionPublish = "publish"
	directionConsume = "consume"
)

// MetricsProducerMiddleware records publish results and latency per topic.
func MetricsProducerMiddleware() kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next func(ctx context.Context, msg kafka.Message) error) error {
		start := time.Now()
		err := next(ctx, msg)
		observe(directionPublish, msg.Topic, start, err)
		return err
	}
}

// MetricsConsumerMiddleware records handler results by error class.
func MetricsConsumerMiddleware() kafka.ConsumerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next kafka.MessageHandler) error {
		start := time.Now()
		err := next(ctx, msg)
		observe(directionConsume, msg.Topic, start, err)
		return err
	}
}

func observe(direction, topic string, start time.Time, err error) {
	metrics.KafkaLatency.WithLabelValues(direction, topic).Observe(time.Since(start).Seconds())
	metrics.KafkaMessages.WithLabelValues(direction, topic, result(err)).Inc()
}

func result(err error) string {
	if err == nil {
		return "success"
	}
	return kafka.ClassifyError(err).String()
}

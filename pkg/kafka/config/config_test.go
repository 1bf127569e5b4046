package kafka_config

import (
	"strings"
	"testing"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv(EnvKafkaBrokers, "")
	cfg := FromEnv()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should be valid: %v", err)
	}
	if len(cfg.Brokers) != 1 || cfg.Brokers[0] != DefaultKafkaBrokers {
		t.Errorf("unexpected brokers %v", cfg.Brokers)
	}
	if cfg.PaymentResultsTopic != DefaultPaymentResultsTopic {
		t.Errorf("unexpected payment topic %q", cfg.PaymentResultsTopic)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv(EnvKafkaBrokers, "kafka-1:9092, kafka-2:9092")
	t.Setenv(EnvKafkaConsumerGroupID, "turfbook-test")
	t.Setenv(EnvKafkaConsumerRetryBackoff, "2s")

	cfg := FromEnv()

	if len(cfg.Brokers) != 2 || cfg.Brokers[1] != "kafka-2:9092" {
		t.Errorf("brokers not trimmed: %v", cfg.Brokers)
	}
	if cfg.ConsumerGroupID != "turfbook-test" {
		t.Errorf("unexpected group %q", cfg.ConsumerGroupID)
	}
	if cfg.ConsumerRetryBackoff.Seconds() != 2 {
		t.Errorf("unexpected backoff %s", cfg.ConsumerRetryBackoff)
	}
}

func TestValidate_NumbersEveryError(t *testing.T) {
	cfg := FromEnv()
	cfg.ProducerCompression = "brotli"
	cfg.ConsumerStartOffset = 5
	cfg.PaymentResultsDLQTopic = cfg.PaymentResultsTopic

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	msg := err.Error()
	for _, want := range []string{"1. ", "2. ", "3. ", "ProducerCompression", "ConsumerStartOffset", "PaymentResultsDLQTopic"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q missing %q", msg, want)
		}
	}
}

func TestLoad_RejectsInvalidEnvironment(t *testing.T) {
	t.Setenv(EnvKafkaProducerRequireAcks, "7")

	if _, err := Load(); err == nil {
		t.Fatal("expected Load to fail")
	}
}

package notifications

import (
	"context"
	"fmt"
	"time"

	"tripenjoy/pkg/logger"

	"github.com/IBM/sarama"
)

// Publisher delivers lifecycle notifications. Publish never fails the caller:
// transitions are already committed when it runs, so errors are only logged.
type Publisher interface {
	Publish(ctx context.Context, notification LifecycleNotification)
	Close() error
}

// KafkaProducerConfig contains configuration for the Kafka lifecycle producer
type KafkaProducerConfig struct {
	Brokers          []string
	Topic            string
	ClientID         string
	RetryMax         int
	Timeout          time.Duration
	RequiredAcks     sarama.RequiredAcks
	CompressionType  sarama.CompressionCodec
	IdempotentWrites bool
	MaxMessageBytes  int
}

// DefaultKafkaProducerConfig returns a default producer configuration
func DefaultKafkaProducerConfig() *KafkaProducerConfig {
	return &KafkaProducerConfig{
		Brokers:          []string{"localhost:9092"},
		Topic:            "booking-lifecycle",
		ClientID:         "tripenjoy-backend",
		RetryMax:         3,
		Timeout:          10 * time.Second,
		RequiredAcks:     sarama.WaitForAll, // Wait for all in-sync replicas
		CompressionType:  sarama.CompressionSnappy,
		IdempotentWrites: true,
		MaxMessageBytes:  1000000, // 1MB
	}
}

// NewSaramaConfig builds the producer settings shared by the real producer
// and its test double.
func NewSaramaConfig(config *KafkaProducerConfig) *sarama.Config {
	saramaConfig := sarama.NewConfig()
	saramaConfig.ClientID = config.ClientID

	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Producer.RequiredAcks = config.RequiredAcks
	saramaConfig.Producer.Compression = config.CompressionType
	saramaConfig.Producer.Retry.Max = config.RetryMax
	saramaConfig.Producer.Timeout = config.Timeout
	saramaConfig.Producer.Idempotent = config.IdempotentWrites
	saramaConfig.Producer.MaxMessageBytes = config.MaxMessageBytes

	// Idempotent producers require a single in-flight request
	if config.IdempotentWrites {
		saramaConfig.Net.MaxOpenRequests = 1
	}

	// Hash partitioner keeps a booking's events ordered
	saramaConfig.Producer.Partitioner = sarama.NewHashPartitioner
	return saramaConfig
}

// KafkaPublisher publishes lifecycle notifications to Kafka
type KafkaPublisher struct {
	producer sarama.SyncProducer
	config   *KafkaProducerConfig
	log      *logger.Logger
}

// NewKafkaPublisher connects a sync producer to the configured brokers
func NewKafkaPublisher(config *KafkaProducerConfig) (*KafkaPublisher, error) {
	producer, err := sarama.NewSyncProducer(config.Brokers, NewSaramaConfig(config))
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}
	return NewKafkaPublisherWithProducer(producer, config), nil
}

// NewKafkaPublisherWithProducer wraps an existing producer
func NewKafkaPublisherWithProducer(producer sarama.SyncProducer, config *KafkaProducerConfig) *KafkaPublisher {
	return &KafkaPublisher{
		producer: producer,
		config:   config,
		log:      logger.GetDefault(),
	}
}

// Publish sends a single notification to Kafka
func (kp *KafkaPublisher) Publish(ctx context.Context, notification LifecycleNotification) {
	messageBytes, err := notification.ToJSON()
	if err != nil {
		kp.log.ErrorWithContext(ctx, "Failed to marshal lifecycle notification", err, map[string]interface{}{
			"type":       string(notification.Type),
			"booking_id": notification.BookingID.String(),
		})
		return
	}

	message := &sarama.ProducerMessage{
		Topic:     kp.config.Topic,
		Key:       sarama.StringEncoder(notification.GetPartitionKey()),
		Value:     sarama.ByteEncoder(messageBytes),
		Headers:   createHeaders(notification),
		Timestamp: notification.OccurredAt,
	}

	partition, offset, err := kp.producer.SendMessage(message)
	if err != nil {
		kp.log.ErrorWithContext(ctx, "Failed to publish lifecycle notification", err, map[string]interface{}{
			"type":       string(notification.Type),
			"booking_id": notification.BookingID.String(),
			"topic":      kp.config.Topic,
		})
		return
	}

	kp.log.DebugWithContext(ctx, "Lifecycle notification published", map[string]interface{}{
		"type":       string(notification.Type),
		"booking_id": notification.BookingID.String(),
		"topic":      kp.config.Topic,
		"partition":  partition,
		"offset":     offset,
	})
}

func createHeaders(notification LifecycleNotification) []sarama.RecordHeader {
	headers := []sarama.RecordHeader{
		{Key: []byte("notification_id"), Value: []byte(notification.ID.String())},
		{Key: []byte("notification_type"), Value: []byte(notification.Type)},
		{Key: []byte("priority"), Value: []byte(notification.Priority)},
		{Key: []byte("booking_id"), Value: []byte(notification.BookingID.String())},
		{Key: []byte("version"), Value: []byte("1.0")},
		{Key: []byte("producer"), Value: []byte("tripenjoy-lifecycle")},
		{Key: []byte("occurred_at"), Value: []byte(notification.OccurredAt.Format(time.RFC3339))},
	}

	if notification.PaymentID != nil {
		headers = append(headers, sarama.RecordHeader{
			Key:   []byte("payment_id"),
			Value: []byte(notification.PaymentID.String()),
		})
	}
	return headers
}

// Close closes the Kafka producer
func (kp *KafkaPublisher) Close() error {
	if kp.producer != nil {
		if err := kp.producer.Close(); err != nil {
			return fmt.Errorf("failed to close Kafka producer: %w", err)
		}
		kp.log.Info("Kafka lifecycle producer closed")
	}
	return nil
}

// LogPublisher writes notifications to the structured log. It is used when
// Kafka is disabled.
type LogPublisher struct {
	log *logger.Logger
}

func NewLogPublisher() *LogPublisher {
	return &LogPublisher{log: logger.GetDefault()}
}

func (lp *LogPublisher) Publish(ctx context.Context, notification LifecycleNotification) {
	fields := map[string]interface{}{
		"notification_id": notification.ID.String(),
		"type":            string(notification.Type),
		"booking_id":      notification.BookingID.String(),
		"user_id":         notification.UserID.String(),
		"status":          notification.Status,
		"amount":          notification.Amount.StringFixed(2),
	}
	if notification.PaymentID != nil {
		fields["payment_id"] = notification.PaymentID.String()
	}
	lp.log.InfoWithContext(ctx, "Lifecycle Notification", fields)
}

func (lp *LogPublisher) Close() error { return nil }

package producer

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/pranay-th/TGBH-CheeseBurger/internal/logging"
	"github.com/pranay-th/TGBH-CheeseBurger/internal/telemetry/domain"
)

// messageWriter is the subset of *kafka.Writer used by KafkaProducer.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaProducer implements Producer using segmentio/kafka-go. Messages are keyed by user id so
// one subject's records land on one partition in append order.
type KafkaProducer struct {
	writer messageWriter
	topic  string
	logger *zap.Logger
}

// NewKafkaProducer creates a Kafka producer that writes envelopes to the given topic.
// Returns (nil, nil) when brokers or topic is empty, meaning the mirror is disabled.
// Call Close when shutting down.
func NewKafkaProducer(brokers []string, topic string, logger *zap.Logger) (*KafkaProducer, error) {
	if len(brokers) == 0 || topic == "" {
		return nil, nil
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
	}
	return newKafkaProducer(writer, topic, logger), nil
}

func newKafkaProducer(w messageWriter, topic string, logger *zap.Logger) *KafkaProducer {
	return &KafkaProducer{writer: w, topic: topic, logger: logging.OrNop(logger).Named("kafka")}
}

// Emit serializes the envelope as JSON and writes it to the Kafka topic.
// Uses the caller's context with a short timeout so slow Kafka does not block callers indefinitely.
func (p *KafkaProducer) Emit(ctx context.Context, env *domain.Envelope) error {
	if p == nil || p.writer == nil || env == nil {
		return nil
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	err = p.writer.WriteMessages(writeCtx, kafka.Message{
		Key:   messageKey(env),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(env.Kind)},
			{Key: "source", Value: []byte(env.Source)},
		},
	})
	if err != nil {
		p.logger.Warn("emit failed",
			zap.String("topic", p.topic),
			zap.Int64("record_id", env.RecordID),
			zap.Error(err))
		return err
	}
	return nil
}

// messageKey returns the partition key for env: its user id, or a random key when unset.
func messageKey(env *domain.Envelope) []byte {
	if env.UserID > 0 {
		return []byte(strconv.FormatInt(env.UserID, 10))
	}
	return []byte(uuid.NewString())
}

// Close closes the Kafka writer. Safe to call multiple times.
func (p *KafkaProducer) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

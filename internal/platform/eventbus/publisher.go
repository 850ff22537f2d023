// Package eventbus publishes payment lifecycle events to Kafka.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/paymint/paymint/pkg/config"
)

const (
	EventPaymentPaid   = "payment.paid"
	EventPaymentFailed = "payment.failed"
)

type Event struct {
	Type       string      `json:"type"`
	PaymentID  string      `json:"paymentId"`
	OwnerID    string      `json:"ownerId"`
	Provider   string      `json:"provider"`
	Amount     json.Number `json:"amount"`
	Currency   string      `json:"currency"`
	Status     string      `json:"status"`
	OccurredAt time.Time   `json:"occurredAt"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// messageWriter is the part of *kafka.Writer the publisher depends on.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type kafkaPublisher struct {
	writer  messageWriter
	timeout time.Duration
	log     *zap.SugaredLogger
}

func NewKafkaPublisher(cfg config.KafkaConfig, log *zap.SugaredLogger) Publisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  3,
		Logger:       kafka.LoggerFunc(func(msg string, args ...interface{}) { log.Debugf(msg, args...) }),
		ErrorLogger:  kafka.LoggerFunc(func(msg string, args ...interface{}) { log.Errorf(msg, args...) }),
	}
	return &kafkaPublisher{writer: w, timeout: w.WriteTimeout, log: log}
}

// Publish keys messages by payment id so one payment's events stay ordered.
func (p *kafkaPublisher) Publish(ctx context.Context, e Event) error {
	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	msg := kafka.Message{
		Key:   []byte(e.PaymentID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(e.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to produce %s event: %w", e.Type, err)
	}
	p.log.Debugw("event published", "type", e.Type, "payment_id", e.PaymentID)
	return nil
}

func (p *kafkaPublisher) Close() error {
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer: %w", err)
	}
	return nil
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, Event) error { return nil }
func (nopPublisher) Close() error                         { return nil }

// Nop discards every event.
func Nop() Publisher { return nopPublisher{} }

func newPublisher(lc fx.Lifecycle, cfg *config.Config, log *zap.SugaredLogger) Publisher {
	if !cfg.Kafka.Enabled() {
		log.Infow("event publishing disabled: no kafka brokers configured")
		return Nop()
	}
	p := NewKafkaPublisher(cfg.Kafka, log.With("component", "eventbus"))
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return p.Close()
		},
	})
	log.Infow("event publishing enabled", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	return p
}

var Module = fx.Options(
	fx.Provide(newPublisher),
)

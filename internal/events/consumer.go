package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
)

// PaymentEventType represents the type of payment event.
type PaymentEventType string

const (
	PaymentEventCompleted PaymentEventType = "payment.completed"
	PaymentEventFailed    PaymentEventType = "payment.failed"
)

// PaymentEvent is a hosted checkout outcome reported by the payment backend.
type PaymentEvent struct {
	ID               string           `json:"id"`
	Type             PaymentEventType `json:"type"`
	PaymentSessionID string           `json:"payment_session_id"`
	OrderID          int64            `json:"order_id"`
	Status           string           `json:"status"`
	Reason           string           `json:"reason,omitempty"`
	Timestamp        time.Time        `json:"timestamp"`
}

// PaymentResultHandler applies a payment outcome to the checkout attempt
// that owns the session.
type PaymentResultHandler interface {
	HandlePaymentResult(ctx context.Context, sessionID string, orderID int64, succeeded bool, reason string) error
}

// KafkaConsumer consumes payment events from Kafka.
type KafkaConsumer struct {
	reader   *kafka.Reader
	handler  PaymentResultHandler
	logger   *logging.LoggerV2
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewKafkaConsumer creates a new Kafka-based event consumer.
func NewKafkaConsumer(cfg config.KafkaConfig, handler PaymentResultHandler, logger *logging.LoggerV2) *KafkaConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.PaymentsTopic,
		GroupID:  cfg.ConsumerGroup,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  time.Second,
	})

	return &KafkaConsumer{
		reader:  reader,
		handler: handler,
		logger:  logger,
		stopCh:  make(chan struct{}),
	}
}

// Start begins consuming events.
func (c *KafkaConsumer) Start(ctx context.Context) error {
	c.logger.Info("Starting Kafka consumer")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.stopCh:
			c.logger.Info("Kafka consumer stopped")
			return nil
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				select {
				case <-c.stopCh:
					return nil
				default:
				}
				c.logger.Error("Failed to read message", logging.Fields{"error": err.Error()})
				continue
			}

			c.handleMessage(ctx, msg)
		}
	}
}

// Stop stops the consumer. It is safe to call more than once.
func (c *KafkaConsumer) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
		if c.reader != nil {
			_ = c.reader.Close()
		}
	})
}

func (c *KafkaConsumer) handleMessage(ctx context.Context, msg kafka.Message) {
	c.logger.Debug("Received message", logging.Fields{
		"topic":     msg.Topic,
		"partition": msg.Partition,
		"offset":    msg.Offset,
	})

	var event PaymentEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		c.logger.Error("Failed to unmarshal event", logging.Fields{"error": err.Error()})
		return
	}

	switch event.Type {
	case PaymentEventCompleted:
		c.apply(ctx, &event, true)
	case PaymentEventFailed:
		c.apply(ctx, &event, false)
	default:
		c.logger.Debug("Ignoring unknown event type", logging.Fields{"type": event.Type})
	}
}

func (c *KafkaConsumer) apply(ctx context.Context, event *PaymentEvent, succeeded bool) {
	c.logger.Info("Handling payment event", logging.Fields{
		"event_id":           event.ID,
		"type":               event.Type,
		"payment_session_id": event.PaymentSessionID,
		"order_id":           event.OrderID,
	})

	if event.PaymentSessionID == "" {
		c.logger.Warn("Payment event without session id", logging.Fields{"event_id": event.ID})
		return
	}

	if err := c.handler.HandlePaymentResult(ctx, event.PaymentSessionID, event.OrderID, succeeded, event.Reason); err != nil {
		c.logger.Error("Failed to apply payment event", logging.Fields{
			"payment_session_id": event.PaymentSessionID,
			"error":              err.Error(),
		})
	}
}

package events

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/clients"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
)

// EventType represents the type of storefront event.
type EventType string

const (
	EventTypeCheckoutDraftCreated   EventType = "checkout.draft_created"
	EventTypeCheckoutSessionCreated EventType = "checkout.payment_session_created"
	EventTypeCheckoutSessionReused  EventType = "checkout.payment_session_reused"
	EventTypeCheckoutConfirmed      EventType = "checkout.confirmed"
	EventTypeCheckoutFailed         EventType = "checkout.failed"
	EventTypeCheckoutAbandoned      EventType = "checkout.abandoned"

	EventTypeOrderCancelRequested EventType = "order.cancel_requested"
	EventTypeReturnRequested      EventType = "order.return_requested"
	EventTypeComplaintRaised      EventType = "order.complaint_raised"
	EventTypeReviewPosted         EventType = "order.review_posted"
)

// StorefrontEvent is the envelope written to the checkout topic.
type StorefrontEvent struct {
	ID            string            `json:"id"`
	Type          EventType         `json:"type"`
	Key           string            `json:"key"`
	UserID        int64             `json:"user_id"`
	Data          json.RawMessage   `json:"data"`
	Metadata      map[string]string `json:"metadata"`
	Timestamp     time.Time         `json:"timestamp"`
	CorrelationID string            `json:"correlation_id,omitempty"`
}

// Publisher emits storefront events. Publishing is best effort: callers log
// failures and carry on.
type Publisher interface {
	PublishCheckout(ctx context.Context, eventType EventType, attempt *models.CheckoutAttempt) error
	PublishOrder(ctx context.Context, eventType EventType, userID, orderID int64, payload interface{}) error
}

var (
	_ Publisher = (*KafkaPublisher)(nil)
	_ Publisher = NopPublisher{}
	_ Publisher = (*MockPublisher)(nil)
)

// KafkaPublisher publishes storefront events to Kafka.
type KafkaPublisher struct {
	writer *kafka.Writer
	topic  string
	logger *logging.LoggerV2
}

// NewKafkaPublisher creates a new Kafka-based event publisher.
func NewKafkaPublisher(cfg config.KafkaConfig, logger *logging.LoggerV2) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.CheckoutTopic,
		Balancer:     &kafka.Hash{},
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
	}

	return &KafkaPublisher{
		writer: writer,
		topic:  cfg.CheckoutTopic,
		logger: logger,
	}
}

// PublishCheckout publishes a checkout attempt transition keyed by attempt id.
func (p *KafkaPublisher) PublishCheckout(ctx context.Context, eventType EventType, attempt *models.CheckoutAttempt) error {
	p.logger.Debug("Publishing checkout event", logging.Fields{
		"checkout_id": attempt.ID,
		"event_type":  eventType,
		"state":       attempt.State,
	})

	event, err := newEvent(ctx, eventType, attempt.ID, attempt.UserID, attempt)
	if err != nil {
		return err
	}
	return p.publish(ctx, event)
}

// PublishOrder publishes an order history action keyed by order id.
func (p *KafkaPublisher) PublishOrder(ctx context.Context, eventType EventType, userID, orderID int64, payload interface{}) error {
	p.logger.Debug("Publishing order event", logging.Fields{
		"order_id":   orderID,
		"event_type": eventType,
	})

	event, err := newEvent(ctx, eventType, strconv.FormatInt(orderID, 10), userID, payload)
	if err != nil {
		return err
	}
	return p.publish(ctx, event)
}

func newEvent(ctx context.Context, eventType EventType, key string, userID int64, payload interface{}) (*StorefrontEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &StorefrontEvent{
		ID:            "evt_" + uuid.NewString(),
		Type:          eventType,
		Key:           key,
		UserID:        userID,
		Data:          data,
		Metadata:      map[string]string{"source": "storefront-service"},
		Timestamp:     time.Now().UTC(),
		CorrelationID: clients.RequestIDFrom(ctx),
	}, nil
}

func (p *KafkaPublisher) publish(ctx context.Context, event *StorefrontEvent) error {
	eventData, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(event.Key),
		Value: eventData,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "event_id", Value: []byte(event.ID)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish event", logging.Fields{
			"event_id":   event.ID,
			"event_type": event.Type,
			"key":        event.Key,
			"error":      err.Error(),
		})
		return err
	}

	p.logger.Info("Event published", logging.Fields{
		"event_id":   event.ID,
		"event_type": event.Type,
		"key":        event.Key,
	})

	return nil
}

// Close closes the Kafka writer.
func (p *KafkaPublisher) Close() error {
	p.logger.Info("Closing Kafka publisher")
	return p.writer.Close()
}

// NopPublisher drops every event. Used when checkout events are disabled.
type NopPublisher struct{}

func (NopPublisher) PublishCheckout(context.Context, EventType, *models.CheckoutAttempt) error {
	return nil
}

func (NopPublisher) PublishOrder(context.Context, EventType, int64, int64, interface{}) error {
	return nil
}

// MockPublisher records events for tests.
type MockPublisher struct {
	mu     sync.Mutex
	Events []*StorefrontEvent
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{Events: make([]*StorefrontEvent, 0)}
}

func (m *MockPublisher) PublishCheckout(ctx context.Context, eventType EventType, attempt *models.CheckoutAttempt) error {
	event, err := newEvent(ctx, eventType, attempt.ID, attempt.UserID, attempt)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.Events = append(m.Events, event)
	m.mu.Unlock()
	return nil
}

func (m *MockPublisher) PublishOrder(ctx context.Context, eventType EventType, userID, orderID int64, payload interface{}) error {
	event, err := newEvent(ctx, eventType, strconv.FormatInt(orderID, 10), userID, payload)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.Events = append(m.Events, event)
	m.mu.Unlock()
	return nil
}

// Types returns the recorded event types in order.
func (m *MockPublisher) Types() []EventType {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]EventType, len(m.Events))
	for i, e := range m.Events {
		out[i] = e.Type
	}
	return out
}

package events

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/clients"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
)

type result struct {
	sessionID string
	orderID   int64
	succeeded bool
	reason    string
}

type recordingHandler struct {
	results []result
}

func (h *recordingHandler) HandlePaymentResult(_ context.Context, sessionID string, orderID int64, succeeded bool, reason string) error {
	h.results = append(h.results, result{sessionID, orderID, succeeded, reason})
	return nil
}

func newTestConsumer(h PaymentResultHandler) *KafkaConsumer {
	return &KafkaConsumer{handler: h, logger: logging.Nop(), stopCh: make(chan struct{})}
}

func message(t *testing.T, e PaymentEvent) kafka.Message {
	t.Helper()
	data, err := json.Marshal(e)
	require.NoError(t, err)
	return kafka.Message{Topic: "payments", Value: data}
}

func TestKafkaConsumer_HandleMessage(t *testing.T) {
	h := &recordingHandler{}
	c := newTestConsumer(h)
	ctx := context.Background()

	c.handleMessage(ctx, message(t, PaymentEvent{Type: PaymentEventCompleted, PaymentSessionID: "sess_a", OrderID: 42}))
	c.handleMessage(ctx, message(t, PaymentEvent{Type: PaymentEventFailed, PaymentSessionID: "sess_b", Reason: "declined"}))
	c.handleMessage(ctx, message(t, PaymentEvent{Type: "payment.refunded", PaymentSessionID: "sess_c"}))
	c.handleMessage(ctx, message(t, PaymentEvent{Type: PaymentEventCompleted}))
	c.handleMessage(ctx, kafka.Message{Value: []byte("not json")})

	require.Len(t, h.results, 2)
	assert.Equal(t, result{"sess_a", 42, true, ""}, h.results[0])
	assert.Equal(t, result{"sess_b", 0, false, "declined"}, h.results[1])
}

func TestKafkaConsumer_StopIsIdempotent(t *testing.T) {
	c := newTestConsumer(&recordingHandler{})
	c.Stop()
	c.Stop()

	err := c.Start(context.Background())
	assert.NoError(t, err)
}

func TestMockPublisher_RecordsEnvelope(t *testing.T) {
	p := NewMockPublisher()
	ctx := clients.WithRequestID(context.Background(), "req-9")

	attempt := &models.CheckoutAttempt{ID: "chk_1", UserID: 7, State: models.CheckoutDraftReceived}
	require.NoError(t, p.PublishCheckout(ctx, EventTypeCheckoutDraftCreated, attempt))
	require.NoError(t, p.PublishOrder(ctx, EventTypeOrderCancelRequested, 7, 55, map[string]string{"reason": "user"}))

	assert.Equal(t, []EventType{EventTypeCheckoutDraftCreated, EventTypeOrderCancelRequested}, p.Types())
	assert.Equal(t, "chk_1", p.Events[0].Key)
	assert.Equal(t, "55", p.Events[1].Key)
	assert.Equal(t, "req-9", p.Events[0].CorrelationID)
	assert.Contains(t, p.Events[0].ID, "evt_")

	var decoded models.CheckoutAttempt
	require.NoError(t, json.Unmarshal(p.Events[0].Data, &decoded))
	assert.Equal(t, models.CheckoutDraftReceived, decoded.State)
}

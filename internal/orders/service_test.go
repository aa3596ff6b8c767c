package orders

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/clients"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/events"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/metrics"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
)

const user int64 = 42

func seedOrders() []models.Order {
	day := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	return []models.Order{
		{
			ID: 1, UserID: user, Status: models.OrderStatusDelivered, PaymentMethod: models.PaymentMethodCOD,
			PaymentStatus: models.PaymentStatusPaid, CreatedAt: day,
			Items: []models.OrderItem{
				{ID: 10, OrderID: 1, ProductID: 100, Quantity: 1, Status: models.OrderStatusDelivered, Product: &models.Product{ID: 100, SellerID: 9}},
				{ID: 11, OrderID: 1, ProductID: 101, Quantity: 1, Status: models.OrderStatusDelivered,
					Returns: []models.ReturnRecord{{Status: "Approved", Reason: "size"}}},
				{ID: 12, OrderID: 1, ProductID: 102, Quantity: 1, Status: models.OrderStatusDelivered},
			},
		},
		{
			ID: 2, UserID: user, Status: models.OrderStatusPlaced, PaymentMethod: models.PaymentMethod("Cashfree"),
			PaymentStatus: models.PaymentStatusPaid, CreatedAt: day.Add(48 * time.Hour),
			Items: []models.OrderItem{
				{ID: 20, OrderID: 2, ProductID: 200, Quantity: 2, Status: models.OrderStatusPlaced},
			},
		},
		{
			ID: 3, UserID: user, Status: models.OrderStatusShipped, PaymentMethod: models.PaymentMethodCOD,
			PaymentStatus: models.PaymentStatusPending, CreatedAt: day.Add(24 * time.Hour),
			Items: []models.OrderItem{
				{ID: 30, OrderID: 3, ProductID: 300, Quantity: 1, Status: models.OrderStatusShipped},
			},
		},
	}
}

func newService(t *testing.T) (*Service, *clients.MockBackend, *events.MockPublisher) {
	t.Helper()
	backend := clients.NewMockBackend()
	backend.Orders[user] = seedOrders()
	publisher := events.NewMockPublisher()
	return NewService(backend, publisher, metrics.New()), backend, publisher
}

func orderIDs(p *Page) []int64 {
	out := make([]int64, len(p.Orders))
	for i, o := range p.Orders {
		out[i] = o.ID
	}
	return out
}

func TestEnter_SortsNewestFirst(t *testing.T) {
	svc, _, _ := newService(t)

	page, err := svc.Enter(context.Background(), user)
	require.NoError(t, err)

	assert.Equal(t, []int64{2, 3, 1}, orderIDs(page))
	assert.Len(t, page.ComplaintTypes, 7)
	assert.Nil(t, page.OpenForm)
}

func TestItemFlags(t *testing.T) {
	svc, _, _ := newService(t)

	page, err := svc.Enter(context.Background(), user)
	require.NoError(t, err)

	delivered := page.Orders[2].Items[0]
	assert.True(t, delivered.ShowActions)
	assert.False(t, delivered.ShowCancel)

	returned := page.Orders[2].Items[1]
	assert.False(t, returned.ShowActions)
	assert.False(t, returned.ShowCancel)
	assert.Equal(t, "Approved", returned.ReturnStatus)

	placed := page.Orders[0].Items[0]
	assert.False(t, placed.ShowActions)
	assert.True(t, placed.ShowCancel)
}

func TestCancel_OnlinePaymentRefunds(t *testing.T) {
	svc, backend, publisher := newService(t)
	ctx := context.Background()
	_, err := svc.Enter(ctx, user)
	require.NoError(t, err)

	page, err := svc.Cancel(ctx, user, 2)
	require.NoError(t, err)

	o := page.Orders[0]
	assert.Equal(t, models.OrderStatusCancelled, o.Status)
	assert.Equal(t, models.PaymentStatusRefundInitiated, o.PaymentStatus)
	assert.True(t, o.ShowRefundStatus)
	assert.True(t, o.Items[0].Cancelled)
	assert.Equal(t, models.OrderStatusCancelled, o.Items[0].Status)
	assert.Equal(t, 1, backend.Calls("CancelOrder"))
	assert.Equal(t, []events.EventType{events.EventTypeOrderCancelRequested}, publisher.Types())
}

func TestCancel_CashOnDeliveryKeepsPaymentStatus(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	page, err := svc.Cancel(ctx, user, 3)
	require.NoError(t, err)

	o := page.Orders[1]
	assert.Equal(t, int64(3), o.ID)
	assert.Equal(t, models.OrderStatusCancelled, o.Status)
	assert.Equal(t, models.PaymentStatusPending, o.PaymentStatus)
	assert.False(t, o.ShowRefundStatus)
}

func TestCancel_FailureReloads(t *testing.T) {
	svc, backend, publisher := newService(t)
	ctx := context.Background()
	_, err := svc.Enter(ctx, user)
	require.NoError(t, err)
	backend.Fail("CancelOrder", &errors.UpstreamError{StatusCode: 500, Message: "db down"})

	_, err = svc.Cancel(ctx, user, 2)
	require.Error(t, err)

	page, err := svc.Page(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPlaced, page.Orders[0].Status)
	assert.Equal(t, models.PaymentStatusPaid, page.Orders[0].PaymentStatus)
	assert.Equal(t, 2, backend.Calls("ListUserOrders"))
	assert.Empty(t, publisher.Types())
}

func TestCancel_DeliveredOrderRejected(t *testing.T) {
	svc, backend, _ := newService(t)

	_, err := svc.Cancel(context.Background(), user, 1)

	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve))
	assert.Zero(t, backend.Calls("CancelOrder"))
}

func TestToggleForm(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	page, err := svc.ToggleForm(ctx, user, FormReview, 10)
	require.NoError(t, err)
	require.NotNil(t, page.OpenForm)
	assert.Equal(t, Form{Kind: FormReview, ItemID: 10}, *page.OpenForm)

	page, err = svc.ToggleForm(ctx, user, FormComplaint, 10)
	require.NoError(t, err)
	assert.Equal(t, FormComplaint, page.OpenForm.Kind)

	page, err = svc.ToggleForm(ctx, user, FormComplaint, 10)
	require.NoError(t, err)
	assert.Nil(t, page.OpenForm)

	_, err = svc.ToggleForm(ctx, user, FormReturn, 20)
	assert.Error(t, err, "placed items do not accept forms")

	_, err = svc.ToggleForm(ctx, user, FormReturn, 11)
	assert.Error(t, err, "items with a return do not accept forms")

	_, err = svc.ToggleForm(ctx, user, FormKind("refund"), 10)
	assert.Error(t, err)
}

func TestToggleForm_OpeningAnotherItemClosesTheFirst(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	page, err := svc.ToggleForm(ctx, user, FormReturn, 12)
	require.NoError(t, err)
	require.NotNil(t, page.OpenForm)
	assert.Equal(t, Form{Kind: FormReturn, ItemID: 12}, *page.OpenForm)

	page, err = svc.ToggleForm(ctx, user, FormReview, 10)
	require.NoError(t, err)
	require.NotNil(t, page.OpenForm)
	assert.Equal(t, Form{Kind: FormReview, ItemID: 10}, *page.OpenForm)

	page, err = svc.Page(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, Form{Kind: FormReview, ItemID: 10}, *page.OpenForm)
}

func TestForget(t *testing.T) {
	svc, backend, _ := newService(t)
	ctx := context.Background()
	_, err := svc.ToggleForm(ctx, user, FormReview, 10)
	require.NoError(t, err)

	svc.Forget(user)

	err = svc.views.Read(owner(user), func(View) {})
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	page, err := svc.Page(ctx, user)
	require.NoError(t, err)
	assert.Nil(t, page.OpenForm)
	assert.Equal(t, 2, backend.Calls("ListUserOrders"))
}

func TestEnter_ClosesForm(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	_, err := svc.ToggleForm(ctx, user, FormReview, 10)
	require.NoError(t, err)

	page, err := svc.Enter(ctx, user)
	require.NoError(t, err)

	assert.Nil(t, page.OpenForm)
}

func TestSubmitReview(t *testing.T) {
	svc, backend, _ := newService(t)
	ctx := context.Background()
	_, err := svc.ToggleForm(ctx, user, FormReview, 10)
	require.NoError(t, err)

	_, err = svc.SubmitReview(ctx, user, 1, 10, ReviewInput{Rating: 0, Comment: "ok"})
	assert.Error(t, err)
	_, err = svc.SubmitReview(ctx, user, 1, 10, ReviewInput{Rating: 4, Comment: "  "})
	assert.Error(t, err)

	page, err := svc.SubmitReview(ctx, user, 1, 10, ReviewInput{Rating: 4, Comment: "Solid"})
	require.NoError(t, err)

	assert.Nil(t, page.OpenForm)
	require.Len(t, backend.PostedReviews, 1)
	assert.Equal(t, int64(100), backend.PostedReviews[0].ProductID)
	assert.Equal(t, user, backend.PostedReviews[0].UserID)
}

func TestSubmitReturn(t *testing.T) {
	svc, backend, _ := newService(t)
	ctx := context.Background()

	page, err := svc.SubmitReturn(ctx, user, 1, 10, "Too small")
	require.NoError(t, err)

	item := page.Orders[2].Items[0]
	assert.Equal(t, models.ReturnStatusPending, item.ReturnStatus)
	assert.False(t, item.ShowActions)
	require.Len(t, backend.PostedReturns, 1)
	assert.Equal(t, models.ReturnRequest{OrderID: 1, UserID: user, Reason: "Too small", OrderItemID: 10}, backend.PostedReturns[0])

	_, err = svc.SubmitReturn(ctx, user, 1, 10, "again")
	assert.Error(t, err, "a second return is not allowed")
}

func TestSubmitReturn_FailureReloads(t *testing.T) {
	svc, backend, _ := newService(t)
	ctx := context.Background()
	backend.Fail("CreateReturn", errors.New("timeout"))

	_, err := svc.SubmitReturn(ctx, user, 1, 10, "Too small")
	require.Error(t, err)

	page, err := svc.Page(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, page.Orders[2].Items[0].ReturnStatus)
}

func TestSubmitComplaint(t *testing.T) {
	svc, backend, publisher := newService(t)
	ctx := context.Background()

	_, err := svc.SubmitComplaint(ctx, user, 1, 10, ComplaintInput{ComplaintType: models.ComplaintTypeWrongItem})
	assert.Error(t, err)
	_, err = svc.SubmitComplaint(ctx, user, 1, 10, ComplaintInput{ComplaintType: "Rude", Description: "x"})
	assert.Error(t, err)

	_, err = svc.SubmitComplaint(ctx, user, 1, 10, ComplaintInput{
		ComplaintType: models.ComplaintTypeWrongItem,
		Description:   "Got a blue one",
	})
	require.NoError(t, err)

	require.Len(t, backend.PostedComplaints, 1)
	c := backend.PostedComplaints[0]
	assert.Equal(t, int64(9), c.AgainstSellerID)
	assert.Equal(t, int64(100), c.ProductID)
	assert.Equal(t, int64(1), c.OrderID)
	assert.Equal(t, user, c.RaisedByUserID)
	assert.Contains(t, publisher.Types(), events.EventTypeComplaintRaised)
}

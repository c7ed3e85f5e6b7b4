package payments

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkulima/sokoni/internal/apperr"
	"github.com/mkulima/sokoni/internal/orders"
	"github.com/mkulima/sokoni/internal/users"
)

type fakeStore struct {
	created *Payment
	byTxn   map[string]*Payment
}

func (f *fakeStore) Create(ctx context.Context, p *Payment) error {
	if f.created != nil {
		return fmt.Errorf("payment already exists for order %s: %w", p.OrderID, apperr.ErrConflict)
	}
	f.created = p
	return nil
}

func (f *fakeStore) GetByTransactionID(ctx context.Context, transactionID string) (*Payment, error) {
	if p, ok := f.byTxn[transactionID]; ok {
		return p, nil
	}
	return nil, apperr.NotFound("payment", transactionID)
}

func (f *fakeStore) Settle(ctx context.Context, transactionID string, success bool, receipt string) (*Payment, bool, error) {
	p, ok := f.byTxn[transactionID]
	if !ok {
		return nil, false, apperr.NotFound("payment", transactionID)
	}
	if p.Status != StatusPending {
		return p, false, nil
	}
	if success {
		p.Status = StatusSuccess
	} else {
		p.Status = StatusFailed
	}
	p.ReceiptNumber = receipt
	return p, true, nil
}

type fakeOrders struct {
	order *orders.Order
}

func (f *fakeOrders) GetByID(ctx context.Context, orderID string) (*orders.Order, error) {
	if f.order == nil || f.order.ID != orderID {
		return nil, apperr.NotFound("order", orderID)
	}
	return f.order, nil
}

type fakeUsers struct {
	id uuid.UUID
}

func (f *fakeUsers) GetByID(ctx context.Context, id uuid.UUID) (*users.User, error) {
	if id != f.id {
		return nil, apperr.NotFound("user", id)
	}
	return &users.User{ID: id}, nil
}

type capturedEvent struct {
	key   []byte
	value []byte
}

type fakePublisher struct {
	events []capturedEvent
}

func (f *fakePublisher) Publish(key, value []byte, headers ...kafkago.Header) {
	f.events = append(f.events, capturedEvent{key: key, value: value})
}

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func newService(userID uuid.UUID, ord *orders.Order) (*Service, *fakeStore, *fakePublisher, *fakePublisher) {
	st := &fakeStore{byTxn: map[string]*Payment{}}
	ok, fail := &fakePublisher{}, &fakePublisher{}
	svc := &Service{
		Store:        st,
		Orders:       &fakeOrders{order: ord},
		Users:        &fakeUsers{id: userID},
		ProducerOK:   ok,
		ProducerFail: fail,
		ServiceName:  "test",
		now:          func() time.Time { return time.UnixMilli(1700000000000) },
	}
	return svc, st, ok, fail
}

func TestProcessMpesaSettlesSynchronously(t *testing.T) {
	userID := uuid.New()
	ord := &orders.Order{ID: "ORD-1A2B3C4D", Total: dec("1700.00")}
	svc, st, ok, fail := newService(userID, ord)

	p, err := svc.Process(context.Background(), userID, ord.ID, MethodMpesa)
	require.NoError(t, err)

	assert.Equal(t, StatusSuccess, p.Status)
	assert.Equal(t, "MPESA-1700000000000", p.TransactionID)
	assert.Equal(t, "RCPT-1700000000000", p.ReceiptNumber)
	assert.True(t, p.Amount.Equal(dec("1700.00")))
	assert.Same(t, st.created, p)

	assert.Len(t, ok.events, 1)
	assert.Equal(t, []byte(ord.ID), ok.events[0].key)
	assert.Empty(t, fail.events)
}

func TestProcessCardStaysPending(t *testing.T) {
	userID := uuid.New()
	ord := &orders.Order{ID: "ORD-1A2B3C4D", Total: dec("900.00")}
	svc, _, ok, fail := newService(userID, ord)

	p, err := svc.Process(context.Background(), userID, ord.ID, MethodCard)
	require.NoError(t, err)

	assert.Equal(t, StatusPending, p.Status)
	assert.Equal(t, "CARD-1700000000000", p.TransactionID)
	assert.Empty(t, p.ReceiptNumber)
	// nothing to announce until the callback lands
	assert.Empty(t, ok.events)
	assert.Empty(t, fail.events)
}

func TestProcessAmountComesFromOrderNotCaller(t *testing.T) {
	userID := uuid.New()
	ord := &orders.Order{ID: "ORD-1A2B3C4D", Total: dec("123.45")}
	svc, _, _, _ := newService(userID, ord)

	p, err := svc.Process(context.Background(), userID, ord.ID, MethodCash)
	require.NoError(t, err)
	assert.True(t, p.Amount.Equal(ord.Total))
}

func TestProcessUnknownOrderOrUser(t *testing.T) {
	userID := uuid.New()
	svc, _, _, _ := newService(userID, &orders.Order{ID: "ORD-1A2B3C4D"})

	_, err := svc.Process(context.Background(), userID, "ORD-MISSING1", MethodMpesa)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = svc.Process(context.Background(), uuid.New(), "ORD-1A2B3C4D", MethodMpesa)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestProcessSecondPaymentConflicts(t *testing.T) {
	userID := uuid.New()
	ord := &orders.Order{ID: "ORD-1A2B3C4D", Total: dec("100")}
	svc, _, _, _ := newService(userID, ord)

	_, err := svc.Process(context.Background(), userID, ord.ID, MethodCash)
	require.NoError(t, err)
	_, err = svc.Process(context.Background(), userID, ord.ID, MethodCash)
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestApplySettlementPublishesOnce(t *testing.T) {
	userID := uuid.New()
	svc, st, ok, fail := newService(userID, nil)
	st.byTxn["CARD-77"] = &Payment{OrderID: "ORD-1A2B3C4D", TransactionID: "CARD-77", Status: StatusPending}

	cb := orders.SettlementCallbackPayload{TransactionID: "CARD-77", Success: true, Receipt: "RCPT-77"}
	p, err := svc.ApplySettlement(context.Background(), cb)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, p.Status)
	assert.Len(t, ok.events, 1)

	// replayed callback: stored row returned, no second event
	p, err = svc.ApplySettlement(context.Background(), cb)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, p.Status)
	assert.Len(t, ok.events, 1)
	assert.Empty(t, fail.events)
}

func TestApplySettlementFailure(t *testing.T) {
	userID := uuid.New()
	svc, st, ok, fail := newService(userID, nil)
	st.byTxn["CARD-78"] = &Payment{OrderID: "ORD-1A2B3C4D", TransactionID: "CARD-78", Status: StatusPending}

	p, err := svc.ApplySettlement(context.Background(), orders.SettlementCallbackPayload{
		TransactionID: "CARD-78", Success: false, Reason: "insufficient funds",
	})
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, p.Status)
	assert.Empty(t, ok.events)
	assert.Len(t, fail.events, 1)
}

func TestParseMethod(t *testing.T) {
	for _, s := range []string{"MPESA", "CARD", "CASH"} {
		m, err := ParseMethod(s)
		assert.NoError(t, err)
		assert.Equal(t, Method(s), m)
	}
	_, err := ParseMethod("BARTER")
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
}

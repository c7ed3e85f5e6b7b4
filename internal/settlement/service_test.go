package settlement

import (
	"context"
	"errors"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkulima/sokoni/internal/apperr"
	kafkax "github.com/mkulima/sokoni/internal/kafka"
	"github.com/mkulima/sokoni/internal/orders"
	"github.com/mkulima/sokoni/internal/payments"
)

type fakeSettler struct {
	applied []orders.SettlementCallbackPayload
	err     error

	// failures makes the next N calls fail before succeeding.
	failures int
}

func (f *fakeSettler) ApplySettlement(ctx context.Context, cb orders.SettlementCallbackPayload) (*payments.Payment, error) {
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("connection refused")
	}
	if f.err != nil {
		return nil, f.err
	}
	f.applied = append(f.applied, cb)
	return &payments.Payment{
		OrderID:       "ORD-1A2B3C4D",
		TransactionID: cb.TransactionID,
		Status:        payments.StatusSuccess,
	}, nil
}

type fakeDedup struct {
	seen map[string]bool
}

func (f *fakeDedup) Seen(ctx context.Context, eventID string) bool { return f.seen[eventID] }

func (f *fakeDedup) Mark(ctx context.Context, eventID string) {
	if f.seen == nil {
		f.seen = map[string]bool{}
	}
	f.seen[eventID] = true
}

func callbackMessage(t *testing.T, eventType string, cb orders.SettlementCallbackPayload) kafkago.Message {
	t.Helper()
	env := orders.Envelope{
		EventID:   "evt-1",
		EventType: eventType,
		Payload:   kafkax.MustMarshal(cb),
	}
	return kafkago.Message{Value: kafkax.MustMarshal(env)}
}

func TestHandleCallbackApplies(t *testing.T) {
	settler := &fakeSettler{}
	svc := &Service{Payments: settler}

	cb := orders.SettlementCallbackPayload{TransactionID: "CARD-42", Success: true, Receipt: "RCPT-42"}
	err := svc.HandleCallback(context.Background(), callbackMessage(t, orders.EventPaymentCallback, cb))
	require.NoError(t, err)
	require.Len(t, settler.applied, 1)
	assert.Equal(t, cb, settler.applied[0])
}

func TestHandleCallbackIgnoresOtherEventTypes(t *testing.T) {
	settler := &fakeSettler{}
	svc := &Service{Payments: settler}

	err := svc.HandleCallback(context.Background(),
		callbackMessage(t, orders.EventOrderCreated, orders.SettlementCallbackPayload{TransactionID: "CARD-42"}))
	require.NoError(t, err)
	assert.Empty(t, settler.applied)
}

func TestHandleCallbackDropsUnknownTransaction(t *testing.T) {
	// Committing (nil return) is deliberate: redelivery cannot make the
	// transaction appear.
	svc := &Service{Payments: &fakeSettler{err: apperr.NotFound("payment", "CARD-404")}}

	err := svc.HandleCallback(context.Background(),
		callbackMessage(t, orders.EventPaymentCallback, orders.SettlementCallbackPayload{TransactionID: "CARD-404"}))
	assert.NoError(t, err)
}

func TestHandleCallbackSkipsEmptyTransactionID(t *testing.T) {
	settler := &fakeSettler{}
	svc := &Service{Payments: settler}

	err := svc.HandleCallback(context.Background(),
		callbackMessage(t, orders.EventPaymentCallback, orders.SettlementCallbackPayload{}))
	require.NoError(t, err)
	assert.Empty(t, settler.applied)
}

func TestTransientFailureStaysRetryable(t *testing.T) {
	// A failed apply must not leave a dedup mark behind, otherwise the
	// broker's redelivery is skipped and the payment stays PENDING.
	settler := &fakeSettler{failures: 1}
	dedup := &fakeDedup{}
	svc := &Service{Payments: settler, Dedup: dedup}

	msg := callbackMessage(t, orders.EventPaymentCallback,
		orders.SettlementCallbackPayload{TransactionID: "CARD-42", Success: true})

	err := svc.HandleCallback(context.Background(), msg)
	require.Error(t, err)
	assert.Empty(t, dedup.seen)
	assert.Empty(t, settler.applied)

	// redelivery of the same event now goes through and gets marked
	require.NoError(t, svc.HandleCallback(context.Background(), msg))
	assert.Len(t, settler.applied, 1)
	assert.True(t, dedup.seen["evt-1"])
}

func TestDedupSkipsMarkedEvents(t *testing.T) {
	settler := &fakeSettler{}
	svc := &Service{Payments: settler, Dedup: &fakeDedup{seen: map[string]bool{"evt-1": true}}}

	err := svc.HandleCallback(context.Background(),
		callbackMessage(t, orders.EventPaymentCallback,
			orders.SettlementCallbackPayload{TransactionID: "CARD-42", Success: true}))
	require.NoError(t, err)
	assert.Empty(t, settler.applied)
}

func TestHandleCallbackBadJSON(t *testing.T) {
	svc := &Service{Payments: &fakeSettler{}}
	err := svc.HandleCallback(context.Background(), kafkago.Message{Value: []byte("{")})
	assert.Error(t, err)
}

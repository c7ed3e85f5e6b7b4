package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/mkulima/sokoni/internal/kafka"
	"github.com/mkulima/sokoni/internal/metrics"
	"github.com/mkulima/sokoni/internal/orders"
	"github.com/mkulima/sokoni/internal/users"
)

type Store interface {
	Create(ctx context.Context, p *Payment) error
	GetByTransactionID(ctx context.Context, transactionID string) (*Payment, error)
	Settle(ctx context.Context, transactionID string, success bool, receipt string) (*Payment, bool, error)
}

type OrderGetter interface {
	GetByID(ctx context.Context, orderID string) (*orders.Order, error)
}

type UserGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*users.User, error)
}

type Service struct {
	Store        Store
	Orders       OrderGetter
	Users        UserGetter
	ProducerOK   orders.EventPublisher // payment.succeeded, may be nil in tests
	ProducerFail orders.EventPublisher // payment.failed, may be nil in tests
	ServiceName  string

	// now is swapped out in tests; transaction ids are derived from it.
	now func() time.Time
}

func (s *Service) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

// Process opens a payment for the order. The amount always comes from the
// stored order total, never from the caller. Mobile money settles inline;
// card and cash stay PENDING until the gateway callback arrives on the
// settlement topic.
func (s *Service) Process(ctx context.Context, userID uuid.UUID, orderID string, method Method) (*Payment, error) {
	if _, err := s.Users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	ord, err := s.Orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	ms := now.UnixMilli()
	p := &Payment{
		ID:            uuid.New(),
		OrderID:       ord.ID,
		UserID:        userID,
		Amount:        ord.Total,
		Method:        method,
		Status:        StatusPending,
		TransactionID: fmt.Sprintf("%s-%d", method, ms),
		PaymentDate:   now.UTC(),
	}
	if method == MethodMpesa {
		// Simulated STK push settles synchronously.
		p.Status = StatusSuccess
		p.MerchantRequestID = fmt.Sprintf("MR-%d", ms)
		p.CheckoutRequestID = fmt.Sprintf("ws_CO_%d", ms)
		p.ReceiptNumber = fmt.Sprintf("RCPT-%d", ms)
	}

	if err := s.Store.Create(ctx, p); err != nil {
		return nil, err
	}
	metrics.PaymentsProcessed.WithLabelValues(string(p.Status)).Inc()
	if p.Terminal() {
		s.publishSettled(p, "")
	}
	return p, nil
}

func (s *Service) Status(ctx context.Context, transactionID string) (*Payment, error) {
	return s.Store.GetByTransactionID(ctx, transactionID)
}

// ApplySettlement handles an out-of-band gateway callback. Replays of an
// already settled transaction return the stored payment without publishing
// a second event.
func (s *Service) ApplySettlement(ctx context.Context, cb orders.SettlementCallbackPayload) (*Payment, error) {
	p, settled, err := s.Store.Settle(ctx, cb.TransactionID, cb.Success, cb.Receipt)
	if err != nil {
		return nil, err
	}
	if settled {
		metrics.PaymentsProcessed.WithLabelValues(string(p.Status)).Inc()
		s.publishSettled(p, cb.Reason)
	}
	return p, nil
}

func (s *Service) publishSettled(p *Payment, reason string) {
	producer := s.ProducerFail
	eventType := orders.EventPaymentFailed
	var payload []byte
	if p.Status == StatusSuccess {
		producer = s.ProducerOK
		eventType = orders.EventPaymentSucceeded
		payload = kafkax.MustMarshal(orders.PaymentSucceededPayload{
			OrderID:       p.OrderID,
			TransactionID: p.TransactionID,
			Amount:        p.Amount,
			Receipt:       p.ReceiptNumber,
		})
	} else {
		payload = kafkax.MustMarshal(orders.PaymentFailedPayload{
			OrderID:       p.OrderID,
			TransactionID: p.TransactionID,
			Reason:        reason,
		})
	}
	if producer == nil {
		return
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.ServiceName,
		CorrelationID: p.OrderID,
		Payload:       payload,
	}
	producer.Publish(orders.PartitionKey(p.OrderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

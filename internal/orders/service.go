package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"github.com/mkulima/sokoni/internal/apperr"
	kafkax "github.com/mkulima/sokoni/internal/kafka"
	"github.com/mkulima/sokoni/internal/metrics"
	"github.com/mkulima/sokoni/internal/postgres"
)

// Store is the persistence surface the service needs. *Repo satisfies it.
type Store interface {
	CreateFromCart(ctx context.Context, ord *Order) error
	GetByID(ctx context.Context, orderID string) (*Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Order, error)
	ListAll(ctx context.Context, limit, offset int) ([]Order, error)
	UpdateStatus(ctx context.Context, orderID string, status Status) error
}

type CreateRequest struct {
	Customer         CustomerInfo
	Delivery         DeliveryInfo
	PaymentReference string
}

type Service struct {
	Store       Store
	Producer    EventPublisher // may be nil in tests
	DeliveryFee decimal.Decimal
	ServiceName string
}

// Create converts the caller's cart into a PENDING order. All stock
// decrements, the order insert and the cart wipe commit together or not
// at all (see Repo.CreateFromCart).
func (s *Service) Create(ctx context.Context, userID uuid.UUID, req CreateRequest) (*Order, error) {
	if err := validateCreate(req); err != nil {
		return nil, err
	}

	ord := &Order{
		ID:               NewOrderID(),
		UserID:           userID,
		Customer:         req.Customer,
		Delivery:         req.Delivery,
		DeliveryFee:      s.DeliveryFee,
		Status:           StatusPending,
		PaymentReference: req.PaymentReference,
		OrderDate:        time.Now().UTC(),
	}

	err := s.Store.CreateFromCart(ctx, ord)
	if postgres.IsUniqueViolation(err) {
		// Short ids collide eventually. One fresh id is enough; two
		// back-to-back collisions mean something else is broken.
		ord.ID = NewOrderID()
		err = s.Store.CreateFromCart(ctx, ord)
	}
	if err != nil {
		if errors.Is(err, ErrEmptyCart) {
			metrics.OrdersRejected.WithLabelValues("empty_cart").Inc()
		} else if errors.Is(err, apperr.ErrInvalidState) {
			metrics.OrdersRejected.WithLabelValues("insufficient_stock").Inc()
		}
		return nil, err
	}
	metrics.OrdersCreated.Inc()

	s.publishCreated(ord)
	return ord, nil
}

func (s *Service) Get(ctx context.Context, orderID string) (*Order, error) {
	return s.Store.GetByID(ctx, orderID)
}

func (s *Service) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Order, error) {
	return s.Store.ListByUser(ctx, userID, clampLimit(limit), max(offset, 0))
}

func (s *Service) ListAll(ctx context.Context, limit, offset int) ([]Order, error) {
	return s.Store.ListAll(ctx, clampLimit(limit), max(offset, 0))
}

// UpdateStatus is the admin path. The status must be a known enum member;
// transitions between members are unconstrained.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, status Status) (*Order, error) {
	if err := s.Store.UpdateStatus(ctx, orderID, status); err != nil {
		return nil, err
	}
	return s.Store.GetByID(ctx, orderID)
}

func (s *Service) publishCreated(ord *Order) {
	if s.Producer == nil {
		return
	}
	items := make([]ItemQty, 0, len(ord.Items))
	for _, it := range ord.Items {
		items = append(items, ItemQty{ProductID: it.ProductID.String(), Qty: it.Quantity})
	}
	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     EventOrderCreated,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.ServiceName,
		CorrelationID: ord.ID,
		Payload: kafkax.MustMarshal(OrderCreatedPayload{
			OrderID:  ord.ID,
			UserID:   ord.UserID.String(),
			Items:    items,
			Subtotal: ord.Subtotal,
			Total:    ord.Total,
		}),
	}
	s.Producer.Publish(PartitionKey(ord.ID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(EventOrderCreated)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func validateCreate(req CreateRequest) error {
	switch {
	case req.Customer.FirstName == "" || req.Customer.LastName == "":
		return apperr.InvalidArgument("customer name is required")
	case req.Customer.Email == "":
		return apperr.InvalidArgument("customer email is required")
	case req.Customer.Phone == "":
		return apperr.InvalidArgument("customer phone is required")
	case req.Delivery.Address == "" || req.Delivery.City == "" || req.Delivery.County == "":
		return apperr.InvalidArgument("delivery address, city and county are required")
	}
	return nil
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 100 {
		return 20
	}
	return limit
}

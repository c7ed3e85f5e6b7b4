package cart

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mkulima/sokoni/internal/apperr"
	"github.com/mkulima/sokoni/internal/catalog"
)

// Store is the persistence surface the service needs. *Repo satisfies it.
type Store interface {
	GetOrCreate(ctx context.Context, userID uuid.UUID) (uuid.UUID, error)
	Lines(ctx context.Context, cartID uuid.UUID) ([]Line, error)
	UpsertLine(ctx context.Context, cartID, productID uuid.UUID, quantity int) error
	SetLineQuantity(ctx context.Context, cartID, productID uuid.UUID, quantity int) error
	RemoveLine(ctx context.Context, cartID, productID uuid.UUID) error
	Clear(ctx context.Context, cartID uuid.UUID) error
}

type ProductGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error)
}

type Service struct {
	Store    Store
	Products ProductGetter
}

// GetCart returns the cart view with totals recomputed from live prices.
// A user with no cart gets an empty one, never an error.
func (s *Service) GetCart(ctx context.Context, userID uuid.UUID) (*View, error) {
	cartID, err := s.Store.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, cartID, userID)
}

func (s *Service) AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*View, error) {
	if quantity < 1 {
		return nil, apperr.InvalidArgument("quantity must be at least 1, got %d", quantity)
	}
	// No stock check here: availability is enforced only at order creation.
	if _, err := s.Products.GetByID(ctx, productID); err != nil {
		return nil, err
	}
	cartID, err := s.Store.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.Store.UpsertLine(ctx, cartID, productID, quantity); err != nil {
		return nil, err
	}
	return s.view(ctx, cartID, userID)
}

func (s *Service) UpdateItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*View, error) {
	if quantity < 1 {
		return nil, apperr.InvalidArgument("quantity must be at least 1, got %d", quantity)
	}
	cartID, err := s.Store.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.Store.SetLineQuantity(ctx, cartID, productID, quantity); err != nil {
		return nil, err
	}
	return s.view(ctx, cartID, userID)
}

func (s *Service) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*View, error) {
	cartID, err := s.Store.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.Store.RemoveLine(ctx, cartID, productID); err != nil {
		return nil, err
	}
	return s.view(ctx, cartID, userID)
}

func (s *Service) Clear(ctx context.Context, userID uuid.UUID) error {
	cartID, err := s.Store.GetOrCreate(ctx, userID)
	if err != nil {
		return err
	}
	return s.Store.Clear(ctx, cartID)
}

func (s *Service) view(ctx context.Context, cartID, userID uuid.UUID) (*View, error) {
	lines, err := s.Store.Lines(ctx, cartID)
	if err != nil {
		return nil, err
	}
	total := decimal.Zero
	for i := range lines {
		lines[i].LineTotal = lines[i].UnitPrice.Mul(decimal.NewFromInt(int64(lines[i].Quantity)))
		total = total.Add(lines[i].LineTotal)
	}
	if lines == nil {
		lines = []Line{}
	}
	return &View{
		CartID:     cartID,
		UserID:     userID,
		Items:      lines,
		TotalItems: len(lines),
		TotalPrice: total,
	}, nil
}

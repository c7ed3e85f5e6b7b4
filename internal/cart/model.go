package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Line is one product+quantity pairing in a user's cart. Name and price are
// read live from the catalog at view time; nothing is snapshotted until an
// order freezes them.
type Line struct {
	ProductID   uuid.UUID       `json:"productId"`
	ProductName string          `json:"productName"`
	UnitPrice   decimal.Decimal `json:"productPrice"`
	Quantity    int             `json:"quantity"`
	LineTotal   decimal.Decimal `json:"totalPrice"`
}

type View struct {
	CartID     uuid.UUID       `json:"id"`
	UserID     uuid.UUID       `json:"userId"`
	Items      []Line          `json:"items"`
	TotalItems int             `json:"totalItems"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
}

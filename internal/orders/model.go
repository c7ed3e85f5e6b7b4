package orders

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CustomerInfo struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

type DeliveryInfo struct {
	Address    string `json:"address"`
	City       string `json:"city"`
	County     string `json:"county"`
	PostalCode string `json:"postalCode"`
	Notes      string `json:"deliveryNotes"`
}

// Item is the frozen copy of a product captured at order creation,
// immune to later catalog changes.
type Item struct {
	ID          uuid.UUID       `json:"-"`
	ProductID   uuid.UUID       `json:"productId"`
	ProductName string          `json:"productName"`
	UnitPrice   decimal.Decimal `json:"productPrice"`
	Quantity    int             `json:"quantity"`
	TotalPrice  decimal.Decimal `json:"totalPrice"`
}

type Order struct {
	ID               string          `json:"id"`
	UserID           uuid.UUID       `json:"userId"`
	Customer         CustomerInfo    `json:"customerInfo"`
	Delivery         DeliveryInfo    `json:"deliveryInfo"`
	Items            []Item          `json:"items"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	DeliveryFee      decimal.Decimal `json:"deliveryFee"`
	Total            decimal.Decimal `json:"total"`
	Status           Status          `json:"status"`
	PaymentReference string          `json:"paymentReference,omitempty"`
	OrderDate        time.Time       `json:"orderDate"`
}

// NewOrderID generates a human-readable order code, e.g. ORD-3FA8C21B.
func NewOrderID() string {
	return "ORD-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

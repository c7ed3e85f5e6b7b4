package payments

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mkulima/sokoni/internal/apperr"
)

type Method string

const (
	MethodMpesa Method = "MPESA"
	MethodCard  Method = "CARD"
	MethodCash  Method = "CASH"
)

func ParseMethod(s string) (Method, error) {
	switch m := Method(s); m {
	case MethodMpesa, MethodCard, MethodCash:
		return m, nil
	default:
		return "", apperr.InvalidArgument("unknown payment method %q", s)
	}
}

type Status string

const (
	StatusPending Status = "PENDING"
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
)

// Payment is a settlement attempt for one order. The order_id unique
// constraint enforces at most one payment row per order.
type Payment struct {
	ID                uuid.UUID       `json:"id"`
	OrderID           string          `json:"orderId"`
	UserID            uuid.UUID       `json:"userId"`
	Amount            decimal.Decimal `json:"amount"`
	Method            Method          `json:"paymentMethod"`
	Status            Status          `json:"status"`
	TransactionID     string          `json:"transactionId"`
	MerchantRequestID string          `json:"merchantRequestId,omitempty"`
	CheckoutRequestID string          `json:"checkoutRequestId,omitempty"`
	ReceiptNumber     string          `json:"receiptNumber,omitempty"`
	PaymentDate       time.Time       `json:"paymentDate"`
}

func (p *Payment) Terminal() bool {
	return p.Status == StatusSuccess || p.Status == StatusFailed
}

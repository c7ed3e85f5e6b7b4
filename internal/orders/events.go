package orders

import (
	"encoding/json"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

const (
	EventOrderCreated     = "OrderCreated"
	EventPaymentSucceeded = "PaymentSucceeded"
	EventPaymentFailed    = "PaymentFailed"
	EventPaymentCallback  = "PaymentCallback"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // usually the order id
	Payload       json.RawMessage `json:"payload"`
}

type ItemQty struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

type OrderCreatedPayload struct {
	OrderID  string          `json:"order_id"`
	UserID   string          `json:"user_id"`
	Items    []ItemQty       `json:"items"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Total    decimal.Decimal `json:"total"`
}

type PaymentSucceededPayload struct {
	OrderID       string          `json:"order_id"`
	TransactionID string          `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	Receipt       string          `json:"receipt,omitempty"`
}

type PaymentFailedPayload struct {
	OrderID       string `json:"order_id"`
	TransactionID string `json:"transaction_id"`
	Reason        string `json:"reason"`
}

// SettlementCallbackPayload is what the external payment gateway posts onto
// TopicPaymentCallback once an asynchronous push completes.
type SettlementCallbackPayload struct {
	TransactionID string `json:"transaction_id"`
	Success       bool   `json:"success"`
	Receipt       string `json:"receipt,omitempty"`
	Reason        string `json:"reason,omitempty"`
}

// EventPublisher is the slice of the kafka producer the services use.
type EventPublisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

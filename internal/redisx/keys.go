package redisx

import "time"

const (
	// Order status cache: order_status:{order_id} -> status string
	KeyOrderStatus = "order_status:%s"

	// Payment status cache, terminal statuses only:
	// payment_status:{transaction_id} -> payment snapshot JSON
	KeyPaymentStatus = "payment_status:%s"

	// Settlement dedup: dedup:settlement:{transaction_id}
	KeySettlementDedup = "dedup:settlement:%s"
)

var (
	TTLStatusCache = 5 * time.Minute
	TTLPayment     = 24 * time.Hour
	TTLDedup       = 48 * time.Hour
)

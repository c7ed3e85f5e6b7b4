package orders

const (
	TopicOrderCreated     = "order.created"
	TopicPaymentSucceeded = "payment.succeeded"
	TopicPaymentFailed    = "payment.failed"

	// TopicPaymentCallback carries out-of-band settlement confirmations
	// (e.g. M-PESA push results) consumed by the settlement worker.
	TopicPaymentCallback = "payment.callback"
)

// Partition key = order id so all events for one order stay ordered.
func PartitionKey(orderID string) []byte { return []byte(orderID) }

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	OrdersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sokoni",
		Name:      "orders_created_total",
		Help:      "Orders successfully created from carts.",
	})

	OrdersRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sokoni",
		Name:      "orders_rejected_total",
		Help:      "Order creations rejected before commit.",
	}, []string{"reason"})

	PaymentsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sokoni",
		Name:      "payments_processed_total",
		Help:      "Payments by final status of the processing attempt.",
	}, []string{"status"})

	TokenRotationConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sokoni",
		Name:      "refresh_token_conflicts_total",
		Help:      "Unique-constraint conflicts retried during token rotation.",
	})
)

func Handler() http.Handler {
	return promhttp.Handler()
}

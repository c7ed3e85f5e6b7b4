package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/mkulima/sokoni/internal/payments"
	"github.com/mkulima/sokoni/internal/redisx"
)

type PaymentsHandler struct {
	Payments *payments.Service
	Redis    *redis.Client
}

type processPaymentReq struct {
	OrderID string `json:"orderId"`
	Method  string `json:"paymentMethod"`
}

func (h *PaymentsHandler) Register(r chi.Router) {
	r.Post("/payments", h.process)
	r.Get("/payments/status/{transactionId}", h.status)
}

func (h *PaymentsHandler) process(w http.ResponseWriter, r *http.Request) {
	var req processPaymentReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.OrderID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "orderId is required"})
		return
	}
	method, err := payments.ParseMethod(req.Method)
	if err != nil {
		writeErr(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	p, err := h.Payments.Process(ctx, userID(r), req.OrderID, method)
	if err != nil {
		writeErr(w, err)
		return
	}
	h.cacheTerminal(ctx, p)
	writeJSON(w, http.StatusCreated, p)
}

// status is the polling endpoint for asynchronous settlements. Terminal
// payments are served from cache, PENDING always goes to the database so
// a fresh callback is visible immediately.
func (h *PaymentsHandler) status(w http.ResponseWriter, r *http.Request) {
	transactionID := chi.URLParam(r, "transactionId")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if h.Redis != nil {
		key := fmt.Sprintf(redisx.KeyPaymentStatus, transactionID)
		if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
			writeJSON(w, http.StatusOK, json.RawMessage(s))
			return
		}
	}

	p, err := h.Payments.Status(ctx, transactionID)
	if err != nil {
		writeErr(w, err)
		return
	}
	h.cacheTerminal(ctx, p)
	writeJSON(w, http.StatusOK, p)
}

func (h *PaymentsHandler) cacheTerminal(ctx context.Context, p *payments.Payment) {
	if h.Redis == nil || !p.Terminal() {
		return
	}
	b, err := json.Marshal(p)
	if err != nil {
		return
	}
	key := fmt.Sprintf(redisx.KeyPaymentStatus, p.TransactionID)
	_ = h.Redis.Set(ctx, key, b, redisx.TTLPayment).Err()
}

package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/mkulima/sokoni/internal/orders"
	"github.com/mkulima/sokoni/internal/redisx"
)

type OrdersHandler struct {
	Orders *orders.Service
	Redis  *redis.Client
}

type createOrderReq struct {
	Customer         orders.CustomerInfo `json:"customerInfo"`
	Delivery         orders.DeliveryInfo `json:"deliveryInfo"`
	PaymentReference string              `json:"paymentReference"`
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Post("/orders", h.createOrder)
	r.Get("/orders", h.listMine)
	r.Get("/orders/{id}", h.getOrder)
	r.Get("/orders/{id}/status", h.getStatus)
	r.Group(func(r chi.Router) {
		r.Use(RequireAdmin)
		r.Get("/orders/admin", h.listAll)
		r.Put("/orders/admin/{id}/status", h.updateStatus)
	})
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	ord, err := h.Orders.Create(ctx, userID(r), orders.CreateRequest{
		Customer:         req.Customer,
		Delivery:         req.Delivery,
		PaymentReference: req.PaymentReference,
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	h.cacheStatus(ctx, ord)
	writeJSON(w, http.StatusCreated, ord)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ord, err := h.Orders.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ord)
}

// getStatus is the cheap polling endpoint: cache first, database second.
// The cached value can lag a payment-side confirmation by up to the cache
// TTL; the full order GET always reflects the database.
func (h *OrdersHandler) getStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if h.Redis != nil {
		key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
		if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
			writeJSON(w, http.StatusOK, map[string]string{"status": s})
			return
		}
	}

	ord, err := h.Orders.Get(ctx, orderID)
	if err != nil {
		writeErr(w, err)
		return
	}
	h.cacheStatus(ctx, ord)
	writeJSON(w, http.StatusOK, map[string]string{"status": string(ord.Status)})
}

func (h *OrdersHandler) listMine(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	limit, offset := pagination(r)
	list, err := h.Orders.ListByUser(ctx, userID(r), limit, offset)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *OrdersHandler) listAll(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	limit, offset := pagination(r)
	list, err := h.Orders.ListAll(ctx, limit, offset)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	status, err := orders.ParseStatus(r.URL.Query().Get("status"))
	if err != nil {
		writeErr(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	ord, err := h.Orders.UpdateStatus(ctx, chi.URLParam(r, "id"), status)
	if err != nil {
		writeErr(w, err)
		return
	}
	h.cacheStatus(ctx, ord)
	writeJSON(w, http.StatusOK, ord)
}

// cacheStatus keeps the hot order-status key fresh. Cache errors are
// ignored, the database stays the source of truth.
func (h *OrdersHandler) cacheStatus(ctx context.Context, ord *orders.Order) {
	if h.Redis == nil {
		return
	}
	key := fmt.Sprintf(redisx.KeyOrderStatus, ord.ID)
	_ = h.Redis.Set(ctx, key, string(ord.Status), redisx.TTLStatusCache).Err()
}

func pagination(r *http.Request) (limit, offset int) {
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	return limit, offset
}

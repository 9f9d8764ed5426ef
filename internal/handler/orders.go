package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/envirogo/envirogo-api/internal/model"
)

type checkoutRequest struct {
	CartItemIDs []int64 `json:"cart_item_ids"`
}

type checkoutResponse struct {
	OrderID      int64  `json:"orderId"`
	ClientSecret string `json:"clientSecret"`
	Subtotal     money  `json:"subtotal"`
	Tax          money  `json:"tax"`
	Total        money  `json:"total"`
}

type setPaymentMethodRequest struct {
	PaymentMethod string `json:"payment_method"`
}

// Checkout оформляет выбранные позиции корзины в заказ и возвращает секрет оплаты.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var req checkoutRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	res, err := h.service.Checkout(r.Context(), userID, req.CartItemIDs)
	if err != nil {
		h.respondError(w, r, err, "checkout error", zap.Int64("userID", userID))
		return
	}

	h.writeJSON(w, r, checkoutResponse{
		OrderID:      res.Order.ID,
		ClientSecret: res.ClientSecret,
		Subtotal:     money(res.Order.Subtotal),
		Tax:          money(res.Order.Tax),
		Total:        money(res.Order.Total),
	}, http.StatusCreated)
}

// ListOrders возвращает заказы текущего пользователя.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	orders, err := h.service.ListOrders(r.Context(), userID)
	if err != nil {
		h.respondError(w, r, err, "list orders error", zap.Int64("userID", userID))
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for i := range orders {
		resp = append(resp, newOrderResponse(&orders[i]))
	}
	h.writeJSON(w, r, resp, http.StatusOK)
}

// GetOrder возвращает заказ текущего пользователя.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	orderID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	o, err := h.service.GetOrder(r.Context(), userID, orderID)
	if err != nil {
		h.respondError(w, r, err, "get order error", zap.Int64("userID", userID), zap.Int64("orderID", orderID))
		return
	}
	h.writeJSON(w, r, newOrderResponse(o), http.StatusOK)
}

// UpdateOrder меняет способ оплаты неоплаченного заказа.
func (h *Handler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	orderID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	var req setPaymentMethodRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	o, err := h.service.SetPaymentMethod(r.Context(), userID, orderID, model.PaymentMethod(req.PaymentMethod))
	if err != nil {
		h.respondError(w, r, err, "update order error", zap.Int64("userID", userID), zap.Int64("orderID", orderID))
		return
	}
	h.writeJSON(w, r, newOrderResponse(o), http.StatusOK)
}

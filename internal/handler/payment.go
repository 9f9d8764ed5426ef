package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/envirogo/envirogo-api/internal/gateway"
)

const signatureHeader = "Stripe-Signature"

type topUpRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type purchaseRequest struct {
	Amount  decimal.Decimal `json:"amount"`
	OrderID int64           `json:"order_id"`
}

type paymentStartResponse struct {
	ClientSecret  string `json:"clientSecret"`
	TransactionID int64  `json:"transactionId"`
}

// TopUp начинает пополнение кошелька текущего пользователя.
func (h *Handler) TopUp(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var req topUpRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	start, err := h.service.TopUp(r.Context(), userID, req.Amount)
	if err != nil {
		h.respondError(w, r, err, "top-up error", zap.Int64("userID", userID))
		return
	}
	h.writeJSON(w, r, paymentStartResponse{ClientSecret: start.ClientSecret, TransactionID: start.TransactionID},
		http.StatusOK)
}

// PurchaseStripe начинает оплату существующего заказа картой.
func (h *Handler) PurchaseStripe(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var req purchaseRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if req.OrderID <= 0 {
		h.writeJSON(w, r, errorResponse{
			Message: "validation failed",
			Errors:  map[string]string{"order_id": "is required"},
		}, http.StatusBadRequest)
		return
	}

	start, err := h.service.PayOrder(r.Context(), userID, req.OrderID, req.Amount)
	if err != nil {
		h.respondError(w, r, err, "purchase error", zap.Int64("userID", userID), zap.Int64("orderID", req.OrderID))
		return
	}
	h.writeJSON(w, r, paymentStartResponse{ClientSecret: start.ClientSecret, TransactionID: start.TransactionID},
		http.StatusOK)
}

// Webhook принимает уведомления платёжного шлюза. Любое разобранное уведомление
// подтверждается ответом 200, чтобы шлюз не повторял доставку.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		h.writeError(w, r, "invalid request body", http.StatusBadRequest)
		return
	}

	res, err := h.service.HandleWebhook(r.Context(), payload, r.Header.Get(signatureHeader))
	if err != nil {
		if errors.Is(err, gateway.ErrMalformedEvent) {
			h.writeError(w, r, "invalid payment event", http.StatusBadRequest)
			return
		}
		h.respondError(w, r, err, "webhook error")
		return
	}

	msg := "event received"
	if !res.Ignored {
		msg = "event received: " + res.Outcome.String()
	}
	h.writeJSON(w, r, messageResponse{Message: msg}, http.StatusOK)
}

// ListTransactions возвращает историю платежей; ?type=topup|purchase фильтрует по виду.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	txns, err := h.service.ListTransactions(r.Context(), userID, r.URL.Query().Get("type"))
	if err != nil {
		h.respondError(w, r, err, "list transactions error", zap.Int64("userID", userID))
		return
	}

	resp := make([]transactionResponse, 0, len(txns))
	for i := range txns {
		resp = append(resp, newTransactionResponse(&txns[i]))
	}
	h.writeJSON(w, r, resp, http.StatusOK)
}

// GetTransaction возвращает платёж текущего пользователя.
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	t, err := h.service.GetTransaction(r.Context(), userID, id)
	if err != nil {
		h.respondError(w, r, err, "get transaction error", zap.Int64("userID", userID), zap.Int64("transactionID", id))
		return
	}
	h.writeJSON(w, r, newTransactionResponse(t), http.StatusOK)
}

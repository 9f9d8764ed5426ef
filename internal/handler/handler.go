// Package handler содержит HTTP-обработчики API сервиса EnviroGo.
package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/envirogo/envirogo-api/internal/middleware"
	"github.com/envirogo/envirogo-api/internal/model"
	"github.com/envirogo/envirogo-api/internal/service"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	RegisterUser(ctx context.Context, r service.Registration) (*model.User, error)
	AuthenticateUser(ctx context.Context, email, password string) (*model.User, error)
	GetUser(ctx context.Context, userID int64) (*model.User, error)
	UpdateProfile(ctx context.Context, userID int64, upd model.ProfileUpdate) (*model.User, error)
	ValidateSession(ctx context.Context, userID int64) (*model.User, error)

	ListUsers(ctx context.Context) ([]model.User, error)
	CreateUser(ctx context.Context, in service.NewUser) (*model.User, error)
	UpdateUser(ctx context.Context, userID int64, upd model.UserUpdate) (*model.User, error)

	ListProducts(ctx context.Context, includeInactive bool) ([]model.Product, error)
	GetProduct(ctx context.Context, id int64, includeInactive bool) (*model.Product, error)
	CreateProduct(ctx context.Context, in service.ProductInput) (*model.Product, error)
	UpdateProduct(ctx context.Context, id int64, in service.ProductInput) (*model.Product, error)

	GetCart(ctx context.Context, userID int64) ([]model.CartItem, error)
	AddToCart(ctx context.Context, userID, productID int64, quantity int) (*model.CartItem, error)
	UpdateCartItem(ctx context.Context, userID, itemID int64, quantity int) error
	RemoveCartItem(ctx context.Context, userID, itemID int64) error

	Checkout(ctx context.Context, userID int64, cartItemIDs []int64) (*service.CheckoutResult, error)
	ListOrders(ctx context.Context, userID int64) ([]model.Order, error)
	GetOrder(ctx context.Context, userID, orderID int64) (*model.Order, error)
	SetPaymentMethod(ctx context.Context, userID, orderID int64, method model.PaymentMethod) (*model.Order, error)

	TopUp(ctx context.Context, userID int64, amount decimal.Decimal) (*service.PaymentStart, error)
	PayOrder(ctx context.Context, userID, orderID int64, amount decimal.Decimal) (*service.PaymentStart, error)
	HandleWebhook(ctx context.Context, payload []byte, signatureHeader string) (*service.WebhookResult, error)
	ListTransactions(ctx context.Context, userID int64, kind string) ([]model.Transaction, error)
	GetTransaction(ctx context.Context, userID, id int64) (*model.Transaction, error)
}

// Handler реализует HTTP-обработчики API сервиса EnviroGo.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
	}
}

// Status отвечает, что сервис запущен.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, messageResponse{Message: "EnviroGo API is running"}, http.StatusOK)
}

// currentUser достаёт идентификатор пользователя, положенный AuthMiddleware.
func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		h.writeError(w, r, "authentication required", http.StatusUnauthorized)
		return 0, false
	}
	return userID, true
}

// pathID разбирает числовой параметр маршрута.
func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		h.writeError(w, r, "invalid "+name, http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// Package service реализует бизнес-логику сервиса EnviroGo.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/envirogo/envirogo-api/internal/gateway"
	"github.com/envirogo/envirogo-api/internal/model"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountInactive    = errors.New("account is not activated")
	ErrEmptyCart          = errors.New("no cart items selected for checkout")
	ErrMissingAddress     = errors.New("delivery address is required for checkout")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrSessionInvalid     = errors.New("session is no longer valid")
)

// ValidationError описывает некорректные поля запроса.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func newValidationError(fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error

	CreateUser(ctx context.Context, u *model.User) (int64, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	UpdateUserProfile(ctx context.Context, id int64, upd model.ProfileUpdate) error
	ListUsers(ctx context.Context) ([]model.User, error)
	UpdateUser(ctx context.Context, id int64, upd model.UserUpdate) error

	ListProducts(ctx context.Context, activeOnly bool) ([]model.Product, error)
	GetProduct(ctx context.Context, id int64) (*model.Product, error)
	CreateProduct(ctx context.Context, p *model.Product) (int64, error)
	UpdateProduct(ctx context.Context, p *model.Product) error

	GetCartItems(ctx context.Context, userID int64) ([]model.CartItem, error)
	AddCartItem(ctx context.Context, userID, productID int64, quantity int) (*model.CartItem, error)
	UpdateCartItem(ctx context.Context, userID, itemID int64, quantity int) error
	RemoveCartItem(ctx context.Context, userID, itemID int64) error

	CreateOrder(ctx context.Context, o *model.Order, txn *model.Transaction, cartItemIDs []int64) (int64, int64, error)
	GetOrder(ctx context.Context, userID, orderID int64) (*model.Order, error)
	ListOrders(ctx context.Context, userID int64) ([]model.Order, error)
	UpdateOrderPaymentMethod(ctx context.Context, userID, orderID int64, method model.PaymentMethod) error

	CreateTransaction(ctx context.Context, t *model.Transaction) (int64, error)
	ListTransactions(ctx context.Context, userID int64, kind *model.TransactionKind) ([]model.Transaction, error)
	GetTransaction(ctx context.Context, userID, id int64) (*model.Transaction, error)
	SettleTransaction(ctx context.Context, intentID string) (model.Settlement, error)
}

// PaymentGateway описывает внешний платёжный процессор.
type PaymentGateway interface {
	CreateIntent(ctx context.Context, amountMinor int64, currency string) (gateway.Intent, error)
	ParseEvent(payload []byte, signatureHeader string) (gateway.Event, error)
}

// Options задаёт параметры платежей.
type Options struct {
	Currency string
	// TopUpLimit задаёт максимальную сумму одного пополнения в основных единицах валюты.
	TopUpLimit decimal.Decimal
	// PasswordCost задаёт стоимость bcrypt, 0 означает bcrypt.DefaultCost.
	PasswordCost int
}

// Service содержит бизнес-логику сервиса EnviroGo.
type Service struct {
	repo         Repository
	gateway      PaymentGateway
	logger       *zap.Logger
	currency     string
	topUpLimit   decimal.Decimal
	passwordCost int
}

// NewService создаёт сервис с указанными репозиторием и платёжным шлюзом.
func NewService(repo Repository, gw PaymentGateway, logger *zap.Logger, opts Options) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Currency == "" {
		opts.Currency = "sgd"
	}
	if !opts.TopUpLimit.IsPositive() {
		opts.TopUpLimit = decimal.NewFromInt(1000)
	}
	if opts.PasswordCost == 0 {
		opts.PasswordCost = bcrypt.DefaultCost
	}

	return &Service{
		repo:         repo,
		gateway:      gw,
		logger:       logger,
		currency:     strings.ToLower(opts.Currency),
		topUpLimit:   opts.TopUpLimit,
		passwordCost: opts.PasswordCost,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// createIntent запрашивает у шлюза намерение на сумму в основных единицах валюты.
func (s *Service) createIntent(ctx context.Context, amount decimal.Decimal) (gateway.Intent, error) {
	intent, err := s.gateway.CreateIntent(ctx, gateway.ToMinorUnits(amount), s.currency)
	if err != nil {
		return gateway.Intent{}, fmt.Errorf("create payment intent: %w", err)
	}
	return intent, nil
}

// Package model содержит доменные сущности сервиса EnviroGo.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType описывает роль пользователя.
type AccountType int

const (
	AccountTypeAdmin AccountType = iota
	AccountTypeUser
	AccountTypeDriver
	AccountTypeUnapprovedDriver
)

// Valid сообщает, известен ли тип аккаунта.
func (t AccountType) Valid() bool {
	return t >= AccountTypeAdmin && t <= AccountTypeUnapprovedDriver
}

// User представляет зарегистрированного пользователя и его кошелёк.
type User struct {
	ID              int64
	Email           string
	Name            string
	PasswordHash    []byte
	PhoneNumber     string
	AccountType     AccountType
	Cash            decimal.Decimal
	Points          int64
	DeliveryAddress *string
	IsActive        bool
	CreatedAt       time.Time
}

// HasDeliveryAddress сообщает, задан ли у пользователя адрес доставки.
func (u *User) HasDeliveryAddress() bool {
	return u.DeliveryAddress != nil && *u.DeliveryAddress != ""
}

// ProfileUpdate содержит изменяемые пользователем поля профиля. Nil означает «не менять».
type ProfileUpdate struct {
	Name            *string
	PhoneNumber     *string
	DeliveryAddress *string
}

// UserUpdate содержит поля пользователя, которые меняет администратор. Nil означает «не менять».
type UserUpdate struct {
	Email           *string
	Name            *string
	PhoneNumber     *string
	DeliveryAddress *string
	AccountType     *AccountType
	Cash            *decimal.Decimal
	Points          *int64
	IsActive        *bool
}

// Product описывает товар каталога.
type Product struct {
	ID              int64
	Name            string
	Category        string
	SubCategory     string
	Description     string
	Stock           int
	Price           decimal.Decimal
	PointPrice      int64
	OnSale          bool
	DiscountPercent int
	Active          bool
	CreatedAt       time.Time
}

// CartItem описывает позицию корзины вместе с текущим состоянием товара.
type CartItem struct {
	ID        int64
	UserID    int64
	ProductID int64
	Quantity  int
	Product   Product
}

// OrderStatus описывает статус заказа.
type OrderStatus int

const (
	OrderStatusCreated OrderStatus = 0
	OrderStatusPaid    OrderStatus = 1
)

// PaymentMethod описывает выбранный способ оплаты заказа.
type PaymentMethod string

const (
	PaymentMethodStripe PaymentMethod = "Stripe"
	PaymentMethodWallet PaymentMethod = "Wallet"
	PaymentMethodPoint  PaymentMethod = "Point"
)

// Valid сообщает, является ли значение известным способом оплаты.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodStripe, PaymentMethodWallet, PaymentMethodPoint:
		return true
	}
	return false
}

// OrderItem описывает строку заказа. Суммы фиксируются при создании заказа.
type OrderItem struct {
	ProductID        int64
	Quantity         int
	Total            decimal.Decimal
	DiscountedTotal  decimal.Decimal
	Discounted       bool
	Points           int64
	PointsDiscounted int64
}

// Order описывает снимок корзины на момент оформления.
type Order struct {
	ID              int64
	UserID          int64
	Items           []OrderItem
	ItemCount       int
	Subtotal        decimal.Decimal
	Tax             decimal.Decimal
	Total           decimal.Decimal
	DeliveryAddress string
	Status          OrderStatus
	PaymentMethod   *PaymentMethod
	CreatedAt       time.Time
}

// TransactionKind описывает вид денежной операции.
type TransactionKind string

const (
	TransactionKindTopUp    TransactionKind = "topup"
	TransactionKindPurchase TransactionKind = "purchase"
)

// Valid сообщает, является ли значение известным видом операции.
func (k TransactionKind) Valid() bool {
	return k == TransactionKindTopUp || k == TransactionKindPurchase
}

// TransactionStatus описывает статус платежа. Succeeded терминален.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "Pending"
	TransactionStatusSucceeded TransactionStatus = "Succeeded"
)

// OperatorCredit обозначает зачисление.
const OperatorCredit = "+"

// Transaction описывает одну попытку оплаты через платёжный шлюз.
type Transaction struct {
	ID              int64
	Amount          decimal.Decimal
	Kind            TransactionKind
	Status          TransactionStatus
	PaymentIntentID string
	ClientSecret    string
	UserID          int64
	OrderID         *int64
	Operator        string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// SettleOutcome описывает результат обработки уведомления об успешном платеже.
type SettleOutcome int

const (
	// SettleNotFound: платёж с таким идентификатором неизвестен.
	SettleNotFound SettleOutcome = iota
	// SettleAlreadyApplied: платёж уже был проведён ранее.
	SettleAlreadyApplied
	// SettleApplied: платёж проведён этим уведомлением.
	SettleApplied
)

func (o SettleOutcome) String() string {
	switch o {
	case SettleNotFound:
		return "not_found"
	case SettleAlreadyApplied:
		return "already_applied"
	case SettleApplied:
		return "applied"
	}
	return "unknown"
}

// Settlement описывает итог проводки платежа по уведомлению шлюза.
type Settlement struct {
	Outcome     SettleOutcome
	Transaction *Transaction
	// OrderAlreadyPaid отмечает покупку, проведённую по заказу, который к этому моменту
	// уже оплачен другим платежом: деньги с клиента списаны повторно.
	OrderAlreadyPaid bool
}

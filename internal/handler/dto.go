package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/envirogo/envirogo-api/internal/model"
)

// money выводится в JSON числом с двумя знаками после запятой.
type money decimal.Decimal

func (m money) MarshalJSON() ([]byte, error) {
	return []byte(decimal.Decimal(m).StringFixed(2)), nil
}

type userResponse struct {
	ID              int64   `json:"id"`
	Email           string  `json:"email"`
	Name            string  `json:"name"`
	PhoneNumber     string  `json:"phone_number"`
	AccountType     int     `json:"account_type"`
	Cash            money   `json:"cash"`
	Points          int64   `json:"points"`
	DeliveryAddress *string `json:"delivery_address"`
	IsActive        bool    `json:"is_active"`
	CreatedAt       string  `json:"created_at"`
}

func newUserResponse(u *model.User) userResponse {
	return userResponse{
		ID:              u.ID,
		Email:           u.Email,
		Name:            u.Name,
		PhoneNumber:     u.PhoneNumber,
		AccountType:     int(u.AccountType),
		Cash:            money(u.Cash),
		Points:          u.Points,
		DeliveryAddress: u.DeliveryAddress,
		IsActive:        u.IsActive,
		CreatedAt:       u.CreatedAt.Format(time.RFC3339),
	}
}

type productResponse struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	Category        string `json:"category"`
	SubCategory     string `json:"sub_category"`
	Description     string `json:"description"`
	Stock           int    `json:"stock"`
	Price           money  `json:"price"`
	PointPrice      int64  `json:"point_price"`
	OnSale          bool   `json:"on_sale"`
	DiscountPercent int    `json:"discount_percent"`
	Active          bool   `json:"active"`
}

func newProductResponse(p *model.Product) productResponse {
	return productResponse{
		ID:              p.ID,
		Name:            p.Name,
		Category:        p.Category,
		SubCategory:     p.SubCategory,
		Description:     p.Description,
		Stock:           p.Stock,
		Price:           money(p.Price),
		PointPrice:      p.PointPrice,
		OnSale:          p.OnSale,
		DiscountPercent: p.DiscountPercent,
		Active:          p.Active,
	}
}

type cartItemResponse struct {
	ID        int64           `json:"id"`
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Product   productResponse `json:"product"`
}

func newCartItemResponse(c *model.CartItem) cartItemResponse {
	return cartItemResponse{
		ID:        c.ID,
		ProductID: c.ProductID,
		Quantity:  c.Quantity,
		Product:   newProductResponse(&c.Product),
	}
}

type orderItemResponse struct {
	ProductID        int64 `json:"product_id"`
	Quantity         int   `json:"quantity"`
	Total            money `json:"total"`
	DiscountedTotal  money `json:"discounted_total"`
	Discounted       bool  `json:"discounted"`
	Points           int64 `json:"points"`
	PointsDiscounted int64 `json:"points_discounted"`
}

type orderResponse struct {
	ID              int64               `json:"id"`
	Items           []orderItemResponse `json:"items"`
	ItemCount       int                 `json:"item_count"`
	Subtotal        money               `json:"subtotal"`
	Tax             money               `json:"tax"`
	Total           money               `json:"total"`
	DeliveryAddress string              `json:"delivery_address"`
	Status          int                 `json:"status"`
	PaymentMethod   *string             `json:"payment_method"`
	CreatedAt       string              `json:"created_at"`
}

func newOrderResponse(o *model.Order) orderResponse {
	resp := orderResponse{
		ID:              o.ID,
		Items:           make([]orderItemResponse, 0, len(o.Items)),
		ItemCount:       o.ItemCount,
		Subtotal:        money(o.Subtotal),
		Tax:             money(o.Tax),
		Total:           money(o.Total),
		DeliveryAddress: o.DeliveryAddress,
		Status:          int(o.Status),
		CreatedAt:       o.CreatedAt.Format(time.RFC3339),
	}
	if o.PaymentMethod != nil {
		m := string(*o.PaymentMethod)
		resp.PaymentMethod = &m
	}
	for _, it := range o.Items {
		resp.Items = append(resp.Items, orderItemResponse{
			ProductID:        it.ProductID,
			Quantity:         it.Quantity,
			Total:            money(it.Total),
			DiscountedTotal:  money(it.DiscountedTotal),
			Discounted:       it.Discounted,
			Points:           it.Points,
			PointsDiscounted: it.PointsDiscounted,
		})
	}
	return resp
}

type transactionResponse struct {
	ID              int64  `json:"id"`
	Amount          money  `json:"amount"`
	Type            string `json:"type"`
	Status          string `json:"status"`
	PaymentIntentID string `json:"payment_intent_id"`
	UserID          int64  `json:"user_id"`
	OrderID         *int64 `json:"order_id"`
	Operator        string `json:"operator"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

func newTransactionResponse(t *model.Transaction) transactionResponse {
	return transactionResponse{
		ID:              t.ID,
		Amount:          money(t.Amount),
		Type:            string(t.Kind),
		Status:          string(t.Status),
		PaymentIntentID: t.PaymentIntentID,
		UserID:          t.UserID,
		OrderID:         t.OrderID,
		Operator:        t.Operator,
		CreatedAt:       t.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       t.UpdatedAt.Format(time.RFC3339),
	}
}

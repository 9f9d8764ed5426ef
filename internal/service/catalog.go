package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/envirogo/envirogo-api/internal/model"
	"github.com/envirogo/envirogo-api/internal/repository"
	"github.com/envirogo/envirogo-api/internal/validation"
)

// ProductInput содержит редактируемые администратором поля товара.
type ProductInput struct {
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
}

func (in ProductInput) validate() error {
	errs := validation.Errors{}
	errs.Check(len([]rune(strings.TrimSpace(in.Name))) >= validation.ProductNameMin, "name",
		fmt.Sprintf("must be at least %d characters", validation.ProductNameMin))
	errs.Check(strings.TrimSpace(in.Category) != "", "category", "must not be empty")
	errs.Check(in.Stock >= 0, "stock", "must not be negative")
	errs.Check(!in.Price.IsNegative(), "price", "must not be negative")
	errs.Check(in.Price.Equal(in.Price.Round(2)), "price", "must have at most two decimal places")
	errs.Check(in.PointPrice >= 0, "point_price", "must not be negative")
	errs.Check(validation.IsValidPercent(in.DiscountPercent), "discount_percent", "must be between 0 and 100")
	return newValidationError(errs)
}

func (in ProductInput) apply(p *model.Product) {
	p.Name = strings.TrimSpace(in.Name)
	p.Category = strings.TrimSpace(in.Category)
	p.SubCategory = strings.TrimSpace(in.SubCategory)
	p.Description = in.Description
	p.Stock = in.Stock
	p.Price = in.Price
	p.PointPrice = in.PointPrice
	p.OnSale = in.OnSale
	p.DiscountPercent = in.DiscountPercent
	p.Active = in.Active
}

// ListProducts возвращает каталог. Неактивные товары видны только при includeInactive.
func (s *Service) ListProducts(ctx context.Context, includeInactive bool) ([]model.Product, error) {
	return s.repo.ListProducts(ctx, !includeInactive)
}

// GetProduct возвращает товар. Неактивный товар без includeInactive считается отсутствующим.
func (s *Service) GetProduct(ctx context.Context, id int64, includeInactive bool) (*model.Product, error) {
	p, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.Active && !includeInactive {
		return nil, repository.ErrProductNotFound
	}
	return p, nil
}

// CreateProduct добавляет товар в каталог.
func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (*model.Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	p := &model.Product{}
	in.apply(p)
	id, err := s.repo.CreateProduct(ctx, p)
	if err != nil {
		return nil, err
	}
	return s.repo.GetProduct(ctx, id)
}

// UpdateProduct заменяет поля товара. Уже оформленные заказы не меняются.
func (s *Service) UpdateProduct(ctx context.Context, id int64, in ProductInput) (*model.Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	p := &model.Product{ID: id}
	in.apply(p)
	if err := s.repo.UpdateProduct(ctx, p); err != nil {
		return nil, err
	}
	return s.repo.GetProduct(ctx, id)
}

// GetCart возвращает корзину пользователя.
func (s *Service) GetCart(ctx context.Context, userID int64) ([]model.CartItem, error) {
	return s.repo.GetCartItems(ctx, userID)
}

// AddToCart кладёт активный товар в корзину.
func (s *Service) AddToCart(ctx context.Context, userID, productID int64, quantity int) (*model.CartItem, error) {
	if quantity <= 0 {
		return nil, &ValidationError{Fields: map[string]string{"quantity": "must be greater than 0"}}
	}

	p, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !p.Active {
		return nil, repository.ErrProductNotFound
	}

	item, err := s.repo.AddCartItem(ctx, userID, productID, quantity)
	if err != nil {
		return nil, err
	}
	item.Product = *p
	return item, nil
}

// UpdateCartItem задаёт количество в позиции корзины.
func (s *Service) UpdateCartItem(ctx context.Context, userID, itemID int64, quantity int) error {
	if quantity <= 0 {
		return &ValidationError{Fields: map[string]string{"quantity": "must be greater than 0"}}
	}
	return s.repo.UpdateCartItem(ctx, userID, itemID, quantity)
}

// RemoveCartItem удаляет позицию корзины.
func (s *Service) RemoveCartItem(ctx context.Context, userID, itemID int64) error {
	return s.repo.RemoveCartItem(ctx, userID, itemID)
}

package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/envirogo/envirogo-api/internal/model"
	"github.com/envirogo/envirogo-api/internal/pricing"
)

// CheckoutResult содержит созданный заказ и секрет для подтверждения оплаты на клиенте.
type CheckoutResult struct {
	Order         *model.Order
	TransactionID int64
	ClientSecret  string
}

// Checkout оформляет выбранные позиции корзины в заказ и начинает оплату через шлюз.
// Заказ, его позиции и ожидающий платёж сохраняются одной транзакцией БД и только после
// того, как шлюз создал намерение; при ошибке шлюза ничего не сохраняется.
func (s *Service) Checkout(ctx context.Context, userID int64, cartItemIDs []int64) (*CheckoutResult, error) {
	if len(cartItemIDs) == 0 {
		return nil, ErrEmptyCart
	}

	cart, err := s.repo.GetCartItems(ctx, userID)
	if err != nil {
		return nil, err
	}

	wanted := make(map[int64]struct{}, len(cartItemIDs))
	for _, id := range cartItemIDs {
		wanted[id] = struct{}{}
	}

	var (
		selected []model.CartItem
		ids      []int64
	)
	for _, item := range cart {
		if _, ok := wanted[item.ID]; !ok {
			continue
		}
		selected = append(selected, item)
		ids = append(ids, item.ID)
	}
	if len(selected) == 0 {
		return nil, ErrEmptyCart
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.HasDeliveryAddress() {
		return nil, ErrMissingAddress
	}

	lines := make([]pricing.Line, 0, len(selected))
	for _, item := range selected {
		if !item.Product.Active {
			return nil, &ValidationError{Fields: map[string]string{
				"cart_item_ids": fmt.Sprintf("product %q is no longer available", item.Product.Name),
			}}
		}
		lines = append(lines, pricing.Line{
			ProductID:       item.ProductID,
			Quantity:        item.Quantity,
			UnitPrice:       item.Product.Price,
			PointPrice:      item.Product.PointPrice,
			OnSale:          item.Product.OnSale,
			DiscountPercent: item.Product.DiscountPercent,
		})
	}
	quote := pricing.Compute(lines)

	intent, err := s.createIntent(ctx, quote.Total)
	if err != nil {
		s.logger.Warn("checkout payment intent failed",
			zap.Int64("userID", userID), zap.String("total", quote.Total.StringFixed(2)), zap.Error(err))
		return nil, err
	}

	order := &model.Order{
		UserID:          userID,
		Items:           make([]model.OrderItem, 0, len(quote.Items)),
		ItemCount:       quote.ItemCount,
		Subtotal:        quote.Subtotal,
		Tax:             quote.Tax,
		Total:           quote.Total,
		DeliveryAddress: *user.DeliveryAddress,
	}
	for _, it := range quote.Items {
		order.Items = append(order.Items, model.OrderItem{
			ProductID:        it.ProductID,
			Quantity:         it.Quantity,
			Total:            it.Total,
			DiscountedTotal:  it.DiscountedTotal,
			Discounted:       it.Discounted,
			Points:           it.Points,
			PointsDiscounted: it.PointsDiscounted,
		})
	}
	txn := &model.Transaction{
		Amount:          quote.Total,
		Kind:            model.TransactionKindPurchase,
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
		UserID:          userID,
		Operator:        model.OperatorCredit,
	}

	_, txnID, err := s.repo.CreateOrder(ctx, order, txn, ids)
	if err != nil {
		s.logger.Error("persist checkout failed, payment intent left unused",
			zap.Int64("userID", userID), zap.String("intentID", intent.ID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("order created",
		zap.Int64("userID", userID), zap.Int64("orderID", order.ID), zap.String("intentID", intent.ID))

	return &CheckoutResult{
		Order:         order,
		TransactionID: txnID,
		ClientSecret:  intent.ClientSecret,
	}, nil
}

// ListOrders возвращает заказы пользователя.
func (s *Service) ListOrders(ctx context.Context, userID int64) ([]model.Order, error) {
	return s.repo.ListOrders(ctx, userID)
}

// GetOrder возвращает заказ пользователя.
func (s *Service) GetOrder(ctx context.Context, userID, orderID int64) (*model.Order, error) {
	return s.repo.GetOrder(ctx, userID, orderID)
}

// SetPaymentMethod запоминает способ оплаты неоплаченного заказа.
func (s *Service) SetPaymentMethod(ctx context.Context, userID, orderID int64, method model.PaymentMethod) (*model.Order, error) {
	if !method.Valid() {
		return nil, &ValidationError{Fields: map[string]string{
			"payment_method": fmt.Sprintf("must be one of %s, %s, %s",
				model.PaymentMethodStripe, model.PaymentMethodWallet, model.PaymentMethodPoint),
		}}
	}

	if err := s.repo.UpdateOrderPaymentMethod(ctx, userID, orderID, method); err != nil {
		return nil, err
	}
	return s.repo.GetOrder(ctx, userID, orderID)
}

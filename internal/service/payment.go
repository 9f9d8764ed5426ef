package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/envirogo/envirogo-api/internal/gateway"
	"github.com/envirogo/envirogo-api/internal/model"
	"github.com/envirogo/envirogo-api/internal/repository"
)

// PaymentStart описывает начатую попытку оплаты.
type PaymentStart struct {
	TransactionID int64
	ClientSecret  string
}

// WebhookResult описывает, как было обработано уведомление шлюза.
type WebhookResult struct {
	EventType string
	IntentID  string
	// Ignored выставляется для уведомлений со статусом, отличным от успешного.
	Ignored bool
	Outcome model.SettleOutcome
	// OrderAlreadyPaid выставляется, если покупка проведена по уже оплаченному заказу.
	OrderAlreadyPaid bool
}

// TopUp начинает пополнение кошелька. Деньги зачисляются только по уведомлению шлюза.
func (s *Service) TopUp(ctx context.Context, userID int64, amount decimal.Decimal) (*PaymentStart, error) {
	if !amount.IsPositive() || amount.GreaterThan(s.topUpLimit) || !amount.Equal(amount.Round(2)) {
		return nil, fmt.Errorf("%w: must be greater than 0 and at most %s with two decimal places",
			ErrInvalidAmount, s.topUpLimit.StringFixed(2))
	}

	intent, err := s.createIntent(ctx, amount)
	if err != nil {
		s.logger.Warn("top-up payment intent failed", zap.Int64("userID", userID), zap.Error(err))
		return nil, err
	}

	txn := &model.Transaction{
		Amount:          amount,
		Kind:            model.TransactionKindTopUp,
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
		UserID:          userID,
		Operator:        model.OperatorCredit,
	}
	id, err := s.repo.CreateTransaction(ctx, txn)
	if err != nil {
		s.logger.Error("persist top-up failed, payment intent left unused",
			zap.Int64("userID", userID), zap.String("intentID", intent.ID), zap.Error(err))
		return nil, err
	}

	return &PaymentStart{TransactionID: id, ClientSecret: intent.ClientSecret}, nil
}

// PayOrder начинает новую попытку оплаты созданного, но не оплаченного заказа.
func (s *Service) PayOrder(ctx context.Context, userID, orderID int64, amount decimal.Decimal) (*PaymentStart, error) {
	order, err := s.repo.GetOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == model.OrderStatusPaid {
		return nil, repository.ErrOrderPaid
	}
	if !amount.Equal(order.Total) {
		return nil, &ValidationError{Fields: map[string]string{
			"amount": "must equal order total " + order.Total.StringFixed(2),
		}}
	}

	intent, err := s.createIntent(ctx, order.Total)
	if err != nil {
		s.logger.Warn("order payment intent failed",
			zap.Int64("userID", userID), zap.Int64("orderID", orderID), zap.Error(err))
		return nil, err
	}

	txn := &model.Transaction{
		Amount:          order.Total,
		Kind:            model.TransactionKindPurchase,
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
		UserID:          userID,
		OrderID:         &order.ID,
		Operator:        model.OperatorCredit,
	}
	id, err := s.repo.CreateTransaction(ctx, txn)
	if err != nil {
		s.logger.Error("persist order payment failed, payment intent left unused",
			zap.Int64("orderID", orderID), zap.String("intentID", intent.ID), zap.Error(err))
		return nil, err
	}

	return &PaymentStart{TransactionID: id, ClientSecret: intent.ClientSecret}, nil
}

// HandleWebhook обрабатывает уведомление шлюза о платеже. Повторные и конкурентные
// уведомления для одного намерения применяют эффект ровно один раз. Ошибка возвращается
// только для неразборчивого уведомления (gateway.ErrMalformedEvent) или отказа хранилища.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signatureHeader string) (*WebhookResult, error) {
	ev, err := s.gateway.ParseEvent(payload, signatureHeader)
	if err != nil {
		s.logger.Warn("rejected payment event", zap.Error(err))
		return nil, err
	}

	res := &WebhookResult{EventType: ev.Type, IntentID: ev.IntentID}
	if ev.Status != gateway.StatusSucceeded {
		res.Ignored = true
		s.logger.Info("payment event ignored",
			zap.String("eventType", ev.Type), zap.String("intentID", ev.IntentID), zap.String("status", ev.Status))
		return res, nil
	}

	st, err := s.repo.SettleTransaction(ctx, ev.IntentID)
	if err != nil {
		s.logger.Error("settle payment failed", zap.String("intentID", ev.IntentID), zap.Error(err))
		return nil, fmt.Errorf("settle %s: %w", ev.IntentID, err)
	}
	res.Outcome = st.Outcome
	res.OrderAlreadyPaid = st.OrderAlreadyPaid

	fields := []zap.Field{
		zap.String("eventType", ev.Type),
		zap.String("intentID", ev.IntentID),
		zap.Stringer("outcome", st.Outcome),
	}
	if txn := st.Transaction; txn != nil {
		fields = append(fields,
			zap.Int64("transactionID", txn.ID),
			zap.Int64("userID", txn.UserID),
			zap.String("kind", string(txn.Kind)),
			zap.String("amount", txn.Amount.StringFixed(2)),
		)
		if txn.OrderID != nil {
			fields = append(fields, zap.Int64("orderID", *txn.OrderID))
		}
	}
	if st.OrderAlreadyPaid {
		s.logger.Warn("duplicate charge: order was already paid", fields...)
		return res, nil
	}
	s.logger.Info("payment event processed", fields...)

	return res, nil
}

// ListTransactions возвращает историю платежей. Пустой kind означает все виды.
func (s *Service) ListTransactions(ctx context.Context, userID int64, kind string) ([]model.Transaction, error) {
	if kind == "" {
		return s.repo.ListTransactions(ctx, userID, nil)
	}

	k := model.TransactionKind(kind)
	if !k.Valid() {
		return nil, &ValidationError{Fields: map[string]string{
			"type": fmt.Sprintf("must be %s or %s", model.TransactionKindTopUp, model.TransactionKindPurchase),
		}}
	}
	return s.repo.ListTransactions(ctx, userID, &k)
}

// GetTransaction возвращает платёж пользователя.
func (s *Service) GetTransaction(ctx context.Context, userID, id int64) (*model.Transaction, error) {
	return s.repo.GetTransaction(ctx, userID, id)
}

package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/envirogo/envirogo-api/internal/model"
)

const transactionColumns = `id, amount, type, status, payment_intent_id, client_secret, user_id,
	order_id, operator, created_at, updated_at`

// CreateTransaction сохраняет ожидающий платёж и возвращает его идентификатор.
func (r *PostgresRepository) CreateTransaction(ctx context.Context, t *model.Transaction) (int64, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO transactions (amount, type, status, payment_intent_id, client_secret, user_id, order_id, operator)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id, created_at, updated_at`,
		toCents(t.Amount), string(t.Kind), string(model.TransactionStatusPending), t.PaymentIntentID,
		t.ClientSecret, t.UserID, t.OrderID, t.Operator,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return 0, fmt.Errorf("create transaction: %w", err)
	}
	t.Status = model.TransactionStatusPending
	return t.ID, nil
}

// ListTransactions возвращает платежи пользователя, новые первыми. При kind == nil возвращаются все виды.
func (r *PostgresRepository) ListTransactions(ctx context.Context, userID int64, kind *model.TransactionKind) ([]model.Transaction, error) {
	var kindParam *string
	if kind != nil {
		s := string(*kind)
		kindParam = &s
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+transactionColumns+`
		 FROM transactions
		 WHERE user_id = $1 AND ($2::text IS NULL OR type = $2)
		 ORDER BY created_at DESC, id DESC`,
		userID, kindParam,
	)
	if err != nil {
		return nil, fmt.Errorf("select transactions: %w", err)
	}
	defer rows.Close()

	var res []model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// GetTransaction возвращает платёж пользователя по идентификатору.
func (r *PostgresRepository) GetTransaction(ctx context.Context, userID, id int64) (*model.Transaction, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	return scanTransaction(row)
}

// SettleTransaction проводит платёж по идентификатору намерения ровно один раз.
// Перевод Pending → Succeeded выполняется условным UPDATE; пополнение кошелька или
// оплата заказа применяются только если этот UPDATE изменил строку, в той же транзакции БД.
// Покупка по заказу, который уже оплачен другим платежом, проводится, но отмечается
// в Settlement.OrderAlreadyPaid.
func (r *PostgresRepository) SettleTransaction(ctx context.Context, intentID string) (model.Settlement, error) {
	var res model.Settlement

	err := r.withRetry(ctx, func() error {
		res = model.Settlement{Outcome: model.SettleNotFound}

		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		row := tx.QueryRow(ctx,
			`UPDATE transactions SET status = $2, updated_at = now()
			 WHERE payment_intent_id = $1 AND status = $3
			 RETURNING `+transactionColumns,
			intentID, string(model.TransactionStatusSucceeded), string(model.TransactionStatusPending),
		)
		t, err := scanTransaction(row)
		if errors.Is(err, ErrTransactionNotFound) {
			var exists bool
			if err := tx.QueryRow(ctx,
				`SELECT EXISTS(SELECT 1 FROM transactions WHERE payment_intent_id = $1)`,
				intentID,
			).Scan(&exists); err != nil {
				return fmt.Errorf("check transaction: %w", err)
			}
			if exists {
				res.Outcome = model.SettleAlreadyApplied
			}
			return nil
		}
		if err != nil {
			return err
		}

		var alreadyPaid bool
		switch t.Kind {
		case model.TransactionKindTopUp:
			cmdTag, err := tx.Exec(ctx,
				`UPDATE users SET cash = cash + $2 WHERE id = $1`,
				t.UserID, toCents(t.Amount),
			)
			if err != nil {
				return fmt.Errorf("credit wallet: %w", err)
			}
			if cmdTag.RowsAffected() == 0 {
				return fmt.Errorf("credit wallet: %w", ErrUserNotFound)
			}
		case model.TransactionKindPurchase:
			if t.OrderID == nil {
				return fmt.Errorf("purchase transaction %d has no order", t.ID)
			}
			alreadyPaid, err = markOrderPaid(ctx, tx, *t.OrderID)
			if err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown transaction type %q", t.Kind)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}

		res = model.Settlement{Outcome: model.SettleApplied, Transaction: t, OrderAlreadyPaid: alreadyPaid}
		return nil
	})
	if err != nil {
		return model.Settlement{Outcome: model.SettleNotFound}, err
	}

	return res, nil
}

// markOrderPaid переводит заказ в Paid. Возвращает true, если заказ уже был оплачен.
func markOrderPaid(ctx context.Context, tx pgx.Tx, orderID int64) (bool, error) {
	cmdTag, err := tx.Exec(ctx,
		`UPDATE orders SET status = $2 WHERE id = $1 AND status = $3`,
		orderID, int(model.OrderStatusPaid), int(model.OrderStatusCreated),
	)
	if err != nil {
		return false, fmt.Errorf("mark order paid: %w", err)
	}
	if cmdTag.RowsAffected() == 1 {
		return false, nil
	}

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)`, orderID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check order: %w", err)
	}
	if !exists {
		return false, fmt.Errorf("mark order paid: %w", ErrOrderNotFound)
	}
	return true, nil
}

func scanTransaction(row scanner) (*model.Transaction, error) {
	var (
		t           model.Transaction
		amountCents int64
		kind        string
		status      string
	)
	err := row.Scan(&t.ID, &amountCents, &kind, &status, &t.PaymentIntentID, &t.ClientSecret,
		&t.UserID, &t.OrderID, &t.Operator, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("scan transaction: %w", err)
	}

	t.Amount = fromCents(amountCents)
	t.Kind = model.TransactionKind(kind)
	t.Status = model.TransactionStatus(status)

	return &t, nil
}

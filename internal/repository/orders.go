package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/envirogo/envirogo-api/internal/model"
)

const orderColumns = `id, user_id, item_count, subtotal, tax, total, delivery_address, status,
	payment_method, created_at`

// CreateOrder в одной транзакции БД сохраняет заказ с позициями, ожидающий платёж по нему
// и удаляет оформленные позиции из корзины. Возвращает идентификаторы заказа и платежа.
func (r *PostgresRepository) CreateOrder(ctx context.Context, o *model.Order, txn *model.Transaction, cartItemIDs []int64) (int64, int64, error) {
	var orderID, txnID int64

	err := r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		err = tx.QueryRow(ctx,
			`INSERT INTO orders (user_id, item_count, subtotal, tax, total, delivery_address, status, payment_method)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id, created_at`,
			o.UserID, o.ItemCount, toCents(o.Subtotal), toCents(o.Tax), toCents(o.Total),
			o.DeliveryAddress, int(model.OrderStatusCreated), paymentMethodParam(o.PaymentMethod),
		).Scan(&orderID, &o.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		batch := &pgx.Batch{}
		for _, it := range o.Items {
			batch.Queue(
				`INSERT INTO order_items (order_id, product_id, quantity, total, discounted_total, discounted,
					points, points_discounted)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				orderID, it.ProductID, it.Quantity, toCents(it.Total), toCents(it.DiscountedTotal),
				it.Discounted, it.Points, it.PointsDiscounted,
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert order items: %w", err)
		}

		err = tx.QueryRow(ctx,
			`INSERT INTO transactions (amount, type, status, payment_intent_id, client_secret, user_id, order_id, operator)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
			toCents(txn.Amount), string(model.TransactionKindPurchase), string(model.TransactionStatusPending),
			txn.PaymentIntentID, txn.ClientSecret, o.UserID, orderID, txn.Operator,
		).Scan(&txnID)
		if err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}

		if len(cartItemIDs) > 0 {
			_, err = tx.Exec(ctx,
				`DELETE FROM cart_items WHERE user_id = $1 AND id = ANY($2)`,
				o.UserID, cartItemIDs,
			)
			if err != nil {
				return fmt.Errorf("clear cart items: %w", err)
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	o.ID = orderID
	o.Status = model.OrderStatusCreated
	txn.ID = txnID
	txn.OrderID = &orderID

	return orderID, txnID, nil
}

// GetOrder возвращает заказ пользователя с позициями.
func (r *PostgresRepository) GetOrder(ctx context.Context, userID, orderID int64) (*model.Order, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 AND user_id = $2`,
		orderID, userID,
	)
	o, err := scanOrder(row)
	if err != nil {
		return nil, err
	}

	items, err := r.orderItems(ctx, []int64{o.ID})
	if err != nil {
		return nil, err
	}
	o.Items = items[o.ID]

	return o, nil
}

// ListOrders возвращает заказы пользователя, новые первыми.
func (r *PostgresRepository) ListOrders(ctx context.Context, userID int64) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	var (
		orders []model.Order
		ids    []int64
	)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
		ids = append(ids, o.ID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	if len(ids) == 0 {
		return orders, nil
	}

	items, err := r.orderItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
	}

	return orders, nil
}

// UpdateOrderPaymentMethod меняет способ оплаты заказа, пока он не оплачен.
func (r *PostgresRepository) UpdateOrderPaymentMethod(ctx context.Context, userID, orderID int64, method model.PaymentMethod) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE orders SET payment_method = $3 WHERE id = $1 AND user_id = $2 AND status = $4`,
		orderID, userID, string(method), int(model.OrderStatusCreated),
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if cmdTag.RowsAffected() == 1 {
		return nil
	}

	var status int
	err = r.pool.QueryRow(ctx,
		`SELECT status FROM orders WHERE id = $1 AND user_id = $2`,
		orderID, userID,
	).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("select order status: %w", err)
	}

	return ErrOrderPaid
}

func (r *PostgresRepository) orderItems(ctx context.Context, orderIDs []int64) (map[int64][]model.OrderItem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT order_id, product_id, quantity, total, discounted_total, discounted, points, points_discounted
		 FROM order_items
		 WHERE order_id = ANY($1)
		 ORDER BY id`,
		orderIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("select order items: %w", err)
	}
	defer rows.Close()

	res := make(map[int64][]model.OrderItem, len(orderIDs))
	for rows.Next() {
		var (
			orderID                   int64
			it                        model.OrderItem
			totalCents, discountCents int64
		)
		if err := rows.Scan(&orderID, &it.ProductID, &it.Quantity, &totalCents, &discountCents,
			&it.Discounted, &it.Points, &it.PointsDiscounted); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		it.Total = fromCents(totalCents)
		it.DiscountedTotal = fromCents(discountCents)

		res[orderID] = append(res[orderID], it)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

func scanOrder(row scanner) (*model.Order, error) {
	var (
		o                    model.Order
		subtotal, tax, total int64
		status               int
		paymentMethod        *string
	)
	err := row.Scan(&o.ID, &o.UserID, &o.ItemCount, &subtotal, &tax, &total, &o.DeliveryAddress,
		&status, &paymentMethod, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}

	o.Subtotal = fromCents(subtotal)
	o.Tax = fromCents(tax)
	o.Total = fromCents(total)
	o.Status = model.OrderStatus(status)
	if paymentMethod != nil {
		m := model.PaymentMethod(*paymentMethod)
		o.PaymentMethod = &m
	}

	return &o, nil
}

func paymentMethodParam(m *model.PaymentMethod) *string {
	if m == nil {
		return nil
	}
	s := string(*m)
	return &s
}

package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgerrcode"

	"github.com/envirogo/envirogo-api/internal/model"
)

// GetCartItems возвращает корзину пользователя вместе с текущими данными товаров.
func (r *PostgresRepository) GetCartItems(ctx context.Context, userID int64) ([]model.CartItem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT c.id, c.user_id, c.quantity,
			p.id, p.name, p.category, p.sub_category, p.description, p.stock, p.price, p.point_price,
			p.on_sale, p.discount_percent, p.active, p.created_at
		 FROM cart_items c
		 JOIN products p ON p.id = c.product_id
		 WHERE c.user_id = $1
		 ORDER BY c.id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select cart items: %w", err)
	}
	defer rows.Close()

	var res []model.CartItem
	for rows.Next() {
		var (
			item       model.CartItem
			priceCents int64
		)
		p := &item.Product
		if err := rows.Scan(&item.ID, &item.UserID, &item.Quantity,
			&p.ID, &p.Name, &p.Category, &p.SubCategory, &p.Description, &p.Stock, &priceCents,
			&p.PointPrice, &p.OnSale, &p.DiscountPercent, &p.Active, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		p.Price = fromCents(priceCents)
		item.ProductID = p.ID

		res = append(res, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// AddCartItem кладёт товар в корзину. Если товар уже есть, количество суммируется.
func (r *PostgresRepository) AddCartItem(ctx context.Context, userID, productID int64, quantity int) (*model.CartItem, error) {
	item := model.CartItem{UserID: userID, ProductID: productID}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO cart_items (user_id, product_id, quantity) VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, product_id) DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
		 RETURNING id, quantity`,
		userID, productID, quantity,
	).Scan(&item.ID, &item.Quantity)
	if err != nil {
		if isPgError(err, pgerrcode.ForeignKeyViolation) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("add cart item: %w", err)
	}
	return &item, nil
}

// UpdateCartItem задаёт количество товара в позиции корзины.
func (r *PostgresRepository) UpdateCartItem(ctx context.Context, userID, itemID int64, quantity int) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE cart_items SET quantity = $3 WHERE id = $1 AND user_id = $2`,
		itemID, userID, quantity,
	)
	if err != nil {
		return fmt.Errorf("update cart item: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrCartItemNotFound
	}
	return nil
}

// RemoveCartItem удаляет позицию из корзины пользователя.
func (r *PostgresRepository) RemoveCartItem(ctx context.Context, userID, itemID int64) error {
	cmdTag, err := r.pool.Exec(ctx,
		`DELETE FROM cart_items WHERE id = $1 AND user_id = $2`,
		itemID, userID,
	)
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrCartItemNotFound
	}
	return nil
}

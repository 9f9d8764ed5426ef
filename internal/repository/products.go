package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/envirogo/envirogo-api/internal/model"
)

const productColumns = `id, name, category, sub_category, description, stock, price, point_price,
	on_sale, discount_percent, active, created_at`

// ListProducts возвращает товары каталога; при activeOnly только доступные к продаже.
func (r *PostgresRepository) ListProducts(ctx context.Context, activeOnly bool) ([]model.Product, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE (NOT $1 OR active) ORDER BY id`,
		activeOnly,
	)
	if err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	defer rows.Close()

	var res []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// GetProduct возвращает товар по идентификатору.
func (r *PostgresRepository) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	return scanProduct(row)
}

// CreateProduct добавляет товар в каталог.
func (r *PostgresRepository) CreateProduct(ctx context.Context, p *model.Product) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO products (name, category, sub_category, description, stock, price, point_price,
			on_sale, discount_percent, active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`,
		p.Name, p.Category, p.SubCategory, p.Description, p.Stock, toCents(p.Price), p.PointPrice,
		p.OnSale, p.DiscountPercent, p.Active,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create product: %w", err)
	}
	return id, nil
}

// UpdateProduct сохраняет все поля товара.
func (r *PostgresRepository) UpdateProduct(ctx context.Context, p *model.Product) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE products SET name = $2, category = $3, sub_category = $4, description = $5,
			stock = $6, price = $7, point_price = $8, on_sale = $9, discount_percent = $10, active = $11
		 WHERE id = $1`,
		p.ID, p.Name, p.Category, p.SubCategory, p.Description, p.Stock, toCents(p.Price), p.PointPrice,
		p.OnSale, p.DiscountPercent, p.Active,
	)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

func scanProduct(row scanner) (*model.Product, error) {
	var (
		p          model.Product
		priceCents int64
	)
	err := row.Scan(&p.ID, &p.Name, &p.Category, &p.SubCategory, &p.Description, &p.Stock,
		&priceCents, &p.PointPrice, &p.OnSale, &p.DiscountPercent, &p.Active, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("scan product: %w", err)
	}

	p.Price = fromCents(priceCents)

	return &p, nil
}

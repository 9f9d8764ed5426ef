package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/envirogo/envirogo-api/internal/model"
)

const userColumns = `id, email, name, password_hash, phone_number, account_type, cash, points,
	delivery_address, is_active, created_at`

// CreateUser создаёт нового пользователя и возвращает его идентификатор.
func (r *PostgresRepository) CreateUser(ctx context.Context, u *model.User) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (email, name, password_hash, phone_number, account_type, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		u.Email, u.Name, u.PasswordHash, u.PhoneNumber, int(u.AccountType), u.IsActive,
	).Scan(&id)
	if err != nil {
		if isPgError(err, pgerrcode.UniqueViolation) {
			return 0, fmt.Errorf("%w: %s", ErrUserExists, u.Email)
		}
		return 0, fmt.Errorf("create user: %w", err)
	}
	return id, nil
}

// GetUserByEmail возвращает пользователя по email.
func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

// GetUserByID возвращает пользователя по идентификатору.
func (r *PostgresRepository) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// UpdateUserProfile обновляет заданные поля профиля.
func (r *PostgresRepository) UpdateUserProfile(ctx context.Context, id int64, upd model.ProfileUpdate) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE users SET
			name = COALESCE($2, name),
			phone_number = COALESCE($3, phone_number),
			delivery_address = COALESCE($4, delivery_address)
		 WHERE id = $1`,
		id, upd.Name, upd.PhoneNumber, upd.DeliveryAddress,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ListUsers возвращает всех пользователей в порядке регистрации.
func (r *PostgresRepository) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("select users: %w", err)
	}
	defer rows.Close()

	var res []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// UpdateUser обновляет заданные администратором поля пользователя.
// Отрицательный баланс отклоняется ограничением таблицы и возвращается как *NegativeBalanceError.
func (r *PostgresRepository) UpdateUser(ctx context.Context, id int64, upd model.UserUpdate) error {
	var (
		accountType *int
		cashCents   *int64
	)
	if upd.AccountType != nil {
		v := int(*upd.AccountType)
		accountType = &v
	}
	if upd.Cash != nil {
		v := toCents(*upd.Cash)
		cashCents = &v
	}

	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE users SET
			email = COALESCE($2, email),
			name = COALESCE($3, name),
			phone_number = COALESCE($4, phone_number),
			delivery_address = COALESCE($5, delivery_address),
			account_type = COALESCE($6, account_type),
			cash = COALESCE($7, cash),
			points = COALESCE($8, points),
			is_active = COALESCE($9, is_active)
		 WHERE id = $1`,
		id, upd.Email, upd.Name, upd.PhoneNumber, upd.DeliveryAddress, accountType, cashCents,
		upd.Points, upd.IsActive,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		switch {
		case isPgError(err, pgerrcode.UniqueViolation):
			return fmt.Errorf("%w: %s", ErrUserExists, derefOr(upd.Email, ""))
		case errors.As(err, &pgErr) && pgErr.Code == pgerrcode.CheckViolation:
			return &NegativeBalanceError{Field: balanceField(pgErr.ConstraintName)}
		}
		return fmt.Errorf("update user: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// balanceField достаёт имя столбца из ограничения вида users_cash_check.
func balanceField(constraint string) string {
	field := strings.TrimSuffix(strings.TrimPrefix(constraint, "users_"), "_check")
	if field == "" || field == constraint {
		return "balance"
	}
	return field
}

func derefOr(s *string, def string) string {
	if s == nil {
		return def
	}
	return *s
}

func scanUser(row scanner) (*model.User, error) {
	var (
		u           model.User
		accountType int
		cashCents   int64
	)
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.PhoneNumber, &accountType,
		&cashCents, &u.Points, &u.DeliveryAddress, &u.IsActive, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	u.AccountType = model.AccountType(accountType)
	u.Cash = fromCents(cashCents)

	return &u, nil
}

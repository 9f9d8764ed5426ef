package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/envirogo/envirogo-api/internal/model"
	"github.com/envirogo/envirogo-api/internal/repository"
	"github.com/envirogo/envirogo-api/internal/validation"
)

// NewUser содержит данные пользователя, которого заводит администратор.
type NewUser struct {
	Email       string
	Name        string
	Password    string
	PhoneNumber string
	AccountType model.AccountType
	IsActive    bool
}

// ListUsers возвращает всех пользователей.
func (s *Service) ListUsers(ctx context.Context) ([]model.User, error) {
	return s.repo.ListUsers(ctx)
}

// CreateUser заводит пользователя с произвольным типом аккаунта. Телефон необязателен.
func (s *Service) CreateUser(ctx context.Context, in NewUser) (*model.User, error) {
	email := normalizeEmail(in.Email)
	name := strings.TrimSpace(in.Name)
	phone := strings.TrimSpace(in.PhoneNumber)

	errs := validation.Errors{}
	errs.Check(validation.IsValidEmail(email), "email", "must be a valid email address")
	errs.Check(name != "", "name", "must not be empty")
	errs.Check(validation.IsValidPassword(in.Password), "password",
		fmt.Sprintf("must be %d to %d characters", validation.PasswordMinLength, validation.PasswordMaxLength))
	errs.Check(phone == "" || validation.IsValidPhone(phone), "phone_number",
		fmt.Sprintf("must be %d digits", validation.PhoneLength))
	errs.Check(in.AccountType.Valid(), "account_type", "is unknown")
	if err := newValidationError(errs); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.passwordCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	id, err := s.repo.CreateUser(ctx, &model.User{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		PhoneNumber:  phone,
		AccountType:  in.AccountType,
		IsActive:     in.IsActive,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("user created by admin", zap.Int64("userID", id), zap.Int("accountType", int(in.AccountType)))
	return s.repo.GetUserByID(ctx, id)
}

// UpdateUser меняет переданные поля пользователя, включая баланс, тип аккаунта и активность.
func (s *Service) UpdateUser(ctx context.Context, userID int64, upd model.UserUpdate) (*model.User, error) {
	errs := validation.Errors{}
	if upd.Email != nil {
		email := normalizeEmail(*upd.Email)
		upd.Email = &email
		errs.Check(validation.IsValidEmail(email), "email", "must be a valid email address")
	}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		upd.Name = &name
		errs.Check(name != "", "name", "must not be empty")
	}
	if upd.PhoneNumber != nil {
		errs.Check(validation.IsValidPhone(*upd.PhoneNumber), "phone_number",
			fmt.Sprintf("must be %d digits", validation.PhoneLength))
	}
	if upd.DeliveryAddress != nil {
		addr := strings.TrimSpace(*upd.DeliveryAddress)
		upd.DeliveryAddress = &addr
	}
	if upd.AccountType != nil {
		errs.Check(upd.AccountType.Valid(), "account_type", "is unknown")
	}
	if upd.Cash != nil {
		errs.Check(!upd.Cash.IsNegative(), "cash", "must not be negative")
		errs.Check(upd.Cash.Equal(upd.Cash.Round(2)), "cash",
			"must have at most two decimal places")
	}
	if upd.Points != nil {
		errs.Check(*upd.Points >= 0, "points", "must not be negative")
	}
	if err := newValidationError(errs); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateUser(ctx, userID, upd); err != nil {
		var nerr *repository.NegativeBalanceError
		if errors.As(err, &nerr) {
			return nil, &ValidationError{Fields: map[string]string{nerr.Field: "must not be negative"}}
		}
		return nil, err
	}

	s.logger.Info("user updated by admin", zap.Int64("userID", userID))
	return s.repo.GetUserByID(ctx, userID)
}

// ValidateSession возвращает владельца действующей сессии. Удалённый пользователь даёт
// ErrSessionInvalid, отключённый администратором даёт ErrAccountInactive.
func (s *Service) ValidateSession(ctx context.Context, userID int64) (*model.User, error) {
	u, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrSessionInvalid
		}
		return nil, err
	}
	if !u.IsActive {
		return nil, ErrAccountInactive
	}
	return u, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/envirogo/envirogo-api/internal/model"
	"github.com/envirogo/envirogo-api/internal/repository"
	"github.com/envirogo/envirogo-api/internal/validation"
)

// Registration содержит данные нового пользователя.
type Registration struct {
	Email       string
	Name        string
	Password    string
	PhoneNumber string
}

// RegisterUser регистрирует нового пользователя с типом аккаунта «пользователь».
func (s *Service) RegisterUser(ctx context.Context, r Registration) (*model.User, error) {
	email := normalizeEmail(r.Email)
	name := strings.TrimSpace(r.Name)

	errs := validation.Errors{}
	errs.Check(validation.IsValidEmail(email), "email", "must be a valid email address")
	errs.Check(name != "", "name", "must not be empty")
	errs.Check(validation.IsValidPassword(r.Password), "password",
		fmt.Sprintf("must be %d to %d characters", validation.PasswordMinLength, validation.PasswordMaxLength))
	errs.Check(validation.IsValidPhone(r.PhoneNumber), "phone_number",
		fmt.Sprintf("must be %d digits", validation.PhoneLength))
	if err := newValidationError(errs); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(r.Password), s.passwordCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &model.User{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		PhoneNumber:  r.PhoneNumber,
		AccountType:  model.AccountTypeUser,
		IsActive:     true,
	}
	id, err := s.repo.CreateUser(ctx, u)
	if err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return nil, repository.ErrUserExists
		}
		return nil, err
	}

	return s.repo.GetUserByID(ctx, id)
}

// AuthenticateUser проверяет почту и пароль и возвращает пользователя.
func (s *Service) AuthenticateUser(ctx context.Context, email, password string) (*model.User, error) {
	u, err := s.repo.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, ErrAccountInactive
	}

	return u, nil
}

// GetUser возвращает профиль пользователя.
func (s *Service) GetUser(ctx context.Context, userID int64) (*model.User, error) {
	return s.repo.GetUserByID(ctx, userID)
}

// UpdateProfile меняет переданные поля профиля и возвращает обновлённого пользователя.
func (s *Service) UpdateProfile(ctx context.Context, userID int64, upd model.ProfileUpdate) (*model.User, error) {
	errs := validation.Errors{}
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
	if err := newValidationError(errs); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateUserProfile(ctx, userID, upd); err != nil {
		return nil, err
	}
	return s.repo.GetUserByID(ctx, userID)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

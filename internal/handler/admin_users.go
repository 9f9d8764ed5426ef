package handler

import (
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/envirogo/envirogo-api/internal/model"
	"github.com/envirogo/envirogo-api/internal/service"
)

type createUserRequest struct {
	Email       string `json:"email"`
	Name        string `json:"name"`
	Password    string `json:"password"`
	PhoneNumber string `json:"phone_number"`
	AccountType *int   `json:"account_type"`
	IsActive    *bool  `json:"is_active"`
}

type adminUpdateUserRequest struct {
	Email           *string          `json:"email"`
	Name            *string          `json:"name"`
	PhoneNumber     *string          `json:"phone_number"`
	DeliveryAddress *string          `json:"delivery_address"`
	AccountType     *int             `json:"account_type"`
	Cash            *decimal.Decimal `json:"cash"`
	Points          *int64           `json:"points"`
	IsActive        *bool            `json:"is_active"`
}

func (req adminUpdateUserRequest) update() model.UserUpdate {
	upd := model.UserUpdate{
		Email:           req.Email,
		Name:            req.Name,
		PhoneNumber:     req.PhoneNumber,
		DeliveryAddress: req.DeliveryAddress,
		Cash:            req.Cash,
		Points:          req.Points,
		IsActive:        req.IsActive,
	}
	if req.AccountType != nil {
		t := model.AccountType(*req.AccountType)
		upd.AccountType = &t
	}
	return upd
}

// AdminListUsers возвращает всех пользователей.
func (h *Handler) AdminListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.respondError(w, r, err, "list users error")
		return
	}

	resp := make([]userResponse, 0, len(users))
	for i := range users {
		resp = append(resp, newUserResponse(&users[i]))
	}
	h.writeJSON(w, r, resp, http.StatusOK)
}

// AdminCreateUser заводит пользователя. По умолчанию это активный обычный аккаунт.
func (h *Handler) AdminCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	in := service.NewUser{
		Email:       req.Email,
		Name:        req.Name,
		Password:    req.Password,
		PhoneNumber: req.PhoneNumber,
		AccountType: model.AccountTypeUser,
		IsActive:    true,
	}
	if req.AccountType != nil {
		in.AccountType = model.AccountType(*req.AccountType)
	}
	if req.IsActive != nil {
		in.IsActive = *req.IsActive
	}

	u, err := h.service.CreateUser(r.Context(), in)
	if err != nil {
		h.respondError(w, r, err, "create user error")
		return
	}
	h.writeJSON(w, r, newUserResponse(u), http.StatusCreated)
}

// AdminGetUser возвращает пользователя по идентификатору.
func (h *Handler) AdminGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	u, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err, "get user error", zap.Int64("userID", id))
		return
	}
	h.writeJSON(w, r, newUserResponse(u), http.StatusOK)
}

// AdminUpdateUser меняет поля пользователя, включая баланс и активность.
func (h *Handler) AdminUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	var req adminUpdateUserRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	u, err := h.service.UpdateUser(r.Context(), id, req.update())
	if err != nil {
		h.respondError(w, r, err, "update user error", zap.Int64("userID", id))
		return
	}
	h.writeJSON(w, r, newUserResponse(u), http.StatusOK)
}

package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/envirogo/envirogo-api/internal/model"
	"github.com/envirogo/envirogo-api/internal/service"
)

type registerRequest struct {
	Email       string `json:"email"`
	Name        string `json:"name"`
	Password    string `json:"password"`
	PhoneNumber string `json:"phone_number"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

type updateUserRequest struct {
	Name            *string `json:"name"`
	PhoneNumber     *string `json:"phone_number"`
	DeliveryAddress *string `json:"delivery_address"`
}

// Register обрабатывает регистрацию нового пользователя.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	u, err := h.service.RegisterUser(r.Context(), service.Registration{
		Email:       req.Email,
		Name:        req.Name,
		Password:    req.Password,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		h.respondError(w, r, err, "register user error")
		return
	}

	h.writeJSON(w, r, newUserResponse(u), http.StatusCreated)
}

// Login выполняет аутентификацию пользователя и выдаёт токен сессии.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	if req.Email == "" || req.Password == "" {
		h.writeError(w, r, "email and password are required", http.StatusBadRequest)
		return
	}

	u, err := h.service.AuthenticateUser(r.Context(), req.Email, req.Password)
	if err != nil {
		h.respondError(w, r, err, "login user error")
		return
	}

	token, err := h.authMiddleware.IssueToken(u.ID, u.AccountType)
	if err != nil {
		h.respondError(w, r, err, "issue token error", zap.Int64("userID", u.ID))
		return
	}

	h.writeJSON(w, r, loginResponse{Token: token, User: newUserResponse(u)}, http.StatusOK)
}

// GetUser возвращает профиль текущего пользователя.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	u, err := h.service.GetUser(r.Context(), userID)
	if err != nil {
		h.respondError(w, r, err, "get user error", zap.Int64("userID", userID))
		return
	}

	h.writeJSON(w, r, newUserResponse(u), http.StatusOK)
}

// UpdateUser меняет имя, телефон или адрес доставки текущего пользователя.
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var req updateUserRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	u, err := h.service.UpdateProfile(r.Context(), userID, model.ProfileUpdate{
		Name:            req.Name,
		PhoneNumber:     req.PhoneNumber,
		DeliveryAddress: req.DeliveryAddress,
	})
	if err != nil {
		h.respondError(w, r, err, "update user error", zap.Int64("userID", userID))
		return
	}

	h.writeJSON(w, r, newUserResponse(u), http.StatusOK)
}

type sessionResponse struct {
	User userResponse `json:"user"`
}

// ValidateSession подтверждает действующую сессию и возвращает её владельца.
func (h *Handler) ValidateSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	u, err := h.service.ValidateSession(r.Context(), userID)
	if err != nil {
		h.respondError(w, r, err, "validate session error", zap.Int64("userID", userID))
		return
	}

	h.writeJSON(w, r, sessionResponse{User: newUserResponse(u)}, http.StatusOK)
}

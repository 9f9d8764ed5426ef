package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/envirogo/envirogo-api/internal/gateway"
	"github.com/envirogo/envirogo-api/internal/repository"
	"github.com/envirogo/envirogo-api/internal/service"
)

const maxBodyBytes = 1 << 20

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// writeJSON пишет data как JSON-ответ с указанным кодом.
func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, data any, code int) {
	body, err := json.Marshal(data)
	if err != nil {
		h.logger.Error("marshal json response", zap.String("path", r.URL.Path), zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(code)
	_, _ = w.Write(body)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, msg string, code int) {
	h.writeJSON(w, r, errorResponse{Message: msg}, code)
}

// decodeJSON читает тело запроса в dst. На пустое или неразборчивое тело отвечает 400.
func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	defer r.Body.Close()

	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		msg := "invalid request body"
		if errors.Is(err, io.EOF) {
			msg = "request body is required"
		}
		h.writeError(w, r, msg, http.StatusBadRequest)
		return false
	}
	return true
}

// respondError переводит ошибку сервиса в HTTP-ответ. Неожиданные ошибки журналируются
// с переданными полями, клиент получает обезличенный ответ 500.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error, logMsg string, fields ...zap.Field) {
	var (
		verr *service.ValidationError
		gerr *gateway.Error
	)

	switch {
	case errors.As(err, &verr):
		h.writeJSON(w, r, errorResponse{Message: "validation failed", Errors: verr.Fields}, http.StatusBadRequest)

	case errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrEmptyCart),
		errors.Is(err, service.ErrMissingAddress),
		errors.Is(err, gateway.ErrMalformedEvent):
		h.writeError(w, r, err.Error(), http.StatusBadRequest)

	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrAccountInactive),
		errors.Is(err, service.ErrSessionInvalid):
		h.writeError(w, r, err.Error(), http.StatusUnauthorized)

	case errors.Is(err, repository.ErrUserNotFound),
		errors.Is(err, repository.ErrProductNotFound),
		errors.Is(err, repository.ErrCartItemNotFound),
		errors.Is(err, repository.ErrOrderNotFound),
		errors.Is(err, repository.ErrTransactionNotFound):
		h.writeError(w, r, notFoundMessage(err), http.StatusNotFound)

	case errors.Is(err, repository.ErrUserExists),
		errors.Is(err, repository.ErrOrderPaid):
		h.writeError(w, r, conflictMessage(err), http.StatusConflict)

	case errors.As(err, &gerr):
		if gerr.Rejected() {
			h.writeError(w, r, gerr.Message, http.StatusBadRequest)
			return
		}
		h.logger.Error(logMsg, append(fields, zap.Error(err))...)
		h.writeError(w, r, "payment gateway unavailable", http.StatusBadGateway)

	default:
		h.logger.Error(logMsg, append(fields, zap.Error(err))...)
		h.writeError(w, r, "internal server error", http.StatusInternalServerError)
	}
}

func notFoundMessage(err error) string {
	for _, target := range []error{
		repository.ErrUserNotFound,
		repository.ErrProductNotFound,
		repository.ErrCartItemNotFound,
		repository.ErrOrderNotFound,
		repository.ErrTransactionNotFound,
	} {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return "not found"
}

func conflictMessage(err error) string {
	if errors.Is(err, repository.ErrUserExists) {
		return "email is already registered"
	}
	return repository.ErrOrderPaid.Error()
}

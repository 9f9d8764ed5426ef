// Package gateway оборачивает внешний платёжный шлюз: создание платёжных намерений
// и разбор уведомлений о статусе платежа.
package gateway

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// StatusSucceeded содержит статус намерения после успешной оплаты.
const StatusSucceeded = "succeeded"

// ErrMalformedEvent возвращается для уведомлений, которые не удалось разобрать или проверить.
var ErrMalformedEvent = errors.New("malformed payment event")

var hundred = decimal.NewFromInt(100)

// Intent описывает созданное платёжное намерение.
type Intent struct {
	ID           string
	ClientSecret string
}

// Event описывает уведомление шлюза о смене статуса намерения.
type Event struct {
	ID       string
	Type     string
	IntentID string
	Status   string
}

// Error описывает неудачный вызов шлюза. Message содержит текст платёжной системы.
type Error struct {
	Message    string
	StatusCode int
	Code       string
	Err        error
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("payment gateway: %s (%s)", e.Message, e.Code)
	}
	return "payment gateway: " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Rejected сообщает, что платёжная система отклонила сам запрос (ошибка 4xx).
func (e *Error) Rejected() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// ToMinorUnits переводит сумму в основных единицах в минимальные (центы) с округлением.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

type eventEnvelope struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"object"`
	} `json:"data"`
}

func decodeEvent(payload []byte) (Event, error) {
	var env eventEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	if env.Data.Object.ID == "" {
		return Event{}, fmt.Errorf("%w: missing data.object.id", ErrMalformedEvent)
	}

	return Event{
		ID:       env.ID,
		Type:     env.Type,
		IntentID: env.Data.Object.ID,
		Status:   env.Data.Object.Status,
	}, nil
}

package gateway

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Mock это шлюз для локального запуска без ключа Stripe. Намерения только запоминаются,
// подписи уведомлений не проверяются.
type Mock struct {
	mu      sync.Mutex
	intents map[string]int64
	// FailWith, если задан, возвращается из CreateIntent.
	FailWith error
}

// NewMock создаёт пустой Mock.
func NewMock() *Mock {
	return &Mock{intents: make(map[string]int64)}
}

// CreateIntent выдаёт новые идентификатор и секрет.
func (m *Mock) CreateIntent(_ context.Context, amountMinor int64, currency string) (Intent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWith != nil {
		return Intent{}, m.FailWith
	}
	if amountMinor <= 0 {
		return Intent{}, &Error{Message: "amount must be positive", StatusCode: 400, Code: "amount_too_small"}
	}
	if currency == "" {
		return Intent{}, &Error{Message: "currency is required", StatusCode: 400, Code: "parameter_missing"}
	}

	id := "pi_mock_" + uuid.NewString()
	m.intents[id] = amountMinor

	return Intent{
		ID:           id,
		ClientSecret: fmt.Sprintf("%s_secret_%s", id, uuid.NewString()),
	}, nil
}

// Amount возвращает сумму созданного намерения.
func (m *Mock) Amount(intentID string) (int64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.intents[intentID]
	return v, ok
}

// ParseEvent разбирает уведомление без проверки подписи.
func (m *Mock) ParseEvent(payload []byte, _ string) (Event, error) {
	return decodeEvent(payload)
}

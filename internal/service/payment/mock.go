package payment

import "github.com/saveup/marketplace/internal/domain"

// MockGateway — конфигурируемая заглушка RefundGateway для тестов.
type MockGateway struct {
	RefundStatus domain.RefundStatus
	RefundErr    error

	RefundCalls  int
	Instructions []domain.RefundInstruction
}

// NewMockGateway возвращает mock с успешным сценарием по умолчанию.
func NewMockGateway() *MockGateway {
	return &MockGateway{RefundStatus: domain.RefundStatusProcessed}
}

// Refund возвращает настроенный результат, считает вызовы и
// запоминает переданные инструкции.
func (m *MockGateway) Refund(instruction domain.RefundInstruction) (domain.RefundStatus, error) {
	m.RefundCalls++
	m.Instructions = append(m.Instructions, instruction)
	return m.RefundStatus, m.RefundErr
}

var _ domain.RefundGateway = (*MockGateway)(nil)

package app

import (
	"chat_relay_service/internal/relay/domain"

	"github.com/stretchr/testify/mock"
)

// MockParticipantRepository Mock ParticipantRepository
type MockParticipantRepository struct {
	mock.Mock
}

// FindByID moke find participant by id
func (m *MockParticipantRepository) FindByID(id string) (domain.Participant, bool) {
	args := m.Called(id)
	return args.Get(0).(domain.Participant), args.Bool(1)
}

// Search moke search participant by keyword
func (m *MockParticipantRepository) Search(keyword string) []domain.Participant {
	args := m.Called(keyword)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Participant)
	}
	return nil
}

// All moke get all participants
func (m *MockParticipantRepository) All() []domain.Participant {
	args := m.Called()
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Participant)
	}
	return nil
}

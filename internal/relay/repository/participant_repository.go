package repository

import (
	"strings"

	"chat_relay_service/internal/relay/domain"

	"github.com/samber/lo"
)

// ParticipantRepository definition participant directory
// 目錄載入後唯讀,可多 goroutine 共用
type ParticipantRepository interface {
	FindByID(id string) (domain.Participant, bool)
	Search(keyword string) []domain.Participant
	All() []domain.Participant
}

type participantRepository struct {
	participants []domain.Participant // 保持載入順序
	byID         map[string]domain.Participant
}

// NewParticipantRepository create in-memory participant directory
func NewParticipantRepository(participants []domain.Participant) ParticipantRepository {
	r := &participantRepository{
		participants: append([]domain.Participant(nil), participants...),
		byID:         make(map[string]domain.Participant, len(participants)),
	}
	for _, p := range r.participants {
		r.byID[p.ID] = p
	}
	return r
}

// FindByID find participant by id
func (r *participantRepository) FindByID(id string) (domain.Participant, bool) {
	p, ok := r.byID[id]
	return p, ok
}

// Search 大小寫不敏感的子字串比對,name 或 id 擇一命中即可
// 結果維持載入順序,同一人最多出現一次
func (r *participantRepository) Search(keyword string) []domain.Participant {
	kw := strings.ToLower(keyword)
	return lo.Filter(r.participants, func(p domain.Participant, _ int) bool {
		return strings.Contains(strings.ToLower(p.Name), kw) ||
			strings.Contains(strings.ToLower(p.ID), kw)
	})
}

// All 完整參與者名單 (複本)
func (r *participantRepository) All() []domain.Participant {
	return append([]domain.Participant(nil), r.participants...)
}

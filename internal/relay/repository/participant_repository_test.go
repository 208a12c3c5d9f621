package repository

import (
	"testing"

	"chat_relay_service/internal/relay/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedDirectory() ParticipantRepository {
	return NewParticipantRepository([]domain.Participant{
		{ID: "1", Name: "Alice", Avatar: "👩"},
		{ID: "2", Name: "李四", Avatar: "👨"},
		{ID: "9", Name: "Oliver", Avatar: "🧑"},
	})
}

// 測試 FindByID
func TestParticipantRepository_FindByID(t *testing.T) {
	repo := seedDirectory()

	p, ok := repo.FindByID("2")
	require.True(t, ok)
	assert.Equal(t, "李四", p.Name)

	_, ok = repo.FindByID("999")
	assert.False(t, ok)
}

// 測試大小寫不敏感的子字串搜尋,name 或 id 擇一命中
func TestParticipantRepository_Search(t *testing.T) {
	repo := seedDirectory()

	// "li" 同時是 Alice 與 Oliver 的子字串
	result := repo.Search("li")
	require.Len(t, result, 2)
	assert.Equal(t, "Alice", result[0].Name)
	assert.Equal(t, "Oliver", result[1].Name)

	// 大小寫不敏感
	result = repo.Search("OLIVER")
	require.Len(t, result, 1)
	assert.Equal(t, "9", result[0].ID)

	// CJK 名稱
	result = repo.Search("李")
	require.Len(t, result, 1)
	assert.Equal(t, "2", result[0].ID)

	// id 命中
	result = repo.Search("9")
	require.Len(t, result, 1)
	assert.Equal(t, "Oliver", result[0].Name)

	assert.Empty(t, repo.Search("nobody"))
}

// name 與 id 同時命中也只出現一次,且維持載入順序
func TestParticipantRepository_SearchNoDuplicates(t *testing.T) {
	repo := NewParticipantRepository([]domain.Participant{
		{ID: "li", Name: "Alice"},
		{ID: "2", Name: "Bob"},
	})

	result := repo.Search("li")
	require.Len(t, result, 1)
	assert.Equal(t, "li", result[0].ID)
}

// 測試 All 回傳複本,呼叫端修改不影響目錄
func TestParticipantRepository_AllReturnsCopy(t *testing.T) {
	repo := seedDirectory()

	all := repo.All()
	require.Len(t, all, 3)
	all[0].Name = "mutated"

	fresh := repo.All()
	assert.Equal(t, "Alice", fresh[0].Name)
}

package domain

// Participant 聊天參與者,目錄載入後不可變 (本設計不含自助修改個人資料)
type Participant struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// ParticipantFinder mention resolve 所需的目錄查詢
type ParticipantFinder interface {
	FindByID(id string) (Participant, bool)
}

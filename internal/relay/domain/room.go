package domain

import "time"

// ChatRoom 聊天室元資料
// history 與 membership 由 room worker 獨佔持有,不放在這裡
type ChatRoom struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ChatMessage 一則已發布的訊息,建立後不可變
type ChatMessage struct {
	ID              string      `json:"id"` // unix millis + 房間內遞增序號
	RoomID          string      `json:"room_id"`
	Sender          Participant `json:"sender"` // 發送當下的快照
	RawContent      string      `json:"raw_content"`
	RenderedContent string      `json:"content"`
	Mentions        []Mention   `json:"mentions,omitempty"`
	CreatedAt       time.Time   `json:"timestamp"`
}

package domain

// Action websocket request action
type Action string

const (
	// SelectParticipant websocket action select_participant
	SelectParticipant Action = "select_participant"
	// JoinRoom websocket action join_room
	JoinRoom Action = "join_room"
	// SendMessage websocket action send_message
	SendMessage Action = "send_message"
	// SearchUsers websocket action search_users
	SearchUsers Action = "search_users"

	// UsersList 連線時推送參與者目錄
	UsersList Action = "users_list"
	// RoomsList 連線時推送房間列表
	RoomsList Action = "rooms_list"
	// RoomMessages join 成功後推送該房間 history (只給本人)
	RoomMessages Action = "room_messages"
	// NewMessage 房間 fan-out
	NewMessage Action = "new_message"
	// UserMentioned 針對被提及者的通知 (不做全域廣播)
	UserMentioned Action = "user_mentioned"
	// SearchResults search_users 的回覆
	SearchResults Action = "search_results"
)

// WSRequest websocket Request
type WSRequest struct {
	Action        string `json:"action" validate:"required"`
	ParticipantID string `json:"participant_id,omitempty"`
	RoomID        string `json:"room_id,omitempty"`
	Content       string `json:"content,omitempty"`
	Keyword       string `json:"keyword,omitempty"`
}

// WSResponse websocket Response
type WSResponse struct {
	Action  string                 `json:"action"`
	Success bool                   `json:"success"`
	Payload map[string]interface{} `json:"payload,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

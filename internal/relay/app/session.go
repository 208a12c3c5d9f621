package app

import (
	"errors"
	"sync"

	"chat_relay_service/internal/relay/domain"
)

// session 出站 buffer 大小,滿了就丟棄 (best-effort)
const sessionSendBuffer = 64

// Session 一條 websocket 連線的狀態
// 只持有 id 引用,房間資料一律經由 broker 操作
type Session struct {
	ID string

	mu            sync.RWMutex
	participantID string
	currentRoomID string
	closed        bool
	out           chan domain.WSResponse
}

// NewSession create session
func NewSession(id string) *Session {
	return &Session{
		ID:  id,
		out: make(chan domain.WSResponse, sessionSendBuffer),
	}
}

// BindParticipant 綁定身分,僅允許設定一次
func (s *Session) BindParticipant(participantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.participantID != "" && s.participantID != participantID {
		return errors.New("participant already bound")
	}
	s.participantID = participantID
	return nil
}

// ParticipantID 已綁定的 participant id,未綁定為空字串
func (s *Session) ParticipantID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.participantID
}

// CurrentRoomID 目前所在房間,未加入為空字串
func (s *Session) CurrentRoomID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentRoomID
}

func (s *Session) setRoom(roomID string) {
	s.mu.Lock()
	s.currentRoomID = roomID
	s.mu.Unlock()
}

// Deliver 非阻塞送出;連線已關閉或 buffer 滿時回傳 false
// 可與 Close 並發呼叫
func (s *Session) Deliver(resp domain.WSResponse) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false
	}
	select {
	case s.out <- resp:
		return true
	default:
		return false
	}
}

// Outbound 出站 channel,由 writer goroutine 消化
func (s *Session) Outbound() <-chan domain.WSResponse {
	return s.out
}

// Close 關閉出站 channel,重複呼叫為 no-op
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.out)
}

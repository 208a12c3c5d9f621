package app

import (
	"context"
	"strings"
	"sync"

	"chat_relay_service/internal/relay/domain"
	"chat_relay_service/internal/relay/repository"
	errprocess "chat_relay_service/pkg/err"
)

// Broker 擁有全部房間與 session registry
// 房間狀態的變更一律經由所屬 room worker 序列化
type Broker struct {
	directory repository.ParticipantRepository
	rooms     map[string]*RoomWorker // 啟動後唯讀
	roomList  []domain.ChatRoom      // 保持設定順序

	mu            sync.RWMutex
	sessions      map[string]*Session
	byParticipant map[string]map[string]*Session

	cancel context.CancelFunc
}

// NewBroker create relay broker
func NewBroker(
	directory repository.ParticipantRepository,
	rooms []domain.ChatRoom,
	historyMax int,
	previewLimit int,
) *Broker {
	b := &Broker{
		directory:     directory,
		rooms:         make(map[string]*RoomWorker, len(rooms)),
		roomList:      append([]domain.ChatRoom(nil), rooms...),
		sessions:      make(map[string]*Session),
		byParticipant: make(map[string]map[string]*Session),
	}
	for _, meta := range rooms {
		b.rooms[meta.ID] = NewRoomWorker(meta, historyMax, previewLimit, directory, b.sessionsFor)
	}
	return b
}

// Start 啟動所有 room worker
func (b *Broker) Start(ctx context.Context) {
	ctx, b.cancel = context.WithCancel(ctx)
	for _, w := range b.rooms {
		go w.Run(ctx)
	}
}

// Stop 停止所有 room worker
func (b *Broker) Stop() {
	if b.cancel != nil {
		b.cancel()
	}
}

// Register 登錄新連線
func (b *Broker) Register(sess *Session) {
	b.mu.Lock()
	b.sessions[sess.ID] = sess
	b.mu.Unlock()
}

// Unregister 連線終止:隱含 leave、移除索引並關閉出站 channel
// 與同一 session 進行中的 Publish 並發執行是安全的
func (b *Broker) Unregister(ctx context.Context, sessionID string) {
	b.mu.Lock()
	sess, ok := b.sessions[sessionID]
	if !ok {
		b.mu.Unlock()
		return
	}
	delete(b.sessions, sessionID)
	if pid := sess.ParticipantID(); pid != "" {
		if bound, ok := b.byParticipant[pid]; ok {
			delete(bound, sessionID)
			if len(bound) == 0 {
				delete(b.byParticipant, pid)
			}
		}
	}
	b.mu.Unlock()

	// 不能持鎖等 worker,worker 發通知時會反過來讀 registry
	if roomID := sess.CurrentRoomID(); roomID != "" {
		if w, ok := b.rooms[roomID]; ok {
			_ = w.Leave(ctx, sessionID)
		}
	}
	sess.Close()
}

// BindParticipant select_participant:把 session 綁定到目錄中的 participant
func (b *Broker) BindParticipant(sessionID, participantID string) (domain.Participant, error) {
	p, ok := b.directory.FindByID(participantID)
	if !ok {
		return domain.Participant{}, errprocess.ErrParticipantNotFound
	}
	sess, err := b.session(sessionID)
	if err != nil {
		return domain.Participant{}, err
	}
	if err := sess.BindParticipant(p.ID); err != nil {
		return domain.Participant{}, err
	}

	b.mu.Lock()
	bound, ok := b.byParticipant[p.ID]
	if !ok {
		bound = make(map[string]*Session)
		b.byParticipant[p.ID] = bound
	}
	bound[sessionID] = sess
	b.mu.Unlock()

	return p, nil
}

// Join 把 session 移入指定房間 (同時最多在一個房間)
// 成功時回傳該房間的 history 快照,只給發起的 session
func (b *Broker) Join(ctx context.Context, sessionID, roomID string) ([]domain.ChatMessage, error) {
	sess, err := b.session(sessionID)
	if err != nil {
		return nil, err
	}
	if sess.ParticipantID() == "" {
		return nil, errprocess.ErrUnknownSender
	}
	w, ok := b.rooms[roomID]
	if !ok {
		return nil, errprocess.ErrRoomNotFound
	}

	// 先退舊房再進新房,任何時刻都不會同時在兩個房間
	if cur := sess.CurrentRoomID(); cur != "" && cur != roomID {
		if old, ok := b.rooms[cur]; ok {
			if err := old.Leave(ctx, sessionID); err != nil {
				return nil, err
			}
		}
	}
	history, err := w.Join(ctx, sess)
	if err != nil {
		return nil, err
	}
	sess.setRoom(roomID)
	return history, nil
}

// Leave 離開目前房間,沒有房間時為 no-op
func (b *Broker) Leave(ctx context.Context, sessionID string) error {
	sess, err := b.session(sessionID)
	if err != nil {
		return err
	}
	cur := sess.CurrentRoomID()
	if cur == "" {
		return nil
	}
	if w, ok := b.rooms[cur]; ok {
		if err := w.Leave(ctx, sessionID); err != nil {
			return err
		}
	}
	sess.setRoom("")
	return nil
}

// Publish 發布訊息到 session 目前的房間
func (b *Broker) Publish(ctx context.Context, sessionID, content string) (domain.ChatMessage, error) {
	sess, err := b.session(sessionID)
	if err != nil {
		return domain.ChatMessage{}, err
	}
	pid := sess.ParticipantID()
	if pid == "" {
		return domain.ChatMessage{}, errprocess.ErrUnknownSender
	}
	roomID := sess.CurrentRoomID()
	if roomID == "" {
		return domain.ChatMessage{}, errprocess.ErrNotJoined
	}
	if strings.TrimSpace(content) == "" {
		return domain.ChatMessage{}, errprocess.ErrEmptyContent
	}
	sender, ok := b.directory.FindByID(pid)
	if !ok {
		return domain.ChatMessage{}, errprocess.ErrUnknownSender
	}
	w, ok := b.rooms[roomID]
	if !ok {
		return domain.ChatMessage{}, errprocess.ErrRoomNotFound
	}
	return w.Publish(ctx, sender, content)
}

// Search 委派給目錄;空 keyword 退回完整名單
// roomID 先收下,之後才會做 room-scoped 搜尋
func (b *Broker) Search(keyword, roomID string) []domain.Participant {
	_ = roomID
	if strings.TrimSpace(keyword) == "" {
		return b.directory.All()
	}
	return b.directory.Search(keyword)
}

// Participants 完整參與者名單
func (b *Broker) Participants() []domain.Participant {
	return b.directory.All()
}

// Rooms 房間列表 (設定順序)
func (b *Broker) Rooms() []domain.ChatRoom {
	return append([]domain.ChatRoom(nil), b.roomList...)
}

// RoomHistory 指定房間的 history 快照 (REST 查詢用)
func (b *Broker) RoomHistory(ctx context.Context, roomID string) ([]domain.ChatMessage, error) {
	w, ok := b.rooms[roomID]
	if !ok {
		return nil, errprocess.ErrRoomNotFound
	}
	return w.Snapshot(ctx)
}

func (b *Broker) session(sessionID string) (*Session, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	sess, ok := b.sessions[sessionID]
	if !ok {
		return nil, errprocess.ErrUnknownSender
	}
	return sess, nil
}

// sessionsFor 目前綁定指定 participant 的所有 session
func (b *Broker) sessionsFor(participantID string) []*Session {
	b.mu.RLock()
	defer b.mu.RUnlock()
	bound, ok := b.byParticipant[participantID]
	if !ok {
		return nil
	}
	targets := make([]*Session, 0, len(bound))
	for _, sess := range bound {
		targets = append(targets, sess)
	}
	return targets
}

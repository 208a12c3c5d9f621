package app

import (
	"context"
	"fmt"
	"time"

	"chat_relay_service/internal/relay/domain"
	"chat_relay_service/pkg"
)

// NotifyTargets 回傳目前綁定某 participant 的所有 session
// 由 broker 提供,worker 發提及通知時使用
type NotifyTargets func(participantID string) []*Session

// RoomWorker 以單一 goroutine 獨佔一個房間的 history 與 membership
// 所有變更都經由 commands channel 序列化,不同房間互不阻塞
type RoomWorker struct {
	meta         domain.ChatRoom
	historyMax   int
	previewLimit int
	directory    domain.ParticipantFinder
	targets      NotifyTargets

	history  []domain.ChatMessage
	members  map[string]*Session
	seq      uint64
	commands chan interface{}
}

type joinCmd struct {
	sess  *Session
	reply chan []domain.ChatMessage
}

type leaveCmd struct {
	sessionID string
	reply     chan struct{}
}

type publishCmd struct {
	sender  domain.Participant
	content string
	reply   chan publishResult
}

type publishResult struct {
	msg domain.ChatMessage
}

type snapshotCmd struct {
	reply chan []domain.ChatMessage
}

// NewRoomWorker create room worker
func NewRoomWorker(
	meta domain.ChatRoom,
	historyMax int,
	previewLimit int,
	directory domain.ParticipantFinder,
	targets NotifyTargets,
) *RoomWorker {
	return &RoomWorker{
		meta:         meta,
		historyMax:   historyMax,
		previewLimit: previewLimit,
		directory:    directory,
		targets:      targets,
		members:      make(map[string]*Session),
		commands:     make(chan interface{}),
	}
}

// Meta 房間元資料
func (w *RoomWorker) Meta() domain.ChatRoom {
	return w.meta
}

// Run 消化房間命令直到 ctx 結束
func (w *RoomWorker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-w.commands:
			switch c := cmd.(type) {
			case joinCmd:
				w.addMember(c.sess)
				c.reply <- w.snapshotHistory()
			case leaveCmd:
				delete(w.members, c.sessionID) // 不在房內也是 no-op
				c.reply <- struct{}{}
			case publishCmd:
				c.reply <- publishResult{msg: w.publish(c.sender, c.content)}
			case snapshotCmd:
				c.reply <- w.snapshotHistory()
			}
		}
	}
}

// Join 加入房間並取得 history 快照,已是成員時等同重新取快照
func (w *RoomWorker) Join(ctx context.Context, sess *Session) ([]domain.ChatMessage, error) {
	cmd := joinCmd{sess: sess, reply: make(chan []domain.ChatMessage, 1)}
	select {
	case w.commands <- cmd:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case history := <-cmd.reply:
		return history, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Leave 離開房間,非成員為 no-op
func (w *RoomWorker) Leave(ctx context.Context, sessionID string) error {
	cmd := leaveCmd{sessionID: sessionID, reply: make(chan struct{}, 1)}
	select {
	case w.commands <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-cmd.reply:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Publish 發布訊息:parse -> resolve -> render -> append -> fan-out -> 提及通知
func (w *RoomWorker) Publish(ctx context.Context, sender domain.Participant, content string) (domain.ChatMessage, error) {
	cmd := publishCmd{sender: sender, content: content, reply: make(chan publishResult, 1)}
	select {
	case w.commands <- cmd:
	case <-ctx.Done():
		return domain.ChatMessage{}, ctx.Err()
	}
	select {
	case result := <-cmd.reply:
		return result.msg, nil
	case <-ctx.Done():
		return domain.ChatMessage{}, ctx.Err()
	}
}

// Snapshot 取得 history 快照 (複本,呼叫端唯讀)
func (w *RoomWorker) Snapshot(ctx context.Context) ([]domain.ChatMessage, error) {
	cmd := snapshotCmd{reply: make(chan []domain.ChatMessage, 1)}
	select {
	case w.commands <- cmd:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case history := <-cmd.reply:
		return history, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (w *RoomWorker) addMember(sess *Session) {
	if _, ok := w.members[sess.ID]; ok {
		return
	}
	w.members[sess.ID] = sess
}

func (w *RoomWorker) snapshotHistory() []domain.ChatMessage {
	return append([]domain.ChatMessage(nil), w.history...)
}

// publish 只會在 worker goroutine 內執行
func (w *RoomWorker) publish(sender domain.Participant, content string) domain.ChatMessage {
	tokens := domain.ParseMentions(content)
	mentions := domain.ResolveMentions(tokens, w.directory)

	// 同一毫秒多則訊息靠序號區分
	w.seq++
	now := time.Now()
	msg := domain.ChatMessage{
		ID:              fmt.Sprintf("%d-%d", now.UnixMilli(), w.seq),
		RoomID:          w.meta.ID,
		Sender:          sender,
		RawContent:      content,
		RenderedContent: domain.RenderContent(content, mentions),
		Mentions:        mentions,
		CreatedAt:       now,
	}

	w.history = append(w.history, msg)
	if len(w.history) > w.historyMax {
		copy(w.history, w.history[1:])
		w.history = w.history[:w.historyMax]
	}

	// fan-out 給房間所有成員 (含發送者)
	fanout := domain.WSResponse{
		Action:  string(domain.NewMessage),
		Success: true,
		Payload: map[string]interface{}{"message": msg},
	}
	for _, member := range w.members {
		member.Deliver(fanout)
	}

	// 只通知綁定被提及 participant 的 session,不做全域廣播
	preview := pkg.FirstRunes(content, w.previewLimit)
	for _, m := range mentions {
		notice := domain.WSResponse{
			Action:  string(domain.UserMentioned),
			Success: true,
			Payload: map[string]interface{}{
				"participant_id": m.ParticipantID,
				"message_id":     msg.ID,
				"room_id":        w.meta.ID,
				"sender_name":    sender.Name,
				"preview":        preview,
			},
		}
		for _, target := range w.targets(m.ParticipantID) {
			target.Deliver(notice)
		}
	}

	return msg
}

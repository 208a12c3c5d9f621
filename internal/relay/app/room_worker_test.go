package app

import (
	"context"
	"fmt"
	"testing"

	"chat_relay_service/internal/relay/domain"
	"chat_relay_service/internal/relay/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testRoom = domain.ChatRoom{ID: "general", Name: "綜合聊天室"}

func startWorker(t *testing.T, historyMax int, targets NotifyTargets) *RoomWorker {
	t.Helper()
	directory := repository.NewParticipantRepository([]domain.Participant{
		{ID: "1", Name: "张三"},
		{ID: "2", Name: "李四"},
	})
	if targets == nil {
		targets = func(string) []*Session { return nil }
	}
	w := NewRoomWorker(testRoom, historyMax, 50, directory, targets)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go w.Run(ctx)
	return w
}

// 取出 session buffer 內目前所有出站訊息
func drain(sess *Session) []domain.WSResponse {
	var out []domain.WSResponse
	for {
		select {
		case resp := <-sess.Outbound():
			out = append(out, resp)
		default:
			return out
		}
	}
}

// history 超過上限時淘汰最舊的一則
func TestRoomWorker_HistoryEviction(t *testing.T) {
	ctx := context.Background()
	w := startWorker(t, 5, nil)
	sender := domain.Participant{ID: "1", Name: "张三"}

	for i := 1; i <= 7; i++ {
		_, err := w.Publish(ctx, sender, fmt.Sprintf("msg-%d", i))
		require.NoError(t, err)
	}

	history, err := w.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, history, 5)
	assert.Equal(t, "msg-3", history[0].RawContent)
	assert.Equal(t, "msg-7", history[4].RawContent)
}

// 同一毫秒的多則訊息 id 仍不重複
func TestRoomWorker_UniqueMessageIDs(t *testing.T) {
	ctx := context.Background()
	w := startWorker(t, 100, nil)
	sender := domain.Participant{ID: "1", Name: "张三"}

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		msg, err := w.Publish(ctx, sender, "burst")
		require.NoError(t, err)
		assert.False(t, seen[msg.ID], "duplicate id %s", msg.ID)
		seen[msg.ID] = true
	}
}

// fan-out 給全部成員,包含發送者自己
func TestRoomWorker_FanOutIncludesSender(t *testing.T) {
	ctx := context.Background()
	w := startWorker(t, 10, nil)

	sessA := NewSession("sess-a")
	sessB := NewSession("sess-b")
	_, err := w.Join(ctx, sessA)
	require.NoError(t, err)
	_, err = w.Join(ctx, sessB)
	require.NoError(t, err)

	msg, err := w.Publish(ctx, domain.Participant{ID: "1", Name: "张三"}, "hello room")
	require.NoError(t, err)

	for _, sess := range []*Session{sessA, sessB} {
		out := drain(sess)
		require.Len(t, out, 1)
		assert.Equal(t, string(domain.NewMessage), out[0].Action)
		got := out[0].Payload["message"].(domain.ChatMessage)
		assert.Equal(t, msg.ID, got.ID)
		assert.Equal(t, "hello room", got.RawContent)
	}
}

// 重複 join 不會造成同一 session 收到兩份
func TestRoomWorker_JoinIdempotent(t *testing.T) {
	ctx := context.Background()
	w := startWorker(t, 10, nil)

	sess := NewSession("sess-a")
	_, err := w.Join(ctx, sess)
	require.NoError(t, err)
	_, err = w.Join(ctx, sess)
	require.NoError(t, err)

	_, err = w.Publish(ctx, domain.Participant{ID: "1", Name: "张三"}, "once")
	require.NoError(t, err)
	assert.Len(t, drain(sess), 1)
}

// join 回傳的 history 與之後的 Snapshot 都是複本
func TestRoomWorker_SnapshotIsCopy(t *testing.T) {
	ctx := context.Background()
	w := startWorker(t, 10, nil)
	sender := domain.Participant{ID: "1", Name: "张三"}

	_, err := w.Publish(ctx, sender, "original")
	require.NoError(t, err)

	first, err := w.Snapshot(ctx)
	require.NoError(t, err)
	first[0].RawContent = "mutated"

	second, err := w.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "original", second[0].RawContent)
}

// 提及通知只送給 targets 回傳的 session,不進房間 fan-out 以外的名單
func TestRoomWorker_MentionNotice(t *testing.T) {
	ctx := context.Background()
	mentioned := NewSession("sess-li")
	w := startWorker(t, 10, func(participantID string) []*Session {
		if participantID == "2" {
			return []*Session{mentioned}
		}
		return nil
	})

	sender := domain.Participant{ID: "1", Name: "张三"}
	msg, err := w.Publish(ctx, sender, "hi @[李四](2) 開會了")
	require.NoError(t, err)
	require.Len(t, msg.Mentions, 1)

	out := drain(mentioned)
	require.Len(t, out, 1)
	assert.Equal(t, string(domain.UserMentioned), out[0].Action)
	assert.Equal(t, "2", out[0].Payload["participant_id"])
	assert.Equal(t, msg.ID, out[0].Payload["message_id"])
	assert.Equal(t, "general", out[0].Payload["room_id"])
	assert.Equal(t, "张三", out[0].Payload["sender_name"])
	assert.Equal(t, "hi @[李四](2) 開會了", out[0].Payload["preview"])
}

// preview 超過上限時以 rune 截斷
func TestRoomWorker_MentionPreviewTruncated(t *testing.T) {
	ctx := context.Background()
	mentioned := NewSession("sess-li")
	directory := repository.NewParticipantRepository([]domain.Participant{
		{ID: "2", Name: "李四"},
	})
	w := NewRoomWorker(testRoom, 10, 15, directory, func(string) []*Session {
		return []*Session{mentioned}
	})
	runCtx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go w.Run(runCtx)

	content := "@[李四](2) 這是一段超過上限的長訊息內容"
	_, err := w.Publish(ctx, domain.Participant{ID: "1", Name: "张三"}, content)
	require.NoError(t, err)

	out := drain(mentioned)
	require.Len(t, out, 1)
	preview := out[0].Payload["preview"].(string)
	assert.Equal(t, 15, len([]rune(preview)))
	assert.Equal(t, string([]rune(content)[:15]), preview)
}

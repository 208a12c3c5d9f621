package composer

import (
	"testing"

	"chat_relay_service/internal/relay/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var knownParticipants = []domain.Participant{
	{ID: "1", Name: "张三"},
	{ID: "2", Name: "李四"},
	{ID: "9", Name: "Oliver"},
}

func typeText(c *Composer, s string) []Update {
	var updates []Update
	for _, r := range s {
		updates = append(updates, c.InsertRune(r))
	}
	return updates
}

// '@' 觸發 composing,候選為完整名單且不發請求
func TestComposer_TriggerOpensFullList(t *testing.T) {
	c := NewComposer(knownParticipants)

	update := c.InsertRune(Trigger)
	assert.Equal(t, StateComposing, c.State())
	assert.Equal(t, DirectiveNone, update.Directive)
	assert.Len(t, c.Candidates(), 3)
	assert.Equal(t, -1, c.Selected())
}

// '@' 之後每個字元都更新 searchText 並要求 search
func TestComposer_SearchTextFollowsTyping(t *testing.T) {
	c := NewComposer(knownParticipants)
	typeText(c, "hey @")

	updates := typeText(c, "li")
	require.Len(t, updates, 2)
	assert.Equal(t, DirectiveSearch, updates[0].Directive)
	assert.Equal(t, "l", updates[0].Keyword)
	assert.Equal(t, DirectiveSearch, updates[1].Directive)
	assert.Equal(t, "li", updates[1].Keyword)
	assert.Equal(t, "li", c.SearchText())
}

// backspace 刪回 '@' 時退回完整名單,再刪掉 '@' 就回到 Idle
func TestComposer_BackspaceToTriggerAndOut(t *testing.T) {
	c := NewComposer(knownParticipants)
	typeText(c, "@li")

	c.Backspace()
	c.Backspace()
	assert.Equal(t, StateComposing, c.State())
	assert.Equal(t, "", c.SearchText())
	assert.Len(t, c.Candidates(), 3)

	c.Backspace()
	assert.Equal(t, StateIdle, c.State())
}

// caret 移到觸發點之前就放棄 composing
func TestComposer_CaretBeforeTriggerAborts(t *testing.T) {
	c := NewComposer(knownParticipants)
	typeText(c, "ab@x")
	require.Equal(t, StateComposing, c.State())

	c.MoveLeft()
	require.Equal(t, StateComposing, c.State())
	c.MoveLeft() // 停在 '@' 上
	assert.Equal(t, StateIdle, c.State())
}

// search 結果抵達後上下鍵在候選範圍內 clamp
func TestComposer_ArrowsClampSelection(t *testing.T) {
	c := NewComposer(knownParticipants)
	typeText(c, "@li")
	c.SetCandidates([]domain.Participant{
		{ID: "2", Name: "李四"},
		{ID: "9", Name: "Oliver"},
	})

	assert.Equal(t, -1, c.Selected())
	c.ArrowUp()
	assert.Equal(t, 0, c.Selected())
	c.ArrowDown()
	c.ArrowDown()
	c.ArrowDown()
	assert.Equal(t, 1, c.Selected())
	c.ArrowUp()
	assert.Equal(t, 0, c.Selected())
}

// commit 一次換成 canonical token 加分隔空白,狀態回 Idle
func TestComposer_Commit(t *testing.T) {
	c := NewComposer(knownParticipants)
	typeText(c, "hey @li")
	c.SetCandidates([]domain.Participant{{ID: "9", Name: "Oliver"}})
	c.ArrowDown()

	p, ok := c.Commit()
	require.True(t, ok)
	assert.Equal(t, "9", p.ID)

	assert.Equal(t, StateIdle, c.State())
	assert.Equal(t, "hey @Oliver ", c.Buffer().Display())
	assert.Equal(t, "hey @[Oliver](9) ", c.Buffer().Raw())
	assert.Equal(t, len([]rune("hey @Oliver ")), c.Buffer().Caret())
}

// 未選取時 Enter 不算 commit
func TestComposer_CommitWithoutSelection(t *testing.T) {
	c := NewComposer(knownParticipants)
	typeText(c, "@li")

	_, ok := c.Commit()
	assert.False(t, ok)
	assert.Equal(t, StateComposing, c.State())
	assert.Equal(t, "@li", c.Buffer().Raw())
}

// 直接點選候選
func TestComposer_CommitCandidate(t *testing.T) {
	c := NewComposer(knownParticipants)
	typeText(c, "@")

	p, ok := c.CommitCandidate(1)
	require.True(t, ok)
	assert.Equal(t, "李四", p.Name)
	assert.Equal(t, "@[李四](2) ", c.Buffer().Raw())

	_, ok = c.CommitCandidate(5)
	assert.False(t, ok)
}

// Escape 放棄 composing,文字保留
func TestComposer_Escape(t *testing.T) {
	c := NewComposer(knownParticipants)
	typeText(c, "@li")

	c.Escape()
	assert.Equal(t, StateIdle, c.State())
	assert.Equal(t, "@li", c.Buffer().Raw())
	assert.Empty(t, c.Candidates())
}

// commit 後繼續輸入第二個提及
func TestComposer_SecondMentionAfterCommit(t *testing.T) {
	c := NewComposer(knownParticipants)
	typeText(c, "@")
	_, ok := c.CommitCandidate(2) // Oliver
	require.True(t, ok)

	typeText(c, "cc @")
	assert.Equal(t, StateComposing, c.State())
	updates := typeText(c, "张")
	require.Len(t, updates, 1)
	assert.Equal(t, DirectiveSearch, updates[0].Directive)
	assert.Equal(t, "张", updates[0].Keyword)

	c.SetCandidates([]domain.Participant{{ID: "1", Name: "张三"}})
	_, ok = c.CommitCandidate(0)
	require.True(t, ok)
	assert.Equal(t, "@[Oliver](9) cc @[张三](1) ", c.Buffer().Raw())
}

// Reset 清空緩衝與狀態
func TestComposer_Reset(t *testing.T) {
	c := NewComposer(knownParticipants)
	typeText(c, "draft @li")

	c.Reset()
	assert.Equal(t, StateIdle, c.State())
	assert.Equal(t, "", c.Buffer().Raw())
	assert.Equal(t, "", c.SearchText())
}

// 不在 composing 時 SetCandidates 不生效
func TestComposer_SetCandidatesIgnoredWhenIdle(t *testing.T) {
	c := NewComposer(knownParticipants)
	c.SetCandidates([]domain.Participant{{ID: "9", Name: "Oliver"}})
	assert.Empty(t, c.Candidates())
}

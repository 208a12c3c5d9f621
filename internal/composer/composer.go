package composer

import (
	"chat_relay_service/internal/relay/domain"
)

// Trigger 觸發提及輸入的字元
const Trigger = '@'

// State compose 狀態
type State int

const (
	// StateIdle 未在提及輸入中
	StateIdle State = iota
	// StateComposing '@' 之後,持續追蹤搜尋字串與候選清單
	StateComposing
)

// Directive 一次編輯後要求外界執行的動作
type Directive int

const (
	// DirectiveNone 不需動作
	DirectiveNone Directive = iota
	// DirectiveSearch 需要發出 search 請求
	DirectiveSearch
)

// Update 編輯後的回報
type Update struct {
	Directive Directive
	Keyword   string
}

// Composer @ 提及輸入的狀態機
// 只處理狀態與 offset 計算,按鍵來源與建議清單的呈現交給呼叫端
type Composer struct {
	buf   *ComposeBuffer
	state State

	trigger    int // 觸發 '@' 的 rune offset
	searchText string
	known      []domain.Participant // searchText 為空時的完整候選
	candidates []domain.Participant
	selected   int
}

// NewComposer create composer,known 為完整參與者名單
func NewComposer(known []domain.Participant) *Composer {
	return &Composer{
		buf:      NewComposeBuffer(),
		known:    append([]domain.Participant(nil), known...),
		selected: -1,
	}
}

// Buffer 目前的 compose buffer
func (c *Composer) Buffer() *ComposeBuffer { return c.buf }

// State 目前狀態
func (c *Composer) State() State { return c.state }

// SearchText 目前的搜尋字串
func (c *Composer) SearchText() string { return c.searchText }

// Candidates 目前候選清單
func (c *Composer) Candidates() []domain.Participant {
	return append([]domain.Participant(nil), c.candidates...)
}

// Selected 目前選取的候選 index,-1 表示未選取
func (c *Composer) Selected() int { return c.selected }

// InsertRune 輸入一個字元
func (c *Composer) InsertRune(r rune) Update {
	c.buf.InsertRune(r)
	if c.state == StateIdle && r == Trigger {
		c.state = StateComposing
		c.trigger = c.buf.Caret() - 1
		c.searchText = ""
		c.candidates = append([]domain.Participant(nil), c.known...)
		c.selected = -1
		return Update{}
	}
	return c.refresh()
}

// Backspace 刪除 caret 前一個單位
func (c *Composer) Backspace() Update {
	c.buf.Backspace()
	return c.refresh()
}

// MoveLeft caret 左移
func (c *Composer) MoveLeft() Update {
	c.buf.MoveLeft()
	return c.refresh()
}

// MoveRight caret 右移
func (c *Composer) MoveRight() Update {
	c.buf.MoveRight()
	return c.refresh()
}

// SetCaret 移動 caret
func (c *Composer) SetCaret(offset int) Update {
	c.buf.SetCaret(offset)
	return c.refresh()
}

// SetCandidates search 結果抵達時更新候選清單
func (c *Composer) SetCandidates(candidates []domain.Participant) {
	if c.state != StateComposing {
		return
	}
	c.candidates = append([]domain.Participant(nil), candidates...)
	c.selected = -1
}

// ArrowDown 選取往下,clamp 在候選範圍內
func (c *Composer) ArrowDown() {
	if c.state != StateComposing || len(c.candidates) == 0 {
		return
	}
	if c.selected < len(c.candidates)-1 {
		c.selected++
	}
}

// ArrowUp 選取往上,clamp 在候選範圍內
func (c *Composer) ArrowUp() {
	if c.state != StateComposing || len(c.candidates) == 0 {
		return
	}
	if c.selected > 0 {
		c.selected--
	} else {
		c.selected = 0
	}
}

// Commit 以目前選取的候選提交:
// 從觸發 '@' 到 caret 的範圍一次換成 canonical token 加一個分隔空白,
// caret 停在空白後,狀態回到 Idle
func (c *Composer) Commit() (domain.Participant, bool) {
	if c.state != StateComposing || c.selected < 0 || c.selected >= len(c.candidates) {
		return domain.Participant{}, false
	}
	p := c.candidates[c.selected]
	c.buf.ReplaceWithMention(c.trigger, p.Name, p.ID)
	c.abort()
	return p, true
}

// CommitCandidate 直接點選第 i 個候選提交
func (c *Composer) CommitCandidate(i int) (domain.Participant, bool) {
	if c.state != StateComposing || i < 0 || i >= len(c.candidates) {
		return domain.Participant{}, false
	}
	c.selected = i
	return c.Commit()
}

// Escape 放棄提及輸入,不提交
func (c *Composer) Escape() {
	c.abort()
}

// Reset 清空緩衝與狀態 (訊息送出後)
func (c *Composer) Reset() {
	c.buf.Reset()
	c.abort()
}

// refresh 每次編輯後重新推導狀態:
// searchText 為 caret 往前掃到最近 '@' 之間的連續文字,
// 掃不到 '@' 或 caret 移到觸發點之前就回到 Idle
func (c *Composer) refresh() Update {
	if c.state != StateComposing {
		return Update{}
	}
	caret := c.buf.Caret()
	if caret <= c.trigger {
		c.abort()
		return Update{}
	}
	before := []rune(c.buf.TextBeforeCaret())
	at := -1
	for i := len(before) - 1; i >= 0; i-- {
		if before[i] == Trigger {
			at = i
			break
		}
	}
	if at == -1 {
		c.abort()
		return Update{}
	}
	c.trigger = caret - (len(before) - at)
	c.searchText = string(before[at+1:])
	c.selected = -1
	if c.searchText == "" {
		// 空字串直接給完整名單,不發請求
		c.candidates = append([]domain.Participant(nil), c.known...)
		return Update{}
	}
	return Update{Directive: DirectiveSearch, Keyword: c.searchText}
}

func (c *Composer) abort() {
	c.state = StateIdle
	c.searchText = ""
	c.candidates = nil
	c.selected = -1
}

package composer

import (
	"strings"

	"chat_relay_service/internal/relay/domain"
)

// segment compose buffer 的一個節點:純文字,或已提交的 atomic mention span
type segment struct {
	runes  []rune // 顯示文字;atomic span 為 "@name"
	atomic bool
	name   string // atomic span 的原始資料
	id     string
}

// ComposeBuffer 混合文字與 atomic mention span 的輸入緩衝
// caret 以顯示文字的 rune offset 表示,offset 計算採文件順序走訪,
// atomic span 視為不可編輯的整體,caret 不會落在其內部
type ComposeBuffer struct {
	segments []segment
	caret    int
}

// NewComposeBuffer create compose buffer
func NewComposeBuffer() *ComposeBuffer {
	return &ComposeBuffer{}
}

// Len 顯示文字總長 (rune)
func (b *ComposeBuffer) Len() int {
	total := 0
	for _, seg := range b.segments {
		total += len(seg.runes)
	}
	return total
}

// Caret 目前 caret 的 rune offset
func (b *ComposeBuffer) Caret() int {
	return b.caret
}

// Display 顯示文字,mention span 以 @name 呈現
func (b *ComposeBuffer) Display() string {
	var sb strings.Builder
	for _, seg := range b.segments {
		sb.WriteString(string(seg.runes))
	}
	return sb.String()
}

// Raw 送出用原文,mention span 還原成 canonical token
func (b *ComposeBuffer) Raw() string {
	var sb strings.Builder
	for _, seg := range b.segments {
		if seg.atomic {
			sb.WriteString(domain.FormatMentionToken(seg.name, seg.id))
		} else {
			sb.WriteString(string(seg.runes))
		}
	}
	return sb.String()
}

// Reset 清空緩衝
func (b *ComposeBuffer) Reset() {
	b.segments = nil
	b.caret = 0
}

// InsertRune 在 caret 處插入一個字元
func (b *ComposeBuffer) InsertRune(r rune) {
	pos := 0
	for i := range b.segments {
		seg := &b.segments[i]
		segLen := len(seg.runes)
		if !seg.atomic && b.caret >= pos && b.caret <= pos+segLen {
			local := b.caret - pos
			seg.runes = append(seg.runes[:local:local], append([]rune{r}, seg.runes[local:]...)...)
			b.caret++
			return
		}
		if seg.atomic && b.caret == pos {
			// atomic span 前面沒有相鄰的文字節點,補一個
			b.insertSegmentAt(i, segment{runes: []rune{r}})
			b.caret++
			return
		}
		pos += segLen
	}
	// 緩衝尾端 (空緩衝或最後一個節點是 atomic)
	b.segments = append(b.segments, segment{runes: []rune{r}})
	b.caret++
}

// Backspace 刪除 caret 前一個單位,atomic span 整個刪除
func (b *ComposeBuffer) Backspace() {
	if b.caret == 0 {
		return
	}
	pos := 0
	for i := range b.segments {
		seg := &b.segments[i]
		segLen := len(seg.runes)
		if b.caret > pos && b.caret <= pos+segLen {
			if seg.atomic {
				// caret 只可能停在 span 尾端
				b.removeSegmentAt(i)
				b.caret = pos
			} else {
				local := b.caret - pos
				seg.runes = append(seg.runes[:local-1], seg.runes[local:]...)
				b.caret--
				if len(seg.runes) == 0 {
					b.removeSegmentAt(i)
				}
			}
			return
		}
		pos += segLen
	}
}

// MoveLeft caret 左移,跨越 atomic span 時整段跳過
func (b *ComposeBuffer) MoveLeft() {
	if b.caret == 0 {
		return
	}
	pos := 0
	for _, seg := range b.segments {
		segLen := len(seg.runes)
		if b.caret > pos && b.caret <= pos+segLen {
			if seg.atomic {
				b.caret = pos
			} else {
				b.caret--
			}
			return
		}
		pos += segLen
	}
}

// MoveRight caret 右移,跨越 atomic span 時整段跳過
func (b *ComposeBuffer) MoveRight() {
	total := b.Len()
	if b.caret >= total {
		return
	}
	pos := 0
	for _, seg := range b.segments {
		segLen := len(seg.runes)
		if b.caret >= pos && b.caret < pos+segLen {
			if seg.atomic {
				b.caret = pos + segLen
			} else {
				b.caret++
			}
			return
		}
		pos += segLen
	}
}

// SetCaret 移動 caret 到指定 offset,落在 atomic span 內部時貼齊 span 尾端
func (b *ComposeBuffer) SetCaret(offset int) {
	if offset < 0 {
		offset = 0
	}
	if total := b.Len(); offset > total {
		offset = total
	}
	pos := 0
	for _, seg := range b.segments {
		segLen := len(seg.runes)
		if seg.atomic && offset > pos && offset < pos+segLen {
			offset = pos + segLen
			break
		}
		pos += segLen
	}
	b.caret = offset
}

// TextBeforeCaret caret 之前、不跨越 atomic span 的連續純文字
func (b *ComposeBuffer) TextBeforeCaret() string {
	if b.caret == 0 {
		return ""
	}
	pos := 0
	for _, seg := range b.segments {
		segLen := len(seg.runes)
		if b.caret > pos && b.caret <= pos+segLen {
			if seg.atomic {
				return ""
			}
			return string(seg.runes[:b.caret-pos])
		}
		pos += segLen
	}
	return ""
}

// ReplaceWithMention 將 [start, caret) 一次換成 atomic span 加一個分隔空白
// caret 移到空白之後;start 與 caret 必須位於同一個文字節點內
func (b *ComposeBuffer) ReplaceWithMention(start int, name, id string) {
	pos := 0
	for i := range b.segments {
		seg := b.segments[i]
		segLen := len(seg.runes)
		if !seg.atomic && b.caret > pos && b.caret <= pos+segLen && start >= pos {
			localStart := start - pos
			localEnd := b.caret - pos

			span := segment{runes: []rune("@" + name), atomic: true, name: name, id: id}
			after := segment{runes: append([]rune{' '}, seg.runes[localEnd:]...)}

			rebuilt := make([]segment, 0, len(b.segments)+2)
			rebuilt = append(rebuilt, b.segments[:i]...)
			if localStart > 0 {
				rebuilt = append(rebuilt, segment{runes: append([]rune(nil), seg.runes[:localStart]...)})
			}
			rebuilt = append(rebuilt, span, after)
			rebuilt = append(rebuilt, b.segments[i+1:]...)
			b.segments = rebuilt

			b.caret = start + len(span.runes) + 1
			return
		}
		pos += segLen
	}
}

func (b *ComposeBuffer) insertSegmentAt(i int, seg segment) {
	b.segments = append(b.segments[:i:i], append([]segment{seg}, b.segments[i:]...)...)
}

func (b *ComposeBuffer) removeSegmentAt(i int) {
	b.segments = append(b.segments[:i], b.segments[i+1:]...)
	b.mergeAdjacentText()
}

// 相鄰文字節點合併,維持「文字節點之間必有 atomic span」的不變式
func (b *ComposeBuffer) mergeAdjacentText() {
	for i := 0; i+1 < len(b.segments); {
		if !b.segments[i].atomic && !b.segments[i+1].atomic {
			b.segments[i].runes = append(b.segments[i].runes, b.segments[i+1].runes...)
			b.segments = append(b.segments[:i+1], b.segments[i+2:]...)
			continue
		}
		i++
	}
}

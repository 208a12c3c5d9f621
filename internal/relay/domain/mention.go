package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// RawMentionToken parse 出的原始 token,尚未經過目錄驗證
// offset 為 RawContent 的 byte offset
type RawMentionToken struct {
	Name          string
	ParticipantID string
	StartOffset   int
	EndOffset     int
}

// Mention 通過目錄驗證的提及
// Name 為 token 當下擷取的名稱,之後目錄改名也不影響歷史訊息
type Mention struct {
	ParticipantID string `json:"participant_id"`
	Name          string `json:"name"`
	StartOffset   int    `json:"start_offset"`
	EndOffset     int    `json:"end_offset"`
}

// token 語法 @[name](id),由左至右不重疊
var mentionPattern = regexp.MustCompile(`@\[([^\]]+)\]\(([^)]+)\)`)

// ParseMentions 解析訊息中的 @ 提及,語法不完整的片段視為一般文字
func ParseMentions(content string) []RawMentionToken {
	matches := mentionPattern.FindAllStringSubmatchIndex(content, -1)
	tokens := make([]RawMentionToken, 0, len(matches))
	for _, m := range matches {
		tokens = append(tokens, RawMentionToken{
			Name:          content[m[2]:m[3]],
			ParticipantID: content[m[4]:m[5]],
			StartOffset:   m[0],
			EndOffset:     m[1],
		})
	}
	return tokens
}

// ResolveMentions 過濾掉目錄查無此人的 token,留下的才算 Mention
func ResolveMentions(tokens []RawMentionToken, directory ParticipantFinder) []Mention {
	mentions := make([]Mention, 0, len(tokens))
	for _, t := range tokens {
		if _, ok := directory.FindByID(t.ParticipantID); !ok {
			continue
		}
		mentions = append(mentions, Mention{
			ParticipantID: t.ParticipantID,
			Name:          t.Name,
			StartOffset:   t.StartOffset,
			EndOffset:     t.EndOffset,
		})
	}
	return mentions
}

// RenderContent 將已 resolve 的 token span 換成顯示格式
// 單趟由左至右, 依 offset 切片拼接; 不能用字串替換,
// 名字重複或互為子字串時 offset 會被破壞
func RenderContent(raw string, mentions []Mention) string {
	if len(mentions) == 0 {
		return raw
	}
	var b strings.Builder
	last := 0
	for _, m := range mentions {
		b.WriteString(raw[last:m.StartOffset])
		b.WriteString(fmt.Sprintf(`<span class="mention" data-user-id="%s">@%s</span>`, m.ParticipantID, m.Name))
		last = m.EndOffset
	}
	b.WriteString(raw[last:])
	return b.String()
}

// FormatMentionToken canonical token 格式,composer commit 時使用
func FormatMentionToken(name, id string) string {
	return fmt.Sprintf("@[%s](%s)", name, id)
}

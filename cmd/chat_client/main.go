package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"chat_relay_service/internal/composer"
	"chat_relay_service/internal/relay/domain"
	"chat_relay_service/pkg"
	"chat_relay_service/pkg/config"
	"chat_relay_service/pkg/logger"

	"github.com/fasthttp/websocket"
	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
	"golang.org/x/term"
)

// keyEvent 原始鍵盤輸入解碼後的事件
type keyEvent struct {
	kind keyKind
	r    rune
}

type keyKind int

const (
	keyRune keyKind = iota
	keyEnter
	keyBackspace
	keyUp
	keyDown
	keyLeft
	keyRight
	keyEscape
	keyCtrlC
)

// client 終端聊天客戶端狀態
type client struct {
	conn  *websocket.Conn
	comp  *composer.Composer
	me    domain.Participant
	room  string
	users []domain.Participant
	rooms []domain.ChatRoom
}

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.ChatClient, config.EnvConfig.ChatClientLogPath)
	cfg := config.LoadConfig[config.Client](config.EnvConfig.ChatClient, config.EnvConfig.ChatClientYAMLPath)

	conn, _, err := websocket.DefaultDialer.Dial(cfg.ServerURL, nil)
	if err != nil {
		log.Fatalf("connect %s failed: %v", cfg.ServerURL, err)
	}
	defer conn.Close()

	events := make(chan domain.WSResponse, 32)
	go readLoop(conn, events)

	c := &client{conn: conn}

	// 連線後 server 會先推 users_list 與 rooms_list
	for len(c.users) == 0 || len(c.rooms) == 0 {
		resp, ok := <-events
		if !ok {
			log.Fatal("connection closed before directory arrived")
		}
		c.handleEvent(resp)
	}
	c.renderUsers()
	c.renderRooms()

	stdin := bufio.NewReader(os.Stdin)
	c.selectParticipant(stdin, events)
	c.comp = composer.NewComposer(c.users)

	c.send(domain.WSRequest{Action: string(domain.JoinRoom), RoomID: cfg.DefaultRoom})
	c.room = cfg.DefaultRoom

	oldState, err := term.MakeRaw(int(os.Stdin.Fd()))
	if err != nil {
		log.Fatalf("raw mode failed: %v", err)
	}
	defer term.Restore(int(os.Stdin.Fd()), oldState)

	keys := make(chan keyEvent, 32)
	go keyLoop(stdin, keys)

	c.redrawPrompt()
	for {
		select {
		case resp, ok := <-events:
			if !ok {
				c.printLine(color.Red.Sprint("connection closed"))
				return
			}
			c.handleEvent(resp)
			c.redrawPrompt()
		case key := <-keys:
			if !c.handleKey(key) {
				return
			}
		}
	}
}

// readLoop conn -> events,連線關閉時關閉 channel
func readLoop(conn *websocket.Conn, events chan<- domain.WSResponse) {
	defer close(events)
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var resp domain.WSResponse
		if err := json.Unmarshal(message, &resp); err != nil {
			logger.Log.Errorf("unmarshal response error:", err)
			continue
		}
		events <- resp
	}
}

// keyLoop 解碼 raw mode 下的按鍵 (含 CSI 方向鍵序列)
func keyLoop(stdin *bufio.Reader, keys chan<- keyEvent) {
	for {
		r, _, err := stdin.ReadRune()
		if err != nil {
			close(keys)
			return
		}
		switch {
		case r == 0x03:
			keys <- keyEvent{kind: keyCtrlC}
		case r == '\r' || r == '\n':
			keys <- keyEvent{kind: keyEnter}
		case r == 0x7f || r == 0x08:
			keys <- keyEvent{kind: keyBackspace}
		case r == 0x1b:
			// 單獨的 ESC 後面不會有已緩衝的位元組
			if stdin.Buffered() >= 2 {
				seq, _ := stdin.Peek(2)
				if seq[0] == '[' {
					stdin.Discard(2)
					switch seq[1] {
					case 'A':
						keys <- keyEvent{kind: keyUp}
					case 'B':
						keys <- keyEvent{kind: keyDown}
					case 'C':
						keys <- keyEvent{kind: keyRight}
					case 'D':
						keys <- keyEvent{kind: keyLeft}
					}
					continue
				}
			}
			keys <- keyEvent{kind: keyEscape}
		default:
			keys <- keyEvent{kind: keyRune, r: r}
		}
	}
}

// selectParticipant 啟動時綁定身分 (join/publish 前必須完成)
func (c *client) selectParticipant(stdin *bufio.Reader, events <-chan domain.WSResponse) {
	ids := make([]string, 0, len(c.users))
	for _, u := range c.users {
		ids = append(ids, u.ID)
	}
	for {
		fmt.Print("select participant id: ")
		line, err := stdin.ReadString('\n')
		if err != nil {
			log.Fatal("stdin closed")
		}
		id := strings.TrimSpace(line)
		if !pkg.Contains(ids, id) {
			color.Yellow.Println("no such participant")
			continue
		}
		c.send(domain.WSRequest{Action: string(domain.SelectParticipant), ParticipantID: id})
		resp, ok := <-events
		if !ok {
			log.Fatal("connection closed")
		}
		if resp.Action == string(domain.SelectParticipant) && resp.Success {
			decodePayload(resp.Payload["participant"], &c.me)
			color.Green.Printf("welcome, %s %s\n", c.me.Avatar, c.me.Name)
			return
		}
		color.Yellow.Println("bind failed: " + resp.Error)
	}
}

// handleKey 處理一個按鍵,回傳 false 表示結束程式
func (c *client) handleKey(key keyEvent) bool {
	switch key.kind {
	case keyCtrlC:
		c.printLine("bye")
		return false
	case keyRune:
		update := c.comp.InsertRune(key.r)
		c.applyUpdate(update)
	case keyBackspace:
		c.applyUpdate(c.comp.Backspace())
	case keyLeft:
		c.applyUpdate(c.comp.MoveLeft())
	case keyRight:
		c.applyUpdate(c.comp.MoveRight())
	case keyUp:
		c.comp.ArrowUp()
		c.renderSuggestions()
	case keyDown:
		c.comp.ArrowDown()
		c.renderSuggestions()
	case keyEscape:
		c.comp.Escape()
	case keyEnter:
		// composing 且有選取時 Enter 是提交,不是送出
		if c.comp.State() == composer.StateComposing && c.comp.Selected() >= 0 {
			c.comp.Commit()
		} else {
			if !c.submitLine() {
				return false
			}
		}
	}
	c.redrawPrompt()
	return true
}

// applyUpdate composer 要求發 search 時送出請求
func (c *client) applyUpdate(update composer.Update) {
	if update.Directive == composer.DirectiveSearch {
		c.send(domain.WSRequest{
			Action:  string(domain.SearchUsers),
			Keyword: update.Keyword,
			RoomID:  c.room,
		})
		return
	}
	if c.comp.State() == composer.StateComposing {
		c.renderSuggestions()
	}
}

// submitLine Enter 時送出訊息或執行命令,回傳 false 表示結束程式
func (c *client) submitLine() bool {
	text := strings.TrimSpace(c.comp.Buffer().Raw())
	c.comp.Reset()
	switch {
	case text == "":
		return true
	case text == "/quit":
		c.printLine("bye")
		return false
	case text == "/users":
		c.renderUsers()
	case text == "/rooms":
		c.renderRooms()
	case strings.HasPrefix(text, "/join "):
		roomID := strings.TrimSpace(strings.TrimPrefix(text, "/join "))
		c.send(domain.WSRequest{Action: string(domain.JoinRoom), RoomID: roomID})
	default:
		c.send(domain.WSRequest{Action: string(domain.SendMessage), Content: text})
	}
	return true
}

func (c *client) handleEvent(resp domain.WSResponse) {
	switch resp.Action {
	case string(domain.UsersList):
		decodePayload(resp.Payload["users"], &c.users)
	case string(domain.RoomsList):
		decodePayload(resp.Payload["rooms"], &c.rooms)
	case string(domain.RoomMessages):
		var messages []domain.ChatMessage
		decodePayload(resp.Payload["messages"], &messages)
		roomID, _ := resp.Payload["room_id"].(string)
		c.printLine(color.Cyan.Sprintf("-- %s --", c.roomName(roomID)))
		for _, m := range messages {
			c.printMessage(m)
		}
	case string(domain.JoinRoom):
		if resp.Success {
			roomID, _ := resp.Payload["room_id"].(string)
			c.room = roomID
		} else if resp.Error != "" {
			c.printLine(color.Red.Sprint(resp.Error))
		}
	case string(domain.NewMessage):
		var m domain.ChatMessage
		decodePayload(resp.Payload["message"], &m)
		c.printMessage(m)
	case string(domain.UserMentioned):
		sender, _ := resp.Payload["sender_name"].(string)
		preview, _ := resp.Payload["preview"].(string)
		c.printLine(color.Magenta.Sprintf("🔔 %s 在聊天中提到了你: %s", sender, preview))
	case string(domain.SearchResults):
		var users []domain.Participant
		decodePayload(resp.Payload["users"], &users)
		c.comp.SetCandidates(users)
		c.renderSuggestions()
	default:
		if resp.Error != "" {
			c.printLine(color.Red.Sprint(resp.Error))
		}
	}
}

func (c *client) send(req domain.WSRequest) {
	if err := c.conn.WriteJSON(req); err != nil {
		logger.Log.Errorf("write request error:", err)
	}
}

func (c *client) printMessage(m domain.ChatMessage) {
	name := m.Sender.Name
	if m.Sender.ID == c.me.ID {
		name = color.Green.Sprint(name)
	}
	line := fmt.Sprintf("[%s] %s%s: %s",
		m.CreatedAt.Format("15:04"), m.Sender.Avatar, name, m.RawContent)
	for _, mention := range m.Mentions {
		if mention.ParticipantID == c.me.ID {
			line = color.Bold.Sprint(line)
			break
		}
	}
	c.printLine(line)
}

func (c *client) renderUsers() {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Name", "Avatar"})
	for _, u := range c.users {
		table.Append([]string{u.ID, u.Name, u.Avatar})
	}
	fmt.Print("\r\x1b[2K")
	table.Render()
}

func (c *client) renderRooms() {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Name"})
	for _, r := range c.rooms {
		table.Append([]string{r.ID, r.Name})
	}
	fmt.Print("\r\x1b[2K")
	table.Render()
}

func (c *client) renderSuggestions() {
	candidates := c.comp.Candidates()
	if c.comp.State() != composer.StateComposing || len(candidates) == 0 {
		return
	}
	for i, p := range candidates {
		marker := "  "
		line := fmt.Sprintf("%s %s (%s)", p.Avatar, p.Name, p.ID)
		if i == c.comp.Selected() {
			marker = "> "
			line = color.Cyan.Sprint(line)
		}
		c.printLine(marker + line)
	}
}

func (c *client) roomName(roomID string) string {
	for _, r := range c.rooms {
		if r.ID == roomID {
			return r.Name
		}
	}
	return roomID
}

// printLine raw mode 下換行要帶 \r
func (c *client) printLine(s string) {
	fmt.Print("\r\x1b[2K" + s + "\r\n")
}

func (c *client) redrawPrompt() {
	fmt.Printf("\r\x1b[2K%s> %s", c.roomName(c.room), c.comp.Buffer().Display())
}

// payload 是 map[string]interface{},重新 marshal 一次轉回具型別的結構
func decodePayload(payload interface{}, v interface{}) {
	b, err := json.Marshal(payload)
	if err != nil {
		return
	}
	_ = json.Unmarshal(b, v)
}

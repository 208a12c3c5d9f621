package app

import (
	"context"
	"encoding/json"

	"chat_relay_service/internal/relay/domain"
	"chat_relay_service/pkg/logger"
	"chat_relay_service/pkg/middlewares"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

// ChatWebsocketHandler 可包含所有需要的操作入口
type ChatWebsocketHandler struct {
	broker   *Broker
	validate *validator.Validate
}

// NewChatWebsocketHandler create ChatWebsocketHandler
func NewChatWebsocketHandler(broker *Broker) *ChatWebsocketHandler {
	return &ChatWebsocketHandler{
		broker:   broker,
		validate: validator.New(),
	}
}

// HandleConnection 是 WebSocket 連線的進入點
func (h *ChatWebsocketHandler) HandleConnection(ctx context.Context, conn *websocket.Conn) {
	sessionID, _ := conn.Locals(middlewares.SessionID).(string)
	logger.Log.Info("websocket connected", zap.String("sessionID", sessionID))

	sess := NewSession(sessionID)
	h.broker.Register(sess)

	ctxClose, cancel := context.WithCancel(context.Background())

	defer func() {
		logger.Log.Info("websocket close", zap.String("sessionID", sessionID))
		// 斷線視為隱含 leave;與進行中的 publish 並發是安全的
		h.broker.Unregister(context.Background(), sessionID)
		cancel()
		conn.Close()
	}()

	//client發出close
	//fiber會自動處理(在read msg 回傳err),故需要SetCloseHandler另外接出
	conn.SetCloseHandler(func(code int, text string) error {
		logger.Log.Infof("WebSocket closed:", conn.RemoteAddr())
		return nil
	})

	// 所有寫出都走 session 出站 channel,單一 writer 避免並發寫 conn
	go func() {
		for {
			select {
			case resp, ok := <-sess.Outbound():
				if !ok {
					return
				}
				b, err := json.Marshal(resp)
				if err != nil {
					logger.Log.Errorf("marshal response error:", err)
					continue
				}
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					logger.Log.Errorf("write message error:", err)
					return
				}
			case <-ctxClose.Done():
				return
			}
		}
	}()

	// 連線即推送目錄與房間列表
	sess.Deliver(domain.WSResponse{
		Action:  string(domain.UsersList),
		Success: true,
		Payload: map[string]interface{}{"users": h.broker.Participants()},
	})
	sess.Deliver(domain.WSResponse{
		Action:  string(domain.RoomsList),
		Success: true,
		Payload: map[string]interface{}{"rooms": h.broker.Rooms()},
	})

	for {
		mt, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Log.Infof("Connection closed:", err)
			} else {
				logger.Log.Errorf("websocket read error:", err)
			}
			return
		}
		h.execWebsocketAction(ctx, sess, mt, message)
	}
}

func (h *ChatWebsocketHandler) execWebsocketAction(ctx context.Context, sess *Session, mt int, msg []byte) {
	switch mt {
	case websocket.TextMessage:
		h.textMessageAction(ctx, sess, msg)
	default:
		h.sendError(sess, "unknown message type")
	}
}

func (h *ChatWebsocketHandler) textMessageAction(ctx context.Context, sess *Session, msg []byte) {
	var req domain.WSRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		logger.Log.Errorf("json unmarshal error:", err)
		h.sendError(sess, "invalid request")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.sendError(sess, "action is required")
		return
	}

	resp := domain.WSResponse{Action: req.Action, Success: false, Payload: map[string]interface{}{}}
	switch req.Action {
	// 綁定身分,join/publish 之前必須完成
	case string(domain.SelectParticipant):
		if err := h.validate.Var(req.ParticipantID, "required"); err != nil {
			resp.Error = "participant_id is required"
			break
		}
		p, err := h.broker.BindParticipant(sess.ID, req.ParticipantID)
		if err != nil {
			resp.Error = err.Error()
		} else {
			resp.Success = true
			resp.Payload["participant"] = p
		}

	// 加入房間,history 只回給本人
	case string(domain.JoinRoom):
		if err := h.validate.Var(req.RoomID, "required"); err != nil {
			resp.Error = "room_id is required"
			break
		}
		history, err := h.broker.Join(ctx, sess.ID, req.RoomID)
		if err != nil {
			resp.Error = err.Error()
		} else {
			resp.Success = true
			resp.Payload["room_id"] = req.RoomID
			sess.Deliver(domain.WSResponse{
				Action:  string(domain.RoomMessages),
				Success: true,
				Payload: map[string]interface{}{
					"room_id":  req.RoomID,
					"messages": history,
				},
			})
		}

	// 發布訊息,fan-out 與提及通知由 room worker 處理
	case string(domain.SendMessage):
		message, err := h.broker.Publish(ctx, sess.ID, req.Content)
		if err != nil {
			resp.Error = err.Error()
		} else {
			resp.Success = true
			resp.Payload["message_id"] = message.ID
		}

	// 搜尋參與者 (composer 不會送空 keyword,空值退回完整名單)
	case string(domain.SearchUsers):
		users := h.broker.Search(req.Keyword, req.RoomID)
		resp.Action = string(domain.SearchResults)
		resp.Success = true
		resp.Payload["keyword"] = req.Keyword
		resp.Payload["users"] = users

	default:
		resp.Error = "unknown action"
	}

	if resp.Error != "" {
		logger.Log.Error("websocket err ",
			zap.String("SessionID", sess.ID),
			zap.String("Action", req.Action),
			zap.String("err", resp.Error))
	}
	sess.Deliver(resp)
}

func (h *ChatWebsocketHandler) sendError(sess *Session, errorMsg string) {
	sess.Deliver(domain.WSResponse{
		Action:  "error",
		Success: false,
		Payload: map[string]interface{}{"error": errorMsg},
	})
}

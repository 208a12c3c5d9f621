package router

import (
	"context"

	"chat_relay_service/internal/relay/api/handlers"
	"chat_relay_service/internal/relay/app"
	"chat_relay_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// RegisterRoutes 注册 relay 相關的路由
func RegisterRoutes(r *fiber.App, chatWebsocket *app.ChatWebsocketHandler, rest *handlers.RelayHandler) {
	r.Use(middlewares.SessionMiddleware())

	r.Get("/ws", websocket.New(func(c *websocket.Conn) {
		chatWebsocket.HandleConnection(context.Background(), c)
	}))

	// 非即時查詢走 REST
	api := r.Group("/api")
	api.Get("/participants", rest.Participants)
	api.Get("/rooms", rest.Rooms)
	api.Get("/messages/:roomId", rest.Messages)
}

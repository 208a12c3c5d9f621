package handlers

import (
	"errors"

	"chat_relay_service/internal/relay/app"
	errprocess "chat_relay_service/pkg/err"

	"github.com/gofiber/fiber/v2"
)

// RelayHandler 非即時查詢的 REST 介面
type RelayHandler struct {
	broker *app.Broker
}

// NewRelayHandler create RelayHandler
func NewRelayHandler(broker *app.Broker) *RelayHandler {
	return &RelayHandler{broker: broker}
}

// Participants GET /api/participants 完整參與者名單
func (h *RelayHandler) Participants(c *fiber.Ctx) error {
	return c.JSON(h.broker.Participants())
}

// Rooms GET /api/rooms 房間列表
func (h *RelayHandler) Rooms(c *fiber.Ctx) error {
	return c.JSON(h.broker.Rooms())
}

// Messages GET /api/messages/:roomId 房間目前的 bounded history
func (h *RelayHandler) Messages(c *fiber.Ctx) error {
	roomID := c.Params("roomId")
	messages, err := h.broker.RoomHistory(c.Context(), roomID)
	if err != nil {
		if errors.Is(err, errprocess.ErrRoomNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(messages)
}

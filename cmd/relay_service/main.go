package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"chat_relay_service/internal/relay/api/handlers"
	"chat_relay_service/internal/relay/app"
	"chat_relay_service/internal/relay/domain"
	"chat_relay_service/internal/relay/repository"
	"chat_relay_service/internal/relay/router"
	"chat_relay_service/pkg/config"
	"chat_relay_service/pkg/logger"
	testtool "chat_relay_service/pkg/test_tool"

	"github.com/gofiber/fiber/v2"
	fiber_log "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/samber/lo"
)

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.RelayService, config.EnvConfig.RelayServiceLogPath)
	cfg := config.LoadConfig[config.Relay](config.EnvConfig.RelayService, config.EnvConfig.RelayServiceYAMLPath)

	// 1. 目錄與房間由設定檔預載,執行期唯讀
	directory := repository.NewParticipantRepository(
		lo.Map(cfg.Participants, func(p config.SeedParticipant, _ int) domain.Participant {
			return domain.Participant{ID: p.ID, Name: p.Name, Avatar: p.Avatar}
		}))
	rooms := lo.Map(cfg.Rooms, func(r config.SeedRoom, _ int) domain.ChatRoom {
		return domain.ChatRoom{ID: r.ID, Name: r.Name}
	})

	// 2. 初始化 broker,每個房間一個 worker
	broker := app.NewBroker(directory, rooms, cfg.HistoryMax, cfg.PreviewLimit)
	broker.Start(context.Background())
	defer broker.Stop()

	testtool.StartPprof()

	// 3. 啟動 Fiber
	r := fiber.New()
	file, err := os.OpenFile(fmt.Sprintf("%s/access.log", config.EnvConfig.RelayServiceLogPath), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer file.Close()

	r.Use(fiber_log.New(fiber_log.Config{
		Output: file,
	}))

	// 注册路由
	router.RegisterRoutes(r, app.NewChatWebsocketHandler(broker), handlers.NewRelayHandler(broker))

	port := ":" + cfg.Port
	log.Printf("Relay Service listening on %s", port)
	if err := r.Listen(port); err != nil {
		log.Fatalf("Failed to start Fiber: %v", err)
	}
}

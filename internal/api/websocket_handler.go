package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/wfunc/token-arena/internal/engine"
	"github.com/wfunc/token-arena/internal/middleware"
	"github.com/wfunc/token-arena/internal/service"
	"go.uber.org/zap"
)

// 推送间隔与写超时
const (
	statusPushInterval = time.Second
	wsWriteTimeout     = 10 * time.Second
)

// WebSocketHandler 会话状态实时推送处理器
type WebSocketHandler struct {
	gameService service.GameService
	upgrader    websocket.Upgrader
	logger      *zap.Logger
}

// NewWebSocketHandler 创建WebSocket处理器
func NewWebSocketHandler(gameService service.GameService, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		gameService: gameService,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// 在生产环境中应该检查Origin
				return true
			},
		},
		logger: logger,
	}
}

// GameStatusFeed 持续推送会话状态，会话结束后推送最终状态并关闭连接
func (h *WebSocketHandler) GameStatusFeed(c *gin.Context) {
	agentID, _ := middleware.GetAgentID(c)
	gameID := c.Param("id")

	// 升级前确认会话存在且归属正确
	if _, err := h.gameService.GetStatus(c.Request.Context(), agentID, gameID); err != nil {
		abortWithError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("WebSocket升级失败",
			zap.String("game_id", gameID),
			zap.Error(err))
		return
	}
	defer conn.Close()

	h.logger.Info("WebSocket连接建立",
		zap.String("game_id", gameID),
		zap.String("agent_id", agentID))

	// 读协程只用于感知客户端断开
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(statusPushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			status, err := h.gameService.GetStatus(c.Request.Context(), agentID, gameID)
			if err != nil {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session gone"),
					time.Now().Add(wsWriteTimeout))
				return
			}

			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(status); err != nil {
				h.logger.Debug("WebSocket推送失败",
					zap.String("game_id", gameID),
					zap.Error(err))
				return
			}

			if status.Status == engine.SessionFinished {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session finished"),
					time.Now().Add(wsWriteTimeout))
				return
			}
		}
	}
}

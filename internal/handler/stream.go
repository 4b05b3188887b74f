package handler

import (
	"context"
	"errors"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"

	appErrors "github.com/nilsonaj/racko-frontend/internal/errors"
	"github.com/nilsonaj/racko-frontend/internal/game"
	"github.com/nilsonaj/racko-frontend/internal/middleware"
	"github.com/nilsonaj/racko-frontend/pkg/response"
)

const streamWriteTimeout = 5 * time.Second

// Stream 视图推送
// @Summary      视图推送（WebSocket）
// @Description  建立 WebSocket 连接，先推送当前视图，之后每次状态变化推送一次
// @Tags         牌局
// @Security     BearerAuth
// @Param        code   path   string  true   "房间号"
// @Param        token  query  string  false  "参与者令牌（浏览器无法设置请求头时使用）"
// @Router       /games/{code}/stream [get]
func (h *GameHandler) Stream(c *gin.Context) {
	roomCode, playerID := middleware.GetRoomCode(c), middleware.GetPlayerID(c)

	views, cancel, err := h.service.Watch(roomCode, playerID)
	if err != nil {
		response.ErrorFromAppError(c, appErrors.FromGameError(err))
		return
	}
	defer cancel()

	current, err := h.service.View(c.Request.Context(), roomCode, playerID)
	if err != nil {
		response.ErrorFromAppError(c, appErrors.FromGameError(err))
		return
	}

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		h.logger.Warn("Failed to accept websocket", "roomCode", roomCode, "playerId", playerID, "error", err)
		return
	}
	defer conn.Close(websocket.StatusGoingAway, "Server closing websocket")

	// 客户端只接收；CloseRead 在客户端断开时取消 ctx
	ctx := conn.CloseRead(c.Request.Context())

	h.logger.Info("View stream opened", "roomCode", roomCode, "playerId", playerID)
	defer h.logger.Info("View stream closed", "roomCode", roomCode, "playerId", playerID)

	if err := writeView(ctx, conn, current); err != nil {
		return
	}

	ping := time.NewTicker(h.pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case view, ok := <-views:
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "Game not found or you were removed.")
				return
			}
			if err := writeView(ctx, conn, view); err != nil {
				if !errors.Is(err, context.Canceled) {
					h.logger.Debug("Failed to push view", "roomCode", roomCode, "playerId", playerID, "error", err)
				}
				return
			}
		case <-ping.C:
			pingCtx, pingCancel := context.WithTimeout(ctx, streamWriteTimeout)
			err := conn.Ping(pingCtx)
			pingCancel()
			if err != nil {
				return
			}
			if err := h.service.KeepAlive(roomCode, playerID); err != nil {
				conn.Close(websocket.StatusNormalClosure, "Game not found or you were removed.")
				return
			}
		}
	}
}

func writeView(ctx context.Context, conn *websocket.Conn, view *game.View) error {
	ctx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, view)
}

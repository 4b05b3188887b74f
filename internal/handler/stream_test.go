package handler

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nilsonaj/racko-frontend/internal/game"
	"github.com/nilsonaj/racko-frontend/internal/jwt"
	"github.com/nilsonaj/racko-frontend/internal/middleware"
)

func TestGameHandler_Stream_PingKeepsParticipantAlive(t *testing.T) {
	views := make(chan *game.View)
	var keepAlives atomic.Int32

	svc := &mockGameService{
		moveFunc: func(move, roomCode, playerID string, arg any) (*game.View, error) {
			return &game.View{RoomCode: roomCode, Message: "Waiting for 1 more..."}, nil
		},
		watchFunc: func(roomCode, playerID string) (<-chan *game.View, func(), error) {
			return views, func() {}, nil
		},
		keepAliveFunc: func(roomCode, playerID string) error {
			assert.Equal(t, testRoom, roomCode)
			assert.Equal(t, "p_1", playerID)
			keepAlives.Add(1)
			return nil
		},
	}

	gin.SetMode(gin.TestMode)
	jwtService := jwt.NewService("test-secret-key", time.Hour)
	h := NewGameHandler(svc, nil, jwtService, nil)
	h.pingInterval = 20 * time.Millisecond

	r := gin.New()
	r.GET("/api/v1/games/:code/stream", middleware.JWTAuth(jwtService), h.Stream)
	srv := httptest.NewServer(r)
	defer srv.Close()

	token := seatToken(t, jwtService, testRoom, "p_1")
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/games/" + testRoom + "/stream?token=" + token

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	var first game.View
	require.NoError(t, wsjson.Read(ctx, conn, &first))
	assert.Equal(t, "Waiting for 1 more...", first.Message)

	// 继续读取控制帧，才能回应服务端的 ping
	conn.CloseRead(ctx)

	require.Eventually(t, func() bool { return keepAlives.Load() >= 2 }, 3*time.Second, 10*time.Millisecond)
}

package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nilsonaj/racko-frontend/internal/jwt"
	"github.com/nilsonaj/racko-frontend/internal/room"
	"github.com/nilsonaj/racko-frontend/pkg/response"
)

const (
	ctxRoomCode = "room_code"
	ctxPlayerID = "player_id"
)

// JWTAuth 参与者令牌认证中间件
// 令牌中的房间号必须与路径参数 :code 一致
// 浏览器的 WebSocket 无法设置请求头，允许通过 ?token= 传递
func JWTAuth(jwtService *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c.GetHeader("Authorization"))
		if token == "" {
			token = c.Query("token")
		}
		if token == "" {
			response.Unauthorized(c)
			c.Abort()
			return
		}

		claims, err := jwtService.ValidateToken(token)
		if err != nil {
			if err == jwt.ErrTokenExpired {
				response.Error(c, response.CodeTokenExpired)
			} else {
				response.Error(c, response.CodeTokenInvalid)
			}
			c.Abort()
			return
		}

		if code := c.Param("code"); code != "" {
			normalized, err := room.NormalizeCode(code)
			if err != nil || normalized != claims.RoomCode {
				response.Forbidden(c)
				c.Abort()
				return
			}
		}

		c.Set(ctxRoomCode, claims.RoomCode)
		c.Set(ctxPlayerID, claims.PlayerID)
		c.Next()
	}
}

// extractToken 从 Authorization header 提取 token
func extractToken(authHeader string) string {
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}

	return parts[1]
}

// GetRoomCode 从 context 获取房间号
func GetRoomCode(c *gin.Context) string {
	return c.GetString(ctxRoomCode)
}

// GetPlayerID 从 context 获取玩家 ID
func GetPlayerID(c *gin.Context) string {
	return c.GetString(ctxPlayerID)
}

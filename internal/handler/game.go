package handler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	appErrors "github.com/nilsonaj/racko-frontend/internal/errors"
	"github.com/nilsonaj/racko-frontend/internal/game"
	"github.com/nilsonaj/racko-frontend/internal/game/racko"
	"github.com/nilsonaj/racko-frontend/internal/jwt"
	"github.com/nilsonaj/racko-frontend/internal/middleware"
	"github.com/nilsonaj/racko-frontend/internal/model"
	"github.com/nilsonaj/racko-frontend/internal/room"
	"github.com/nilsonaj/racko-frontend/pkg/response"
)

// GameService 处理器依赖的牌局操作
type GameService interface {
	CreateGame(ctx context.Context, req room.CreateRequest) (*game.Joined, error)
	JoinGame(ctx context.Context, roomCode, playerName string) (*game.Joined, error)
	View(ctx context.Context, roomCode, playerID string) (*game.View, error)
	Watch(roomCode, playerID string) (<-chan *game.View, func(), error)
	KeepAlive(roomCode, playerID string) error
	Draw(ctx context.Context, roomCode, playerID string, fromDiscard bool) (*game.View, error)
	Place(ctx context.Context, roomCode, playerID string, position int) (*game.View, error)
	Discard(ctx context.Context, roomCode, playerID string) (*game.View, error)
	Undo(ctx context.Context, roomCode, playerID string) (*game.View, error)
	NewRound(ctx context.Context, roomCode, playerID string) (*game.View, error)
}

// RoundLister 查询历史对局
type RoundLister interface {
	ListByRoom(ctx context.Context, roomCode string, limit int) ([]*model.Round, error)
}

// CreateGameRequest 创建房间请求
type CreateGameRequest struct {
	PlayerName   string `json:"playerName" binding:"required,max=32"`
	MaxPlayers   int    `json:"maxPlayers" binding:"required,min=2,max=4"`
	UseAI        bool   `json:"useAI"`
	PracticeMode bool   `json:"practiceMode"`
}

// JoinGameRequest 加入房间请求
type JoinGameRequest struct {
	PlayerName string `json:"playerName" binding:"required,max=32"`
}

// DrawRequest 摸牌请求
type DrawRequest struct {
	FromDiscard bool `json:"fromDiscard"`
}

// PlaceRequest 放牌请求
type PlaceRequest struct {
	Position *int `json:"position" binding:"required,min=0,max=9"`
}

// JoinResponse 创建或加入房间的响应
type JoinResponse struct {
	RoomCode  string     `json:"roomCode"`
	PlayerID  string     `json:"playerId"`
	Token     string     `json:"token"`
	ExpiresAt int64      `json:"expiresAt"`
	View      *game.View `json:"view"`
}

// GameHandler 牌局处理器
type GameHandler struct {
	service    GameService
	rounds     RoundLister // 可为 nil
	jwtService *jwt.Service

	originPatterns []string
	pingInterval   time.Duration
	logger         *slog.Logger
}

// NewGameHandler 创建牌局处理器
func NewGameHandler(service GameService, rounds RoundLister, jwtService *jwt.Service, originPatterns []string) *GameHandler {
	return &GameHandler{
		service:        service,
		rounds:         rounds,
		jwtService:     jwtService,
		originPatterns: originPatterns,
		pingInterval:   30 * time.Second,
		logger:         slog.Default().With("component", "GameHandler"),
	}
}

// Create 创建房间
// @Summary      创建房间
// @Description  创建新牌局并作为房主入座，返回参与者令牌
// @Tags         牌局
// @Accept       json
// @Produce      json
// @Param        request body CreateGameRequest true "房间参数"
// @Success      200  {object}  response.Response{data=JoinResponse}
// @Failure      200  {object}  response.Response
// @Router       /games [post]
func (h *GameHandler) Create(c *gin.Context) {
	var req CreateGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithMsg(c, response.CodeInvalidParams, err.Error())
		return
	}

	joined, err := h.service.CreateGame(c.Request.Context(), room.CreateRequest{
		PlayerName:   req.PlayerName,
		MaxPlayers:   req.MaxPlayers,
		UseAI:        req.UseAI,
		PracticeMode: req.PracticeMode,
	})
	if err != nil {
		response.ErrorFromAppError(c, appErrors.FromGameError(err))
		return
	}

	h.respondJoined(c, joined)
}

// Join 加入房间
// @Summary      加入房间
// @Description  按房间号入座，领取预留牌架
// @Tags         牌局
// @Accept       json
// @Produce      json
// @Param        code    path  string           true  "房间号"
// @Param        request body  JoinGameRequest  true  "玩家昵称"
// @Success      200  {object}  response.Response{data=JoinResponse}
// @Failure      200  {object}  response.Response
// @Router       /games/{code}/join [post]
func (h *GameHandler) Join(c *gin.Context) {
	var req JoinGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithMsg(c, response.CodeInvalidParams, err.Error())
		return
	}

	joined, err := h.service.JoinGame(c.Request.Context(), c.Param("code"), req.PlayerName)
	if err != nil {
		response.ErrorFromAppError(c, appErrors.FromGameError(err))
		return
	}

	h.respondJoined(c, joined)
}

func (h *GameHandler) respondJoined(c *gin.Context, joined *game.Joined) {
	token, expiresAt, err := h.jwtService.GenerateToken(joined.RoomCode, joined.PlayerID)
	if err != nil {
		h.logger.Error("Failed to sign participant token", "roomCode", joined.RoomCode, "error", err)
		response.Error(c, response.CodeServerError)
		return
	}

	response.Success(c, &JoinResponse{
		RoomCode:  joined.RoomCode,
		PlayerID:  joined.PlayerID,
		Token:     token,
		ExpiresAt: expiresAt.Unix(),
		View:      joined.View,
	})
}

// Get 当前视图
// @Summary      当前视图
// @Tags         牌局
// @Produce      json
// @Security     BearerAuth
// @Param        code  path  string  true  "房间号"
// @Success      200  {object}  response.Response{data=game.View}
// @Failure      200  {object}  response.Response
// @Router       /games/{code} [get]
func (h *GameHandler) Get(c *gin.Context) {
	view, err := h.service.View(c.Request.Context(), middleware.GetRoomCode(c), middleware.GetPlayerID(c))
	h.respondMove(c, view, err)
}

// Draw 摸牌
// @Summary      摸牌
// @Description  从摸牌堆或弃牌堆摸一张牌；非法操作静默返回当前视图
// @Tags         牌局
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        code    path  string       true  "房间号"
// @Param        request body  DrawRequest  false "摸牌来源"
// @Success      200  {object}  response.Response{data=game.View}
// @Failure      200  {object}  response.Response
// @Router       /games/{code}/draw [post]
func (h *GameHandler) Draw(c *gin.Context) {
	var req DrawRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.ErrorWithMsg(c, response.CodeInvalidParams, err.Error())
			return
		}
	}

	view, err := h.service.Draw(c.Request.Context(), middleware.GetRoomCode(c), middleware.GetPlayerID(c), req.FromDiscard)
	h.respondMove(c, view, err)
}

// Place 放牌
// @Summary      放牌
// @Description  把持有的牌放到牌架指定位置
// @Tags         牌局
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        code    path  string        true  "房间号"
// @Param        request body  PlaceRequest  true  "牌架位置 0-9"
// @Success      200  {object}  response.Response{data=game.View}
// @Failure      200  {object}  response.Response
// @Router       /games/{code}/place [post]
func (h *GameHandler) Place(c *gin.Context) {
	var req PlaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithMsg(c, response.CodeInvalidParams, err.Error())
		return
	}

	view, err := h.service.Place(c.Request.Context(), middleware.GetRoomCode(c), middleware.GetPlayerID(c), *req.Position)
	h.respondMove(c, view, err)
}

// Discard 弃牌
// @Summary      弃牌
// @Tags         牌局
// @Produce      json
// @Security     BearerAuth
// @Param        code  path  string  true  "房间号"
// @Success      200  {object}  response.Response{data=game.View}
// @Failure      200  {object}  response.Response
// @Router       /games/{code}/discard [post]
func (h *GameHandler) Discard(c *gin.Context) {
	view, err := h.service.Discard(c.Request.Context(), middleware.GetRoomCode(c), middleware.GetPlayerID(c))
	h.respondMove(c, view, err)
}

// Undo 撤销
// @Summary      撤销上一步
// @Tags         牌局
// @Produce      json
// @Security     BearerAuth
// @Param        code  path  string  true  "房间号"
// @Success      200  {object}  response.Response{data=game.View}
// @Failure      200  {object}  response.Response
// @Router       /games/{code}/undo [post]
func (h *GameHandler) Undo(c *gin.Context) {
	view, err := h.service.Undo(c.Request.Context(), middleware.GetRoomCode(c), middleware.GetPlayerID(c))
	h.respondMove(c, view, err)
}

// NewRound 新一局
// @Summary      开始新的一局
// @Tags         牌局
// @Produce      json
// @Security     BearerAuth
// @Param        code  path  string  true  "房间号"
// @Success      200  {object}  response.Response{data=game.View}
// @Failure      200  {object}  response.Response
// @Router       /games/{code}/new-round [post]
func (h *GameHandler) NewRound(c *gin.Context) {
	view, err := h.service.NewRound(c.Request.Context(), middleware.GetRoomCode(c), middleware.GetPlayerID(c))
	h.respondMove(c, view, err)
}

const defaultRoundsLimit = 20

// RoundsQuery 历史对局查询参数
type RoundsQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}

// Rounds 历史对局
// @Summary      房间历史对局
// @Tags         牌局
// @Produce      json
// @Security     BearerAuth
// @Param        code   path   string  true   "房间号"
// @Param        limit  query  int     false  "条数，默认 20，最多 100"
// @Success      200  {object}  response.Response{data=[]model.Round}
// @Failure      200  {object}  response.Response
// @Router       /games/{code}/rounds [get]
func (h *GameHandler) Rounds(c *gin.Context) {
	if h.rounds == nil {
		response.Success(c, []*model.Round{})
		return
	}

	var query RoundsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.ErrorWithMsg(c, response.CodeInvalidParams, err.Error())
		return
	}
	if query.Limit == 0 {
		query.Limit = defaultRoundsLimit
	}

	rounds, err := h.rounds.ListByRoom(c.Request.Context(), middleware.GetRoomCode(c), query.Limit)
	if err != nil {
		h.logger.Error("Failed to list rounds", "roomCode", middleware.GetRoomCode(c), "error", err)
		response.ErrorFromAppError(c, appErrors.ErrDBError.Wrap(err))
		return
	}
	if rounds == nil {
		rounds = []*model.Round{}
	}
	response.Success(c, rounds)
}

// respondMove 操作结果
// 非法操作静默忽略，返回未改变的视图；连接失败时本地操作已生效，错误码附带最新视图
func (h *GameHandler) respondMove(c *gin.Context, view *game.View, err error) {
	switch {
	case err == nil:
		response.Success(c, view)
	case errors.Is(err, racko.ErrIllegalMove) && view != nil:
		response.Success(c, view)
	case view != nil:
		response.ErrorWithData(c, appErrors.FromGameError(err), view)
	default:
		response.ErrorFromAppError(c, appErrors.FromGameError(err))
	}
}

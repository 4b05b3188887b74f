package errors

import (
	"errors"
	"fmt"

	"github.com/nilsonaj/racko-frontend/internal/game"
	"github.com/nilsonaj/racko-frontend/internal/game/racko"
	"github.com/nilsonaj/racko-frontend/internal/room"
)

// AppError 应用错误类型
// 用于统一管理业务错误，包含错误码和用户可见的消息
type AppError struct {
	Code    int    // 错误码
	Message string // 用户可见的错误消息
	Err     error  // 原始错误（可选，用于调试）
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 支持 errors.Unwrap
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewError 创建新错误
func NewError(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap 包装原始错误
func (e *AppError) Wrap(err error) *AppError {
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Err:     err,
	}
}

// Is 判断是否为指定错误
func Is(err error, target *AppError) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == target.Code
	}
	return false
}

// GetCode 获取错误码，如果不是 AppError 返回默认错误码
func GetCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeServerError
}

// GetMessage 获取错误消息
func GetMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return ErrServerError.Message
}

// ============== 错误码定义 ==============

const (
	CodeSuccess = 0

	// 认证相关 10000-10999
	CodeTokenInvalid = 10003
	CodeTokenExpired = 10004

	// 参数相关 11000-11999
	CodeInvalidParams = 11002

	// 牌局相关 20000-20999
	CodeIllegalMove   = 20001
	CodePileExhausted = 20002
	CodeRoomFull      = 20003
	CodeGameNotFound  = 20004
	CodeConnectivity  = 20005

	// 系统错误 50000-50999
	CodeServerError = 50001
	CodeDBError     = 50002
)

// ============== 预定义错误 ==============

// 认证相关
var (
	ErrTokenInvalid = NewError(CodeTokenInvalid, "Invalid token")
	ErrTokenExpired = NewError(CodeTokenExpired, "Token expired")
)

// 参数相关
var (
	ErrInvalidParams = NewError(CodeInvalidParams, "Invalid parameters")
)

// 牌局相关
var (
	ErrIllegalMove   = NewError(CodeIllegalMove, "Illegal move")
	ErrPileExhausted = NewError(CodePileExhausted, "No cards left to draw!")
	ErrRoomFull      = NewError(CodeRoomFull, "Game full")
	ErrGameNotFound  = NewError(CodeGameNotFound, "Game not found")
	ErrConnectivity  = NewError(CodeConnectivity, "Connection error")
)

// 系统相关
var (
	ErrServerError = NewError(CodeServerError, "Internal server error")
	ErrDBError     = NewError(CodeDBError, "Database error")
)

// FromGameError 把牌局层错误归类为 AppError
func FromGameError(err error) *AppError {
	var appErr *AppError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, racko.ErrIllegalMove):
		return ErrIllegalMove.Wrap(err)
	case errors.Is(err, racko.ErrPileExhausted):
		return ErrPileExhausted.Wrap(err)
	case errors.Is(err, racko.ErrRoomFull):
		return ErrRoomFull.Wrap(err)
	case errors.Is(err, racko.ErrInvalidPlayerCount), errors.Is(err, room.ErrInvalidName), errors.Is(err, room.ErrInvalidRoomCode):
		return ErrInvalidParams.Wrap(err)
	case errors.Is(err, game.ErrGameNotFound), errors.Is(err, racko.ErrUnknownPlayer):
		return ErrGameNotFound.Wrap(err)
	case errors.Is(err, game.ErrConnectivity):
		return ErrConnectivity.Wrap(err)
	default:
		return ErrServerError.Wrap(err)
	}
}

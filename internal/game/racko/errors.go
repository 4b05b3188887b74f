package racko

import (
	"errors"
	"fmt"
)

// 牌局错误定义

var (
	// ErrIllegalMove 非法操作（边界层静默忽略）
	ErrIllegalMove = errors.New("illegal move")

	ErrNotYourTurn      = fmt.Errorf("%w: not your turn", ErrIllegalMove)
	ErrCardAlreadyHeld  = fmt.Errorf("%w: card already held", ErrIllegalMove)
	ErrNoCardHeld       = fmt.Errorf("%w: no card held", ErrIllegalMove)
	ErrForcedCard       = fmt.Errorf("%w: card drawn from discard pile must be placed", ErrIllegalMove)
	ErrInvalidPosition  = fmt.Errorf("%w: invalid rack position", ErrIllegalMove)
	ErrRoundOver        = fmt.Errorf("%w: round is over", ErrIllegalMove)
	ErrEmptyDiscardPile = fmt.Errorf("%w: discard pile is empty", ErrIllegalMove)
	ErrNoUndo           = fmt.Errorf("%w: nothing to undo", ErrIllegalMove)
	ErrUndoExpired      = fmt.Errorf("%w: undo window expired", ErrIllegalMove)
	ErrNotAIsTurn       = fmt.Errorf("%w: seat to move is not computer controlled", ErrIllegalMove)
	ErrStaleTurn        = fmt.Errorf("%w: scheduled turn is no longer current", ErrIllegalMove)

	// ErrPileExhausted 摸牌堆与弃牌堆都无法提供牌
	ErrPileExhausted = errors.New("no cards left to draw")

	// ErrRoomFull 座位已满
	ErrRoomFull = errors.New("game full")

	// ErrNoGame 会话尚未载入牌局
	ErrNoGame = errors.New("no game loaded")

	// ErrInvalidPlayerCount 玩家人数只支持 2-4
	ErrInvalidPlayerCount = errors.New("player count must be 2, 3 or 4")

	// ErrUnknownPlayer 快照中找不到该玩家
	ErrUnknownPlayer = errors.New("player not found")
)

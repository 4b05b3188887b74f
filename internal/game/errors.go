package game

import (
	"errors"
	"fmt"
)

// 游戏相关错误定义

var (
	// ErrGameNotFound 房间不存在（存储中没有快照）
	ErrGameNotFound = errors.New("game not found")

	// ErrNotParticipant 本节点上没有该玩家的会话
	ErrNotParticipant = fmt.Errorf("%w: player has no session on this node", ErrGameNotFound)

	// ErrConnectivity 存储或消息总线不可用
	ErrConnectivity = errors.New("connectivity failure")
)

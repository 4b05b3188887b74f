package room

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/nilsonaj/racko-frontend/internal/game/racko"
)

const (
	// CodeLength 房间号长度
	CodeLength = 6

	// PlayerIDPrefix 真人玩家 ID 前缀
	PlayerIDPrefix = "p_"

	codeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

var (
	// ErrInvalidRoomCode 房间号格式错误
	ErrInvalidRoomCode = errors.New("room code must be 6 letters or digits")

	// ErrInvalidName 玩家昵称为空
	ErrInvalidName = errors.New("player name is required")
)

// NewRoomCode 生成 6 位大写字母数字房间号
func NewRoomCode() string {
	id := uuid.New()
	var b strings.Builder
	for i := 0; i < CodeLength; i++ {
		b.WriteByte(codeAlphabet[int(id[i])%len(codeAlphabet)])
	}
	return b.String()
}

// NewPlayerID 生成真人玩家 ID
func NewPlayerID() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return PlayerIDPrefix + raw[:13]
}

// NormalizeCode 去掉空白并转为大写，格式不对时返回错误
func NormalizeCode(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != CodeLength {
		return "", ErrInvalidRoomCode
	}
	for _, r := range code {
		if !strings.ContainsRune(codeAlphabet, r) {
			return "", ErrInvalidRoomCode
		}
	}
	return code, nil
}

// CreateRequest 创建房间的参数
type CreateRequest struct {
	PlayerName   string
	MaxPlayers   int
	UseAI        bool
	PracticeMode bool
}

// Options 校验参数并生成新牌局的选项（房间号与房主 ID 在这里分配）
func (r CreateRequest) Options() (racko.GameOptions, error) {
	name := strings.TrimSpace(r.PlayerName)
	if name == "" {
		return racko.GameOptions{}, ErrInvalidName
	}
	if _, err := racko.DeckSize(r.MaxPlayers); err != nil {
		return racko.GameOptions{}, err
	}

	return racko.GameOptions{
		RoomCode:     NewRoomCode(),
		MaxPlayers:   r.MaxPlayers,
		UseAI:        r.UseAI,
		PracticeMode: r.PracticeMode,
		HostID:       NewPlayerID(),
		HostName:     name,
	}, nil
}

// Seat 新玩家入座：校验昵称并分配 ID
func Seat(snap *racko.Snapshot, playerName string) (string, error) {
	name := strings.TrimSpace(playerName)
	if name == "" {
		return "", ErrInvalidName
	}

	id := NewPlayerID()
	if err := snap.SeatPlayer(id, name); err != nil {
		return "", fmt.Errorf("join room %s: %w", snap.RoomCode, err)
	}
	return id, nil
}

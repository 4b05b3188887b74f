package model

import "time"

// Round 一局结束时的记录
type Round struct {
	Id          int64          `json:"id" db:"id"`
	RoomCode    string         `json:"roomCode" db:"room_code"`
	Round       int            `json:"round" db:"round"`
	WinnerId    string         `json:"winnerId" db:"winner_id"`
	WinnerName  string         `json:"winnerName" db:"winner_name"`
	Scores      map[string]int `json:"scores" db:"scores"` // playerId -> 累计胜局数
	PlayerCount int            `json:"playerCount" db:"player_count"`
	UseAI       bool           `json:"useAI" db:"use_ai"`
	FinishedAt  time.Time      `json:"finishedAt" db:"finished_at"`
}

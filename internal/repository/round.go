package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nilsonaj/racko-frontend/internal/model"
)

// RoundRepository 对局记录仓库
type RoundRepository struct {
	db *pgxpool.Pool
}

// NewRoundRepository 创建对局记录仓库
func NewRoundRepository(db *pgxpool.Pool) *RoundRepository {
	return &RoundRepository{db: db}
}

// RecordRound 保存一局的结果，同一房间同一局只保留第一条
func (r *RoundRepository) RecordRound(ctx context.Context, round *model.Round) error {
	scores, err := json.Marshal(round.Scores)
	if err != nil {
		return fmt.Errorf("failed to marshal scores: %w", err)
	}

	query := `
		INSERT INTO racko_rounds (room_code, round, winner_id, winner_name, scores, player_count, use_ai, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (room_code, round) DO NOTHING
		RETURNING id
	`

	rows, err := r.db.Query(ctx, query,
		round.RoomCode,
		round.Round,
		round.WinnerId,
		round.WinnerName,
		scores,
		round.PlayerCount,
		round.UseAI,
		round.FinishedAt,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	if rows.Next() {
		if err := rows.Scan(&round.Id); err != nil {
			return err
		}
	}
	return rows.Err()
}

// ListByRoom 房间的历史对局，按局数升序
func (r *RoundRepository) ListByRoom(ctx context.Context, roomCode string, limit int) ([]*model.Round, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	query := `
		SELECT id, room_code, round, winner_id, winner_name, scores, player_count, use_ai, finished_at
		FROM racko_rounds
		WHERE room_code = $1
		ORDER BY round ASC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, roomCode, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rounds []*model.Round
	for rows.Next() {
		var round model.Round
		var scores []byte
		if err := rows.Scan(
			&round.Id,
			&round.RoomCode,
			&round.Round,
			&round.WinnerId,
			&round.WinnerName,
			&scores,
			&round.PlayerCount,
			&round.UseAI,
			&round.FinishedAt,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(scores, &round.Scores); err != nil {
			return nil, fmt.Errorf("failed to unmarshal scores: %w", err)
		}
		rounds = append(rounds, &round)
	}

	return rounds, rows.Err()
}

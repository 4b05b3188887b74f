package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nilsonaj/racko-frontend/internal/game"
	"github.com/nilsonaj/racko-frontend/internal/game/racko"
)

// maxUpdateRetries 乐观更新的最大重试次数
const maxUpdateRetries = 10

// ErrTooManyRetries 并发写入过多，乐观更新放弃
var ErrTooManyRetries = errors.New("snapshot update retries exhausted")

// SnapshotStore 基于 Redis 的房间快照存储
type SnapshotStore struct {
	client redis.UniversalClient
	ttl    time.Duration
	logger *slog.Logger
}

// NewSnapshotStore 创建快照存储
func NewSnapshotStore(client redis.UniversalClient, ttl time.Duration) *SnapshotStore {
	if ttl <= 0 {
		ttl = SnapshotTTL
	}
	return &SnapshotStore{
		client: client,
		ttl:    ttl,
		logger: slog.Default().With("component", "SnapshotStore"),
	}
}

// Save 整体覆盖房间快照（后写者胜）
func (s *SnapshotStore) Save(ctx context.Context, snap *racko.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := s.client.Set(ctx, BuildSnapshotKey(snap.RoomCode), data, s.ttl).Err(); err != nil {
		return err
	}

	s.logger.Debug("Saved snapshot", "roomCode", snap.RoomCode, "seq", snap.Seq)
	return nil
}

// Load 读取房间快照，不存在时返回 game.ErrGameNotFound
func (s *SnapshotStore) Load(ctx context.Context, roomCode string) (*racko.Snapshot, error) {
	data, err := s.client.Get(ctx, BuildSnapshotKey(roomCode)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, game.ErrGameNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeSnapshot(data)
}

// Update 读-改-写，WATCH 期间 Key 被其他节点改写时重试
func (s *SnapshotStore) Update(ctx context.Context, roomCode string, fn func(*racko.Snapshot) error) (*racko.Snapshot, error) {
	key := BuildSnapshotKey(roomCode)
	var result *racko.Snapshot

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return game.ErrGameNotFound
		}
		if err != nil {
			return err
		}

		snap, err := decodeSnapshot(data)
		if err != nil {
			return err
		}
		if err := fn(snap); err != nil {
			return err
		}

		next, err := json.Marshal(snap)
		if err != nil {
			return fmt.Errorf("failed to marshal snapshot: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, s.ttl)
			return nil
		})
		if err == nil {
			result = snap
		}
		return err
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			s.logger.Debug("Updated snapshot", "roomCode", roomCode, "seq", result.Seq, "attempts", i+1)
			return result, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, err
	}

	s.logger.Warn("Snapshot update kept conflicting", "roomCode", roomCode)
	return nil, ErrTooManyRetries
}

func decodeSnapshot(data []byte) (*racko.Snapshot, error) {
	var snap racko.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

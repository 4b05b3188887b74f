package game

import (
	"context"
	"time"

	"github.com/nilsonaj/racko-frontend/internal/game/racko"
	"github.com/nilsonaj/racko-frontend/internal/model"
	"github.com/nilsonaj/racko-frontend/internal/task"
	"github.com/nilsonaj/racko-frontend/pkg/proto"
)

// Publisher 把快照广播给其他节点
type Publisher interface {
	PublishSnapshot(ctx context.Context, env *proto.SnapshotEnvelope) error
}

// SnapshotStore 每个房间最新快照的存储，也是轮询的数据源
type SnapshotStore interface {
	Save(ctx context.Context, snap *racko.Snapshot) error
	// Load 房间不存在时返回 ErrGameNotFound
	Load(ctx context.Context, roomCode string) (*racko.Snapshot, error)
	// Update 读取-修改-写回，期间快照被其他人改动时重试
	Update(ctx context.Context, roomCode string, fn func(*racko.Snapshot) error) (*racko.Snapshot, error)
}

// Scheduler 延迟任务调度
type Scheduler interface {
	AddTask(t *task.Task) error
	Cancel(taskID string) bool
	Ticks(d time.Duration) int
}

// RoundRecorder 记录结束的牌局
type RoundRecorder interface {
	RecordRound(ctx context.Context, round *model.Round) error
}

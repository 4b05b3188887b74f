package nats

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/nilsonaj/racko-frontend/pkg/proto"
)

// SnapshotPublisher 快照发布器
type SnapshotPublisher struct {
	nc     *nats.Conn
	logger *slog.Logger
}

// NewSnapshotPublisher 创建快照发布器
func NewSnapshotPublisher(nc *nats.Conn) *SnapshotPublisher {
	return &SnapshotPublisher{
		nc:     nc,
		logger: slog.Default().With("component", "SnapshotPublisher"),
	}
}

// PublishSnapshot 广播房间快照到所有节点
func (p *SnapshotPublisher) PublishSnapshot(ctx context.Context, env *proto.SnapshotEnvelope) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(env)
	if err != nil {
		p.logger.Error("Failed to marshal snapshot", "roomCode", env.RoomCode, "error", err)
		return err
	}

	subject := BuildRoomSubject(env.RoomCode)
	if err := p.nc.Publish(subject, data); err != nil {
		p.logger.Error("Failed to publish snapshot", "roomCode", env.RoomCode, "error", err)
		return err
	}

	p.logger.Debug("Published snapshot", "subject", subject, "origin", env.Origin)
	return nil
}

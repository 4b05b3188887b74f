package nats

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/nats-io/nats.go"

	"github.com/nilsonaj/racko-frontend/pkg/proto"
)

// SnapshotHandler 快照处理器接口
type SnapshotHandler interface {
	OnSnapshotReceived(ctx context.Context, env *proto.SnapshotEnvelope)
}

// SubscriberConfig Worker Pool 配置
type SubscriberConfig struct {
	WorkerCount int // Worker 数量
	BufferSize  int // 每个 Worker 的缓冲区大小
}

// SnapshotSubscriber 快照订阅器
// 同一房间的消息总是交给同一个 worker，保证按到达顺序处理
type SnapshotSubscriber struct {
	nc           *nats.Conn
	handler      SnapshotHandler
	logger       *slog.Logger
	subscription *nats.Subscription
	config       SubscriberConfig
	shards       []chan *nats.Msg
	wg           sync.WaitGroup
	cancelFunc   context.CancelFunc
}

// NewSnapshotSubscriber 创建快照订阅器
func NewSnapshotSubscriber(nc *nats.Conn, handler SnapshotHandler, config SubscriberConfig) *SnapshotSubscriber {
	if config.WorkerCount <= 0 {
		config.WorkerCount = 16
	}
	if config.BufferSize <= 0 {
		config.BufferSize = 256
	}

	return &SnapshotSubscriber{
		nc:      nc,
		handler: handler,
		logger:  slog.Default().With("component", "SnapshotSubscriber"),
		config:  config,
	}
}

// Start 启动订阅
// 每个节点都需要收到所有快照，因此不使用队列组
func (s *SnapshotSubscriber) Start(ctx context.Context) error {
	s.shards = make([]chan *nats.Msg, s.config.WorkerCount)
	for i := range s.shards {
		s.shards[i] = make(chan *nats.Msg, s.config.BufferSize)
	}

	workerCtx, cancel := context.WithCancel(ctx)
	s.cancelFunc = cancel

	for i := range s.shards {
		s.wg.Add(1)
		go s.worker(workerCtx, s.shards[i])
	}

	sub, err := s.nc.Subscribe(SubjectRoomWildcard, s.dispatch)
	if err != nil {
		cancel()
		return err
	}

	s.subscription = sub
	s.logger.Info("NATS subscriber started",
		"subject", SubjectRoomWildcard,
		"workerCount", s.config.WorkerCount,
		"bufferSize", s.config.BufferSize,
	)
	return nil
}

// dispatch 按房间号分片入队
func (s *SnapshotSubscriber) dispatch(msg *nats.Msg) {
	shard := s.shards[ShardFor(msg.Subject, len(s.shards))]
	select {
	case shard <- msg:
	default:
		// 丢弃的快照由轮询补齐
		s.logger.Warn("Snapshot buffer full, dropping message", "subject", msg.Subject)
	}
}

// ShardFor 计算 key 所在的分片
func ShardFor(key string, shards int) int {
	if shards <= 1 {
		return 0
	}
	return int(xxhash.Sum64String(key) % uint64(shards))
}

func (s *SnapshotSubscriber) worker(ctx context.Context, msgs <-chan *nats.Msg) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			s.handleMessage(ctx, msg.Subject, msg.Data)
		}
	}
}

// handleMessage 解析并交给处理器
func (s *SnapshotSubscriber) handleMessage(ctx context.Context, subject string, data []byte) {
	var env proto.SnapshotEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		s.logger.Error("Failed to unmarshal snapshot", "subject", subject, "error", err)
		return
	}

	code, ok := ParseRoomSubject(subject)
	if !ok || env.GetSnapshot() == nil || env.RoomCode != code {
		s.logger.Warn("Discarding malformed snapshot", "subject", subject, "roomCode", env.RoomCode)
		return
	}

	s.handler.OnSnapshotReceived(ctx, &env)
}

// Stop 停止订阅
func (s *SnapshotSubscriber) Stop() error {
	if s.subscription != nil {
		if err := s.subscription.Unsubscribe(); err != nil {
			s.logger.Error("Failed to unsubscribe", "error", err)
		}
	}

	if s.cancelFunc != nil {
		s.cancelFunc()
	}

	s.wg.Wait()

	s.logger.Info("NATS subscriber stopped")
	return nil
}

// GetBufferUsage 获取缓冲区使用情况（用于监控）
func (s *SnapshotSubscriber) GetBufferUsage() (current int, capacity int) {
	for _, ch := range s.shards {
		current += len(ch)
		capacity += cap(ch)
	}
	return current, capacity
}

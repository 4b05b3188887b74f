package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nilsonaj/racko-frontend/internal/game/racko"
	"github.com/nilsonaj/racko-frontend/internal/room"
	"github.com/nilsonaj/racko-frontend/pkg/proto"
)

// ServiceConfig 牌局服务配置
type ServiceConfig struct {
	NodeID       string        // 本节点 ID，广播时作为来源
	AIDelay      time.Duration // 电脑玩家行动前的等待
	UndoWindow   time.Duration // 撤销有效期
	PollInterval time.Duration // 轮询存储的间隔
}

// ServiceOption 服务配置项
type ServiceOption func(*GameService)

// WithDeckGenerator 指定洗牌用的生成器
func WithDeckGenerator(gen *racko.DeckGenerator) ServiceOption {
	return func(s *GameService) {
		if gen != nil {
			s.deckGen = gen
		}
	}
}

// WithSessionOptions 附加创建会话时的选项
func WithSessionOptions(opts ...racko.SessionOption) ServiceOption {
	return func(s *GameService) {
		s.sessionOpts = append(s.sessionOpts, opts...)
	}
}

// GameService 牌局服务
// 每个参与者在本节点上有独立的会话，状态变化先写入存储再通过 NATS 广播
type GameService struct {
	manager   *GameManager
	store     SnapshotStore
	publisher Publisher
	scheduler Scheduler
	rounds    RoundRecorder // 可为 nil

	cfg         ServiceConfig
	deckGen     *racko.DeckGenerator
	sessionOpts []racko.SessionOption
	logger      *slog.Logger
}

// NewGameService 创建牌局服务
func NewGameService(
	manager *GameManager,
	store SnapshotStore,
	publisher Publisher,
	scheduler Scheduler,
	rounds RoundRecorder,
	cfg ServiceConfig,
	opts ...ServiceOption,
) *GameService {
	if cfg.AIDelay <= 0 {
		cfg.AIDelay = time.Second
	}
	if cfg.UndoWindow <= 0 {
		cfg.UndoWindow = racko.DefaultUndoWindow
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}

	s := &GameService{
		manager:   manager,
		store:     store,
		publisher: publisher,
		scheduler: scheduler,
		rounds:    rounds,
		cfg:       cfg,
		deckGen:   racko.NewDeckGenerator(),
		logger:    slog.Default().With("component", "GameService"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.sessionOpts = append([]racko.SessionOption{
		racko.WithDeckGenerator(s.deckGen),
		racko.WithUndoWindow(cfg.UndoWindow),
	}, s.sessionOpts...)

	manager.OnEvict(s.onEvict)

	return s
}

// Joined 创建或加入房间的结果
type Joined struct {
	RoomCode string `json:"roomCode"`
	PlayerID string `json:"playerId"`
	View     *View  `json:"view"`
}

// CreateGame 创建房间并作为房主入座
func (s *GameService) CreateGame(ctx context.Context, req room.CreateRequest) (*Joined, error) {
	opts, err := req.Options()
	if err != nil {
		return nil, err
	}

	snap, err := racko.NewGame(opts, s.deckGen)
	if err != nil {
		return nil, err
	}

	if err := s.store.Save(ctx, snap); err != nil {
		s.logger.Error("Failed to store new game", "roomCode", snap.RoomCode, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrConnectivity, err)
	}

	g := s.enter(snap, opts.HostID)
	s.broadcast(ctx, g, snap)

	s.logger.Info("Game created",
		"roomCode", snap.RoomCode,
		"playerId", opts.HostID,
		"maxPlayers", snap.MaxPlayers,
		"useAI", snap.UseAI,
		"practiceMode", snap.PracticeMode)

	return &Joined{RoomCode: snap.RoomCode, PlayerID: opts.HostID, View: g.View()}, nil
}

// JoinGame 加入房间，领取一个预留牌架
func (s *GameService) JoinGame(ctx context.Context, roomCode, playerName string) (*Joined, error) {
	code, err := room.NormalizeCode(roomCode)
	if err != nil {
		return nil, err
	}

	var playerID string
	snap, err := s.store.Update(ctx, code, func(snap *racko.Snapshot) error {
		id, err := room.Seat(snap, playerName)
		if err != nil {
			return err
		}
		playerID = id
		snap.Seq++
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrGameNotFound), errors.Is(err, racko.ErrRoomFull), errors.Is(err, room.ErrInvalidName):
			return nil, err
		default:
			s.logger.Error("Failed to join game", "roomCode", code, "error", err)
			return nil, fmt.Errorf("%w: %w", ErrConnectivity, err)
		}
	}

	g := s.enter(snap, playerID)
	s.deliverLocal(g, snap)
	s.broadcast(ctx, g, snap)

	s.logger.Info("Player joined", "roomCode", code, "playerId", playerID, "players", len(snap.Players))

	return &Joined{RoomCode: code, PlayerID: playerID, View: g.View()}, nil
}

// enter 为玩家创建本地会话并开始轮询
func (s *GameService) enter(snap *racko.Snapshot, playerID string) *Game {
	session := racko.NewSession(playerID, s.sessionOpts...)
	session.Load(snap)

	g := s.manager.Add(NewGame(snap.RoomCode, playerID, session))
	g.SetMessage(StatusMessage(snap, playerID))

	s.startPolling(snap.RoomCode)
	s.maybeScheduleAI(g)
	return g
}

// View 当前视图
func (s *GameService) View(ctx context.Context, roomCode, playerID string) (*View, error) {
	g, err := s.participant(roomCode, playerID)
	if err != nil {
		return nil, err
	}
	g.Touch()
	return g.View(), nil
}

// KeepAlive 只观看不操作的连接定期续期，避免被当作不活跃淘汰
func (s *GameService) KeepAlive(roomCode, playerID string) error {
	g, err := s.participant(roomCode, playerID)
	if err != nil {
		return err
	}
	g.Touch()
	return nil
}

// Watch 订阅视图变化
func (s *GameService) Watch(roomCode, playerID string) (<-chan *View, func(), error) {
	g, err := s.participant(roomCode, playerID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := g.Watch()
	return ch, cancel, nil
}

// Draw 摸牌
func (s *GameService) Draw(ctx context.Context, roomCode, playerID string, fromDiscard bool) (*View, error) {
	return s.apply(ctx, roomCode, playerID, moveDraw, func(sess *racko.Session) (*racko.Snapshot, error) {
		return sess.Draw(fromDiscard)
	})
}

// Place 放牌
func (s *GameService) Place(ctx context.Context, roomCode, playerID string, position int) (*View, error) {
	return s.apply(ctx, roomCode, playerID, movePlace, func(sess *racko.Session) (*racko.Snapshot, error) {
		return sess.Place(position)
	})
}

// Discard 弃牌
func (s *GameService) Discard(ctx context.Context, roomCode, playerID string) (*View, error) {
	return s.apply(ctx, roomCode, playerID, moveDiscard, (*racko.Session).Discard)
}

// Undo 撤销上一步
func (s *GameService) Undo(ctx context.Context, roomCode, playerID string) (*View, error) {
	return s.apply(ctx, roomCode, playerID, moveUndo, (*racko.Session).Undo)
}

// NewRound 开始新的一局
func (s *GameService) NewRound(ctx context.Context, roomCode, playerID string) (*View, error) {
	return s.apply(ctx, roomCode, playerID, moveNewRound, (*racko.Session).NewRound)
}

type moveKind string

const (
	moveDraw     moveKind = "draw"
	movePlace    moveKind = "place"
	moveDiscard  moveKind = "discard"
	moveUndo     moveKind = "undo"
	moveNewRound moveKind = "new_round"
)

// apply 执行一次本地操作并发布结果
// 非法操作原样返回错误和未改变的视图，由边界层静默处理
func (s *GameService) apply(
	ctx context.Context,
	roomCode, playerID string,
	kind moveKind,
	fn func(*racko.Session) (*racko.Snapshot, error),
) (*View, error) {
	g, err := s.participant(roomCode, playerID)
	if err != nil {
		return nil, err
	}
	g.Touch()

	snap, err := fn(g.session)
	if err != nil {
		switch {
		case errors.Is(err, racko.ErrPileExhausted):
			g.SetMessage(MessageNoCardsToDraw)
			g.notify()
		case errors.Is(err, racko.ErrIllegalMove):
			s.logger.Debug("Ignored illegal move",
				"roomCode", g.roomCode, "playerId", g.playerID, "move", kind, "reason", err)
		default:
			return nil, err
		}
		return g.View(), err
	}

	switch kind {
	case moveDraw:
		if held, ok := g.session.Held(); ok && held.FromDiscard {
			g.SetMessage(MessageMustUseCard)
		} else {
			g.SetMessage(MessagePlaceDiscard)
		}
	default:
		g.SetMessage(StatusMessage(snap, g.playerID))
	}

	switch kind {
	case movePlace, moveDiscard:
		s.scheduleUndoExpiry(g)
	case moveUndo, moveNewRound:
		s.scheduler.Cancel(undoTaskID(g.roomCode, g.playerID))
	}
	if kind == movePlace && snap.Winner == g.playerID {
		s.recordRound(ctx, snap)
	}

	pubErr := s.publish(ctx, g, snap)
	s.maybeScheduleAI(g)
	g.notify()

	s.logger.Debug("Applied move", "roomCode", g.roomCode, "playerId", g.playerID, "move", kind, "seq", snap.Seq)
	return g.View(), pubErr
}

// publish 写入存储、通知本节点其他参与者、广播到其他节点
// 任一步失败都不回滚本地状态，依靠轮询最终一致
func (s *GameService) publish(ctx context.Context, from *Game, snap *racko.Snapshot) error {
	var errs []error
	if err := s.store.Save(ctx, snap); err != nil {
		errs = append(errs, fmt.Errorf("save snapshot: %w", err))
	}

	s.deliverLocal(from, snap)

	if err := s.publishEnvelope(ctx, snap); err != nil {
		errs = append(errs, fmt.Errorf("publish snapshot: %w", err))
	}

	if len(errs) == 0 {
		return nil
	}

	err := errors.Join(errs...)
	from.SetMessage(MessageConnection)
	s.logger.Warn("Failed to publish snapshot", "roomCode", snap.RoomCode, "seq", snap.Seq, "error", err)
	return fmt.Errorf("%w: %w", ErrConnectivity, err)
}

// broadcast 只广播（快照已在存储中）
func (s *GameService) broadcast(ctx context.Context, from *Game, snap *racko.Snapshot) {
	if err := s.publishEnvelope(ctx, snap); err != nil {
		from.SetMessage(MessageConnection)
		s.logger.Warn("Failed to broadcast snapshot", "roomCode", snap.RoomCode, "error", err)
	}
}

func (s *GameService) publishEnvelope(ctx context.Context, snap *racko.Snapshot) error {
	return s.publisher.PublishSnapshot(ctx, &proto.SnapshotEnvelope{
		Origin:   s.cfg.NodeID,
		RoomCode: snap.RoomCode,
		Snapshot: snap,
		SentAt:   time.Now().UnixMilli(),
	})
}

// deliverLocal 把快照交给本节点上同房间的其他参与者
func (s *GameService) deliverLocal(from *Game, snap *racko.Snapshot) {
	for _, g := range s.manager.ByRoom(snap.RoomCode) {
		if g == from {
			continue
		}
		s.receive(g, snap)
	}
}

// OnSnapshotReceived 处理其他节点广播的快照，忽略本节点自己的回声
func (s *GameService) OnSnapshotReceived(ctx context.Context, env *proto.SnapshotEnvelope) {
	snap := env.GetSnapshot()
	if snap == nil || env.Origin == s.cfg.NodeID {
		return
	}

	for _, g := range s.manager.ByRoom(env.RoomCode) {
		s.receive(g, snap)
	}
}

// RequestCurrentSnapshot 从存储读取房间最新快照并应用到本节点所有参与者
func (s *GameService) RequestCurrentSnapshot(ctx context.Context, roomCode string) error {
	games := s.manager.ByRoom(roomCode)
	if len(games) == 0 {
		return nil
	}

	snap, err := s.store.Load(ctx, roomCode)
	if err != nil {
		for _, g := range games {
			g.SetMessage(MessageConnection)
			g.notify()
		}
		return fmt.Errorf("%w: %w", ErrConnectivity, err)
	}

	for _, g := range games {
		if !s.receive(g, snap) && g.Message() == MessageConnection {
			// 连接恢复后恢复正常提示
			g.SetMessage(StatusMessage(snap, g.playerID))
			g.notify()
		}
	}
	return nil
}

// receive 整体替换参与者的本地状态
func (s *GameService) receive(g *Game, snap *racko.Snapshot) bool {
	if !g.session.Receive(snap) {
		return false
	}

	g.SetMessage(StatusMessage(snap, g.playerID))
	s.maybeScheduleAI(g)
	g.notify()
	return true
}

func (s *GameService) participant(roomCode, playerID string) (*Game, error) {
	g, ok := s.manager.Get(roomCode, playerID)
	if !ok {
		return nil, ErrNotParticipant
	}
	return g, nil
}

// recordRound 记录一局的结果，失败只记日志
func (s *GameService) recordRound(ctx context.Context, snap *racko.Snapshot) {
	if s.rounds == nil {
		return
	}

	round := newRoundRecord(snap)
	if err := s.rounds.RecordRound(ctx, round); err != nil {
		s.logger.Warn("Failed to record round", "roomCode", snap.RoomCode, "round", snap.Round, "error", err)
	}
}

// onEvict 房间在本节点上没有参与者后停止它的定时任务
func (s *GameService) onEvict(g *Game) {
	s.scheduler.Cancel(undoTaskID(g.roomCode, g.playerID))
	if len(s.manager.ByRoom(g.roomCode)) == 0 {
		s.scheduler.Cancel(pollTaskID(g.roomCode))
		s.scheduler.Cancel(aiTaskID(g.roomCode))
	}
}

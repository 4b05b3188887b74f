package game

import (
	"context"
	"errors"
	"time"

	"github.com/nilsonaj/racko-frontend/internal/game/racko"
	"github.com/nilsonaj/racko-frontend/internal/model"
	"github.com/nilsonaj/racko-frontend/internal/task"
)

const (
	metaPlayerID task.MetaKey = "playerId" // 驱动任务的参与者
	metaTurnKey  task.MetaKey = "turnKey"  // 安排电脑回合时的回合身份
	metaMoveID   task.MetaKey = "moveId"   // 待过期的撤销缓冲
)

func aiTaskID(roomCode string) string {
	return "ai:" + roomCode
}

func pollTaskID(roomCode string) string {
	return "poll:" + roomCode
}

func undoTaskID(roomCode, playerID string) string {
	return "undo:" + roomCode + ":" + playerID
}

func (s *GameService) addTask(t *task.Task) {
	if err := s.scheduler.AddTask(t); err != nil {
		s.logger.Warn("Failed to schedule task", "taskId", t.ID, "error", err)
	}
}

// startPolling 定时从存储拉取快照，作为广播丢失时的兜底
func (s *GameService) startPolling(roomCode string) {
	s.addTask(task.NewTask(pollTaskID(roomCode), roomCode, s.scheduler.Ticks(s.cfg.PollInterval), s.pollTask))
}

func (s *GameService) pollTask(ctx context.Context, roomCode string, _ task.Metadata) error {
	if len(s.manager.ByRoom(roomCode)) == 0 {
		return nil
	}

	err := s.RequestCurrentSnapshot(ctx, roomCode)
	s.startPolling(roomCode)
	return err
}

// maybeScheduleAI 轮到电脑玩家时安排一次电脑回合
// 由房主（第一个座位）的会话驱动，同一房间只保留一个待执行的电脑回合
func (s *GameService) maybeScheduleAI(g *Game) {
	st := g.session.State()
	snap := st.Snapshot
	if snap == nil || snap.Winner != "" || !snap.Seated() || len(snap.Players) == 0 {
		return
	}
	if cur := snap.CurrentPlayer(); cur == nil || !cur.IsAI {
		return
	}
	if snap.Players[0].ID != g.playerID {
		return
	}

	t := task.NewTask(aiTaskID(g.roomCode), g.roomCode, s.scheduler.Ticks(s.cfg.AIDelay), s.aiTask).
		With(metaPlayerID, g.playerID).
		With(metaTurnKey, st.TurnKey)
	s.addTask(t)
}

func (s *GameService) aiTask(ctx context.Context, roomCode string, meta task.Metadata) error {
	playerID := meta.String(metaPlayerID)
	key, _ := meta[metaTurnKey].(racko.TurnKey)

	g, ok := s.manager.Get(roomCode, playerID)
	if !ok {
		return nil
	}

	snap, decision, err := g.session.PlayAITurn(key)
	switch {
	case errors.Is(err, racko.ErrPileExhausted):
		s.logger.Warn("AI cannot draw, turn skipped", "roomCode", roomCode)
		return nil
	case errors.Is(err, racko.ErrIllegalMove):
		s.logger.Debug("Stale AI turn dropped", "roomCode", roomCode, "reason", err)
		return nil
	case err != nil:
		return err
	}

	s.logger.Info("AI moved",
		"roomCode", roomCode,
		"aiPlayer", decision.PlayerID,
		"fromDiscard", decision.FromDiscard,
		"position", decision.Position,
		"fallback", decision.Fallback,
		"won", decision.Won)

	g.SetMessage(StatusMessage(snap, g.playerID))
	if decision.Won {
		s.recordRound(ctx, snap)
	}
	_ = s.publish(ctx, g, snap)
	s.maybeScheduleAI(g)
	g.notify()
	return nil
}

// scheduleUndoExpiry 撤销窗口到期后清除缓冲并刷新视图
// 多等一格，保证到期任务不会早于窗口结束
func (s *GameService) scheduleUndoExpiry(g *Game) {
	id, ok := g.session.PendingMoveID()
	if !ok {
		return
	}

	t := task.NewTask(undoTaskID(g.roomCode, g.playerID), g.roomCode, s.scheduler.Ticks(s.cfg.UndoWindow)+1, s.undoTask).
		With(metaPlayerID, g.playerID).
		With(metaMoveID, id)
	s.addTask(t)
}

func (s *GameService) undoTask(_ context.Context, roomCode string, meta task.Metadata) error {
	playerID := meta.String(metaPlayerID)
	id := meta.Uint64(metaMoveID)

	g, ok := s.manager.Get(roomCode, playerID)
	if !ok {
		return nil
	}
	if g.session.ExpireUndo(id) {
		g.notify()
	}
	return nil
}

// newRoundRecord 由刚结束的一局生成记录
func newRoundRecord(snap *racko.Snapshot) *model.Round {
	round := &model.Round{
		RoomCode:    snap.RoomCode,
		Round:       snap.Round,
		WinnerId:    snap.Winner,
		Scores:      make(map[string]int, len(snap.Players)),
		PlayerCount: snap.MaxPlayers,
		UseAI:       snap.UseAI,
		FinishedAt:  time.Now(),
	}
	if w := snap.WinnerPlayer(); w != nil {
		round.WinnerName = w.Name
	}
	for _, p := range snap.Players {
		round.Scores[p.ID] = p.Score
	}
	return round
}

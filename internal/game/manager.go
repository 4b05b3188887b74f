package game

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// GameManager 本节点上的参与者管理器
type GameManager struct {
	games sync.Map // roomCode:playerId -> *Game

	evictTimeout time.Duration
	evictTicker  *time.Ticker
	onEvict      func(g *Game)

	stopChan chan struct{}
	stopOnce sync.Once

	logger *slog.Logger
}

// NewGameManager 创建管理器，长时间没有操作的参与者会被淘汰
func NewGameManager(evictTimeout, evictInterval time.Duration) *GameManager {
	if evictInterval <= 0 {
		evictInterval = 60 * time.Second
	}

	m := &GameManager{
		evictTimeout: evictTimeout,
		evictTicker:  time.NewTicker(evictInterval),
		stopChan:     make(chan struct{}),
		logger:       slog.Default().With("component", "GameManager"),
	}

	go m.evictLoop()

	return m
}

// OnEvict 注册淘汰回调
func (m *GameManager) OnEvict(fn func(g *Game)) {
	m.onEvict = fn
}

// Add 添加参与者，已存在时返回已有的
func (m *GameManager) Add(g *Game) *Game {
	actual, _ := m.games.LoadOrStore(g.Key(), g)
	return actual.(*Game)
}

// Get 获取参与者
func (m *GameManager) Get(roomCode, playerID string) (*Game, bool) {
	val, ok := m.games.Load(participantKey(roomCode, playerID))
	if !ok {
		return nil, false
	}
	return val.(*Game), true
}

// ByRoom 某个房间在本节点上的所有参与者
func (m *GameManager) ByRoom(roomCode string) []*Game {
	var out []*Game
	m.games.Range(func(key, value any) bool {
		g := value.(*Game)
		if g.roomCode == roomCode {
			out = append(out, g)
		}
		return true
	})
	return out
}

// Remove 移除参与者
func (m *GameManager) Remove(roomCode, playerID string) {
	val, ok := m.games.LoadAndDelete(participantKey(roomCode, playerID))
	if !ok {
		return
	}
	val.(*Game).closeWatchers()
	m.logger.Info("Removed participant", "roomCode", roomCode, "playerId", playerID)
}

// Count 返回当前参与者数
func (m *GameManager) Count() int {
	count := 0
	m.games.Range(func(key, value any) bool {
		count++
		return true
	})
	return count
}

func (m *GameManager) evictLoop() {
	for {
		select {
		case <-m.evictTicker.C:
			m.evictInactive(time.Now())
		case <-m.stopChan:
			m.logger.Info("Evict loop stopped")
			return
		}
	}
}

// evictInactive 淘汰不活跃的参与者
func (m *GameManager) evictInactive(now time.Time) {
	var toEvict []*Game

	m.games.Range(func(key, value any) bool {
		g := value.(*Game)
		if now.Sub(g.LastActiveTime()) > m.evictTimeout {
			toEvict = append(toEvict, g)
		}
		return true
	})

	for _, g := range toEvict {
		m.Remove(g.roomCode, g.playerID)
		if m.onEvict != nil {
			m.onEvict(g)
		}
		m.logger.Info("Evicted inactive participant", "roomCode", g.roomCode, "playerId", g.playerID)
	}
}

// Shutdown 关闭管理器
func (m *GameManager) Shutdown(ctx context.Context) error {
	m.stopOnce.Do(func() {
		close(m.stopChan)
		m.evictTicker.Stop()
	})

	m.games.Range(func(key, value any) bool {
		value.(*Game).closeWatchers()
		return true
	})

	m.logger.Info("GameManager shutdown complete", "participants", m.Count())
	return nil
}

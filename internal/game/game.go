package game

import (
	"sync"
	"time"

	"github.com/nilsonaj/racko-frontend/internal/game/racko"
)

// Game 本节点上某个玩家参与的一局游戏
// 牌局规则状态在 session 中，这里只保存展示相关的状态与订阅者
type Game struct {
	mu sync.RWMutex

	roomCode   string
	playerID   string
	session    *racko.Session
	message    string
	lastActive time.Time

	watchers    map[int]chan *View
	nextWatcher int
}

// NewGame 创建参与者
func NewGame(roomCode, playerID string, session *racko.Session) *Game {
	return &Game{
		roomCode:   roomCode,
		playerID:   playerID,
		session:    session,
		lastActive: time.Now(),
		watchers:   make(map[int]chan *View),
	}
}

// Key 管理器中的键
func (g *Game) Key() string {
	return participantKey(g.roomCode, g.playerID)
}

func participantKey(roomCode, playerID string) string {
	return roomCode + ":" + playerID
}

// RoomCode 房间号
func (g *Game) RoomCode() string {
	return g.roomCode
}

// PlayerID 玩家 ID
func (g *Game) PlayerID() string {
	return g.playerID
}

// Session 规则会话
func (g *Game) Session() *racko.Session {
	return g.session
}

// Message 当前提示语
func (g *Game) Message() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.message
}

// SetMessage 更新提示语
func (g *Game) SetMessage(msg string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.message = msg
}

// Touch 刷新活跃时间
func (g *Game) Touch() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastActive = time.Now()
}

// LastActiveTime 获取最后活跃时间
func (g *Game) LastActiveTime() time.Time {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.lastActive
}

// View 当前视图
func (g *Game) View() *View {
	return BuildView(g.session, g.Message())
}

// Watch 订阅视图变化，返回的函数用于取消订阅
// 订阅者处理不及时时只保留最新的视图
func (g *Game) Watch() (<-chan *View, func()) {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := g.nextWatcher
	g.nextWatcher++
	ch := make(chan *View, 1)
	g.watchers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			g.mu.Lock()
			defer g.mu.Unlock()
			if w, ok := g.watchers[id]; ok {
				delete(g.watchers, id)
				close(w)
			}
		})
	}
}

// notify 把最新视图推给所有订阅者
func (g *Game) notify() {
	view := g.View()

	g.mu.Lock()
	defer g.mu.Unlock()

	for _, ch := range g.watchers {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- view:
		default:
		}
	}
}

// closeWatchers 关闭所有订阅（淘汰或停机时）
func (g *Game) closeWatchers() {
	g.mu.Lock()
	defer g.mu.Unlock()

	for id, ch := range g.watchers {
		delete(g.watchers, id)
		close(ch)
	}
}

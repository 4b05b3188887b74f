package racko

import (
	"reflect"
	"sync"
	"time"
)

// DefaultUndoWindow 撤销缓冲的有效期
const DefaultUndoWindow = 3 * time.Second

// DiscardPosition PendingMove.Position 为此值时表示上一步是弃牌
const DiscardPosition = -1

// HeldCard 已摸起、尚未放置的牌
type HeldCard struct {
	Card        Card `json:"card"`
	FromDiscard bool `json:"fromDiscard"` // 从弃牌堆摸起的牌只能放入牌架
}

// PendingMove 撤销缓冲：放牌/弃牌前的完整快照及当时持有的牌
type PendingMove struct {
	ID        uint64
	Before    *Snapshot
	Held      HeldCard
	Position  int
	CreatedAt time.Time
}

// TurnKey 一个回合的身份，定时的电脑回合触发时据此判断是否过期
type TurnKey struct {
	Round int
	Turn  int
	Seq   uint64
}

// Session 单个参与者视角下的牌局
// 持有本地快照、摸起的牌和撤销缓冲；所有操作在锁内原子完成，
// 返回给调用方的快照都是深拷贝。
type Session struct {
	mu sync.Mutex

	playerID string
	state    *Snapshot
	held     *HeldCard
	undo     *PendingMove
	moveID   uint64

	deckGen    *DeckGenerator
	undoWindow time.Duration
	now        func() time.Time
}

// SessionOption 会话配置项
type SessionOption func(*Session)

// WithUndoWindow 设置撤销有效期
func WithUndoWindow(d time.Duration) SessionOption {
	return func(s *Session) {
		if d > 0 {
			s.undoWindow = d
		}
	}
}

// WithClock 替换时钟（测试用）
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// WithDeckGenerator 替换牌堆生成器
func WithDeckGenerator(gen *DeckGenerator) SessionOption {
	return func(s *Session) {
		if gen != nil {
			s.deckGen = gen
		}
	}
}

// NewSession 创建参与者会话
func NewSession(playerID string, opts ...SessionOption) *Session {
	s := &Session{
		playerID:   playerID,
		deckGen:    NewDeckGenerator(),
		undoWindow: DefaultUndoWindow,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PlayerID 本地玩家 ID
func (s *Session) PlayerID() string {
	return s.playerID
}

// Load 载入牌局（创建或加入时），清空本地持牌与撤销缓冲
func (s *Session) Load(snap *Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = snap.Clone()
	s.held = nil
	s.undo = nil
}

// Snapshot 当前快照的副本，未载入时为 nil
func (s *Session) Snapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Held 当前持有的牌
func (s *Session) Held() (HeldCard, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.held == nil {
		return HeldCard{}, false
	}
	return *s.held, true
}

// CanUndo 撤销缓冲存在且未过期
func (s *Session) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.undoAvailableLocked()
}

// PendingMoveID 当前撤销缓冲的 ID
func (s *Session) PendingMoveID() (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.undo == nil {
		return 0, false
	}
	return s.undo.ID, true
}

// IsMyTurn 是否轮到本地玩家
func (s *Session) IsMyTurn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state != nil && s.state.IsTurnOf(s.playerID)
}

// Phase 当前阶段
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phaseLocked()
}

func (s *Session) phaseLocked() Phase {
	switch {
	case s.state == nil || !s.state.Seated():
		return PhaseWaiting
	case s.state.Winner != "":
		return PhaseRoundOver
	case s.held != nil && s.held.FromDiscard:
		return PhaseHoldingForcedCard
	case s.held != nil:
		return PhaseHoldingFreeCard
	default:
		return PhaseAwaitingDraw
	}
}

// SessionState 会话在某一时刻的一致视图
type SessionState struct {
	Snapshot *Snapshot
	Held     *HeldCard
	CanUndo  bool
	Phase    Phase
	IsMyTurn bool
	TurnKey  TurnKey
}

// State 在同一次加锁内读取快照、持牌与撤销状态
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := SessionState{
		Snapshot: s.state.Clone(),
		CanUndo:  s.undoAvailableLocked(),
		Phase:    s.phaseLocked(),
		IsMyTurn: s.state != nil && s.state.IsTurnOf(s.playerID),
		TurnKey:  s.state.TurnKey(),
	}
	if s.held != nil {
		held := *s.held
		st.Held = &held
	}
	return st
}

// TurnKey 当前回合的身份
func (s *Session) TurnKey() TurnKey {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.turnKeyLocked()
}

func (s *Session) turnKeyLocked() TurnKey {
	return s.state.TurnKey()
}

// checkMoverLocked 行动前的公共校验
func (s *Session) checkMoverLocked() error {
	if s.state == nil {
		return ErrNoGame
	}
	if s.state.Winner != "" {
		return ErrRoundOver
	}
	if !s.state.IsTurnOf(s.playerID) {
		return ErrNotYourTurn
	}
	return nil
}

// Draw 摸牌
// 从弃牌堆摸起的牌为强制牌，只能放入牌架。
// 摸牌堆为空时先把弃牌堆（保留顶牌）洗回摸牌堆。
func (s *Session) Draw(fromDiscard bool) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkMoverLocked(); err != nil {
		return nil, err
	}
	if s.held != nil {
		return nil, ErrCardAlreadyHeld
	}

	next := s.state.Clone()
	var card Card
	if fromDiscard {
		top, ok := next.DiscardTop()
		if !ok {
			return nil, ErrEmptyDiscardPile
		}
		next.DiscardPile = next.DiscardPile[:len(next.DiscardPile)-1]
		card = top
	} else {
		drawn, err := next.drawFromPile(s.deckGen)
		if err != nil {
			return nil, err
		}
		card = drawn
	}

	next.Seq++
	s.state = next
	s.held = &HeldCard{Card: card, FromDiscard: fromDiscard}

	return next.Clone(), nil
}

// Place 把持有的牌放到牌架 position 处，被替换的牌进入弃牌堆
func (s *Session) Place(position int) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.held == nil {
		return nil, ErrNoCardHeld
	}
	if err := s.checkMoverLocked(); err != nil {
		return nil, err
	}
	me := s.state.Player(s.playerID)
	if me == nil {
		return nil, ErrUnknownPlayer
	}
	if position < 0 || position >= len(me.Rack) {
		return nil, ErrInvalidPosition
	}

	pending := s.capturePendingLocked(position)

	next := s.state.Clone()
	won := next.place(s.playerID, s.held.Card, position)
	next.Seq++

	s.state = next
	s.held = nil
	s.undo = pending
	if won {
		// 赢下本局后不再提供撤销
		s.undo = nil
	}

	return next.Clone(), nil
}

// Discard 弃掉持有的牌（强制牌不可弃）
func (s *Session) Discard() (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.held == nil {
		return nil, ErrNoCardHeld
	}
	if err := s.checkMoverLocked(); err != nil {
		return nil, err
	}
	if s.held.FromDiscard {
		return nil, ErrForcedCard
	}

	pending := s.capturePendingLocked(DiscardPosition)

	next := s.state.Clone()
	next.DiscardPile = append(next.DiscardPile, s.held.Card)
	next.advanceTurn()
	next.Seq++

	s.state = next
	s.held = nil
	s.undo = pending

	return next.Clone(), nil
}

// capturePendingLocked 在改动之前保存撤销缓冲
func (s *Session) capturePendingLocked(position int) *PendingMove {
	s.moveID++
	return &PendingMove{
		ID:        s.moveID,
		Before:    s.state.Clone(),
		Held:      *s.held,
		Position:  position,
		CreatedAt: s.now(),
	}
}

func (s *Session) undoAvailableLocked() bool {
	return s.undo != nil && s.now().Sub(s.undo.CreatedAt) <= s.undoWindow
}

// Undo 撤销上一步放牌/弃牌，原样恢复之前的快照和持有的牌
func (s *Session) Undo() (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.undo == nil {
		return nil, ErrNoUndo
	}
	if !s.undoAvailableLocked() {
		s.undo = nil
		return nil, ErrUndoExpired
	}

	held := s.undo.Held
	s.state = s.undo.Before.Clone()
	s.held = &held
	s.undo = nil

	return s.state.Clone(), nil
}

// ExpireUndo 撤销窗口到期时由调度器调用，只清除 ID 匹配的缓冲
func (s *Session) ExpireUndo(id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.undo == nil || s.undo.ID != id {
		return false
	}
	s.undo = nil
	return true
}

// NewRound 开始新的一局：重新洗牌发牌，保留玩家身份与累计分数
func (s *Session) NewRound() (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == nil {
		return nil, ErrNoGame
	}

	deck, err := s.deckGen.Build(s.state.MaxPlayers)
	if err != nil {
		return nil, err
	}
	racks, drawPile, discardSeed, err := Deal(deck, s.state.MaxPlayers)
	if err != nil {
		return nil, err
	}

	next := s.state.Clone()
	for i := range next.Players {
		next.Players[i].Rack = racks[i]
	}
	next.PendingRacks = [][]Card{}
	if !next.UseAI {
		// 空座位同样重新预留牌架，保证后加入的玩家不会拿到重复的牌
		for i := len(next.Players); i < next.MaxPlayers; i++ {
			next.PendingRacks = append(next.PendingRacks, racks[i])
		}
	}
	next.DrawPile = drawPile
	next.DiscardPile = []Card{discardSeed}
	next.CurrentTurn = 0
	next.Winner = ""
	next.Round++
	next.Seq++

	s.state = next
	s.held = nil
	s.undo = nil

	return next.Clone(), nil
}

// Receive 收到其他参与者的快照，整体替换本地状态（后写者胜）
// 不再轮到本地玩家时丢弃持有的牌和撤销缓冲。内容未变化时返回 false。
func (s *Session) Receive(snap *Snapshot) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if snap == nil || reflect.DeepEqual(s.state, snap) {
		return false
	}

	s.state = snap.Clone()
	if !s.state.IsTurnOf(s.playerID) || s.state.Winner != "" {
		s.held = nil
		s.undo = nil
	}

	return true
}

// drawFromPile 从摸牌堆顶部摸一张，必要时先回收弃牌堆
func (s *Snapshot) drawFromPile(deckGen *DeckGenerator) (Card, error) {
	if len(s.DrawPile) == 0 {
		if err := s.recycleDiscardPile(deckGen); err != nil {
			return 0, err
		}
	}

	card := s.DrawPile[len(s.DrawPile)-1]
	s.DrawPile = s.DrawPile[:len(s.DrawPile)-1]
	return card, nil
}

// recycleDiscardPile 弃牌堆除顶牌外全部洗入摸牌堆
func (s *Snapshot) recycleDiscardPile(deckGen *DeckGenerator) error {
	if len(s.DiscardPile) <= 1 {
		return ErrPileExhausted
	}

	top := s.DiscardPile[len(s.DiscardPile)-1]
	s.DrawPile = cloneCards(s.DiscardPile[:len(s.DiscardPile)-1])
	s.DiscardPile = []Card{top}
	deckGen.Shuffle(s.DrawPile)

	return nil
}

// place 替换牌架上的牌并处理胜负与轮转，返回是否获胜
func (s *Snapshot) place(playerID string, card Card, position int) bool {
	p := s.Player(playerID)
	replaced := p.Rack[position]
	p.Rack[position] = card
	s.DiscardPile = append(s.DiscardPile, replaced)

	won := IsWinning(p.Rack)
	if won {
		s.Winner = p.ID
		p.Score++
	}
	s.advanceTurn()

	return won
}

package racko

import (
	"fmt"
	"slices"
)

// Player 玩家
type Player struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Rack  []Card `json:"rack"`
	Score int    `json:"score"` // 累计胜局数
	IsAI  bool   `json:"isAI"`
}

// Snapshot 一局游戏的完整状态
// 参与者之间始终整体传递与替换，不做局部合并
type Snapshot struct {
	RoomCode     string   `json:"roomCode"`
	MaxPlayers   int      `json:"maxPlayers"`
	UseAI        bool     `json:"useAI"`
	Players      []Player `json:"players"`
	PendingRacks [][]Card `json:"pendingPlayerCards"` // 尚未入座玩家的牌架
	DrawPile     []Card   `json:"drawPile"`
	DiscardPile  []Card   `json:"discardPile"`
	CurrentTurn  int      `json:"currentTurn"`
	Winner       string   `json:"winner,omitempty"`
	PracticeMode bool     `json:"practiceMode"`

	Round int    `json:"round"` // 第几局，从 1 开始
	Seq   uint64 `json:"seq"`   // 每次状态变更递增
}

// GameOptions 创建牌局的参数（由大厅提供）
type GameOptions struct {
	RoomCode     string
	MaxPlayers   int
	UseAI        bool
	PracticeMode bool
	HostID       string
	HostName     string
}

// Phase 当前座位所处的阶段
type Phase string

const (
	PhaseWaiting           Phase = "waiting" // 等待其他玩家入座
	PhaseAwaitingDraw      Phase = "awaiting_draw"
	PhaseHoldingFreeCard   Phase = "holding_free_card"
	PhaseHoldingForcedCard Phase = "holding_forced_card"
	PhaseRoundOver         Phase = "round_over"
)

// AIPlayerID 电脑玩家的 ID
func AIPlayerID(n int) string {
	return fmt.Sprintf("ai_%d", n)
}

// NewGame 创建新牌局：洗牌、给房主发牌，
// 人机模式下给电脑玩家发牌，否则为其余座位预留牌架
func NewGame(opts GameOptions, deckGen *DeckGenerator) (*Snapshot, error) {
	deck, err := deckGen.Build(opts.MaxPlayers)
	if err != nil {
		return nil, err
	}

	racks, drawPile, discardSeed, err := Deal(deck, opts.MaxPlayers)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		RoomCode:     opts.RoomCode,
		MaxPlayers:   opts.MaxPlayers,
		UseAI:        opts.UseAI,
		Players:      []Player{{ID: opts.HostID, Name: opts.HostName, Rack: racks[0]}},
		PendingRacks: [][]Card{},
		DrawPile:     drawPile,
		DiscardPile:  []Card{discardSeed},
		CurrentTurn:  0,
		PracticeMode: opts.PracticeMode,
		Round:        1,
	}

	for i := 1; i < opts.MaxPlayers; i++ {
		if opts.UseAI {
			snap.Players = append(snap.Players, Player{
				ID:   AIPlayerID(i),
				Name: fmt.Sprintf("AI %d", i),
				Rack: racks[i],
				IsAI: true,
			})
			continue
		}
		snap.PendingRacks = append(snap.PendingRacks, racks[i])
	}

	return snap, nil
}

// Clone 深拷贝，副本与原快照不共享任何底层数组
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}

	out := *s
	out.Players = make([]Player, len(s.Players))
	for i, p := range s.Players {
		p.Rack = slices.Clone(p.Rack)
		out.Players[i] = p
	}
	out.PendingRacks = make([][]Card, len(s.PendingRacks))
	for i, rack := range s.PendingRacks {
		out.PendingRacks[i] = slices.Clone(rack)
	}
	out.DrawPile = cloneCards(s.DrawPile)
	out.DiscardPile = cloneCards(s.DiscardPile)

	return &out
}

// cloneCards 复制牌列表，nil 复制为空切片以保持 JSON 为 []
func cloneCards(cards []Card) []Card {
	out := make([]Card, len(cards))
	copy(out, cards)
	return out
}

// TurnKey 快照所处回合的身份
func (s *Snapshot) TurnKey() TurnKey {
	if s == nil {
		return TurnKey{}
	}
	return TurnKey{Round: s.Round, Turn: s.CurrentTurn, Seq: s.Seq}
}

// Seated 所有座位是否已坐满（人机模式下总是满座）
func (s *Snapshot) Seated() bool {
	return s.UseAI || len(s.Players) >= s.MaxPlayers
}

// CurrentPlayer 当前出牌玩家，索引越界时返回 nil
func (s *Snapshot) CurrentPlayer() *Player {
	if s.CurrentTurn < 0 || s.CurrentTurn >= len(s.Players) {
		return nil
	}
	return &s.Players[s.CurrentTurn]
}

// IsTurnOf 是否轮到该玩家（座位未满时谁都不能行动）
func (s *Snapshot) IsTurnOf(playerID string) bool {
	if !s.Seated() {
		return false
	}
	cur := s.CurrentPlayer()
	return cur != nil && cur.ID == playerID
}

// Player 按 ID 查找玩家
func (s *Snapshot) Player(playerID string) *Player {
	for i := range s.Players {
		if s.Players[i].ID == playerID {
			return &s.Players[i]
		}
	}
	return nil
}

// WinnerPlayer 本局胜者
func (s *Snapshot) WinnerPlayer() *Player {
	if s.Winner == "" {
		return nil
	}
	return s.Player(s.Winner)
}

// DeckSize 当前牌局的牌堆大小
func (s *Snapshot) DeckSize() int {
	size, err := DeckSize(s.MaxPlayers)
	if err != nil {
		return 0
	}
	return size
}

// DiscardTop 弃牌堆顶部的牌
func (s *Snapshot) DiscardTop() (Card, bool) {
	if len(s.DiscardPile) == 0 {
		return 0, false
	}
	return s.DiscardPile[len(s.DiscardPile)-1], true
}

// advanceTurn 轮到下一位玩家
func (s *Snapshot) advanceTurn() {
	if len(s.Players) == 0 {
		return
	}
	s.CurrentTurn = (s.CurrentTurn + 1) % len(s.Players)
}

// SeatPlayer 新玩家入座并领取一个预留牌架
func (s *Snapshot) SeatPlayer(playerID, name string) error {
	if s.Seated() || len(s.PendingRacks) == 0 {
		return ErrRoomFull
	}

	rack := s.PendingRacks[0]
	s.PendingRacks = s.PendingRacks[1:]
	s.Players = append(s.Players, Player{ID: playerID, Name: name, Rack: rack})

	return nil
}

// CheckPartition 校验牌架、预留牌架、摸牌堆、弃牌堆恰好构成完整牌堆
// 只在两次完整操作之间成立（持有摸起的牌时该牌不在任何一堆中）
func (s *Snapshot) CheckPartition() error {
	size := s.DeckSize()
	if size == 0 {
		return ErrInvalidPlayerCount
	}

	seen := make([]bool, size+1)
	total := 0
	mark := func(where string, cards []Card) error {
		for _, c := range cards {
			if c < 1 || int(c) > size {
				return fmt.Errorf("%s: card %d out of range [1, %d]", where, c, size)
			}
			if seen[c] {
				return fmt.Errorf("%s: duplicate card %d", where, c)
			}
			seen[c] = true
			total++
		}
		return nil
	}

	for _, p := range s.Players {
		if len(p.Rack) != RackSize {
			return fmt.Errorf("player %s: rack has %d cards", p.ID, len(p.Rack))
		}
		if err := mark("player "+p.ID, p.Rack); err != nil {
			return err
		}
	}
	for i, rack := range s.PendingRacks {
		if err := mark(fmt.Sprintf("pending rack %d", i), rack); err != nil {
			return err
		}
	}
	if err := mark("draw pile", s.DrawPile); err != nil {
		return err
	}
	if err := mark("discard pile", s.DiscardPile); err != nil {
		return err
	}

	if total != size {
		return fmt.Errorf("partition covers %d of %d cards", total, size)
	}
	return nil
}

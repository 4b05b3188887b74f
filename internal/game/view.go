package game

import "github.com/nilsonaj/racko-frontend/internal/game/racko"

// PlayerView 视图中的一名玩家
type PlayerView struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Score     int          `json:"score"`
	IsAI      bool         `json:"isAI"`
	IsYou     bool         `json:"isYou"`
	IsCurrent bool         `json:"isCurrent"`
	Rack      []racko.Card `json:"rack,omitempty"` // 练习模式之外只包含自己的牌架
	RackSize  int          `json:"rackSize"`
}

// View 参与者看到的牌局
type View struct {
	RoomCode     string          `json:"roomCode"`
	PlayerID     string          `json:"playerId"`
	Message      string          `json:"message"`
	Phase        racko.Phase     `json:"phase"`
	IsMyTurn     bool            `json:"isMyTurn"`
	CanUndo      bool            `json:"canUndo"`
	Held         *racko.HeldCard `json:"held,omitempty"`
	DiscardTop   *racko.Card     `json:"discardTop,omitempty"`
	DrawPileSize int             `json:"drawPileSize"`
	CurrentTurn  int             `json:"currentTurn"`
	Winner       string          `json:"winner,omitempty"`
	Round        int             `json:"round"`
	Seq          uint64          `json:"seq"`
	MaxPlayers   int             `json:"maxPlayers"`
	UseAI        bool            `json:"useAI"`
	PracticeMode bool            `json:"practiceMode"`
	Players      []PlayerView    `json:"players"`
}

// BuildView 由会话状态生成视图
func BuildView(session *racko.Session, message string) *View {
	st := session.State()
	snap := st.Snapshot
	me := session.PlayerID()

	view := &View{
		PlayerID: me,
		Message:  message,
		Phase:    st.Phase,
		IsMyTurn: st.IsMyTurn,
		CanUndo:  st.CanUndo,
		Held:     st.Held,
	}
	if snap == nil {
		return view
	}

	view.RoomCode = snap.RoomCode
	view.DrawPileSize = len(snap.DrawPile)
	view.CurrentTurn = snap.CurrentTurn
	view.Winner = snap.Winner
	view.Round = snap.Round
	view.Seq = snap.Seq
	view.MaxPlayers = snap.MaxPlayers
	view.UseAI = snap.UseAI
	view.PracticeMode = snap.PracticeMode
	if top, ok := snap.DiscardTop(); ok {
		view.DiscardTop = &top
	}

	view.Players = make([]PlayerView, len(snap.Players))
	for i, p := range snap.Players {
		pv := PlayerView{
			ID:        p.ID,
			Name:      p.Name,
			Score:     p.Score,
			IsAI:      p.IsAI,
			IsYou:     p.ID == me,
			IsCurrent: i == snap.CurrentTurn,
			RackSize:  len(p.Rack),
		}
		if pv.IsYou || snap.PracticeMode {
			pv.Rack = p.Rack
		}
		view.Players[i] = pv
	}

	return view
}

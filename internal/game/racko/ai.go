package racko

import "math"

// AIDecision 电脑玩家本回合的选择
type AIDecision struct {
	PlayerID    string `json:"playerId"`
	FromDiscard bool   `json:"fromDiscard"`
	Card        Card   `json:"card"`
	Position    int    `json:"position"`
	Fallback    bool   `json:"fallback"` // 没有能提高分数的位置，按理想值偏差兜底
	Won         bool   `json:"won"`
}

// fitsBetween 牌放入 position 后是否严格落在新邻居之间
func fitsBetween(rack []Card, position int, card Card) bool {
	last := len(rack) - 1
	switch {
	case last <= 0:
		return true
	case position == 0:
		return card < rack[1]
	case position == last:
		return card > rack[last-1]
	default:
		return card > rack[position-1] && card < rack[position+1]
	}
}

// scoreWith 假设 position 处换成 card 后的得分
func scoreWith(rack []Card, position int, card Card) int {
	trial := make([]Card, len(rack))
	copy(trial, rack)
	trial[position] = card
	return Score(trial)
}

// BestDiscardFit 弃牌堆顶牌的最佳放置位置
// 只考虑能严格嵌入相邻牌之间的位置，且得分必须严格高于当前得分
func BestDiscardFit(rack []Card, top Card) (int, bool) {
	best, bestScore := -1, Score(rack)
	for i := range rack {
		if !fitsBetween(rack, i, top) {
			continue
		}
		if sc := scoreWith(rack, i, top); sc > bestScore {
			best, bestScore = i, sc
		}
	}
	return best, best >= 0
}

// BestImprovement 任意位置中得分严格提高最多的位置
func BestImprovement(rack []Card, card Card) (int, bool) {
	best, bestScore := -1, Score(rack)
	for i := range rack {
		if sc := scoreWith(rack, i, card); sc > bestScore {
			best, bestScore = i, sc
		}
	}
	return best, best >= 0
}

// FallbackPosition 当前值偏离理想值最多的位置（全部无偏差时为 0）
func FallbackPosition(rack []Card, deckSize int) int {
	worst, worstDev := 0, 0.0
	for i, c := range rack {
		dev := math.Abs(float64(c) - IdealValue(i, deckSize, RackSize))
		if dev > worstDev {
			worst, worstDev = i, dev
		}
	}
	return worst
}

// PlayAITurn 执行一次电脑回合
// 触发时重新校验：牌局未结束、当前座位是电脑、回合身份与调度时一致。
// 两个牌堆都摸不到牌时返回 ErrPileExhausted，本回合跳过且不轮转。
func (s *Session) PlayAITurn(key TurnKey) (*Snapshot, *AIDecision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == nil {
		return nil, nil, ErrNoGame
	}
	if s.state.Winner != "" {
		return nil, nil, ErrRoundOver
	}
	cur := s.state.CurrentPlayer()
	if !s.state.Seated() || cur == nil || !cur.IsAI {
		return nil, nil, ErrNotAIsTurn
	}
	if s.turnKeyLocked() != key {
		return nil, nil, ErrStaleTurn
	}

	next := s.state.Clone()
	ai := next.Player(cur.ID)
	decision := &AIDecision{PlayerID: ai.ID}

	position := -1
	if top, ok := next.DiscardTop(); ok {
		if pos, fits := BestDiscardFit(ai.Rack, top); fits {
			next.DiscardPile = next.DiscardPile[:len(next.DiscardPile)-1]
			decision.FromDiscard = true
			decision.Card = top
			position = pos
		}
	}

	if position < 0 {
		card, err := next.drawFromPile(s.deckGen)
		if err != nil {
			return nil, nil, err
		}
		decision.Card = card
		if pos, ok := BestImprovement(ai.Rack, card); ok {
			position = pos
		} else {
			position = FallbackPosition(ai.Rack, next.DeckSize())
			decision.Fallback = true
		}
	}

	decision.Position = position
	decision.Won = next.place(ai.ID, decision.Card, position)
	next.Seq++

	s.state = next
	s.undo = nil

	return next.Clone(), decision, nil
}

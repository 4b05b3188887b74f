package racko

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

const (
	// RackSize 每个牌架的牌数
	RackSize = 10

	// MinPlayers 最少玩家数
	MinPlayers = 2

	// MaxPlayers 最多玩家数
	MaxPlayers = 4
)

// Card 牌面数值，范围 [1, deckSize]
type Card int

// deckSizes 玩家人数对应的牌堆大小
var deckSizes = map[int]int{
	2: 40,
	3: 50,
	4: 60,
}

// DeckSize 根据玩家人数返回牌堆大小 (2人40张, 3人50张, 4人60张)
func DeckSize(playerCount int) (int, error) {
	size, ok := deckSizes[playerCount]
	if !ok {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidPlayerCount, playerCount)
	}
	return size, nil
}

// DeckGenerator 牌堆生成器
// *rand.Rand 不是并发安全的，所有洗牌都在锁内完成
type DeckGenerator struct {
	mu   sync.Mutex
	rand *rand.Rand
}

// NewDeckGenerator 创建牌堆生成器（按时间播种）
func NewDeckGenerator() *DeckGenerator {
	return NewSeededDeckGenerator(time.Now().UnixNano())
}

// NewSeededDeckGenerator 使用固定种子创建生成器，便于测试复现
func NewSeededDeckGenerator(seed int64) *DeckGenerator {
	return &DeckGenerator{
		rand: rand.New(rand.NewSource(seed)),
	}
}

// Build 生成 1..deckSize 的随机排列
func (d *DeckGenerator) Build(playerCount int) ([]Card, error) {
	size, err := DeckSize(playerCount)
	if err != nil {
		return nil, err
	}

	cards := make([]Card, size)
	for i := range cards {
		cards[i] = Card(i + 1)
	}
	d.Shuffle(cards)

	return cards, nil
}

// Shuffle Fisher-Yates 洗牌：i 从末尾递减到 1，与 [0, i] 中均匀选出的位置交换
func (d *DeckGenerator) Shuffle(cards []Card) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i := len(cards) - 1; i > 0; i-- {
		j := d.rand.Intn(i + 1)
		cards[i], cards[j] = cards[j], cards[i]
	}
}

// Deal 发牌
// 先从牌堆前端依次取出 rackCount 个牌架（每个都是独立副本），
// 再从剩余牌的末尾弹出一张作为弃牌堆的起始牌，其余作为摸牌堆。
func Deal(deck []Card, rackCount int) (racks [][]Card, drawPile []Card, discardSeed Card, err error) {
	need := rackCount*RackSize + 1
	if rackCount < 0 || len(deck) < need {
		return nil, nil, 0, fmt.Errorf("deal %d racks: need %d cards, have %d", rackCount, need, len(deck))
	}

	racks = make([][]Card, rackCount)
	index := 0
	for i := 0; i < rackCount; i++ {
		racks[i] = append([]Card(nil), deck[index:index+RackSize]...)
		index += RackSize
	}

	remaining := deck[index:]
	discardSeed = remaining[len(remaining)-1]
	drawPile = append([]Card(nil), remaining[:len(remaining)-1]...)

	return racks, drawPile, discardSeed, nil
}

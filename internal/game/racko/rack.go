package racko

// PairScore 每一对严格递增的相邻牌得分
const PairScore = 5

// Score 计算牌架得分：每个严格递增的相邻对加 5 分
func Score(rack []Card) int {
	score := 0
	for i := 0; i < len(rack)-1; i++ {
		if rack[i] < rack[i+1] {
			score += PairScore
		}
	}
	return score
}

// MaxScore 长度为 rackLen 的牌架能得到的最高分
func MaxScore(rackLen int) int {
	if rackLen < 2 {
		return 0
	}
	return PairScore * (rackLen - 1)
}

// IsWinning 所有相邻对都严格递增即为胜利
func IsWinning(rack []Card) bool {
	for i := 0; i < len(rack)-1; i++ {
		if rack[i] >= rack[i+1] {
			return false
		}
	}
	return true
}

// IdealValue 均匀分布的胜利牌架在 position 处应有的数值
// 只用于 AI 的兜底选择，不是规则要求
func IdealValue(position, deckSize, rackLen int) float64 {
	if rackLen == 0 {
		return 0
	}
	return float64(position+1) * (float64(deckSize) / float64(rackLen))
}

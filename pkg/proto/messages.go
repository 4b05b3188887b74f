package proto

import "github.com/nilsonaj/racko-frontend/internal/game/racko"

// SnapshotEnvelope 节点之间广播的快照（NATS 负载）
type SnapshotEnvelope struct {
	Origin   string          `json:"origin"` // 发布节点 ID，用于忽略自己的回声
	RoomCode string          `json:"roomCode"`
	Snapshot *racko.Snapshot `json:"snapshot"`
	SentAt   int64           `json:"sentAt"` // 毫秒时间戳
}

// GetSnapshot 安全获取快照
func (m *SnapshotEnvelope) GetSnapshot() *racko.Snapshot {
	if m != nil {
		return m.Snapshot
	}
	return nil
}

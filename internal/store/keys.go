package store

import "time"

const (
	// SnapshotKeyPrefix 房间快照 Redis Key 前缀
	// 完整格式: racko:room:{room_code}:snapshot
	SnapshotKeyPrefix = "racko:room:"
	SnapshotKeySuffix = ":snapshot"

	// SnapshotTTL 房间快照 TTL，每次写入续期
	SnapshotTTL = 48 * time.Hour
)

// BuildSnapshotKey 构建房间快照 Key
func BuildSnapshotKey(roomCode string) string {
	return SnapshotKeyPrefix + roomCode + SnapshotKeySuffix
}

package nats

import "strings"

// NATS Subject 常量定义
const (
	// SubjectRoomPrefix 房间快照广播前缀
	// 完整格式: racko.room.{room_code}.snapshot
	SubjectRoomPrefix = "racko.room."
	SubjectRoomSuffix = ".snapshot"

	// SubjectRoomWildcard 订阅所有房间的快照
	SubjectRoomWildcard = SubjectRoomPrefix + "*" + SubjectRoomSuffix
)

// BuildRoomSubject 构建房间快照 Subject
func BuildRoomSubject(roomCode string) string {
	return SubjectRoomPrefix + roomCode + SubjectRoomSuffix
}

// ParseRoomSubject 从 Subject 中取出房间号
func ParseRoomSubject(subject string) (string, bool) {
	if !strings.HasPrefix(subject, SubjectRoomPrefix) || !strings.HasSuffix(subject, SubjectRoomSuffix) {
		return "", false
	}
	code := strings.TrimSuffix(strings.TrimPrefix(subject, SubjectRoomPrefix), SubjectRoomSuffix)
	if code == "" || strings.Contains(code, ".") {
		return "", false
	}
	return code, true
}

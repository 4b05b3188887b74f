package task

import "context"

// MetaKey 任务元数据键
type MetaKey string

// Metadata 任务元数据，调度时写入，执行时原样交给 TaskFunc
type Metadata map[MetaKey]any

// String 读取字符串元数据，不存在或类型不符时返回空串
func (m Metadata) String(key MetaKey) string {
	v, _ := m[key].(string)
	return v
}

// Uint64 读取 uint64 元数据
func (m Metadata) Uint64(key MetaKey) uint64 {
	v, _ := m[key].(uint64)
	return v
}

// TaskFunc 任务执行函数
type TaskFunc func(ctx context.Context, roomCode string, meta Metadata) error

// Task 房间的延迟任务
// ID 形如 ai:<room>、undo:<room>:<player>、poll:<room>；
// 同一 ID 在时间轮中只保留最后一次添加的那个
type Task struct {
	ID       string
	Version  int64  // 同 ID 被替换的次数
	RoomCode string // worker 按房间分片，同一房间的任务按序执行
	Delay    int    // 延迟刻度数 (1-60)
	Fn       TaskFunc
	Meta     Metadata
}

// NewTask 创建房间任务
func NewTask(id, roomCode string, delay int, fn TaskFunc) *Task {
	return &Task{
		ID:       id,
		Version:  1,
		RoomCode: roomCode,
		Delay:    delay,
		Fn:       fn,
		Meta:     make(Metadata),
	}
}

// With 写入元数据
func (t *Task) With(key MetaKey, value any) *Task {
	t.Meta[key] = value
	return t
}

// Execute 执行任务
func (t *Task) Execute(ctx context.Context) error {
	if t.Fn == nil {
		return nil
	}
	return t.Fn(ctx, t.RoomCode, t.Meta)
}

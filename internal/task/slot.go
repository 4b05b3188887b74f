package task

import (
	"slices"
	"sync"
)

// Slot 时间轮槽位
// 按加入顺序出队，同一房间的任务在同一刻度内保持先后次序
type Slot struct {
	mu    sync.Mutex
	order []string         // 任务ID，按加入顺序
	tasks map[string]*Task // key: taskID
}

// NewSlot 创建新槽位
func NewSlot() *Slot {
	return &Slot{tasks: make(map[string]*Task)}
}

// AddTask 加入任务，同 ID 的旧任务被替换并排到队尾
func (s *Slot) AddTask(task *Task) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[task.ID]; ok {
		s.order = slices.DeleteFunc(s.order, func(id string) bool { return id == task.ID })
	}
	s.tasks[task.ID] = task
	s.order = append(s.order, task.ID)
}

// RemoveTask 从槽位删除任务
func (s *Slot) RemoveTask(taskID string) (*Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[taskID]
	if !ok {
		return nil, false
	}
	delete(s.tasks, taskID)
	s.order = slices.DeleteFunc(s.order, func(id string) bool { return id == taskID })
	return task, true
}

// GetAndClear 按加入顺序取出全部任务并清空
func (s *Slot) GetAndClear() []*Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.order) == 0 {
		return nil
	}

	out := make([]*Task, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.tasks[id])
	}
	s.order = nil
	clear(s.tasks)

	return out
}

// Count 槽位中的任务数
func (s *Slot) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.order)
}

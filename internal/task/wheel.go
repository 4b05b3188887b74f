package task

import "sync"

const (
	// SlotCount 时间轮槽位数量
	SlotCount = 60
)

// TimeWheel 时间轮
// index 记录每个任务所在槽位，用于按 ID 取消和替换
type TimeWheel struct {
	mu          sync.Mutex
	slots       [SlotCount]*Slot
	currentSlot int
	index       map[string]int // taskID -> slot
}

// NewTimeWheel 创建时间轮
func NewTimeWheel() *TimeWheel {
	tw := &TimeWheel{
		index: make(map[string]int),
	}
	for i := 0; i < SlotCount; i++ {
		tw.slots[i] = NewSlot()
	}
	return tw
}

// AddTask 添加任务，已存在的同 ID 任务会被替换
func (tw *TimeWheel) AddTask(task *Task) {
	if task.Delay < 1 || task.Delay > SlotCount {
		task.Delay = 1
	}

	tw.mu.Lock()
	defer tw.mu.Unlock()

	if old, ok := tw.index[task.ID]; ok {
		if prev, removed := tw.slots[old].RemoveTask(task.ID); removed {
			task.Version = prev.Version + 1
		}
	}

	target := (tw.currentSlot + task.Delay) % SlotCount
	tw.slots[target].AddTask(task)
	tw.index[task.ID] = target
}

// Cancel 取消任务
func (tw *TimeWheel) Cancel(taskID string) bool {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	slot, ok := tw.index[taskID]
	if !ok {
		return false
	}
	delete(tw.index, taskID)

	_, removed := tw.slots[slot].RemoveTask(taskID)
	return removed
}

// Contains 任务是否在等待执行
func (tw *TimeWheel) Contains(taskID string) bool {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	_, ok := tw.index[taskID]
	return ok
}

// Tick 推进时间轮，返回到期的任务
func (tw *TimeWheel) Tick() []*Task {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	tw.currentSlot = (tw.currentSlot + 1) % SlotCount
	tasks := tw.slots[tw.currentSlot].GetAndClear()
	for _, t := range tasks {
		delete(tw.index, t.ID)
	}
	return tasks
}

// GetCurrentSlot 获取当前槽位索引
func (tw *TimeWheel) GetCurrentSlot() int {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	return tw.currentSlot
}

// GetTotalTaskCount 获取所有槽位的任务总数
func (tw *TimeWheel) GetTotalTaskCount() int {
	total := 0
	for i := 0; i < SlotCount; i++ {
		total += tw.slots[i].Count()
	}
	return total
}

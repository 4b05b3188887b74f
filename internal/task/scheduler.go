package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultTickInterval 时间轮每格的时长
const DefaultTickInterval = time.Second

// Scheduler 任务调度器
type Scheduler struct {
	wheel        *TimeWheel
	workerPool   *WorkerPool
	tickInterval time.Duration
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	logger       *slog.Logger
	running      bool
	runningMu    sync.RWMutex
}

// Option 调度器配置项
type Option func(*Scheduler)

// WithTickInterval 设置每格时长（测试中用毫秒级）
func WithTickInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.tickInterval = d
		}
	}
}

// NewScheduler 创建任务调度器
func NewScheduler(workerCount int, opts ...Option) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Scheduler{
		wheel:        NewTimeWheel(),
		workerPool:   NewWorkerPool(workerCount),
		tickInterval: DefaultTickInterval,
		ctx:          ctx,
		cancel:       cancel,
		logger:       slog.Default().With("component", "Scheduler"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start 启动调度器
func (s *Scheduler) Start() error {
	s.runningMu.Lock()
	if s.running {
		s.runningMu.Unlock()
		return fmt.Errorf("调度器已经在运行中")
	}
	s.running = true
	s.runningMu.Unlock()

	s.workerPool.Start()

	s.wg.Add(1)
	go s.tickLoop()

	s.logger.Info("任务调度器已启动", "tickInterval", s.tickInterval)
	return nil
}

// tickLoop 时钟循环协程
func (s *Scheduler) tickLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			s.logger.Info("时钟协程退出")
			return
		case <-ticker.C:
			s.onTick()
		}
	}
}

// onTick 推进时间轮并把到期任务交给工作池
func (s *Scheduler) onTick() {
	tasks := s.wheel.Tick()
	if len(tasks) == 0 {
		return
	}

	s.logger.Debug("时钟触发",
		"currentSlot", s.wheel.GetCurrentSlot(),
		"taskCount", len(tasks))

	s.workerPool.SubmitBatch(tasks)
}

// Stop 停止调度器，未到期的任务被丢弃
func (s *Scheduler) Stop() {
	s.runningMu.Lock()
	if !s.running {
		s.runningMu.Unlock()
		return
	}
	s.running = false
	s.runningMu.Unlock()

	s.cancel()
	s.wg.Wait()
	s.workerPool.Stop()

	s.logger.Info("任务调度器已停止")
}

// AddTask 添加任务，同 ID 的旧任务被替换
func (s *Scheduler) AddTask(task *Task) error {
	s.runningMu.RLock()
	defer s.runningMu.RUnlock()

	if !s.running {
		return fmt.Errorf("调度器未运行")
	}
	if task == nil {
		return fmt.Errorf("任务不能为空")
	}
	if task.ID == "" {
		return fmt.Errorf("任务ID不能为空")
	}

	s.wheel.AddTask(task)

	s.logger.Debug("添加任务",
		"taskID", task.ID,
		"roomCode", task.RoomCode,
		"delay", task.Delay,
		"version", task.Version)
	return nil
}

// Cancel 取消尚未执行的任务
func (s *Scheduler) Cancel(taskID string) bool {
	removed := s.wheel.Cancel(taskID)
	if removed {
		s.logger.Debug("取消任务", "taskID", taskID)
	}
	return removed
}

// Pending 任务是否仍在等待执行
func (s *Scheduler) Pending(taskID string) bool {
	return s.wheel.Contains(taskID)
}

// Ticks 把时长换算为刻度数（向上取整，至少 1 格）
func (s *Scheduler) Ticks(d time.Duration) int {
	n := int((d + s.tickInterval - 1) / s.tickInterval)
	if n < 1 {
		n = 1
	}
	if n > SlotCount {
		n = SlotCount
	}
	return n
}

// IsRunning 检查调度器是否运行中
func (s *Scheduler) IsRunning() bool {
	s.runningMu.RLock()
	defer s.runningMu.RUnlock()

	return s.running
}

// GetStats 获取调度器统计信息
func (s *Scheduler) GetStats() map[string]any {
	return map[string]any{
		"running":        s.IsRunning(),
		"currentSlot":    s.wheel.GetCurrentSlot(),
		"totalTaskCount": s.wheel.GetTotalTaskCount(),
		"workerCount":    s.workerPool.workerCount,
		"queuedCount":    s.workerPool.Pending(),
	}
}

package task

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// DefaultTaskTimeout 单个任务的最长执行时间
const DefaultTaskTimeout = 5 * time.Second

// WorkerPool 工作协程池
// 按房间分片：同一房间的任务总在同一个 worker 上按提交顺序执行
type WorkerPool struct {
	workerCount int
	queues      []chan *Task
	timeout     time.Duration
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	logger      *slog.Logger
}

// NewWorkerPool 创建工作协程池
func NewWorkerPool(workerCount int) *WorkerPool {
	if workerCount <= 0 {
		workerCount = 10
	}

	ctx, cancel := context.WithCancel(context.Background())

	queues := make([]chan *Task, workerCount)
	for i := range queues {
		queues[i] = make(chan *Task, 16)
	}

	return &WorkerPool{
		workerCount: workerCount,
		queues:      queues,
		timeout:     DefaultTaskTimeout,
		ctx:         ctx,
		cancel:      cancel,
		logger:      slog.Default().With("component", "WorkerPool"),
	}
}

// Start 启动工作协程池
func (wp *WorkerPool) Start() {
	for i, queue := range wp.queues {
		wp.wg.Add(1)
		go wp.worker(i, queue)
	}

	wp.logger.Info("工作协程池已启动", "workerCount", wp.workerCount)
}

func (wp *WorkerPool) worker(id int, queue <-chan *Task) {
	defer wp.wg.Done()

	for {
		select {
		case <-wp.ctx.Done():
			return
		case task := <-queue:
			if task == nil {
				continue
			}
			wp.executeTask(id, task)
		}
	}
}

// executeTask 执行任务，panic 不影响其他任务
func (wp *WorkerPool) executeTask(workerID int, task *Task) {
	defer func() {
		if r := recover(); r != nil {
			wp.logger.Error("任务执行 panic",
				"workerID", workerID,
				"taskID", task.ID,
				"roomCode", task.RoomCode,
				"panic", r)
		}
	}()

	ctx, cancel := context.WithTimeout(wp.ctx, wp.timeout)
	defer cancel()

	start := time.Now()
	if err := task.Execute(ctx); err != nil {
		wp.logger.Warn("任务执行失败",
			"workerID", workerID,
			"taskID", task.ID,
			"roomCode", task.RoomCode,
			"elapsed", time.Since(start),
			"error", err)
	}
}

// queueFor 任务所在的分片
func (wp *WorkerPool) queueFor(task *Task) chan *Task {
	if wp.workerCount == 1 {
		return wp.queues[0]
	}
	return wp.queues[xxhash.Sum64String(task.RoomCode)%uint64(wp.workerCount)]
}

// Submit 提交任务；分片队列满时阻塞等待，保证同一房间的任务不乱序
func (wp *WorkerPool) Submit(task *Task) {
	queue := wp.queueFor(task)

	select {
	case queue <- task:
	case <-wp.ctx.Done():
		wp.logger.Warn("工作池已关闭,任务提交失败", "taskID", task.ID)
	default:
		wp.logger.Warn("任务通道已满,任务可能延迟执行", "taskID", task.ID, "roomCode", task.RoomCode)
		select {
		case queue <- task:
		case <-wp.ctx.Done():
		}
	}
}

// SubmitBatch 批量提交任务
func (wp *WorkerPool) SubmitBatch(tasks []*Task) {
	for _, task := range tasks {
		wp.Submit(task)
	}
}

// Pending 尚未执行的任务数
func (wp *WorkerPool) Pending() int {
	n := 0
	for _, queue := range wp.queues {
		n += len(queue)
	}
	return n
}

// Stop 停止工作协程池
func (wp *WorkerPool) Stop() {
	wp.cancel()
	wp.wg.Wait()
	wp.logger.Info("工作协程池已停止")
}

package game

import (
	"context"
	"sync"
	"time"

	"github.com/nilsonaj/racko-frontend/internal/game/racko"
	"github.com/nilsonaj/racko-frontend/internal/model"
	"github.com/nilsonaj/racko-frontend/internal/task"
	"github.com/nilsonaj/racko-frontend/pkg/proto"
)

type fakeStore struct {
	mu      sync.Mutex
	snaps   map[string]*racko.Snapshot
	saves   int
	saveErr error
	loadErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{snaps: make(map[string]*racko.Snapshot)}
}

func (f *fakeStore) Save(ctx context.Context, snap *racko.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saves++
	f.snaps[snap.RoomCode] = snap.Clone()
	return nil
}

func (f *fakeStore) Load(ctx context.Context, roomCode string) (*racko.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	snap, ok := f.snaps[roomCode]
	if !ok {
		return nil, ErrGameNotFound
	}
	return snap.Clone(), nil
}

func (f *fakeStore) Update(ctx context.Context, roomCode string, fn func(*racko.Snapshot) error) (*racko.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	cur, ok := f.snaps[roomCode]
	if !ok {
		return nil, ErrGameNotFound
	}
	next := cur.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	f.saves++
	f.snaps[roomCode] = next.Clone()
	return next, nil
}

func (f *fakeStore) get(roomCode string) *racko.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snaps[roomCode].Clone()
}

func (f *fakeStore) saveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saves
}

type fakePublisher struct {
	mu      sync.Mutex
	envs    []*proto.SnapshotEnvelope
	err     error
	deliver func(ctx context.Context, env *proto.SnapshotEnvelope)
}

func (f *fakePublisher) PublishSnapshot(ctx context.Context, env *proto.SnapshotEnvelope) error {
	f.mu.Lock()
	if f.err != nil {
		f.mu.Unlock()
		return f.err
	}
	f.envs = append(f.envs, env)
	deliver := f.deliver
	f.mu.Unlock()

	if deliver != nil {
		deliver(ctx, env)
	}
	return nil
}

func (f *fakePublisher) setDeliver(fn func(ctx context.Context, env *proto.SnapshotEnvelope)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deliver = fn
}

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.envs)
}

// fakeScheduler 不自动执行，测试中手动触发
type fakeScheduler struct {
	mu    sync.Mutex
	tasks map[string]*task.Task
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{tasks: make(map[string]*task.Task)}
}

func (f *fakeScheduler) AddTask(t *task.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks[t.ID] = t
	return nil
}

func (f *fakeScheduler) Cancel(taskID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.tasks[taskID]
	delete(f.tasks, taskID)
	return ok
}

func (f *fakeScheduler) Ticks(d time.Duration) int {
	return 1
}

func (f *fakeScheduler) get(taskID string) *task.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tasks[taskID]
}

// run 取出并执行任务
func (f *fakeScheduler) run(taskID string) (bool, error) {
	f.mu.Lock()
	t, ok := f.tasks[taskID]
	delete(f.tasks, taskID)
	f.mu.Unlock()

	if !ok {
		return false, nil
	}
	return true, t.Execute(context.Background())
}

type fakeRecorder struct {
	mu     sync.Mutex
	rounds []*model.Round
}

func (f *fakeRecorder) RecordRound(ctx context.Context, round *model.Round) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rounds = append(f.rounds, round)
	return nil
}

func (f *fakeRecorder) all() []*model.Round {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*model.Round(nil), f.rounds...)
}

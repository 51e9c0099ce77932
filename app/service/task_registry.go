package service

import (
	"sync"
	"time"

	"torrent-factory/app/logger"
	"torrent-factory/app/model"
)

// InterruptedMessage 服务重启时未完成任务的错误信息
const InterruptedMessage = "interrupted by restart"

// TaskRegistry 内存中的任务表，状态变化时写入 TaskStore
type TaskRegistry struct {
	mu    sync.RWMutex
	tasks map[string]*model.Task
	order []string
	seq   int64
	store TaskStore
	log   *logger.Logger
	now   func() time.Time
}

// NewTaskRegistry 创建任务表，store 为空时只保存在内存中
func NewTaskRegistry(store TaskStore, log *logger.Logger) *TaskRegistry {
	return &TaskRegistry{
		tasks: make(map[string]*model.Task),
		store: store,
		log:   log,
		now:   time.Now,
	}
}

// Load 从存储中恢复任务，上次未完成的任务标记为错误
func (r *TaskRegistry) Load() error {
	if r.store == nil {
		return nil
	}
	tasks, err := r.store.LoadAll()
	if err != nil {
		return err
	}

	var interrupted []model.Task
	r.mu.Lock()
	for i := range tasks {
		t := tasks[i]
		if !t.Status.IsTerminal() {
			finished := r.now()
			t.Status = model.TaskStatusError
			t.ErrorMessage = InterruptedMessage
			t.FinishedAt = &finished
			interrupted = append(interrupted, t.Clone())
		}
		if t.Seq > r.seq {
			r.seq = t.Seq
		}
		r.tasks[t.ID] = &t
		r.order = append(r.order, t.ID)
	}
	r.mu.Unlock()

	for i := range interrupted {
		r.persist(&interrupted[i])
	}
	if len(interrupted) > 0 {
		r.log.Warnf("%d 个任务因服务重启被中断", len(interrupted))
	}
	return nil
}

// Snapshot 按创建顺序返回所有任务的副本
func (r *TaskRegistry) Snapshot() []model.Task {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Task, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.tasks[id].Clone())
	}
	return out
}

// Get 返回单个任务的副本
func (r *TaskRegistry) Get(id string) (model.Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tasks[id]
	if !ok {
		return model.Task{}, false
	}
	return t.Clone(), true
}

// ClearTerminal 移除所有已结束的任务，返回移除数量
func (r *TaskRegistry) ClearTerminal() int {
	r.mu.Lock()
	var removed []string
	kept := r.order[:0]
	for _, id := range r.order {
		if r.tasks[id].Status.IsTerminal() {
			removed = append(removed, id)
			delete(r.tasks, id)
			continue
		}
		kept = append(kept, id)
	}
	r.order = kept
	r.mu.Unlock()

	if r.store != nil && len(removed) > 0 {
		if err := r.store.Delete(removed); err != nil {
			r.log.Errorf("删除任务记录失败: %v", err)
		}
	}
	return len(removed)
}

// add 登记新任务并持久化
func (r *TaskRegistry) add(task *model.Task) model.Task {
	r.mu.Lock()
	r.seq++
	task.Seq = r.seq
	r.tasks[task.ID] = task
	r.order = append(r.order, task.ID)
	snapshot := task.Clone()
	r.mu.Unlock()

	r.persist(&snapshot)
	return snapshot
}

// update 在锁内修改任务，状态发生变化时持久化
func (r *TaskRegistry) update(id string, fn func(t *model.Task)) (model.Task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok {
		return model.Task{}, false
	}
	before := t.Status
	fn(t)
	snapshot := t.Clone()

	// 状态变化在锁内落盘，保证数据库中的状态顺序与内存一致
	if snapshot.Status != before {
		r.persist(&snapshot)
	}
	return snapshot, true
}

func (r *TaskRegistry) persist(task *model.Task) {
	if r.store == nil {
		return
	}
	if err := r.store.Save(task); err != nil {
		r.log.Errorf("保存任务失败: %s, %v", task.ID, err)
	}
}

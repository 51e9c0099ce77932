package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"torrent-factory/app/apperr"
	"torrent-factory/app/logger"
	"torrent-factory/app/model"
	"torrent-factory/app/torrent"
	"torrent-factory/app/utils/langtag"
	"torrent-factory/app/utils/pathhelper"

	"github.com/google/uuid"
)

// 任务结束后 eta 字段的显示内容
const (
	etaCompleted = "Terminé"
	etaCancelled = "Annulé"
	etaError     = "Erreur"
)

// TaskBuilder 生成种子
type TaskBuilder interface {
	Plan(kind model.LibraryKind, item model.TaskItem, exclude []string) (*torrent.Plan, error)
	Build(ctx context.Context, plan *torrent.Plan, settings *model.Settings, tag langtag.Tag, progress torrent.ProgressFunc) (*torrent.Result, error)
}

// LanguageResolver 通过音轨分析确定语言标签
type LanguageResolver interface {
	Resolve(ctx context.Context, files []string, fallback langtag.Tag, timeout time.Duration, onError func(path string, err error)) langtag.Tag
}

// TaskNotifier 任务结束通知
type TaskNotifier interface {
	Notify(task model.Task)
}

// TaskQueueService 任务队列，按提交顺序执行，最多同时运行 workers_max 个任务
type TaskQueueService struct {
	registry *TaskRegistry
	settings SettingsProvider
	builder  TaskBuilder
	prober   LanguageResolver
	notifier TaskNotifier
	log      *logger.Logger

	mu        sync.Mutex
	pending   []string                      // 等待执行的任务，先进先出
	cancels   map[string]context.CancelFunc // 正在执行的任务
	running   int
	wake      chan struct{}
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	isRunning bool
	now       func() time.Time
}

// NewTaskQueueService 创建任务队列，prober 和 notifier 可以为空
func NewTaskQueueService(registry *TaskRegistry, settings SettingsProvider, builder TaskBuilder, prober LanguageResolver, notifier TaskNotifier, log *logger.Logger) *TaskQueueService {
	return &TaskQueueService{
		registry: registry,
		settings: settings,
		builder:  builder,
		prober:   prober,
		notifier: notifier,
		log:      log,
		cancels:  make(map[string]context.CancelFunc),
		wake:     make(chan struct{}, 1),
		now:      time.Now,
	}
}

// Enqueue 创建一个包含全部条目的任务，返回任务 ID
func (q *TaskQueueService) Enqueue(kind model.LibraryKind, items []model.TaskItem) (string, error) {
	if len(items) == 0 {
		return "", apperr.Validation("enqueue", "任务条目不能为空")
	}

	copied := make([]model.TaskItem, len(items))
	for i, item := range items {
		if strings.TrimSpace(item.Path) == "" {
			return "", apperr.Validation("enqueue", "第 %d 个条目缺少路径", i+1)
		}
		if item.Mode == "" {
			item.Mode = torrent.DefaultMode(kind)
		}
		if item.Name == "" {
			item.Name = pathhelper.TrimVideoExt(filepath.Base(item.Path))
		}
		copied[i] = item
	}

	task := &model.Task{
		ID:        uuid.NewString(),
		Type:      kind,
		Name:      model.DisplayName(kind, len(copied)),
		Items:     copied,
		Status:    model.TaskStatusPending,
		Outputs:   []string{},
		Detail:    "Queued",
		CreatedAt: q.now(),
	}
	q.registry.add(task)

	q.mu.Lock()
	q.pending = append(q.pending, task.ID)
	q.mu.Unlock()
	q.Wake()

	q.log.Infof("📥 任务已加入队列: %s (%s)", task.Name, task.ID)
	return task.ID, nil
}

// Cancel 取消任务。等待中的任务直接取消，运行中的任务在当前分块结束后停止，已结束的任务不受影响
func (q *TaskQueueService) Cancel(id string) error {
	q.mu.Lock()
	for i, pid := range q.pending {
		if pid == id {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			q.mu.Unlock()
			q.finishCancelled(id)
			return nil
		}
	}
	if cancel, ok := q.cancels[id]; ok {
		cancel()
		q.mu.Unlock()
		q.log.Infof("正在取消任务: %s", id)
		return nil
	}
	q.mu.Unlock()

	if _, ok := q.registry.Get(id); !ok {
		return apperr.NotFound("cancel", "任务不存在: %s", id)
	}
	return nil
}

// List 按创建顺序返回全部任务
func (q *TaskQueueService) List() []model.Task {
	return q.registry.Snapshot()
}

// Clear 移除已结束的任务
func (q *TaskQueueService) Clear() int {
	n := q.registry.ClearTerminal()
	if n > 0 {
		q.log.Infof("已清除 %d 个已结束的任务", n)
	}
	return n
}

// Status 返回各状态的任务数量
func (q *TaskQueueService) Status() map[model.TaskStatus]int {
	status := make(map[model.TaskStatus]int)
	for _, t := range q.registry.Snapshot() {
		status[t.Status]++
	}
	return status
}

// Wake 唤醒调度器，配置变化或任务结束后调用
func (q *TaskQueueService) Wake() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Start 启动调度器
func (q *TaskQueueService) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.isRunning {
		return
	}
	q.ctx, q.cancel = context.WithCancel(context.Background())
	q.isRunning = true

	q.wg.Add(1)
	go q.dispatch(q.ctx)

	q.log.Info("任务队列处理器已启动")
}

// Stop 取消所有运行中的任务并等待其退出，等待中的任务保持不变
func (q *TaskQueueService) Stop() {
	q.mu.Lock()
	if !q.isRunning {
		q.mu.Unlock()
		return
	}
	q.isRunning = false
	q.cancel()
	q.mu.Unlock()

	q.wg.Wait()
	q.log.Info("任务队列处理器已停止")
}

// dispatch 调度循环
func (q *TaskQueueService) dispatch(ctx context.Context) {
	defer q.wg.Done()

	for {
		q.claim(ctx)
		select {
		case <-ctx.Done():
			return
		case <-q.wake:
		}
	}
}

// claim 在空闲槽位内按顺序启动等待中的任务
func (q *TaskQueueService) claim(ctx context.Context) {
	limit := q.settings.Get().WorkersMax
	if limit < 1 {
		limit = 1
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	for q.running < limit && len(q.pending) > 0 && ctx.Err() == nil {
		id := q.pending[0]
		q.pending = q.pending[1:]

		taskCtx, cancel := context.WithCancel(ctx)
		q.cancels[id] = cancel
		q.running++

		q.wg.Add(1)
		go q.run(taskCtx, id)
	}
}

func (q *TaskQueueService) run(ctx context.Context, id string) {
	defer q.wg.Done()
	defer func() {
		q.mu.Lock()
		if cancel, ok := q.cancels[id]; ok {
			cancel()
			delete(q.cancels, id)
		}
		q.running--
		q.mu.Unlock()
		q.Wake()
	}()

	q.execute(ctx, id)
}

// execute 依次处理任务中的条目
func (q *TaskQueueService) execute(ctx context.Context, id string) {
	started := q.now()
	task, ok := q.registry.update(id, func(t *model.Task) {
		t.Status = model.TaskStatusRunning
		t.StartedAt = &started
		t.Detail = "Starting"
	})
	if !ok {
		return
	}
	q.log.Infof("🔄 开始任务: %s", task.Name)

	// 任务开始时固定配置，之后的修改只影响新任务
	settings := q.settings.Get()
	total := len(task.Items)

	for i, item := range task.Items {
		if ctx.Err() != nil {
			q.finishCancelled(id)
			return
		}

		q.registry.update(id, func(t *model.Task) {
			t.CurrentItemIndex = i
			t.ProgressItem = 0
			t.Current = item.Name
			t.Detail = fmt.Sprintf("[%d/%d] Preparing...", i+1, total)
		})

		result, err := q.buildItem(ctx, id, task.Type, i, total, item, settings, started)
		if err != nil {
			if errors.Is(err, torrent.ErrCancelled) || ctx.Err() != nil {
				q.finishCancelled(id)
				return
			}
			q.finishError(id, item, err)
			return
		}

		paths := result.OutputPaths()
		q.registry.update(id, func(t *model.Task) {
			t.Outputs = append(t.Outputs, paths...)
			t.ProgressItem = 100
			t.ProgressGlobal = max(t.ProgressGlobal, globalProgress(i+1, 0, total))
		})
		for _, p := range paths {
			q.log.Successf("种子已创建: %s", filepath.Base(p))
		}
	}

	finished := q.now()
	final, _ := q.registry.update(id, func(t *model.Task) {
		t.Status = model.TaskStatusCompleted
		t.ProgressItem = 100
		t.ProgressGlobal = 100
		t.FinishedAt = &finished
		t.Detail = "Finished"
		t.ETA = etaCompleted
	})
	q.log.Infof("✅ 任务完成: %s, 耗时: %v", final.Name, finished.Sub(started).Round(time.Second))
	q.notify(final)
}

// buildItem 规划、识别语言并生成单个条目的种子
func (q *TaskQueueService) buildItem(ctx context.Context, id string, kind model.LibraryKind, index, total int, item model.TaskItem, settings *model.Settings, started time.Time) (*torrent.Result, error) {
	plan, err := q.builder.Plan(kind, item, settings.Exclude)
	if err != nil {
		return nil, err
	}

	tag := q.resolveTag(ctx, id, index, total, item, plan, settings)

	q.registry.update(id, func(t *model.Task) {
		t.Detail = fmt.Sprintf("[%d/%d] Processing...", index+1, total)
	})

	// 百分比没有变化时每秒最多刷新一次剩余时间
	lastPct := -1
	var lastTick time.Time
	progress := func(done, size int64) {
		pct := itemProgress(done, size)
		now := q.now()
		if pct == lastPct && now.Sub(lastTick) < time.Second {
			return
		}
		lastPct = pct
		lastTick = now

		global := globalProgress(index, pct, total)
		eta := estimate(now.Sub(started), float64(index*100+pct)/float64(total*100))
		q.registry.update(id, func(t *model.Task) {
			t.ProgressItem = max(t.ProgressItem, pct)
			t.ProgressGlobal = max(t.ProgressGlobal, global)
			t.ETA = eta
		})
	}

	return q.builder.Build(ctx, plan, settings, tag, progress)
}

// resolveTag 确定条目的语言标签：显式指定优先，其次音轨分析，最后根据名称识别
func (q *TaskQueueService) resolveTag(ctx context.Context, id string, index, total int, item model.TaskItem, plan *torrent.Plan, settings *model.Settings) langtag.Tag {
	if tag := langtag.Normalize(item.LangTag); tag != langtag.Unknown {
		return tag
	}

	fallback := langtag.Detect(item.Name)
	if !settings.AnalyzeAudio || q.prober == nil {
		return fallback
	}

	q.registry.update(id, func(t *model.Task) {
		t.Detail = fmt.Sprintf("[%d/%d] Analyzing audio...", index+1, total)
	})
	q.log.Infof("🎧 分析音轨: %s", item.Name)

	timeout := time.Duration(settings.TimeoutSec) * time.Second
	return q.prober.Resolve(ctx, plan.VideoFiles(), fallback, timeout, func(path string, err error) {
		q.log.Errorf("FFprobe 分析失败: %s, %v", filepath.Base(path), err)
	})
}

func (q *TaskQueueService) finishCancelled(id string) {
	finished := q.now()
	task, ok := q.registry.update(id, func(t *model.Task) {
		if t.Status.IsTerminal() {
			return
		}
		t.Status = model.TaskStatusCancelled
		t.FinishedAt = &finished
		t.Detail = "Cancelled"
		t.ETA = etaCancelled
	})
	if !ok {
		return
	}
	q.log.Warnf("⏹️ 任务已取消: %s", task.Name)
	q.notify(task)
}

func (q *TaskQueueService) finishError(id string, item model.TaskItem, err error) {
	finished := q.now()
	task, _ := q.registry.update(id, func(t *model.Task) {
		t.Status = model.TaskStatusError
		t.FinishedAt = &finished
		t.ErrorMessage = fmt.Sprintf("%s: %v", item.Name, err)
		t.Detail = err.Error()
		t.ETA = etaError
	})
	q.log.Errorf("❌ 任务失败: %s, 条目: %s, 错误: %v", task.Name, item.Name, err)
	q.notify(task)
}

func (q *TaskQueueService) notify(task model.Task) {
	if q.notifier != nil {
		q.notifier.Notify(task)
	}
}

// itemProgress 当前条目的百分比，向下取整
func itemProgress(done, total int64) int {
	if total <= 0 {
		return 0
	}
	p := int(done * 100 / total)
	if p > 100 {
		p = 100
	}
	return p
}

// globalProgress 整个任务的百分比，完成前最多为 99
func globalProgress(doneItems, itemPercent, total int) int {
	if total <= 0 {
		return 0
	}
	p := (doneItems*100 + itemPercent) / total
	if p > 99 {
		p = 99
	}
	return p
}

// estimate 根据已用时间和完成比例估算剩余时间
func estimate(elapsed time.Duration, fraction float64) string {
	if fraction <= 0 || elapsed <= 0 {
		return "--"
	}
	remaining := time.Duration(float64(elapsed) * (1 - fraction) / fraction)
	return formatETA(remaining)
}

func formatETA(d time.Duration) string {
	d = d.Round(time.Second)
	if d >= time.Hour {
		return fmt.Sprintf("%dh %02dm", int(d.Hours()), int(d.Minutes())%60)
	}
	return fmt.Sprintf("%02dm %02ds", int(d.Minutes()), int(d.Seconds())%60)
}

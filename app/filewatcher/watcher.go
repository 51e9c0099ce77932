package filewatcher

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"torrent-factory/app/logger"
	"torrent-factory/app/model"
	"torrent-factory/app/utils/pathhelper"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce 目录变化后等待的时间，合并连续事件
const DefaultDebounce = 5 * time.Second

// ChangeFunc 媒体库发生变化时的回调
type ChangeFunc func(kind model.LibraryKind)

// FileWatcherManager 根据配置启停媒体库监控
type FileWatcherManager struct {
	logger   *logger.Logger
	onChange ChangeFunc
	debounce time.Duration
	current  *FileWatcher
	mu       sync.Mutex
}

// NewFileWatcherManager 创建监控管理器
func NewFileWatcherManager(onChange ChangeFunc, debounce time.Duration, log *logger.Logger) *FileWatcherManager {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &FileWatcherManager{logger: log, onChange: onChange, debounce: debounce}
}

// Apply 按配置重新创建监控器，watch_library 关闭时只停止旧的监控器
func (m *FileWatcherManager) Apply(settings *model.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		m.current.Stop()
		m.current = nil
	}
	if !settings.WatchLibrary {
		return nil
	}

	roots := map[model.LibraryKind]string{
		model.KindSeries: settings.SeriesRoot,
		model.KindMovies: settings.MoviesRoot,
	}
	watcher, err := NewFileWatcher(roots, m.debounce, m.onChange, m.logger)
	if err != nil {
		return err
	}
	if err := watcher.Start(); err != nil {
		return err
	}
	m.current = watcher
	return nil
}

// Stop 停止当前监控器
func (m *FileWatcherManager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return nil
	}
	err := m.current.Stop()
	m.current = nil
	return err
}

// FileWatcher 监控两个媒体根目录的顶层变化
type FileWatcher struct {
	roots    map[string]model.LibraryKind
	watcher  *fsnotify.Watcher
	logger   *logger.Logger
	onChange ChangeFunc
	debounce time.Duration
	timers   map[model.LibraryKind]*time.Timer
	stopCh   chan struct{}
	wg       sync.WaitGroup
	watching bool
	mu       sync.Mutex
}

// NewFileWatcher 创建媒体库监控器
func NewFileWatcher(roots map[model.LibraryKind]string, debounce time.Duration, onChange ChangeFunc, log *logger.Logger) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("创建文件监控器失败: %w", err)
	}

	fw := &FileWatcher{
		roots:    make(map[string]model.LibraryKind),
		watcher:  watcher,
		logger:   log,
		onChange: onChange,
		debounce: debounce,
		timers:   make(map[model.LibraryKind]*time.Timer),
		stopCh:   make(chan struct{}),
	}
	for kind, root := range roots {
		if root != "" {
			fw.roots[filepath.Clean(root)] = kind
		}
	}
	return fw, nil
}

// Start 启动监控，不存在的根目录只记录警告
func (fw *FileWatcher) Start() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.watching {
		return fmt.Errorf("媒体库监控器已经在运行")
	}

	added := 0
	for root, kind := range fw.roots {
		if _, err := os.Stat(root); err != nil {
			fw.logger.Warnf("媒体目录不可用，跳过监控: %s (%s), %v", root, kind, err)
			continue
		}
		if err := fw.watcher.Add(root); err != nil {
			fw.logger.Warnf("添加监控目录失败: %s, 错误: %v", root, err)
			continue
		}
		added++
	}
	if added == 0 {
		fw.watcher.Close()
		return fmt.Errorf("没有可监控的媒体目录")
	}

	fw.watching = true
	fw.wg.Add(1)
	go fw.watchLoop()

	fw.logger.Infof("👀 媒体库监控已启动，共 %d 个目录", added)
	return nil
}

// Stop 停止监控并取消尚未触发的回调
func (fw *FileWatcher) Stop() error {
	fw.mu.Lock()
	if !fw.watching {
		fw.mu.Unlock()
		return nil
	}
	fw.watching = false
	close(fw.stopCh)
	for kind, t := range fw.timers {
		t.Stop()
		delete(fw.timers, kind)
	}
	fw.mu.Unlock()

	err := fw.watcher.Close()
	fw.wg.Wait()

	fw.logger.Info("媒体库监控已停止")
	return err
}

// watchLoop 监控事件循环
func (fw *FileWatcher) watchLoop() {
	defer fw.wg.Done()

	for {
		select {
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			fw.handleEvent(event)

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Errorf("媒体库监控错误: %v", err)

		case <-fw.stopCh:
			return
		}
	}
}

// handleEvent 只关心新增、删除和重命名
func (fw *FileWatcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}
	if pathhelper.IsHidden(filepath.Base(event.Name)) {
		return
	}

	kind, ok := fw.roots[filepath.Dir(event.Name)]
	if !ok {
		return
	}
	fw.logger.Debugf("媒体目录变化: %s %s", event.Op, event.Name)
	fw.schedule(kind)
}

// schedule 在 debounce 时间内合并同一媒体库的多次变化
func (fw *FileWatcher) schedule(kind model.LibraryKind) {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if !fw.watching {
		return
	}
	if t, ok := fw.timers[kind]; ok {
		t.Reset(fw.debounce)
		return
	}
	fw.timers[kind] = time.AfterFunc(fw.debounce, func() {
		fw.mu.Lock()
		delete(fw.timers, kind)
		watching := fw.watching
		fw.mu.Unlock()

		if watching && fw.onChange != nil {
			fw.onChange(kind)
		}
	})
}

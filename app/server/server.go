package server

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"torrent-factory/app/config"
	"torrent-factory/app/database"
	"torrent-factory/app/filewatcher"
	"torrent-factory/app/handler"
	"torrent-factory/app/logger"
	"torrent-factory/app/middleware"
	"torrent-factory/app/model"
	"torrent-factory/app/prober"
	"torrent-factory/app/service"
	"torrent-factory/app/torrent"

	"github.com/gin-gonic/gin"
)

// Version 程序版本
const Version = "1.0.0"

// Server 表示 HTTP 服务器
type Server struct {
	Config    *config.Config
	Logger    *logger.Logger
	gin       *gin.Engine
	http      *http.Server
	settings  *service.SettingsService
	queue     *service.TaskQueueService
	library   *service.LibraryService
	scheduler *service.ScanScheduler
	watchers  *filewatcher.FileWatcherManager
	notifier  *service.NotifyService
}

// New 创建一个新的 Server 实例，数据库需要已经初始化
func New(cfg *config.Config, log *logger.Logger) (*Server, error) {
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.AccessLog(log))

	db := database.GetDB()
	settings, err := service.NewSettingsService(db, cfg.Settings, log)
	if err != nil {
		return nil, err
	}

	registry := service.NewTaskRegistry(service.NewGormTaskStore(db), log)
	if err := registry.Load(); err != nil {
		return nil, err
	}

	notifier := service.NewNotifyService(settings, log)
	library := service.NewLibraryService(settings, log)
	queue := service.NewTaskQueueService(registry, settings, torrent.NewBuilder(log), prober.New(cfg.Server.FFprobe), notifier, log)

	s := &Server{
		gin: router,
		http: &http.Server{
			Addr:    ":" + cfg.Server.Port,
			Handler: router,
		},
		Config:    cfg,
		Logger:    log,
		settings:  settings,
		queue:     queue,
		library:   library,
		scheduler: service.NewScanScheduler(library, log),
		notifier:  notifier,
	}
	s.watchers = filewatcher.NewFileWatcherManager(s.onLibraryChange, filewatcher.DefaultDebounce, log)
	settings.OnChange(s.onSettingsChange)

	// 设置路由
	s.setupRoutes()
	s.setupStatic()

	return s, nil
}

// Start 启动后台服务和 HTTP 服务器
func (s *Server) Start() error {
	s.queue.Start()

	current := s.settings.Get()
	if err := s.scheduler.Apply(current.ScanCron); err != nil {
		s.Logger.Warnf("定时扫描配置无效: %v", err)
	}
	if err := s.watchers.Apply(current); err != nil {
		s.Logger.Warnf("启动媒体库监控失败: %v", err)
	}

	s.Logger.Infof("🚀 Torrent Factory %s 在端口 %s 启动", Version, s.http.Addr)
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	err := s.http.Shutdown(ctx)

	// 停止后台服务
	s.queue.Stop()
	s.scheduler.Stop()
	if werr := s.watchers.Stop(); werr != nil {
		s.Logger.Warnf("停止媒体库监控失败: %v", werr)
	}
	s.notifier.Close()

	// 关闭数据库连接
	if err := database.Close(); err != nil {
		s.Logger.Errorf("关闭数据库连接失败: %v", err)
	}
	return err
}

// onLibraryChange 媒体目录变化后重新扫描
func (s *Server) onLibraryChange(kind model.LibraryKind) {
	s.library.Invalidate(kind)
	if _, err := s.library.Scan(context.Background(), kind); err != nil {
		s.Logger.Warnf("自动扫描失败: %s, %v", kind, err)
	}
}

// onSettingsChange 配置保存后调整后台服务
func (s *Server) onSettingsChange(old, cur *model.Settings) {
	if err := s.scheduler.Apply(cur.ScanCron); err != nil {
		s.Logger.Warnf("定时扫描配置无效: %v", err)
	}

	if old.WatchLibrary != cur.WatchLibrary || old.SeriesRoot != cur.SeriesRoot || old.MoviesRoot != cur.MoviesRoot {
		if err := s.watchers.Apply(cur); err != nil {
			s.Logger.Warnf("重启媒体库监控失败: %v", err)
		}
	}

	if old.SeriesRoot != cur.SeriesRoot || old.ShowSize != cur.ShowSize || !slices.Equal(old.Exclude, cur.Exclude) {
		s.library.Invalidate(model.KindSeries)
	}
	if old.MoviesRoot != cur.MoviesRoot || old.ShowSize != cur.ShowSize || !slices.Equal(old.Exclude, cur.Exclude) {
		s.library.Invalidate(model.KindMovies)
	}

	// workers_max 变大时可以立即启动等待中的任务
	s.queue.Wake()
}

// setupRoutes 设置API路由
func (s *Server) setupRoutes() {
	// 创建处理器实例
	configHandler := handler.NewConfigHandler(s.settings)
	fsHandler := handler.NewFSHandler(s.Logger)
	libraryHandler := handler.NewLibraryHandler(s.library)
	taskHandler := handler.NewTaskHandler(s.queue)
	torrentHandler := handler.NewTorrentHandler(s.settings, s.Logger)
	logHandler := handler.NewLogHandler(s.Logger.Ring())
	systemHandler := handler.NewSystemHandler(Version, s.queue, s.library)

	// API路由组
	api := s.gin.Group("/api")

	// 配置
	api.GET("/config", configHandler.GetConfig)
	api.POST("/config", configHandler.SaveConfig)

	// 目录选择
	api.GET("/drives", fsHandler.GetDrives)
	api.GET("/browse", fsHandler.Browse)

	// 媒体库
	api.POST("/scan/:kind", libraryHandler.Scan)
	api.GET("/scan/:kind", libraryHandler.Scan)
	api.GET("/library/:kind", libraryHandler.GetLibrary)

	// 任务队列
	tasks := api.Group("/tasks")
	{
		tasks.POST("/add", taskHandler.AddTasks)
		tasks.GET("/list", taskHandler.ListTasks)
		tasks.POST("/cancel", taskHandler.CancelTask)
		tasks.GET("/clear", taskHandler.ClearTasks)
		tasks.POST("/clear", taskHandler.ClearTasks)
	}

	// 已生成的种子
	torrents := api.Group("/torrents")
	{
		torrents.GET("/list", torrentHandler.ListTorrents)
		torrents.GET("/download", torrentHandler.DownloadTorrent)
		torrents.POST("/delete", torrentHandler.DeleteTorrent)
	}

	// 日志
	api.GET("/logs", logHandler.GetLogs)
	api.POST("/logs/clear", logHandler.ClearLogs)

	// 系统
	api.GET("/health", systemHandler.Health)
	api.GET("/debug", systemHandler.Debug)
}

// setupStatic 提供前端页面，未知路径返回 index.html
func (s *Server) setupStatic() {
	dir := s.Config.Server.StaticDir
	s.gin.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") || dir == "" {
			c.JSON(http.StatusNotFound, handler.ApiResponse{Code: http.StatusNotFound, Message: "接口不存在"})
			return
		}

		path := filepath.Join(dir, filepath.Clean("/"+c.Request.URL.Path))
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			c.File(path)
			return
		}

		index := filepath.Join(dir, "index.html")
		if _, err := os.Stat(index); err != nil {
			c.JSON(http.StatusNotFound, handler.ApiResponse{Code: http.StatusNotFound, Message: "前端页面不存在"})
			return
		}
		c.File(index)
	})
}

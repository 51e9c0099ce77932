package handler

import (
	"net/http"
	"runtime"

	"torrent-factory/app/model"
	"torrent-factory/app/service"

	"github.com/gin-gonic/gin"
)

// SystemHandler 健康检查和调试信息
type SystemHandler struct {
	version string
	queue   *service.TaskQueueService
	library *service.LibraryService
}

// NewSystemHandler 创建系统处理器
func NewSystemHandler(version string, queue *service.TaskQueueService, library *service.LibraryService) *SystemHandler {
	return &SystemHandler{version: version, queue: queue, library: library}
}

// Health 健康检查
func (h *SystemHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Debug 返回队列和媒体库的概况
func (h *SystemHandler) Debug(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"version":    h.version,
		"go_version": runtime.Version(),
		"goroutines": runtime.NumGoroutine(),
		"tasks":      h.queue.Status(),
		"library": gin.H{
			"series": len(h.library.Library(model.KindSeries)),
			"movies": len(h.library.Library(model.KindMovies)),
			// 目录有变化但还没有重新扫描
			"stale": gin.H{
				"series": h.library.IsStale(model.KindSeries),
				"movies": h.library.IsStale(model.KindMovies),
			},
		},
	})
}

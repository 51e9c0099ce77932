package handler

import (
	"net/http"
	"strconv"

	"torrent-factory/app/logger"

	"github.com/gin-gonic/gin"
)

// LogHandler 页面日志
type LogHandler struct {
	ring *logger.Ring
}

// NewLogHandler 创建日志处理器
func NewLogHandler(ring *logger.Ring) *LogHandler {
	return &LogHandler{ring: ring}
}

// GetLogs 返回 ID 大于 since 的日志
func (h *LogHandler) GetLogs(c *gin.Context) {
	since, err := strconv.ParseInt(c.DefaultQuery("since", "0"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, "since 必须是整数")
		return
	}
	c.JSON(http.StatusOK, h.ring.Since(since))
}

// ClearLogs 清空页面日志
func (h *LogHandler) ClearLogs(c *gin.Context) {
	h.ring.Clear()
	success(c, nil, "日志已清空")
}

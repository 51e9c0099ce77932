package middleware

import (
	"strings"
	"time"

	"torrent-factory/app/logger"

	"github.com/gin-gonic/gin"
)

// 前端轮询的接口，成功时不记录
var pollingPaths = map[string]bool{
	"/api/tasks/list": true,
	"/api/logs":       true,
	"/api/health":     true,
}

// AccessLog 简单的访问日志
func AccessLog(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)

		path := c.Request.URL.Path
		if !strings.HasPrefix(path, "/api/") {
			return
		}

		status := c.Writer.Status()
		switch {
		case status >= 500:
			log.Warnf("%s %s %d %v", c.Request.Method, c.Request.RequestURI, status, latency)
		case status >= 400:
			log.Infof("%s %s %d %v", c.Request.Method, c.Request.RequestURI, status, latency)
		case pollingPaths[path]:
		default:
			log.Debugf("%s %s %d %v", c.Request.Method, c.Request.RequestURI, status, latency)
		}
	}
}

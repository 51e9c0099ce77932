package handler

import (
	"net/http"

	"torrent-factory/app/service"

	"github.com/gin-gonic/gin"
)

// ConfigHandler 运行时配置
type ConfigHandler struct {
	settings *service.SettingsService
}

// NewConfigHandler 创建配置处理器
func NewConfigHandler(settings *service.SettingsService) *ConfigHandler {
	return &ConfigHandler{settings: settings}
}

// GetConfig 返回当前配置
func (h *ConfigHandler) GetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, h.settings.Get())
}

// SaveConfig 保存配置，请求中没有出现的字段保持原值
func (h *ConfigHandler) SaveConfig(c *gin.Context) {
	next := h.settings.Get()
	if err := c.ShouldBindJSON(next); err != nil {
		fail(c, http.StatusBadRequest, "请求参数错误: "+err.Error())
		return
	}

	saved, err := h.settings.Save(*next)
	if err != nil {
		failErr(c, err)
		return
	}
	success(c, saved, "配置已保存")
}

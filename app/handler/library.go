package handler

import (
	"net/http"

	"torrent-factory/app/model"
	"torrent-factory/app/service"

	"github.com/gin-gonic/gin"
)

// ScanResponse 扫描结果，status 为 ok 表示扫描完成
type ScanResponse struct {
	Status   string              `json:"status"`
	Items    []model.LibraryItem `json:"items"`
	Warnings []model.ScanWarning `json:"warnings"`
}

// LibraryHandler 媒体库扫描与查询
type LibraryHandler struct {
	library *service.LibraryService
}

// NewLibraryHandler 创建媒体库处理器
func NewLibraryHandler(library *service.LibraryService) *LibraryHandler {
	return &LibraryHandler{library: library}
}

func parseKind(c *gin.Context) (model.LibraryKind, bool) {
	kind, err := model.ParseLibraryKind(c.Param("kind"))
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return "", false
	}
	return kind, true
}

// Scan 重新扫描媒体库
func (h *LibraryHandler) Scan(c *gin.Context) {
	kind, ok := parseKind(c)
	if !ok {
		return
	}

	result, err := h.library.Scan(c.Request.Context(), kind)
	if err != nil {
		failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, ScanResponse{Status: "ok", Items: result.Items, Warnings: result.Warnings})
}

// GetLibrary 返回最近一次扫描的结果
func (h *LibraryHandler) GetLibrary(c *gin.Context) {
	kind, ok := parseKind(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.library.Library(kind))
}

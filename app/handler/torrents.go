package handler

import (
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"torrent-factory/app/logger"
	"torrent-factory/app/model"
	"torrent-factory/app/service"
	"torrent-factory/app/utils/pathhelper"

	"github.com/gin-gonic/gin"
)

// TorrentListResponse 两个输出目录中的种子文件
type TorrentListResponse struct {
	Series []model.TorrentFileInfo `json:"series"`
	Movies []model.TorrentFileInfo `json:"movies"`
}

// DeleteTorrentRequest 删除种子请求
type DeleteTorrentRequest struct {
	Path string `json:"path" binding:"required"`
}

// TorrentHandler 已生成种子的管理
type TorrentHandler struct {
	settings service.SettingsProvider
	logger   *logger.Logger
}

// NewTorrentHandler 创建种子文件处理器
func NewTorrentHandler(settings service.SettingsProvider, log *logger.Logger) *TorrentHandler {
	return &TorrentHandler{settings: settings, logger: log}
}

// ListTorrents 列出输出目录中的 .torrent 文件，最新的在前
func (h *TorrentHandler) ListTorrents(c *gin.Context) {
	s := h.settings.Get()
	c.JSON(http.StatusOK, TorrentListResponse{
		Series: h.listDir(s.OutDir(model.KindSeries)),
		Movies: h.listDir(s.OutDir(model.KindMovies)),
	})
}

func (h *TorrentHandler) listDir(dir string) []model.TorrentFileInfo {
	files := []model.TorrentFileInfo{}
	if dir == "" {
		return files
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			h.logger.Warnf("读取种子目录失败: %s, %v", dir, err)
		}
		return files
	}

	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".torrent") || pathhelper.IsHidden(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, model.TorrentFileInfo{
			Name:  e.Name(),
			Path:  filepath.Join(dir, e.Name()),
			Size:  info.Size(),
			MTime: info.ModTime().Unix(),
		})
	}
	sort.Slice(files, func(i, j int) bool {
		if files[i].MTime != files[j].MTime {
			return files[i].MTime > files[j].MTime
		}
		return files[i].Name < files[j].Name
	})
	return files
}

// resolve 校验路径位于某个输出目录之内且为 .torrent 文件
func (h *TorrentHandler) resolve(c *gin.Context, path string) (string, bool) {
	path = strings.TrimSpace(path)
	if path == "" || !filepath.IsAbs(path) {
		fail(c, http.StatusBadRequest, "路径必须是绝对路径")
		return "", false
	}
	path = filepath.Clean(path)

	s := h.settings.Get()
	inside := pathhelper.IsSubPath(path, s.SeriesOut) || pathhelper.IsSubPath(path, s.MoviesOut)
	if !inside || !strings.EqualFold(filepath.Ext(path), ".torrent") {
		fail(c, http.StatusBadRequest, "只能访问输出目录中的种子文件")
		return "", false
	}

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		fail(c, http.StatusNotFound, "文件不存在")
		return "", false
	}
	return path, true
}

// DownloadTorrent 下载种子文件
func (h *TorrentHandler) DownloadTorrent(c *gin.Context) {
	path, ok := h.resolve(c, c.Query("path"))
	if !ok {
		return
	}
	c.FileAttachment(path, filepath.Base(path))
}

// DeleteTorrent 删除种子文件
func (h *TorrentHandler) DeleteTorrent(c *gin.Context) {
	var req DeleteTorrentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "请求参数错误: "+err.Error())
		return
	}
	path, ok := h.resolve(c, req.Path)
	if !ok {
		return
	}

	if err := os.Remove(path); err != nil {
		h.logger.Errorf("删除种子失败: %s, %v", path, err)
		fail(c, http.StatusInternalServerError, "删除失败: "+err.Error())
		return
	}
	h.logger.Infof("🗑️ 已删除种子: %s", filepath.Base(path))
	success(c, gin.H{"path": path}, "删除成功")
}

package handler

import (
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"torrent-factory/app/logger"
	"torrent-factory/app/utils/pathhelper"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v4/disk"
)

// 不展示给用户的虚拟文件系统
var pseudoFS = map[string]bool{
	"proc": true, "sysfs": true, "devtmpfs": true, "devpts": true, "tmpfs": true, "cgroup": true,
	"cgroup2": true, "overlay": true, "squashfs": true, "securityfs": true, "debugfs": true,
	"tracefs": true, "mqueue": true, "pstore": true, "bpf": true, "autofs": true, "configfs": true,
	"fusectl": true, "hugetlbfs": true, "nsfs": true, "ramfs": true, "binfmt_misc": true,
}

// DirEntry 目录浏览中的一项
type DirEntry struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// BrowseResponse 目录浏览结果，只包含子目录
type BrowseResponse struct {
	Current string     `json:"current"`
	Parent  string     `json:"parent"`
	Items   []DirEntry `json:"items"`
}

// FSHandler 设置页面使用的目录选择
type FSHandler struct {
	logger *logger.Logger
}

// NewFSHandler 创建目录浏览处理器
func NewFSHandler(log *logger.Logger) *FSHandler {
	return &FSHandler{logger: log}
}

// GetDrives 列出已挂载的分区
func (h *FSHandler) GetDrives(c *gin.Context) {
	parts, err := disk.PartitionsWithContext(c.Request.Context(), false)
	if err != nil {
		h.logger.Warnf("读取分区列表失败: %v", err)
	}

	seen := make(map[string]bool)
	drives := []DirEntry{{Name: "/", Path: "/"}}
	seen["/"] = true
	for _, p := range parts {
		if pseudoFS[p.Fstype] || seen[p.Mountpoint] || p.Mountpoint == "" {
			continue
		}
		seen[p.Mountpoint] = true
		name := filepath.Base(p.Mountpoint)
		if name == string(filepath.Separator) || name == "." {
			name = p.Mountpoint
		}
		drives = append(drives, DirEntry{Name: name, Path: p.Mountpoint})
	}
	sort.Slice(drives[1:], func(i, j int) bool { return drives[i+1].Path < drives[j+1].Path })

	c.JSON(http.StatusOK, drives)
}

// Browse 列出目录下的子目录
func (h *FSHandler) Browse(c *gin.Context) {
	current := strings.TrimSpace(c.Query("path"))
	if current == "" {
		current = "/"
	}
	if !filepath.IsAbs(current) {
		fail(c, http.StatusBadRequest, "路径必须是绝对路径")
		return
	}
	current = filepath.Clean(current)

	info, err := os.Stat(current)
	if err != nil {
		if os.IsNotExist(err) {
			fail(c, http.StatusNotFound, "目录不存在: "+current)
			return
		}
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	if !info.IsDir() {
		fail(c, http.StatusBadRequest, "不是目录: "+current)
		return
	}

	entries, err := os.ReadDir(current)
	if err != nil {
		fail(c, http.StatusInternalServerError, "读取目录失败: "+err.Error())
		return
	}

	items := make([]DirEntry, 0, len(entries))
	for _, e := range entries {
		if pathhelper.IsHidden(e.Name()) {
			continue
		}
		full := filepath.Join(current, e.Name())
		if !e.IsDir() {
			// 指向目录的符号链接
			st, err := os.Stat(full)
			if err != nil || !st.IsDir() {
				continue
			}
		}
		items = append(items, DirEntry{Name: e.Name(), Path: full})
	}
	sort.Slice(items, func(i, j int) bool {
		return strings.ToLower(items[i].Name) < strings.ToLower(items[j].Name)
	})

	parent := filepath.Dir(current)
	if parent == current {
		parent = ""
	}
	c.JSON(http.StatusOK, BrowseResponse{Current: current, Parent: parent, Items: items})
}

package model

import (
	"fmt"
	"strings"
)

// LibraryKind 媒体库类型
type LibraryKind string

const (
	KindSeries LibraryKind = "series"
	KindMovies LibraryKind = "movies"
)

// ParseLibraryKind 解析媒体库类型，兼容单数写法
func ParseLibraryKind(s string) (LibraryKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "series", "serie":
		return KindSeries, nil
	case "movies", "movie", "films":
		return KindMovies, nil
	}
	return "", fmt.Errorf("未知的媒体库类型: %s", s)
}

// ItemKind 单个条目的类型
type ItemKind string

const (
	ItemSeries ItemKind = "series"
	ItemMovie  ItemKind = "movie"
)

// LibraryItem 扫描得到的媒体条目，扫描后不再修改
type LibraryItem struct {
	Name        string   `json:"name"`
	Path        string   `json:"path"`
	Kind        ItemKind `json:"kind"`
	SizeBytes   *int64   `json:"size_bytes,omitempty"`
	Size        string   `json:"size,omitempty"`
	DetectedTag string   `json:"detected_tag"`
}

// ScanWarning 扫描过程中被跳过的条目
type ScanWarning struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// TorrentFileInfo 输出目录中已生成的种子文件
type TorrentFileInfo struct {
	Name  string `json:"name"`
	Path  string `json:"path"`
	Size  int64  `json:"size"`
	MTime int64  `json:"mtime"`
}

// HumanSize 以 GB 为单位格式化大小
func HumanSize(size int64) string {
	const gb = 1024 * 1024 * 1024
	const mb = 1024 * 1024
	if size >= gb/10 {
		return fmt.Sprintf("%.2f GB", float64(size)/gb)
	}
	return fmt.Sprintf("%.1f MB", float64(size)/mb)
}

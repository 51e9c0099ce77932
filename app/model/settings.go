package model

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/robfig/cron/v3"
)

// 分块大小指数的可配置范围（0 表示自动选择）
const (
	MinPieceSizeExp = 15
	MaxPieceSizeExp = 28
	MaxWorkers      = 16
)

// Settings 运行时配置，由前端设置页面读写
type Settings struct {
	SeriesRoot   string   `json:"series_root" mapstructure:"series_root"`
	SeriesOut    string   `json:"series_out" mapstructure:"series_out"`
	MoviesRoot   string   `json:"movies_root" mapstructure:"movies_root"`
	MoviesOut    string   `json:"movies_out" mapstructure:"movies_out"`
	TrackerURL   string   `json:"tracker_url" mapstructure:"tracker_url"`
	PieceSize    int      `json:"piece_size" mapstructure:"piece_size"` // 0 为自动，否则为 2 的指数
	Private      bool     `json:"private" mapstructure:"private"`
	AnalyzeAudio bool     `json:"analyze_audio" mapstructure:"analyze_audio"`
	ShowSize     bool     `json:"show_size" mapstructure:"show_size"`
	WorkersMax   int      `json:"workers_max" mapstructure:"workers_max"`
	TimeoutSec   int      `json:"timeout_sec" mapstructure:"timeout_sec"`
	Exclude      []string `json:"exclude" mapstructure:"exclude"`
	Comment      string   `json:"comment" mapstructure:"comment"`
	Language     string   `json:"language" mapstructure:"language"`

	ScanCron     string `json:"scan_cron" mapstructure:"scan_cron"`         // 定时重新扫描媒体库，空为关闭
	WatchLibrary bool   `json:"watch_library" mapstructure:"watch_library"` // 监听媒体目录变化
	NotifyURL    string `json:"notify_url" mapstructure:"notify_url"`       // 任务结束回调地址
}

// Root 返回指定类型的媒体根目录
func (s *Settings) Root(kind LibraryKind) string {
	if kind == KindSeries {
		return s.SeriesRoot
	}
	return s.MoviesRoot
}

// OutDir 返回指定类型的种子输出目录
func (s *Settings) OutDir(kind LibraryKind) string {
	if kind == KindSeries {
		return s.SeriesOut
	}
	return s.MoviesOut
}

// Clone 深拷贝配置
func (s *Settings) Clone() *Settings {
	c := *s
	c.Exclude = append([]string(nil), s.Exclude...)
	return &c
}

// Normalize 清理用户输入中的空白
func (s *Settings) Normalize() {
	s.SeriesRoot = strings.TrimSpace(s.SeriesRoot)
	s.SeriesOut = strings.TrimSpace(s.SeriesOut)
	s.MoviesRoot = strings.TrimSpace(s.MoviesRoot)
	s.MoviesOut = strings.TrimSpace(s.MoviesOut)
	s.TrackerURL = strings.TrimSpace(s.TrackerURL)
	s.ScanCron = strings.TrimSpace(s.ScanCron)
	s.NotifyURL = strings.TrimSpace(s.NotifyURL)
	s.Language = strings.TrimSpace(s.Language)

	patterns := make([]string, 0, len(s.Exclude))
	for _, p := range s.Exclude {
		if p = strings.TrimSpace(p); p != "" {
			patterns = append(patterns, p)
		}
	}
	s.Exclude = patterns
}

// Validate 校验配置，返回第一个发现的问题
func (s *Settings) Validate() error {
	paths := []struct {
		name  string
		value string
	}{
		{"series_root", s.SeriesRoot},
		{"series_out", s.SeriesOut},
		{"movies_root", s.MoviesRoot},
		{"movies_out", s.MoviesOut},
	}
	for _, p := range paths {
		if p.value == "" {
			return fmt.Errorf("%s 不能为空", p.name)
		}
		if !filepath.IsAbs(p.value) {
			return fmt.Errorf("%s 必须是绝对路径: %s", p.name, p.value)
		}
	}

	if s.TrackerURL != "" {
		u, err := url.Parse(s.TrackerURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("tracker_url 无效: %s", s.TrackerURL)
		}
	}

	if s.PieceSize != 0 && (s.PieceSize < MinPieceSizeExp || s.PieceSize > MaxPieceSizeExp) {
		return fmt.Errorf("piece_size 必须为 0 或 %d-%d 之间的指数", MinPieceSizeExp, MaxPieceSizeExp)
	}
	if s.WorkersMax < 1 || s.WorkersMax > MaxWorkers {
		return fmt.Errorf("workers_max 必须在 1-%d 之间", MaxWorkers)
	}
	if s.TimeoutSec < 1 {
		return fmt.Errorf("timeout_sec 必须大于 0")
	}

	for _, p := range s.Exclude {
		if _, err := filepath.Match(p, ""); err != nil {
			return fmt.Errorf("exclude 规则无效: %s", p)
		}
	}

	if s.ScanCron != "" {
		if _, err := cron.ParseStandard(s.ScanCron); err != nil {
			return fmt.Errorf("scan_cron 无效: %v", err)
		}
	}
	if s.NotifyURL != "" {
		u, err := url.Parse(s.NotifyURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("notify_url 必须是 http(s) 地址")
		}
	}
	return nil
}

package service

import (
	"context"
	"sync"

	"torrent-factory/app/logger"
	"torrent-factory/app/model"

	"github.com/robfig/cron/v3"
)

// ScanScheduler 按 scan_cron 定时重新扫描两个媒体库
type ScanScheduler struct {
	library *LibraryService
	log     *logger.Logger
	mu      sync.Mutex
	cron    *cron.Cron
	spec    string
}

// NewScanScheduler 创建定时扫描器
func NewScanScheduler(library *LibraryService, log *logger.Logger) *ScanScheduler {
	return &ScanScheduler{library: library, log: log}
}

// Apply 按新的 cron 表达式重新调度，空表达式关闭定时扫描
func (s *ScanScheduler) Apply(spec string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil && spec == s.spec {
		return nil
	}
	s.stopLocked()

	if spec == "" {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(spec, s.rescan); err != nil {
		return err
	}
	c.Start()

	s.cron = c
	s.spec = spec
	s.log.Infof("⏰ 定时扫描已启用: %s", spec)
	return nil
}

// Stop 停止定时扫描并等待正在执行的扫描结束
func (s *ScanScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *ScanScheduler) stopLocked() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.cron = nil
	s.spec = ""
	s.log.Info("定时扫描已停止")
}

func (s *ScanScheduler) rescan() {
	for _, kind := range []model.LibraryKind{model.KindSeries, model.KindMovies} {
		if _, err := s.library.Scan(context.Background(), kind); err != nil {
			s.log.Warnf("定时扫描失败: %s, %v", kind, err)
		}
	}
}

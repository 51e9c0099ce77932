package service

import (
	"context"
	"sync"

	"torrent-factory/app/logger"
	"torrent-factory/app/model"
	"torrent-factory/app/scanner"

	"github.com/patrickmn/go-cache"
)

// LibraryService 扫描媒体库并缓存最近一次的结果
type LibraryService struct {
	settings SettingsProvider
	cache    *cache.Cache
	log      *logger.Logger
	mu       sync.Mutex // 同一时间每种类型只进行一次扫描
	scanning map[model.LibraryKind]*sync.Mutex
}

// NewLibraryService 创建媒体库服务
func NewLibraryService(settings SettingsProvider, log *logger.Logger) *LibraryService {
	return &LibraryService{
		settings: settings,
		cache:    cache.New(cache.NoExpiration, 0),
		log:      log,
		scanning: make(map[model.LibraryKind]*sync.Mutex),
	}
}

func itemsKey(kind model.LibraryKind) string { return "items:" + string(kind) }
func staleKey(kind model.LibraryKind) string { return "stale:" + string(kind) }

func (s *LibraryService) lock(kind model.LibraryKind) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.scanning[kind]
	if !ok {
		m = &sync.Mutex{}
		s.scanning[kind] = m
	}
	return m
}

// Scan 使用当前配置扫描媒体库并更新缓存
func (s *LibraryService) Scan(ctx context.Context, kind model.LibraryKind) (*scanner.Result, error) {
	m := s.lock(kind)
	m.Lock()
	defer m.Unlock()

	settings := s.settings.Get()
	result, err := scanner.Scan(ctx, settings.Root(kind), kind, settings.Exclude, settings.ShowSize)
	if err != nil {
		s.log.Errorf("扫描媒体库失败: %s, %v", kind, err)
		return nil, err
	}

	for _, w := range result.Warnings {
		s.log.Warnf("扫描时跳过: %s, %s", w.Path, w.Message)
	}

	s.cache.Set(itemsKey(kind), result.Items, cache.NoExpiration)
	s.cache.Delete(staleKey(kind))
	s.log.Infof("媒体库扫描完成: %s (%d 个条目)", kind, len(result.Items))
	return result, nil
}

// Library 返回最近一次扫描的结果，从未扫描时返回空列表
func (s *LibraryService) Library(kind model.LibraryKind) []model.LibraryItem {
	v, ok := s.cache.Get(itemsKey(kind))
	if !ok {
		return []model.LibraryItem{}
	}
	items := v.([]model.LibraryItem)
	return append([]model.LibraryItem(nil), items...)
}

// Invalidate 标记缓存已过期，下一次扫描前仍返回旧结果
func (s *LibraryService) Invalidate(kind model.LibraryKind) {
	s.cache.Set(staleKey(kind), true, cache.NoExpiration)
}

// IsStale 缓存是否已过期
func (s *LibraryService) IsStale(kind model.LibraryKind) bool {
	_, ok := s.cache.Get(staleKey(kind))
	return ok
}

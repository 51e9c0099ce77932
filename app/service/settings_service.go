package service

import (
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"

	"torrent-factory/app/apperr"
	"torrent-factory/app/logger"
	"torrent-factory/app/model"

	"gorm.io/gorm"
)

// SettingsListener 配置保存后的回调
type SettingsListener func(old, cur *model.Settings)

// SettingsProvider 提供当前运行时配置
type SettingsProvider interface {
	Get() *model.Settings
}

// SettingsService 运行时配置，保存时整体替换
type SettingsService struct {
	db        *gorm.DB
	log       *logger.Logger
	current   atomic.Pointer[model.Settings]
	mu        sync.Mutex // 串行化保存操作
	listeners []SettingsListener
}

// NewSettingsService 从数据库加载配置，没有记录时使用 defaults。db 为空时只保存在内存中
func NewSettingsService(db *gorm.DB, defaults model.Settings, log *logger.Logger) (*SettingsService, error) {
	s := &SettingsService{db: db, log: log}

	settings := defaults.Clone()
	if db != nil {
		var row model.SystemConfig
		err := db.Where("config_key = ?", model.ConfigKeySettings).First(&row).Error
		switch {
		case err == nil:
			if err := json.Unmarshal([]byte(row.ConfigValue), settings); err != nil {
				log.Warnf("运行时配置解析失败，使用默认配置: %v", err)
				settings = defaults.Clone()
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return nil, err
		}
	}

	settings.Normalize()
	s.current.Store(settings)
	return s, nil
}

// Get 返回当前配置的副本
func (s *SettingsService) Get() *model.Settings {
	return s.current.Load().Clone()
}

// OnChange 注册配置变更回调
func (s *SettingsService) OnChange(fn SettingsListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Save 校验并保存配置，成功后通知所有监听者
func (s *SettingsService) Save(in model.Settings) (*model.Settings, error) {
	next := in.Clone()
	next.Normalize()
	if err := next.Validate(); err != nil {
		return nil, apperr.Validation("save settings", "%v", err)
	}

	s.mu.Lock()
	if s.db != nil {
		if err := s.persist(next); err != nil {
			s.mu.Unlock()
			s.log.Errorf("保存运行时配置失败: %v", err)
			return nil, apperr.IO("save settings", err)
		}
	}
	old := s.current.Swap(next)
	listeners := append([]SettingsListener(nil), s.listeners...)
	s.mu.Unlock()

	s.log.Successf("配置已保存")
	for _, fn := range listeners {
		fn(old.Clone(), next.Clone())
	}
	return next.Clone(), nil
}

func (s *SettingsService) persist(settings *model.Settings) error {
	value, err := json.Marshal(settings)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var row model.SystemConfig
		err := tx.Where("config_key = ?", model.ConfigKeySettings).First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(&model.SystemConfig{
				ConfigKey:   model.ConfigKeySettings,
				ConfigValue: string(value),
				ConfigType:  model.TypeJSON,
				Category:    model.CategorySystem,
			}).Error
		}
		if err != nil {
			return err
		}
		return tx.Model(&row).Update("config_value", string(value)).Error
	})
}

package database

import (
	"encoding/json"
	"errors"

	"torrent-factory/app/config"
	"torrent-factory/app/logger"
	"torrent-factory/app/model"

	"gorm.io/gorm"
)

// InitSettings 数据库中没有运行时配置时，写入配置文件中的默认值
func InitSettings(db *gorm.DB, cfg *config.Config, log *logger.Logger) error {
	var existing model.SystemConfig
	err := db.Where("config_key = ?", model.ConfigKeySettings).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	value, err := json.Marshal(cfg.Settings)
	if err != nil {
		return err
	}

	row := model.SystemConfig{
		ConfigKey:   model.ConfigKeySettings,
		ConfigValue: string(value),
		ConfigType:  model.TypeJSON,
		Category:    model.CategorySystem,
	}
	if err := db.Create(&row).Error; err != nil {
		return err
	}

	log.Infof("已写入默认运行时配置")
	return nil
}

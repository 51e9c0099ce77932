package cmd

import (
	"os"
	"path/filepath"

	"torrent-factory/app/config"
	"torrent-factory/app/database"
	"torrent-factory/app/logger"
	"torrent-factory/app/model"
	"torrent-factory/app/service"
)

// loadSettings 优先使用页面保存在数据库中的设置，数据库不存在时使用配置文件
func loadSettings(cfg *config.Config) (model.Settings, error) {
	dbPath := filepath.Join(cfg.Server.DataDir, database.DBFileName)
	if _, err := os.Stat(dbPath); err != nil {
		return cfg.Settings, nil
	}

	db, err := database.Open(dbPath)
	if err != nil {
		return model.Settings{}, err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	svc, err := service.NewSettingsService(db, cfg.Settings, logger.Nop())
	if err != nil {
		return model.Settings{}, err
	}
	return *svc.Get(), nil
}

package config

import (
	"fmt"
	"log"

	"torrent-factory/app/model"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Settings model.Settings `mapstructure:"settings"` // 数据库中没有配置时使用的默认值
}

type ServerConfig struct {
	Port      string `mapstructure:"port"`
	DataDir   string `mapstructure:"data_dir"`   // 数据库和日志目录
	StaticDir string `mapstructure:"static_dir"` // 前端构建产物目录，为空时不提供页面
	FFprobe   string `mapstructure:"ffprobe"`    // ffprobe 可执行文件路径
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`      // json 或 text
	Output     string `mapstructure:"output"`      // stdout 或 file
	Dir        string `mapstructure:"dir"`         // 日志文件目录
	MaxSize    int    `mapstructure:"max_size"`    // 兆字节
	MaxBackups int    `mapstructure:"max_backups"` // 备份数量
	MaxAge     int    `mapstructure:"max_age"`     // 天数
	Compress   bool   `mapstructure:"compress"`    // 是否压缩旧文件
	RingSize   int    `mapstructure:"ring_size"`   // 页面日志保留条数
}

func Load() *Config {
	config, err := LoadE()
	if err != nil {
		log.Fatalf("%v", err)
	}
	return config
}

// LoadE 读取配置，出错时返回错误而不是退出
func LoadE() (*Config, error) {
	SetDefaults()

	// 读取配置
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("未找到配置文件，使用默认配置")
		} else {
			return nil, fmt.Errorf("读取配置文件出错: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("无法解码配置: %w", err)
	}

	// 验证配置
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("配置验证失败: %w", err)
	}

	config.Settings.Normalize()
	return &config, nil
}

// SetDefaults 设置默认配置
func SetDefaults() {
	viper.SetDefault("server.port", "5000")
	viper.SetDefault("server.data_dir", "data")
	viper.SetDefault("server.static_dir", "dist")
	viper.SetDefault("server.ffprobe", "ffprobe")

	// 日志默认配置
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")
	viper.SetDefault("log.output", "stdout")
	viper.SetDefault("log.dir", "data/logs")
	viper.SetDefault("log.max_size", 100)
	viper.SetDefault("log.max_backups", 3)
	viper.SetDefault("log.max_age", 28)
	viper.SetDefault("log.compress", true)
	viper.SetDefault("log.ring_size", 500)

	// 运行时配置默认值
	viper.SetDefault("settings.series_root", "/media/series")
	viper.SetDefault("settings.series_out", "/media/torrents/series")
	viper.SetDefault("settings.movies_root", "/media/movies")
	viper.SetDefault("settings.movies_out", "/media/torrents/movies")
	viper.SetDefault("settings.tracker_url", "")
	viper.SetDefault("settings.piece_size", 0)
	viper.SetDefault("settings.private", true)
	viper.SetDefault("settings.analyze_audio", false)
	viper.SetDefault("settings.show_size", true)
	viper.SetDefault("settings.workers_max", 2)
	viper.SetDefault("settings.timeout_sec", 30)
	viper.SetDefault("settings.exclude", []string{"*.part", "*.!qB", "Thumbs.db"})
	viper.SetDefault("settings.comment", "")
	viper.SetDefault("settings.language", "fr")
	viper.SetDefault("settings.scan_cron", "")
	viper.SetDefault("settings.watch_library", false)
	viper.SetDefault("settings.notify_url", "")
}

// validateConfig 验证配置的有效性
func validateConfig(config *Config) error {
	if config.Server.Port == "" {
		return fmt.Errorf("服务器端口未设置")
	}
	if config.Server.DataDir == "" {
		return fmt.Errorf("数据目录未设置")
	}
	if config.Log.RingSize <= 0 {
		return fmt.Errorf("log.ring_size 必须大于 0")
	}
	return nil
}

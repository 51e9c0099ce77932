package model

import (
	"time"
)

// SystemConfig 持久化的配置项，值以 JSON 文本保存
type SystemConfig struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	ConfigKey   string    `gorm:"uniqueIndex;not null;size:100;comment:配置键" json:"config_key"`
	ConfigValue string    `gorm:"type:text;comment:配置值" json:"config_value"`
	ConfigType  string    `gorm:"size:20;default:json;comment:配置类型" json:"config_type"`
	Category    string    `gorm:"size:50;comment:配置分类" json:"category"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName 指定表名
func (SystemConfig) TableName() string {
	return "system_configs"
}

// 配置键
const (
	ConfigKeySettings = "settings" // 运行时配置整体保存为一行
)

// 配置分类
const (
	CategorySystem = "system"
)

// 配置类型
const (
	TypeJSON = "json"
)

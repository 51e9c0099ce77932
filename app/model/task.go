package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// TaskStatus 任务状态
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusCancelled TaskStatus = "cancelled"
	TaskStatusError     TaskStatus = "error"
)

// IsTerminal 是否为终止状态
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusCancelled || s == TaskStatusError
}

// Mode 条目的生成模式，决定文件如何分组成种子
type Mode string

const (
	ModeComplete Mode = "complete" // 整部剧一个种子
	ModeSeason   Mode = "season"   // 每季一个种子
	ModeEpisode  Mode = "episode"  // 每集一个种子
	ModeMovie    Mode = "movie"    // 电影
)

// ParseMode 解析生成模式，兼容前端显示名
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "complete", "pack":
		return ModeComplete, nil
	case "season", "saison":
		return ModeSeason, nil
	case "episode", "ep":
		return ModeEpisode, nil
	case "movie", "film":
		return ModeMovie, nil
	}
	return "", fmt.Errorf("未知的生成模式: %s", s)
}

// UnmarshalJSON 只接受已知的模式
func (m *Mode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*m = ""
		return nil
	}
	parsed, err := ParseMode(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// TaskItem 任务中的单个条目，创建后只读
type TaskItem struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Mode    Mode   `json:"mode"`
	LangTag string `json:"lang_tag"`
}

// Task 一次生成请求
type Task struct {
	ID               string      `gorm:"primaryKey;size:36" json:"id"`
	Seq              int64       `gorm:"index" json:"-"`
	Type             LibraryKind `gorm:"size:16;index" json:"type"`
	Name             string      `gorm:"size:255" json:"name"`
	Items            []TaskItem  `gorm:"serializer:json" json:"items"`
	Status           TaskStatus  `gorm:"size:20;index" json:"status"`
	CurrentItemIndex int         `json:"currentItemIndex"`
	ProgressItem     int         `json:"progressItem"`
	ProgressGlobal   int         `json:"progressGlobal"`
	Current          string      `gorm:"size:255" json:"current"`
	Detail           string      `gorm:"size:255" json:"detail"`
	ETA              string      `gorm:"-" json:"eta"`
	Outputs          []string    `gorm:"serializer:json" json:"outputs"`
	ErrorMessage     string      `gorm:"type:text" json:"errorMessage,omitempty"`
	CreatedAt        time.Time   `json:"createdAt"`
	StartedAt        *time.Time  `json:"startedAt,omitempty"`
	FinishedAt       *time.Time  `json:"finishedAt,omitempty"`
	Time             string      `gorm:"-" json:"time"`
}

// TableName 指定表名
func (Task) TableName() string {
	return "tasks"
}

// Clone 深拷贝任务，用于对外提供快照
func (t *Task) Clone() Task {
	c := *t
	c.Items = append([]TaskItem(nil), t.Items...)
	c.Outputs = append([]string(nil), t.Outputs...)
	if t.StartedAt != nil {
		v := *t.StartedAt
		c.StartedAt = &v
	}
	if t.FinishedAt != nil {
		v := *t.FinishedAt
		c.FinishedAt = &v
	}
	c.Time = t.CreatedAt.Format("15:04")
	return c
}

// DisplayName 生成任务显示名称，例如 "Series - 4 item(s)"
func DisplayName(kind LibraryKind, count int) string {
	label := "Movies"
	if kind == KindSeries {
		label = "Series"
	}
	return fmt.Sprintf("%s - %d item(s)", label, count)
}

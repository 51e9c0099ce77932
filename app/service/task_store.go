package service

import (
	"torrent-factory/app/model"

	"gorm.io/gorm"
)

// TaskStore 任务持久化
type TaskStore interface {
	Save(task *model.Task) error
	LoadAll() ([]model.Task, error)
	Delete(ids []string) error
}

// GormTaskStore 基于 gorm 的任务存储
type GormTaskStore struct {
	db *gorm.DB
}

// NewGormTaskStore 创建任务存储
func NewGormTaskStore(db *gorm.DB) *GormTaskStore {
	return &GormTaskStore{db: db}
}

// Save 插入或更新任务
func (s *GormTaskStore) Save(task *model.Task) error {
	return s.db.Save(task).Error
}

// LoadAll 按创建顺序加载全部任务
func (s *GormTaskStore) LoadAll() ([]model.Task, error) {
	var tasks []model.Task
	if err := s.db.Order("seq ASC, created_at ASC").Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// Delete 删除指定任务
func (s *GormTaskStore) Delete(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return s.db.Where("id IN ?", ids).Delete(&model.Task{}).Error
}

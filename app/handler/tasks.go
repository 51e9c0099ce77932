package handler

import (
	"net/http"
	"os"
	"strings"

	"torrent-factory/app/model"
	"torrent-factory/app/service"

	"github.com/gin-gonic/gin"
)

// AddTasksRequest 添加任务请求
type AddTasksRequest struct {
	Tasks []model.TaskItem `json:"tasks"`
	Type  string           `json:"type"`
}

// SkippedItem 未被加入任务的条目
type SkippedItem struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// AddTasksResponse 添加任务结果，added 为已加入任务的条目名称
type AddTasksResponse struct {
	TaskID  string        `json:"task_id,omitempty"`
	Added   []string      `json:"added"`
	Skipped []SkippedItem `json:"skipped"`
}

// CancelTaskRequest 取消任务请求
type CancelTaskRequest struct {
	ID string `json:"id" binding:"required"`
}

// TaskHandler 任务队列
type TaskHandler struct {
	queue *service.TaskQueueService
}

// NewTaskHandler 创建任务处理器
func NewTaskHandler(queue *service.TaskQueueService) *TaskHandler {
	return &TaskHandler{queue: queue}
}

// AddTasks 将所有源路径存在的条目作为一个任务加入队列
func (h *TaskHandler) AddTasks(c *gin.Context) {
	var req AddTasksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "请求参数错误: "+err.Error())
		return
	}
	kind, err := model.ParseLibraryKind(req.Type)
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	resp := AddTasksResponse{Added: []string{}, Skipped: []SkippedItem{}}
	var valid []model.TaskItem
	for _, item := range req.Tasks {
		item.Path = strings.TrimSpace(item.Path)
		switch {
		case item.Path == "":
			resp.Skipped = append(resp.Skipped, SkippedItem{Name: item.Name, Reason: "缺少源路径"})
		default:
			if _, err := os.Stat(item.Path); err != nil {
				resp.Skipped = append(resp.Skipped, SkippedItem{Name: item.Name, Reason: "源路径不存在"})
				continue
			}
			valid = append(valid, item)
		}
	}

	if len(valid) > 0 {
		id, err := h.queue.Enqueue(kind, valid)
		if err != nil {
			failErr(c, err)
			return
		}
		resp.TaskID = id
		for _, item := range valid {
			resp.Added = append(resp.Added, item.Name)
		}
	}
	c.JSON(http.StatusOK, resp)
}

// ListTasks 按创建顺序返回全部任务
func (h *TaskHandler) ListTasks(c *gin.Context) {
	c.JSON(http.StatusOK, h.queue.List())
}

// CancelTask 取消任务
func (h *TaskHandler) CancelTask(c *gin.Context) {
	var req CancelTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "请求参数错误: "+err.Error())
		return
	}
	if err := h.queue.Cancel(req.ID); err != nil {
		failErr(c, err)
		return
	}
	success(c, gin.H{"id": req.ID}, "任务已取消")
}

// ClearTasks 清除已结束的任务
func (h *TaskHandler) ClearTasks(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"cleared": h.queue.Clear()})
}

package service

import (
	"sync"
	"time"

	"torrent-factory/app/logger"
	"torrent-factory/app/model"

	"resty.dev/v3"
)

// NotifyPayload 任务结束时回调的请求体
type NotifyPayload struct {
	ID      string            `json:"id"`
	Type    model.LibraryKind `json:"type"`
	Name    string            `json:"name"`
	Status  model.TaskStatus  `json:"status"`
	Error   string            `json:"error,omitempty"`
	Outputs []string          `json:"outputs"`
}

// NotifyService 任务结束后向 notify_url 发送回调，失败只记录日志
type NotifyService struct {
	settings SettingsProvider
	client   *resty.Client
	log      *logger.Logger
	wg       sync.WaitGroup
}

// NewNotifyService 创建回调服务
func NewNotifyService(settings SettingsProvider, log *logger.Logger) *NotifyService {
	client := resty.New()
	client.SetTimeout(10 * time.Second)
	client.SetHeader("User-Agent", "torrent-factory")

	return &NotifyService{
		settings: settings,
		client:   client,
		log:      log,
	}
}

// Notify 异步发送回调
func (s *NotifyService) Notify(task model.Task) {
	url := s.settings.Get().NotifyURL
	if url == "" {
		return
	}

	payload := NotifyPayload{
		ID:      task.ID,
		Type:    task.Type,
		Name:    task.Name,
		Status:  task.Status,
		Error:   task.ErrorMessage,
		Outputs: append([]string{}, task.Outputs...),
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.send(url, payload)
	}()
}

func (s *NotifyService) send(url string, payload NotifyPayload) {
	res, err := s.client.R().
		SetBody(payload).
		Post(url)
	if err != nil {
		s.log.Warnf("任务回调失败: %s, %v", payload.ID, err)
		return
	}
	if res.IsError() {
		s.log.Warnf("任务回调失败: %s, 状态码: %d, 响应: %s", payload.ID, res.StatusCode(), res.String())
		return
	}
	s.log.Debugf("任务回调成功: %s", payload.ID)
}

// Close 等待未完成的回调并关闭客户端
func (s *NotifyService) Close() {
	s.wg.Wait()
	s.client.Close()
}

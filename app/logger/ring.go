package logger

import (
	"sync"
	"time"

	"go.uber.org/zap/zapcore"
)

// 附加在日志上的页面显示级别字段
const uiLevelKey = "ui_level"

// LevelSuccess 页面上以成功样式显示的日志
const LevelSuccess = "success"

// Entry 页面日志条目
type Entry struct {
	ID    int64  `json:"id"`
	Time  string `json:"time"`
	Msg   string `json:"msg"`
	Level string `json:"level"`
}

// Ring 固定容量的环形日志缓冲区，写满后覆盖最旧的条目
type Ring struct {
	mu     sync.RWMutex
	buf    []Entry
	start  int // 最旧条目的位置
	count  int
	nextID int64
}

// NewRing 创建日志缓冲区
func NewRing(size int) *Ring {
	if size <= 0 {
		size = 500
	}
	return &Ring{buf: make([]Entry, size), nextID: 1}
}

// Append 追加一条日志并返回其 ID
func (r *Ring) Append(t time.Time, msg, level string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID
	r.nextID++
	e := Entry{ID: id, Time: t.Format("15:04:05"), Msg: msg, Level: level}
	if r.count < len(r.buf) {
		r.buf[(r.start+r.count)%len(r.buf)] = e
		r.count++
	} else {
		r.buf[r.start] = e
		r.start = (r.start + 1) % len(r.buf)
	}
	return id
}

// Since 返回 ID 大于 since 的日志，按时间顺序排列
func (r *Ring) Since(since int64) []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Entry, 0, r.count)
	for i := 0; i < r.count; i++ {
		if e := r.buf[(r.start+i)%len(r.buf)]; e.ID > since {
			out = append(out, e)
		}
	}
	return out
}

// Clear 清空缓冲区，ID 继续递增
func (r *Ring) Clear() {
	r.mu.Lock()
	r.start, r.count = 0, 0
	r.mu.Unlock()
}

// ringCore 把日志同时写入 Ring 的 zap core
type ringCore struct {
	zapcore.LevelEnabler
	ring   *Ring
	fields []zapcore.Field
}

func newRingCore(ring *Ring, enab zapcore.LevelEnabler) zapcore.Core {
	return &ringCore{LevelEnabler: enab, ring: ring}
}

func (c *ringCore) With(fields []zapcore.Field) zapcore.Core {
	clone := *c
	clone.fields = append(append([]zapcore.Field(nil), c.fields...), fields...)
	return &clone
}

func (c *ringCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *ringCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	level := uiLevel(ent.Level)
	for _, set := range [][]zapcore.Field{c.fields, fields} {
		for _, f := range set {
			if f.Key == uiLevelKey && f.Type == zapcore.StringType {
				level = f.String
			}
		}
	}
	c.ring.Append(ent.Time, ent.Message, level)
	return nil
}

func (c *ringCore) Sync() error {
	return nil
}

func uiLevel(l zapcore.Level) string {
	switch {
	case l == zapcore.DebugLevel:
		return "debug"
	case l == zapcore.InfoLevel:
		return "info"
	case l == zapcore.WarnLevel:
		return "warning"
	default:
		return "error"
	}
}

package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"torrent-factory/app/config"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogFileName 日志文件名，每天零点轮转一次
const LogFileName = "torrent-factory.log"

// Logger 包装 zap.Logger，同时把日志写入页面可读取的 Ring
type Logger struct {
	*zap.Logger
	sugar  *zap.SugaredLogger
	ring   *Ring
	rotate *cron.Cron
	file   *lumberjack.Logger
}

// Nop 返回不输出任何内容的日志记录器，Ring 仍然可用
func Nop() *Logger {
	ring := NewRing(0)
	l := zap.New(newRingCore(ring, zapcore.InfoLevel))
	return &Logger{Logger: l, sugar: l.Sugar(), ring: ring}
}

// New 使用给定配置创建新的日志记录器实例
func New(cfg config.LogConfig) *Logger {
	level := parseLevel(cfg.Level)
	encCfg := encoderConfig()

	l := &Logger{ring: NewRing(cfg.RingSize)}

	var cores []zapcore.Core
	if cfg.Output == "file" {
		l.file = newFileWriter(cfg)
		cores = append(cores, zapcore.NewCore(newEncoder(cfg.Format, encCfg, false), zapcore.AddSync(l.file), level))
	}
	// 输出到文件时只有 debug 模式才同时打印到控制台
	if cfg.Output != "file" || level == zapcore.DebugLevel {
		cores = append(cores, zapcore.NewCore(newEncoder(cfg.Format, encCfg, true), zapcore.AddSync(os.Stdout), level))
	}

	// 页面日志只保留 info 及以上级别
	cores = append(cores, newRingCore(l.ring, zap.LevelEnablerFunc(func(lv zapcore.Level) bool {
		return lv >= level && lv >= zapcore.InfoLevel
	})))

	l.Logger = zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	l.sugar = l.Logger.Sugar()

	if l.file != nil {
		l.rotate = cron.New()
		if _, err := l.rotate.AddFunc("@daily", l.rotateFile); err != nil {
			l.Warnf("注册日志轮转任务失败: %v", err)
		} else {
			l.rotate.Start()
		}
	}
	return l
}

func parseLevel(s string) zapcore.Level {
	level, err := zapcore.ParseLevel(s)
	if err != nil {
		return zapcore.InfoLevel
	}
	return level
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05"),
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

// newEncoder 控制台文本输出使用彩色级别
func newEncoder(format string, cfg zapcore.EncoderConfig, console bool) zapcore.Encoder {
	if format == "json" {
		return zapcore.NewJSONEncoder(cfg)
	}
	if console {
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	return zapcore.NewConsoleEncoder(cfg)
}

func newFileWriter(cfg config.LogConfig) *lumberjack.Logger {
	dir := cfg.Dir
	if dir == "" {
		dir = filepath.Join("data", "logs")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		panic("创建日志目录失败: " + err.Error())
	}
	return &lumberjack.Logger{
		Filename:   filepath.Join(dir, LogFileName),
		MaxSize:    cfg.MaxSize,    // 兆字节
		MaxBackups: cfg.MaxBackups, // 备份数量
		MaxAge:     cfg.MaxAge,     // 天数
		Compress:   cfg.Compress,
		LocalTime:  true,
	}
}

func (l *Logger) rotateFile() {
	if err := l.file.Rotate(); err != nil {
		l.Errorf("日志轮转失败: %v", err)
	}
}

// Close 停止日志轮转并刷新缓冲区
func (l *Logger) Close() error {
	if l.rotate != nil {
		<-l.rotate.Stop().Done()
	}
	err := l.Logger.Sync()
	if l.file != nil {
		if cerr := l.file.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// Ring 返回页面日志缓冲区
func (l *Logger) Ring() *Ring {
	return l.ring
}

func (l *Logger) Debugf(template string, args ...interface{}) {
	l.sugar.Debugf(template, args...)
}

func (l *Logger) Infof(template string, args ...interface{}) {
	l.sugar.Infof(template, args...)
}

func (l *Logger) Warnf(template string, args ...interface{}) {
	l.sugar.Warnf(template, args...)
}

func (l *Logger) Errorf(template string, args ...interface{}) {
	l.sugar.Errorf(template, args...)
}

// Successf 记录一条在页面上以成功样式显示的日志
func (l *Logger) Successf(template string, args ...interface{}) {
	l.Logger.WithOptions(zap.AddCallerSkip(1)).Info(fmt.Sprintf(template, args...), zap.String(uiLevelKey, LevelSuccess))
}

func (l *Logger) Fatalf(template string, args ...interface{}) {
	l.sugar.Fatalf(template, args...)
}

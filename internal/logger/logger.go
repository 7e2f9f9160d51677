package logger

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/wfunc/token-arena/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	mu     sync.RWMutex
	global *zap.Logger
)

var levelNames = map[string]zapcore.Level{
	"debug": zapcore.DebugLevel,
	"info":  zapcore.InfoLevel,
	"warn":  zapcore.WarnLevel,
	"error": zapcore.ErrorLevel,
	"fatal": zapcore.FatalLevel,
}

// Init 按配置构建全局日志器，重复调用以新配置替换旧日志器
func Init(cfg *config.LogConfig) error {
	level, ok := levelNames[cfg.Level]
	if !ok {
		level = zapcore.InfoLevel
	}

	cores, err := buildCores(cfg, level)
	if err != nil {
		return err
	}

	log := zap.New(
		zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.AddCallerSkip(1),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)

	mu.Lock()
	global = log
	mu.Unlock()
	return nil
}

func buildCores(cfg *config.LogConfig, level zapcore.Level) ([]zapcore.Core, error) {
	var cores []zapcore.Core

	if cfg.Output != "file" {
		cores = append(cores, zapcore.NewCore(buildEncoder(cfg.Format, true), zapcore.AddSync(os.Stdout), level))
	}

	if cfg.Output == "file" || cfg.Output == "both" {
		if err := os.MkdirAll(cfg.File.Path, 0755); err != nil {
			return nil, err
		}
		enc := buildEncoder(cfg.Format, false)

		cores = append(cores,
			zapcore.NewCore(enc, zapcore.AddSync(fileWriter(cfg, cfg.File.Filename)), level),
			// 错误单独落盘，方便排查
			zapcore.NewCore(enc, zapcore.AddSync(fileWriter(cfg, "error.log")), zapcore.ErrorLevel),
		)
	}

	return cores, nil
}

func buildEncoder(format string, color bool) zapcore.Encoder {
	encCfg := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	if format == "json" {
		return zapcore.NewJSONEncoder(encCfg)
	}
	if color {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	return zapcore.NewConsoleEncoder(encCfg)
}

func fileWriter(cfg *config.LogConfig, filename string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   filepath.Join(cfg.File.Path, filename),
		MaxSize:    cfg.File.MaxSize,
		MaxAge:     cfg.File.MaxAge,
		MaxBackups: cfg.File.MaxBackups,
		Compress:   cfg.File.Compress,
	}
}

// GetLogger 获取全局日志器，未初始化时退回nop
func GetLogger() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if global == nil {
		return zap.NewNop()
	}
	return global
}

// Sync 刷新日志缓冲区
func Sync() error {
	mu.RLock()
	defer mu.RUnlock()
	if global == nil {
		return nil
	}
	return global.Sync()
}

// Debug 输出调试日志
func Debug(msg string, fields ...zap.Field) {
	GetLogger().Debug(msg, fields...)
}

// Info 输出信息日志
func Info(msg string, fields ...zap.Field) {
	GetLogger().Info(msg, fields...)
}

// Warn 输出警告日志
func Warn(msg string, fields ...zap.Field) {
	GetLogger().Warn(msg, fields...)
}

// Error 输出错误日志
func Error(msg string, fields ...zap.Field) {
	GetLogger().Error(msg, fields...)
}

// Fatal 输出致命错误日志并退出
func Fatal(msg string, fields ...zap.Field) {
	GetLogger().Fatal(msg, fields...)
}

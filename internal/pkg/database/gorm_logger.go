package database

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

const defaultSlowThreshold = 300 * time.Millisecond

// GormLogger 将 GORM 日志转发到 zerolog
type GormLogger struct {
	slow  time.Duration
	level gormLogger.LogLevel
}

// NewGormLogger 创建 GORM 日志适配器
func NewGormLogger(slow time.Duration) gormLogger.Interface {
	if slow <= 0 {
		slow = defaultSlowThreshold
	}
	return &GormLogger{
		slow:  slow,
		level: gormLogger.Warn,
	}
}

// LogMode 设置日志级别
func (l *GormLogger) LogMode(level gormLogger.LogLevel) gormLogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

// Info 打印信息级别日志
func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.level >= gormLogger.Info {
		log.Info().Str("component", "gorm").Msgf(msg, data...)
	}
}

// Warn 打印警告级别日志
func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.level >= gormLogger.Warn {
		log.Warn().Str("component", "gorm").Msgf(msg, data...)
	}
}

// Error 打印错误级别日志
func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.level >= gormLogger.Error {
		log.Error().Str("component", "gorm").Msgf(msg, data...)
	}
}

// Trace 记录 SQL 耗时与错误
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormLogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()

	var event *zerolog.Event
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.level >= gormLogger.Error:
		event = log.Error().Err(err)
	case elapsed > l.slow && l.level >= gormLogger.Warn:
		event = log.Warn().Dur("slow_threshold", l.slow)
	case l.level >= gormLogger.Info:
		event = log.Debug()
	default:
		return
	}

	event.
		Str("component", "gorm").
		Dur("elapsed", elapsed).
		Int64("rows", rows).
		Str("sql", sql).
		Msg("sql trace")
}

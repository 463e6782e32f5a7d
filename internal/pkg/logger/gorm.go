package logger

import (
	"context"
	"errors"
	log "log/slog"
	"strings"
	"time"

	gormlogger "gorm.io/gorm/logger"
)

// gormSlowThreshold wide_rows 上的单行读写超过该耗时记为慢查询
const gormSlowThreshold = 200 * time.Millisecond

// GormLogger 将 gorm 日志转到 slog。行存储每次条件写都会产生一条 SELECT 与一条 UPDATE，
// 正常语句只在 Debug 级别输出。
type GormLogger struct {
	level gormlogger.LogLevel
	slow  time.Duration
}

func NewGormLogger() *GormLogger {
	return &GormLogger{level: gormlogger.Warn, slow: gormSlowThreshold}
}

func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= gormlogger.Info {
		log.InfoContext(ctx, msg, "data", data)
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= gormlogger.Warn {
		log.WarnContext(ctx, msg, "data", data)
	}
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= gormlogger.Error {
		log.ErrorContext(ctx, msg, "data", data)
	}
}

func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()
	fields := []any{
		log.String("op", sqlVerb(sql)),
		log.String("sql", sql),
		log.Duration("latency", elapsed),
		log.Int64("rows", rows),
	}

	switch {
	case err != nil && !errors.Is(err, gormlogger.ErrRecordNotFound):
		log.ErrorContext(ctx, "MySQL Error", append(fields, log.Any("err", err))...)
	case elapsed > l.slow && l.level >= gormlogger.Warn:
		log.WarnContext(ctx, "MySQL Slow", fields...)
	default:
		log.DebugContext(ctx, "MySQL", fields...)
	}
}

func sqlVerb(sql string) string {
	verb, _, _ := strings.Cut(strings.TrimSpace(sql), " ")
	if verb == "" {
		return "QUERY"
	}
	return strings.ToUpper(verb)
}

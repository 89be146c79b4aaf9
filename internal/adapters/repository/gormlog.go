package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/okian/rollcall/pkg/logger"
)

// gormLogger adapts logger.Logger to GORM's logger interface.
type gormLogger struct {
	log           logger.Logger
	slowThreshold time.Duration
	level         gormlogger.LogLevel
}

func newGormLogger(l logger.Logger, slow time.Duration) *gormLogger {
	return &gormLogger{log: l, slowThreshold: slow, level: gormlogger.Warn}
}

func (l *gormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cp := *l
	cp.level = level
	return &cp
}

func (l *gormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= gormlogger.Info {
		l.log.Info(ctx, fmt.Sprintf(msg, data...))
	}
}

func (l *gormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= gormlogger.Warn {
		l.log.Warn(ctx, fmt.Sprintf(msg, data...))
	}
}

func (l *gormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= gormlogger.Error {
		l.log.Error(ctx, fmt.Sprintf(msg, data...))
	}
}

func (l *gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.level >= gormlogger.Error:
		sql, rows := fc()
		l.log.Error(ctx, "database query failed",
			logger.Error(err),
			logger.String("sql", sql),
			logger.Duration("duration", elapsed),
			logger.Int64("rows", rows),
		)
	case l.slowThreshold > 0 && elapsed > l.slowThreshold && l.level >= gormlogger.Warn:
		sql, rows := fc()
		l.log.Warn(ctx, "slow query",
			logger.String("sql", sql),
			logger.Duration("duration", elapsed),
			logger.Int64("rows", rows),
		)
	case l.level >= gormlogger.Info:
		sql, rows := fc()
		l.log.Debug(ctx, "query",
			logger.String("operation", operation(sql)),
			logger.Duration("duration", elapsed),
			logger.Int64("rows", rows),
		)
	}
}

// operation returns the leading SQL verb in lower case.
func operation(sql string) string {
	sql = strings.TrimSpace(sql)
	if i := strings.IndexByte(sql, ' '); i > 0 {
		sql = sql[:i]
	}
	return strings.ToLower(sql)
}

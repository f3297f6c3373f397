package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/charlesng35/tenantguard/pkg/logger"
)

// DefaultSlowThreshold flags statements that hold a transaction open long enough to matter.
const DefaultSlowThreshold = 200 * time.Millisecond

// sqlLogger routes gorm output into zap. Statements are traced only at debug; failures and slow
// statements are reported at warn so they are visible under the default info level.
type sqlLogger struct {
	log   *zap.Logger
	level gormlogger.LogLevel
	slow  time.Duration
}

// newSQLLogger maps a zap level name onto gorm's coarser levels.
func newSQLLogger(log *zap.Logger, level string, slow time.Duration) *sqlLogger {
	if log == nil {
		log = logger.WithModule("database")
	}
	if slow <= 0 {
		slow = DefaultSlowThreshold
	}
	return &sqlLogger{log: log, level: gormLevel(level), slow: slow}
}

func gormLevel(level string) gormlogger.LogLevel {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return gormlogger.Warn
	}
	switch {
	case zapLevel <= zapcore.DebugLevel:
		return gormlogger.Info
	case zapLevel <= zapcore.WarnLevel:
		return gormlogger.Warn
	case zapLevel == zapcore.ErrorLevel:
		return gormlogger.Error
	default:
		return gormlogger.Silent
	}
}

func (l *sqlLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *sqlLogger) Info(_ context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Info {
		l.log.Info(fmt.Sprintf(msg, args...))
	}
}

func (l *sqlLogger) Warn(_ context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Warn {
		l.log.Warn(fmt.Sprintf(msg, args...))
	}
}

func (l *sqlLogger) Error(_ context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Error {
		l.log.Error(fmt.Sprintf(msg, args...))
	}
}

// Trace reports one statement. Not-found results are expected control flow for lookups and stay quiet.
func (l *sqlLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.level >= gormlogger.Error:
		sql, rows := fc()
		l.log.Warn("sql statement failed",
			zap.String("sql", sql),
			zap.Int64("rows", rows),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
	case elapsed > l.slow && l.level >= gormlogger.Warn:
		sql, rows := fc()
		l.log.Warn("slow sql statement",
			zap.String("sql", sql),
			zap.Int64("rows", rows),
			zap.Duration("elapsed", elapsed),
			zap.Duration("threshold", l.slow),
		)
	case l.level >= gormlogger.Info:
		sql, rows := fc()
		l.log.Debug("sql statement",
			zap.String("sql", sql),
			zap.Int64("rows", rows),
			zap.Duration("elapsed", elapsed),
		)
	}
}

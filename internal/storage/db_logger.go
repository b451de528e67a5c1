package storage

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/gorm/utils"

	"bantrap/internal/logger"
)

// CustomGormLogger routes GORM output through the bot's leveled logger.
type CustomGormLogger struct {
	LogLevel                  gormlogger.LogLevel
	SlowThreshold             time.Duration
	IgnoreRecordNotFoundError bool
}

// NewCustomGormLogger maps a bot log level name onto a GORM log level.
func NewCustomGormLogger(level string) gormlogger.Interface {
	var logLevel gormlogger.LogLevel

	switch logger.ParseLevel(level) {
	case logger.LevelDebug:
		// GORM has no debug level; Info logs every statement
		logLevel = gormlogger.Info
	case logger.LevelInfo, logger.LevelWarning:
		logLevel = gormlogger.Warn
	default:
		logLevel = gormlogger.Error
	}

	return &CustomGormLogger{
		LogLevel:                  logLevel,
		SlowThreshold:             200 * time.Millisecond,
		IgnoreRecordNotFoundError: true,
	}
}

func (l *CustomGormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	newLogger := *l
	newLogger.LogLevel = level
	return &newLogger
}

func (l *CustomGormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= gormlogger.Info {
		logger.Infof(msg, data...)
	}
}

func (l *CustomGormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= gormlogger.Warn {
		logger.Warningf(msg, data...)
	}
}

func (l *CustomGormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= gormlogger.Error {
		logger.Errorf(msg, data...)
	}
}

// Trace logs failed and slow statements, and every statement at Info.
func (l *CustomGormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.LogLevel <= gormlogger.Silent {
		return
	}

	elapsed := float64(time.Since(begin).Nanoseconds()) / 1e6
	sql, rows := fc()
	source := utils.FileWithLineNum()

	switch {
	case err != nil && l.LogLevel >= gormlogger.Error && (!errors.Is(err, gorm.ErrRecordNotFound) || !l.IgnoreRecordNotFoundError):
		logger.Errorf("[%.3fms] [%s] %s; error=%v", elapsed, source, sql, err)
	case l.SlowThreshold != 0 && time.Since(begin) > l.SlowThreshold && l.LogLevel >= gormlogger.Warn:
		logger.Warningf("[%.3fms] [%s] %s; SLOW SQL >= %v, rows=%v", elapsed, source, sql, l.SlowThreshold, rows)
	case l.LogLevel == gormlogger.Info:
		logger.Debugf("[%.3fms] [%s] %s; rows=%v", elapsed, source, sql, rows)
	}
}

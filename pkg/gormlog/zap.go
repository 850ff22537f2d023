package gormlog

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/gorm/utils"

	"github.com/paymint/paymint/pkg/logctx"
)

const DefaultSlowThreshold = 500 * time.Millisecond

// ZapLogger implements gorm.io/gorm/logger.Interface on top of the
// request-scoped zap logger resolved by logctx.FromCtx.
type ZapLogger struct {
	base  *zap.SugaredLogger
	level gormlogger.LogLevel
	slow  time.Duration
}

func New(base *zap.SugaredLogger, level gormlogger.LogLevel) *ZapLogger {
	return &ZapLogger{base: base, level: level, slow: DefaultSlowThreshold}
}

func (z *ZapLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cp := *z
	cp.level = level
	return &cp
}

func (z *ZapLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if z.level >= gormlogger.Info {
		logctx.FromCtx(ctx, z.base).Infow(msg, "args", data)
	}
}

func (z *ZapLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if z.level >= gormlogger.Warn {
		logctx.FromCtx(ctx, z.base).Warnw(msg, "args", data)
	}
}

func (z *ZapLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if z.level >= gormlogger.Error {
		logctx.FromCtx(ctx, z.base).Errorw(msg, "args", data)
	}
}

func (z *ZapLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if z.level == gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	lg := logctx.FromCtx(ctx, z.base)

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && z.level >= gormlogger.Error:
		sql, rows := fc()
		lg.Errorw("gorm_trace", "rows", rows, "elapsed_ms", elapsed.Milliseconds(), "caller", shortCaller(utils.FileWithLineNum()), "err", err, "sql", sql)
	case z.slow > 0 && elapsed > z.slow && z.level >= gormlogger.Warn:
		sql, rows := fc()
		lg.Warnw("gorm_slow", "rows", rows, "elapsed_ms", elapsed.Milliseconds(), "caller", shortCaller(utils.FileWithLineNum()), "sql", sql)
	case z.level >= gormlogger.Info:
		sql, rows := fc()
		lg.Debugw("gorm", "rows", rows, "elapsed_ms", elapsed.Milliseconds(), "sql", sql)
	}
}

// shortCaller trims absolute build paths to the repo-relative part:
// /home/ci/src/paymint/internal/platform/db/postgres.go:38 -> internal/platform/db/postgres.go:38
func shortCaller(s string) string {
	path, line := s, ""
	if idx := strings.LastIndex(s, ":"); idx >= 0 {
		path, line = s[:idx], s[idx:]
	}
	p := strings.ReplaceAll(path, `\`, "/")
	for _, marker := range []string{"/internal/", "/pkg/", "/cmd/"} {
		if i := strings.Index(p, marker); i >= 0 {
			return p[i+1:] + line
		}
	}
	parts := strings.Split(strings.TrimPrefix(p, "/"), "/")
	if n := len(parts); n > 3 {
		parts = parts[n-3:]
	}
	return strings.Join(parts, "/") + line
}

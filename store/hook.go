package store

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/uptrace/bun"
)

// LogHook is a bun.QueryHook that logs every statement at Debug and
// failures at Warn.
type LogHook struct {
	logger *slog.Logger
}

var _ bun.QueryHook = (*LogHook)(nil)

// NewLogHook creates a hook. A nil logger means slog.Default().
func NewLogHook(logger *slog.Logger) *LogHook {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogHook{logger: logger}
}

// BeforeQuery implements bun.QueryHook.
func (h *LogHook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

// AfterQuery implements bun.QueryHook.
func (h *LogHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	elapsed := time.Since(event.StartTime)
	if event.Err != nil && !errors.Is(event.Err, sql.ErrNoRows) {
		h.logger.WarnContext(ctx, "query error", "sql", event.Query, "elapsed", elapsed, "error", event.Err)
		return
	}
	h.logger.DebugContext(ctx, "query", "sql", event.Query, "elapsed", elapsed)
}

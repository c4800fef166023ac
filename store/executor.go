package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/jmoiron/sqlx"
	"github.com/uptrace/bun"
)

// Executor runs rendered SQL with :name placeholders.
type Executor interface {
	// Execute scans every row into dest, a pointer to a slice.
	Execute(ctx context.Context, query string, params map[string]any, dest any) error
	// ExecuteScalar returns the single int64 produced by query.
	ExecuteScalar(ctx context.Context, query string, params map[string]any) (int64, error)
}

// Select runs query and returns its rows as T.
func Select[T any](ctx context.Context, exec Executor, query string, params map[string]any) ([]T, error) {
	rows := make([]T, 0)
	if err := exec.Execute(ctx, query, params, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// BunExecutor executes on a bun.DB. Named parameters are rewritten to bun
// placeholders; collection values expand into IN lists.
type BunExecutor struct {
	db     bun.IDB
	logger *slog.Logger
}

// NewBunExecutor creates an executor over db, which may be a *bun.DB or a
// bun.Tx. A nil logger means slog.Default().
func NewBunExecutor(db bun.IDB, logger *slog.Logger) *BunExecutor {
	if logger == nil {
		logger = slog.Default()
	}
	return &BunExecutor{db: db, logger: logger}
}

// Execute implements Executor.
func (e *BunExecutor) Execute(ctx context.Context, query string, params map[string]any, dest any) error {
	q, args, err := Bind(query, params)
	if err != nil {
		return err
	}
	if err := e.db.NewRaw(q, args...).Scan(ctx, dest); err != nil && !errors.Is(err, sql.ErrNoRows) {
		e.logger.Error("query failed", "sql", query, "error", err)
		return fmt.Errorf("execute: %w", err)
	}
	return nil
}

// ExecuteScalar implements Executor.
func (e *BunExecutor) ExecuteScalar(ctx context.Context, query string, params map[string]any) (int64, error) {
	q, args, err := Bind(query, params)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := e.db.NewRaw(q, args...).Scan(ctx, &n); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNoRows
		}
		e.logger.Error("scalar query failed", "sql", query, "error", err)
		return 0, fmt.Errorf("execute scalar: %w", err)
	}
	return n, nil
}

// Bind rewrites :name placeholders to positional ? placeholders. Slice
// values are wrapped with bun.In so "IN (:ids)" expands to the list.
func Bind(query string, params map[string]any) (string, []any, error) {
	if params == nil {
		params = map[string]any{}
	}
	q, args, err := sqlx.Named(query, params)
	if err != nil {
		return "", nil, fmt.Errorf("bind params: %w", err)
	}
	for i, a := range args {
		if isList(a) {
			args[i] = bun.In(a)
		}
	}
	return q, args, nil
}

func isList(v any) bool {
	if v == nil {
		return false
	}
	if _, ok := v.([]byte); ok {
		return false
	}
	return reflect.TypeOf(v).Kind() == reflect.Slice
}

package logger

import (
	"context"
	"log/slog"
	"time"
)

// ContextKey is the type for context keys used in logging
type ContextKey string

const (
	OperationKey ContextKey = "operation"
	UserIDKey    ContextKey = "user_id"

	// Load test context, prefixed like other semantic attributes.
	ScenarioKey ContextKey = "loadtest.scenario"
	StageKey    ContextKey = "loadtest.stage"
)

// GlobalContext is the global ContextLogger instance
var GlobalContext *ContextLogger

// ContextLogger wraps a slog.Logger to add context-aware logging
type ContextLogger struct {
	logger *slog.Logger
}

func NewContextLogger(logger *slog.Logger) *ContextLogger {
	return &ContextLogger{logger: logger}
}

// WithContext returns a logger carrying the context values that are set.
func (cl *ContextLogger) WithContext(ctx context.Context) *slog.Logger {
	args := make([]any, 0, 8)

	if operation, ok := ctx.Value(OperationKey).(string); ok {
		args = append(args, string(OperationKey), operation)
	}
	if userID, ok := ctx.Value(UserIDKey).(string); ok {
		args = append(args, string(UserIDKey), userID)
	}
	if scenario, ok := ctx.Value(ScenarioKey).(string); ok {
		args = append(args, string(ScenarioKey), scenario)
	}
	if stage, ok := ctx.Value(StageKey).(int); ok {
		args = append(args, string(StageKey), stage)
	}

	return cl.logger.With(args...)
}

// LogDuration logs an operation completion with duration in milliseconds
func (cl *ContextLogger) LogDuration(ctx context.Context, operation string, d time.Duration) {
	cl.WithContext(ctx).Info("operation completed",
		"operation", operation,
		"duration_ms", d.Milliseconds(),
	)
}

// LogError logs an operation failure with error details
func (cl *ContextLogger) LogError(ctx context.Context, operation string, err error) {
	cl.WithContext(ctx).Error("operation failed",
		"operation", operation,
		"error", err,
	)
}

func WithOperation(ctx context.Context, operation string) context.Context {
	return context.WithValue(ctx, OperationKey, operation)
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// WithScenario tags logs with the running scenario name.
func WithScenario(ctx context.Context, scenario string) context.Context {
	return context.WithValue(ctx, ScenarioKey, scenario)
}

// WithStage tags logs with the zero-based index of the active stage.
func WithStage(ctx context.Context, stage int) context.Context {
	return context.WithValue(ctx, StageKey, stage)
}

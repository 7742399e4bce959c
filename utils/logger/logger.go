package logger

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/trace"
)

// instrumentationName scopes records exported through the OTel bridge.
const instrumentationName = "intellab-testing/loadtest"

// Options configures Init.
type Options struct {
	Level      string
	EnableOTel bool
	// Attrs are attached to every record, GlobalContext included.
	Attrs []slog.Attr
}

// Init builds the process logger: JSON records with trace context on w and,
// when enabled, a copy of each record exported through OpenTelemetry. Run
// output goes to stdout, so callers usually pass stderr.
func Init(w io.Writer, opts Options) *slog.Logger {
	lvl := parseLevel(opts.Level)

	var handler slog.Handler = NewTraceContextHandler(
		slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
	if opts.EnableOTel {
		handler = fanout{handler, newOTelBridge(lvl)}
	}
	if len(opts.Attrs) > 0 {
		handler = handler.WithAttrs(opts.Attrs)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	GlobalContext = NewContextLogger(logger)

	return logger
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// fanout hands each record to every handler that accepts its level.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			_ = h.Handle(ctx, r.Clone())
		}
	}
	return nil
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}

// otelBridge converts slog records into OTel log records. Group names are
// flattened into dotted keys.
type otelBridge struct {
	logger log.Logger
	level  slog.Level
	prefix string
	attrs  []log.KeyValue
}

func newOTelBridge(level slog.Level) *otelBridge {
	return &otelBridge{
		logger: global.GetLoggerProvider().Logger(instrumentationName),
		level:  level,
	}
}

func (b *otelBridge) Enabled(_ context.Context, level slog.Level) bool {
	return level >= b.level
}

func (b *otelBridge) Handle(ctx context.Context, r slog.Record) error {
	var rec log.Record
	rec.SetTimestamp(r.Time)
	rec.SetBody(log.StringValue(r.Message))
	rec.SetSeverity(severity(r.Level))
	rec.SetSeverityText(r.Level.String())

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		rec.AddAttributes(
			log.String("trace_id", sc.TraceID().String()),
			log.String("span_id", sc.SpanID().String()),
		)
	}
	rec.AddAttributes(b.attrs...)

	var kvs []log.KeyValue
	r.Attrs(func(a slog.Attr) bool {
		kvs = appendKeyValues(kvs, b.prefix, a)
		return true
	})
	rec.AddAttributes(kvs...)

	b.logger.Emit(ctx, rec)
	return nil
}

func (b *otelBridge) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *b
	next.attrs = append([]log.KeyValue(nil), b.attrs...)
	for _, a := range attrs {
		next.attrs = appendKeyValues(next.attrs, b.prefix, a)
	}
	return &next
}

func (b *otelBridge) WithGroup(name string) slog.Handler {
	if name == "" {
		return b
	}
	next := *b
	next.prefix = b.prefix + name + "."
	return &next
}

func severity(level slog.Level) log.Severity {
	switch {
	case level >= slog.LevelError:
		return log.SeverityError
	case level >= slog.LevelWarn:
		return log.SeverityWarn
	case level >= slog.LevelInfo:
		return log.SeverityInfo
	default:
		return log.SeverityDebug
	}
}

// appendKeyValues converts a, expanding groups, and appends the result.
func appendKeyValues(kvs []log.KeyValue, prefix string, a slog.Attr) []log.KeyValue {
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		inner := prefix
		if a.Key != "" {
			inner = prefix + a.Key + "."
		}
		for _, ga := range v.Group() {
			kvs = appendKeyValues(kvs, inner, ga)
		}
		return kvs
	}
	if a.Key == "" {
		return kvs
	}

	key := prefix + a.Key
	switch v.Kind() {
	case slog.KindString:
		return append(kvs, log.String(key, v.String()))
	case slog.KindInt64:
		return append(kvs, log.Int64(key, v.Int64()))
	case slog.KindUint64:
		return append(kvs, log.Int64(key, int64(v.Uint64())))
	case slog.KindFloat64:
		return append(kvs, log.Float64(key, v.Float64()))
	case slog.KindBool:
		return append(kvs, log.Bool(key, v.Bool()))
	case slog.KindDuration:
		return append(kvs, log.Int64(key+"_ms", v.Duration().Milliseconds()))
	default:
		return append(kvs, log.String(key, v.String()))
	}
}

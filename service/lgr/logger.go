package lgr

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mdobak/go-xerrors"
	"github.com/natefinch/lumberjack"
	"go.opentelemetry.io/otel/trace"
)

// Logger is the process-wide structured logger. It writes JSON to
// stdout and to a size-capped rolling file.
var Logger *slog.Logger

func init() {
	sink := &lumberjack.Logger{
		Filename:   "sitewatch.log",
		MaxSize:    10, // MB
		MaxBackups: 5,
		MaxAge:     7,    // days
		Compress:   true, // compress old logs
	}

	level := slog.LevelInfo
	if strings.EqualFold(os.Getenv("LOG_LEVEL"), "debug") {
		level = slog.LevelDebug
	}

	Logger = slog.New(slog.NewJSONHandler(io.MultiWriter(os.Stdout, sink), &slog.HandlerOptions{
		Level: level,
	}))
}

// WithTrace annotates the logger with the trace/span ids carried by
// ctx, if any. Useful when the caller is running under an OTEL span.
func WithTrace(ctx context.Context) *slog.Logger {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return Logger
	}
	return Logger.With(
		slog.String("traceId", sc.TraceID().String()),
		slog.String("spanId", sc.SpanID().String()),
	)
}

// ErrAttr wraps err with a stack trace for structured logging.
func ErrAttr(err error) slog.Attr {
	return slog.Any("error", xerrors.New(err.Error()))
}

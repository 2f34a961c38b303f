// Package observability configures process-wide logging.
//
// Logs always go through log/slog. Without an exporter the default logger
// writes text or JSON to stderr. With an exporter, records are bridged into an
// OpenTelemetry LoggerProvider and shipped by the chosen exporter; the OTLP
// exporters take their endpoint and headers from the standard
// OTEL_EXPORTER_OTLP_* environment variables.
package observability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/contrib/processors/minsev"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// Exporter names an OpenTelemetry log exporter.
type Exporter string

const (
	ExporterNone     Exporter = ""
	ExporterStdout   Exporter = "stdout"
	ExporterOTLPHTTP Exporter = "otlp-http"
	ExporterOTLPGRPC Exporter = "otlp-grpc"
)

// instrumentationName identifies log records emitted through the bridge.
const instrumentationName = "github.com/florianilch/favorites-relay"

// ShutdownFunc flushes and releases logging resources.
type ShutdownFunc func(context.Context) error

// Instrument installs the default slog logger for the given level, format and
// exporter. The returned ShutdownFunc must be called before the process exits.
func Instrument(ctx context.Context, level slog.Level, format string, exporter Exporter) (ShutdownFunc, error) {
	return instrument(ctx, os.Stderr, level, format, exporter)
}

func instrument(ctx context.Context, w io.Writer, level slog.Level, format string, exporter Exporter) (ShutdownFunc, error) {
	if exporter == ExporterNone {
		handler, err := newHandler(w, level, format)
		if err != nil {
			return nil, err
		}
		slog.SetDefault(slog.New(handler))
		return func(context.Context) error { return nil }, nil
	}

	exp, err := newExporter(ctx, w, exporter)
	if err != nil {
		return nil, fmt.Errorf("creating %s exporter: %w", exporter, err)
	}

	var processor sdklog.Processor
	if exporter == ExporterStdout {
		processor = sdklog.NewSimpleProcessor(exp)
	} else {
		processor = sdklog.NewBatchProcessor(exp)
	}

	provider := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(minsev.NewLogProcessor(processor, severity(level))),
	)
	global.SetLoggerProvider(provider)

	slog.SetDefault(otelslog.NewLogger(instrumentationName, otelslog.WithLoggerProvider(provider)))

	// Exporter failures cannot go through the exporter itself.
	fallback, err := newHandler(w, slog.LevelWarn, format)
	if err != nil {
		return nil, errors.Join(err, provider.Shutdown(ctx))
	}
	fallbackLogger := slog.New(fallback)
	otel.SetErrorHandler(otel.ErrorHandlerFunc(func(err error) {
		fallbackLogger.Warn("opentelemetry error", "error", err)
	}))

	return provider.Shutdown, nil
}

func newHandler(w io.Writer, level slog.Level, format string) (slog.Handler, error) {
	opts := &slog.HandlerOptions{Level: level}
	switch format {
	case "", "text":
		return slog.NewTextHandler(w, opts), nil
	case "json":
		return slog.NewJSONHandler(w, opts), nil
	default:
		return nil, fmt.Errorf("unsupported log format: %s", format)
	}
}

func newExporter(ctx context.Context, w io.Writer, exporter Exporter) (sdklog.Exporter, error) {
	switch exporter {
	case ExporterStdout:
		return stdoutlog.New(stdoutlog.WithWriter(w))
	case ExporterOTLPHTTP:
		return otlploghttp.New(ctx)
	case ExporterOTLPGRPC:
		return otlploggrpc.New(ctx)
	default:
		return nil, fmt.Errorf("unsupported exporter: %s", exporter)
	}
}

// severity maps a slog level onto the closest OpenTelemetry minimum severity.
func severity(level slog.Level) minsev.Severity {
	switch {
	case level < slog.LevelInfo:
		return minsev.SeverityDebug
	case level < slog.LevelWarn:
		return minsev.SeverityInfo
	case level < slog.LevelError:
		return minsev.SeverityWarn
	default:
		return minsev.SeverityError
	}
}

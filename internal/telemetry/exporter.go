// Package telemetry implements the engine's two span exporters (spec
// §C.7): a console exporter that always succeeds (used as the default
// so a missing collector never breaks the host application), and an
// OTLP/HTTP exporter wired to the real OpenTelemetry SDK. Grounded on
// the teacher's (FerretDB) cmd/ferretdb telemetry wiring, which
// likewise builds a TracerProvider over otlptracehttp behind a kong
// config flag and a zap-backed fallback.
package telemetry

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/cesarcarlos/odbcengine/internal/odbcerr"
)

// ServiceName is the resource service.name attribute every exporter
// reports (spec §C.7).
const ServiceName = "odbc_fast"

// DefaultOTLPTimeout is the HTTP client timeout used when the caller
// doesn't override it (spec §C.7: "30s default HTTP timeout").
const DefaultOTLPTimeout = 30 * time.Second

// Exporter records one completed span's worth of telemetry.
type Exporter interface {
	RecordSpan(ctx context.Context, name string, attrs map[string]string, spanErr error)
	Shutdown(ctx context.Context) error
}

// ConsoleExporter logs each span via zap and never fails: a telemetry
// backend being unreachable must never be load-bearing for query
// execution.
type ConsoleExporter struct {
	l *zap.Logger
}

// NewConsole builds a ConsoleExporter.
func NewConsole(l *zap.Logger) *ConsoleExporter {
	return &ConsoleExporter{l: l}
}

// RecordSpan logs name/attrs/spanErr alongside a generated span ID. The
// console exporter has no real OTel SDK behind it (unlike OTLPExporter,
// whose spans carry trace/span IDs from the SDK itself), so a uuid
// stands in as the correlation ID console-only deployments can grep
// logs by.
func (c *ConsoleExporter) RecordSpan(ctx context.Context, name string, attrs map[string]string, spanErr error) {
	fields := make([]zap.Field, 0, len(attrs)+3)
	fields = append(fields, zap.String("span", name), zap.String("span.id", uuid.NewString()))
	for k, v := range attrs {
		fields = append(fields, zap.String(k, v))
	}
	if spanErr != nil {
		fields = append(fields, zap.Error(spanErr))
	}
	c.l.Debug("span recorded", fields...)
}

func (c *ConsoleExporter) Shutdown(ctx context.Context) error { return nil }

// OTLPExporter sends spans to an OTLP/HTTP collector through the real
// OpenTelemetry SDK's batching TracerProvider.
type OTLPExporter struct {
	tp     *sdktrace.TracerProvider
	tracer trace.Tracer
}

// NewOTLP builds an OTLPExporter targeting endpoint. The endpoint is
// validated as UTF-8 up front (spec §C.7: "invalid UTF-8 payload
// rejection") since an OTLP HTTP client given a malformed URL would
// otherwise surface a confusing low-level transport error later.
func NewOTLP(ctx context.Context, endpoint string) (*OTLPExporter, error) {
	if !utf8.ValidString(endpoint) {
		return nil, odbcerr.NewValidation("otlp endpoint is not valid UTF-8")
	}

	client := otlptracehttp.NewClient(
		otlptracehttp.WithEndpointURL(endpoint),
		otlptracehttp.WithTimeout(DefaultOTLPTimeout),
	)
	exp, err := otlptrace.New(ctx, client)
	if err != nil {
		return nil, odbcerr.New(odbcerr.KindInternalError, "create otlp exporter: "+err.Error())
	}

	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(attribute.String("service.name", ServiceName)))
	if err != nil {
		return nil, odbcerr.New(odbcerr.KindInternalError, "build otlp resource: "+err.Error())
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp), sdktrace.WithResource(res))
	return &OTLPExporter{tp: tp, tracer: tp.Tracer(ServiceName)}, nil
}

// RecordSpan starts and immediately ends a zero-duration-free span
// carrying attrs (each validated as UTF-8; invalid pairs are dropped
// rather than failing the whole span) and spanErr, if any.
func (o *OTLPExporter) RecordSpan(ctx context.Context, name string, attrs map[string]string, spanErr error) {
	if !utf8.ValidString(name) {
		return
	}
	kvs := make([]attribute.KeyValue, 0, len(attrs))
	for k, v := range attrs {
		if !utf8.ValidString(k) || !utf8.ValidString(v) {
			continue
		}
		kvs = append(kvs, attribute.String(k, v))
	}

	_, span := o.tracer.Start(ctx, name, trace.WithAttributes(kvs...))
	if spanErr != nil {
		span.RecordError(spanErr)
	}
	span.End()
}

// Shutdown flushes pending spans and stops the exporter.
func (o *OTLPExporter) Shutdown(ctx context.Context) error {
	return o.tp.Shutdown(ctx)
}

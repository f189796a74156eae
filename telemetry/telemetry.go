package telemetry

import (
	"chatrelay/common"
	"context"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const (
	traceFilePrefix   = "traces-"
	traceFileSuffix   = ".json"
	maxTraceFileCount = 7
)

// GetOtelEnabled is true unless CHATRELAY_OTEL_ENABLED is "false" or "0".
func GetOtelEnabled() bool {
	val := os.Getenv("CHATRELAY_OTEL_ENABLED")
	if val == "" {
		return true
	}
	lower := strings.ToLower(val)
	return lower != "false" && lower != "0"
}

func GetOtelEndpoint() string {
	return os.Getenv("CHATRELAY_OTEL_ENDPOINT")
}

// InitTracer installs the global tracer provider. Spans go to the OTLP gRPC
// endpoint when one is configured, otherwise to daily trace files in the
// state home. The returned func flushes and shuts the provider down.
func InitTracer(serviceName string) (func(context.Context) error, error) {
	if !GetOtelEnabled() {
		return func(ctx context.Context) error { return nil }, nil
	}

	ctx := context.Background()

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
		),
	)
	if err != nil {
		return nil, err
	}

	exporter, err := newExporter(ctx)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}

func newExporter(ctx context.Context) (sdktrace.SpanExporter, error) {
	if endpoint := GetOtelEndpoint(); endpoint != "" {
		return otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(endpoint),
			otlptracegrpc.WithInsecure(),
		)
	}

	stateHome, err := common.GetChatrelayStateHome()
	if err != nil {
		return nil, err
	}

	rotatingWriter, err := common.NewRotatingFileWriter(stateHome, traceFilePrefix, traceFileSuffix, maxTraceFileCount)
	if err != nil {
		return nil, err
	}

	exporter, err := stdouttrace.New(
		stdouttrace.WithPrettyPrint(),
		stdouttrace.WithWriter(rotatingWriter),
	)
	if err != nil {
		rotatingWriter.Close()
		return nil, err
	}
	return exporter, nil
}

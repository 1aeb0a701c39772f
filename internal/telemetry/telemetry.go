package telemetry

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

var tracerName = "github.com/unkn0wn-root/stagtheme/internal/telemetry"

// Instrumenter traces the two operations worth watching in production:
// theme loads (filesystem + inheritance walks) and style resolutions.
type Instrumenter interface {
	StartLoad(ctx context.Context, reference string) (context.Context, Span)
	StartResolve(ctx context.Context, path string) (context.Context, Span)
	Shutdown(ctx context.Context) error
}

type Span interface {
	SetLayer(layer string)
	SetCacheHit(hit bool)
	SetDepth(depth int)
	End(err error)
}

type providerOptions struct {
	exporter       sdktrace.SpanExporter
	spanProcessors []sdktrace.SpanProcessor
}

type Option func(*providerOptions)

func WithSpanProcessor(proc sdktrace.SpanProcessor) Option {
	return func(opts *providerOptions) {
		if proc != nil {
			opts.spanProcessors = append(opts.spanProcessors, proc)
		}
	}
}

func WithExporter(exp sdktrace.SpanExporter) Option {
	return func(opts *providerOptions) {
		if exp != nil {
			opts.exporter = exp
		}
	}
}

type manager struct {
	tracer   trace.Tracer
	provider *sdktrace.TracerProvider
	shutdown sync.Once
}

func New(cfg Config, opts ...Option) (Instrumenter, error) {
	builder := providerOptions{}
	for _, opt := range opts {
		opt(&builder)
	}

	if !cfg.Enabled() && builder.exporter == nil && len(builder.spanProcessors) == 0 {
		return Noop(), nil
	}

	res, err := resource.New(
		context.Background(),
		resource.WithSchemaURL(semconv.SchemaURL),
		resource.WithAttributes(buildResourceAttributes(cfg)...),
	)
	if err != nil {
		return nil, err
	}

	exporter := builder.exporter
	if exporter == nil && cfg.Enabled() {
		exporter, err = newExporter(cfg)
		if err != nil {
			return nil, err
		}
	}

	var tpOpts []sdktrace.TracerProviderOption
	tpOpts = append(tpOpts, sdktrace.WithResource(res))
	if exporter != nil {
		tpOpts = append(tpOpts, sdktrace.WithBatcher(exporter))
	}
	for _, proc := range builder.spanProcessors {
		tpOpts = append(tpOpts, sdktrace.WithSpanProcessor(proc))
	}

	tp := sdktrace.NewTracerProvider(tpOpts...)
	return &manager{tracer: tp.Tracer(tracerName), provider: tp}, nil
}

func (m *manager) StartLoad(ctx context.Context, reference string) (context.Context, Span) {
	ctx, span := m.tracer.Start(
		ctx,
		"theme.load",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("stagtheme.reference", reference)),
	)
	return ctx, &opSpan{span: span}
}

func (m *manager) StartResolve(ctx context.Context, path string) (context.Context, Span) {
	ctx, span := m.tracer.Start(
		ctx,
		"theme.resolve",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("stagtheme.path", path)),
	)
	return ctx, &opSpan{span: span}
}

func (m *manager) Shutdown(ctx context.Context) error {
	if m == nil || m.provider == nil {
		return nil
	}
	var shutdownErr error
	m.shutdown.Do(func() {
		shutdownErr = m.provider.Shutdown(ctx)
	})
	return shutdownErr
}

type opSpan struct {
	span trace.Span
}

func (os *opSpan) SetLayer(layer string) {
	if os == nil || os.span == nil || layer == "" {
		return
	}
	os.span.SetAttributes(attribute.String("stagtheme.layer", layer))
}

func (os *opSpan) SetDepth(depth int) {
	if os.span == nil {
		return
	}
	os.span.SetAttributes(attribute.Int("stagtheme.depth", depth))
}

func (os *opSpan) SetCacheHit(hit bool) {
	if os == nil || os.span == nil {
		return
	}
	os.span.SetAttributes(attribute.Bool("stagtheme.cache_hit", hit))
}

func (os *opSpan) End(err error) {
	if os == nil || os.span == nil {
		return
	}
	if err != nil {
		os.span.RecordError(err)
		os.span.SetStatus(codes.Error, err.Error())
	} else {
		os.span.SetStatus(codes.Ok, "OK")
	}
	os.span.End()
}

func Noop() Instrumenter {
	return noopInstrumenter{}
}

type noopInstrumenter struct{}

type noopSpan struct{}

func (noopInstrumenter) StartLoad(ctx context.Context, _ string) (context.Context, Span) {
	return ctx, noopSpan{}
}

func (noopInstrumenter) StartResolve(ctx context.Context, _ string) (context.Context, Span) {
	return ctx, noopSpan{}
}

func (noopInstrumenter) Shutdown(context.Context) error { return nil }

func (noopSpan) SetLayer(string)  {}
func (noopSpan) SetCacheHit(bool) {}
func (noopSpan) SetDepth(int)     {}
func (noopSpan) End(error)        {}

func newExporter(cfg Config) (sdktrace.SpanExporter, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, errors.New("telemetry endpoint is required")
	}

	timeout := cfg.DialTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	clientOpts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		clientOpts = append(clientOpts, otlptracegrpc.WithInsecure())
	}
	if len(cfg.Headers) > 0 {
		clientOpts = append(clientOpts, otlptracegrpc.WithHeaders(cfg.Headers))
	}

	client := otlptracegrpc.NewClient(clientOpts...)
	return otlptrace.New(ctx, client)
}

func buildResourceAttributes(cfg Config) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		semconv.ServiceName(cfg.ServiceName),
	}
	if strings.TrimSpace(cfg.Version) != "" {
		attrs = append(attrs, semconv.ServiceVersion(cfg.Version))
	}
	return attrs
}

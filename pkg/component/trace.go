package component

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const defaultTracerName = "gallia"

// TraceOption configures Traced.
type TraceOption func(*traceConfig)

type traceConfig struct {
	provider trace.TracerProvider
	name     string
}

// WithTracerProvider sets the provider spans are created from. The global
// provider is used by default.
func WithTracerProvider(tp trace.TracerProvider) TraceOption {
	return func(c *traceConfig) {
		c.provider = tp
	}
}

// WithTracerName sets the tracer name (default: "gallia").
func WithTracerName(name string) TraceOption {
	return func(c *traceConfig) {
		c.name = name
	}
}

// Traced wraps every load of l in a "gallia.component.load" span.
func Traced(l Loader, opts ...TraceOption) Loader {
	cfg := traceConfig{name: defaultTracerName}
	for _, opt := range opts {
		opt(&cfg)
	}
	var tracer trace.Tracer
	if cfg.provider != nil {
		tracer = cfg.provider.Tracer(cfg.name)
	} else {
		tracer = otel.Tracer(cfg.name)
	}

	return LoaderFunc(func(ctx context.Context, path string) (Factory, error) {
		ctx, span := tracer.Start(ctx, "gallia.component.load",
			trace.WithSpanKind(trace.SpanKindInternal),
			trace.WithAttributes(attribute.String("gallia.component.path", path)),
		)
		defer span.End()

		f, err := l.Load(ctx, path)
		switch {
		case errors.Is(err, ErrNotFound):
			span.SetAttributes(attribute.Bool("gallia.component.found", false))
			span.SetStatus(codes.Error, err.Error())
		case err != nil:
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		default:
			span.SetAttributes(attribute.Bool("gallia.component.found", true))
			span.SetStatus(codes.Ok, "")
		}
		return f, err
	})
}

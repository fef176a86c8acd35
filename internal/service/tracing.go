package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/peoplehub/hr-identity/internal/domain"
)

var tracer trace.Tracer = otel.Tracer("github.com/peoplehub/hr-identity/internal/service")

const defaultStorageTimeout = 5 * time.Second

func startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name)
}

// endSpan records err on span unless it is an expected credential outcome.
func endSpan(span trace.Span, err error) {
	if err != nil && isInfraError(err) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// storageError classifies a repository failure as transient.
func storageError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStorageUnavailable, err)
}

func isInfraError(err error) bool {
	return errors.Is(err, domain.ErrStorageUnavailable) || errors.Is(err, domain.ErrRandomnessUnavailable)
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = defaultStorageTimeout
	}
	return context.WithTimeout(ctx, d)
}

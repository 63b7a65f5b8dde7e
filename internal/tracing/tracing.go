// Package tracing supplies the correlation identifiers (trace id, operation
// name, request id) that flow from the HTTP edge through every suspending
// call and into the structured logs, so a single chat turn or material
// processing run can be followed across goroutines.
package tracing

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Shaswata28/studymate/internal/contexts"
)

// Config controls how trace identifiers are read from and written to HTTP
// headers.
type Config struct {
	// TraceHeader is the header name carrying the trace id. Default "X-Trace-Id".
	TraceHeader string `conf:"trace_header" yaml:"trace_header" json:"trace_header"`

	// ExtraTraceHeaders are checked, in order, if TraceHeader is absent.
	ExtraTraceHeaders []string `conf:"extra_trace_headers" yaml:"extra_trace_headers" json:"extra_trace_headers"`
}

// GenerateTraceID produces a new trace id, format "sm-{uuid}".
func GenerateTraceID() string {
	return fmt.Sprintf("sm-%s", uuid.New().String())
}

// WithTraceID stores the trace id in the context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return contexts.WithTraceID(ctx, traceID)
}

// GetTraceID retrieves the trace id from the context.
func GetTraceID(ctx context.Context) (string, bool) {
	return contexts.GetTraceID(ctx)
}

// WithRequestID stores the request id in the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return contexts.WithRequestID(ctx, requestID)
}

// GetRequestID retrieves the request id from the context.
func GetRequestID(ctx context.Context) (string, bool) {
	return contexts.GetRequestID(ctx)
}

// WithOperationName stores the operation name in the context.
func WithOperationName(ctx context.Context, name string) context.Context {
	return contexts.WithOperationName(ctx, name)
}

// GetOperationName retrieves the operation name from the context.
func GetOperationName(ctx context.Context) (string, bool) {
	return contexts.GetOperationName(ctx)
}

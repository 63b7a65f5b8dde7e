package log

import (
	"context"

	"github.com/Shaswata28/studymate/internal/contexts"
)

// traceFields appends trace id, request id and operation name to every log
// entry when present on the context. Reads contexts directly (not the
// tracing package) to avoid an import cycle — tracing itself logs.
func traceFields(ctx context.Context, _ string, fields ...Field) []Field {
	if ctx == nil {
		return fields
	}

	if traceID, ok := contexts.GetTraceID(ctx); ok {
		fields = append(fields, String("trace_id", traceID))
	}

	if requestID, ok := contexts.GetRequestID(ctx); ok {
		fields = append(fields, String("request_id", requestID))
	}

	if operationName, ok := contexts.GetOperationName(ctx); ok {
		fields = append(fields, String("operation_name", operationName))
	}

	return fields
}

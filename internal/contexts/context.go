package contexts

import "context"

// ContextKey is the type of keys this package stores in context.Context.
type ContextKey string

const containerContextKey ContextKey = "context_container"

// WithTraceID stores the trace id in the context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	container := getContainer(ctx)
	container.TraceID = &traceID

	return withContainer(ctx, container)
}

// GetTraceID retrieves the trace id from the context.
func GetTraceID(ctx context.Context) (string, bool) {
	container := getContainer(ctx)
	if container.TraceID != nil {
		return *container.TraceID, true
	}

	return "", false
}

// WithRequestID stores the request id in the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	container := getContainer(ctx)
	container.RequestID = &requestID

	return withContainer(ctx, container)
}

// GetRequestID retrieves the request id from the context.
func GetRequestID(ctx context.Context) (string, bool) {
	container := getContainer(ctx)
	if container.RequestID != nil {
		return *container.RequestID, true
	}

	return "", false
}

// WithOperationName stores the operation name (e.g. "Chat", "ProcessMaterial") in the context.
func WithOperationName(ctx context.Context, name string) context.Context {
	container := getContainer(ctx)
	container.OperationName = &name

	return withContainer(ctx, container)
}

// GetOperationName retrieves the operation name from the context.
func GetOperationName(ctx context.Context) (string, bool) {
	container := getContainer(ctx)
	if container.OperationName != nil {
		return *container.OperationName, true
	}

	return "", false
}

// WithCourseID stores the course id a request is scoped to. The core treats
// this as an opaque, already-authorized handle; it never cross-references it.
func WithCourseID(ctx context.Context, courseID string) context.Context {
	container := getContainer(ctx)
	container.CourseID = &courseID

	return withContainer(ctx, container)
}

// GetCourseID retrieves the course id from the context.
func GetCourseID(ctx context.Context) (string, bool) {
	container := getContainer(ctx)
	if container.CourseID != nil {
		return *container.CourseID, true
	}

	return "", false
}

// AppendError records a recovered, non-fatal error for later inspection
// (access logging, degraded-response diagnostics). It never fails the
// request by itself.
func AppendError(ctx context.Context, err error) context.Context {
	container := getContainer(ctx)

	container.mu.Lock()
	container.Errors = append(container.Errors, err)
	container.mu.Unlock()

	return withContainer(ctx, container)
}

// Errors returns the errors recorded so far on this context.
func Errors(ctx context.Context) []error {
	container := getContainer(ctx)

	container.mu.RLock()
	defer container.mu.RUnlock()

	return append([]error(nil), container.Errors...)
}

// Package contexts holds the single mutable per-request container threaded
// through context.Context: trace/operation metadata plus the course scope a
// request is bound to. It deliberately knows nothing about HTTP or ent; it is
// the lowest layer other packages (authz, tracing, log) build on.
package contexts

import (
	"context"
	"sync"
)

// contextContainer carries every value the core attaches to a request
// context. It is created lazily and stored once per context chain.
type contextContainer struct {
	TraceID       *string
	RequestID     *string
	OperationName *string
	CourseID      *string
	Errors        []error
	mu            sync.RWMutex
}

// getContainer retrieves the existing container from context, or returns a
// fresh, unattached one if none exists yet.
func getContainer(ctx context.Context) *contextContainer {
	if container, ok := ctx.Value(containerContextKey).(*contextContainer); ok {
		return container
	}

	return &contextContainer{}
}

// withContainer stores the container in the context if one isn't already
// present there.
func withContainer(ctx context.Context, container *contextContainer) context.Context {
	if ctx.Value(containerContextKey) == nil {
		return context.WithValue(ctx, containerContextKey, container)
	}

	return ctx
}

package brain

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/Shaswata28/studymate/internal/log"
	"github.com/Shaswata28/studymate/internal/pkg/xcontext"
)

// ResidencyManager enforces the persistent-core / on-demand-specialist
// policy (§4.2): the core chat model is loaded once, with an unbounded
// keep-alive, and never unloaded by anything in this package; specialists
// are loaded immediately before use and evicted immediately after, with
// accelerator-memory reclamation triggered on every path out.
//
// Specialist lifecycle is serialized FIFO across in-flight requests by a
// weighted semaphore of size 1 — golang.org/x/sync/semaphore guarantees
// FIFO-ordered acquisition, which is exactly the starvation-free queuing
// §4.2 asks for, and Acquire honors ctx's deadline for the per-request
// timeout.
type ResidencyManager struct {
	runtime Runtime

	coreModel string

	specialistSem *semaphore.Weighted

	mu               sync.RWMutex
	currentSpecialist string
}

// NewResidencyManager constructs a manager for the given core model name.
func NewResidencyManager(runtime Runtime, coreModel string) *ResidencyManager {
	return &ResidencyManager{
		runtime:       runtime,
		coreModel:     coreModel,
		specialistSem: semaphore.NewWeighted(1),
	}
}

// Start loads the core model with an unbounded keep-alive and verifies
// readiness with a trivial probe (§4.2 "On startup"). It is the only place
// the core model is ever (re-)loaded.
func (m *ResidencyManager) Start(ctx context.Context) error {
	if err := m.runtime.Load(ctx, m.coreModel, -1); err != nil {
		return err
	}

	return m.runtime.Probe(ctx, m.coreModel)
}

// CoreModel returns the resident core model's identifier, for GET /health.
func (m *ResidencyManager) CoreModel() string {
	return m.coreModel
}

// Generate runs a core-model call. Core-model calls are never gated by the
// specialist lock (§4.2 Concurrency).
func (m *ResidencyManager) Generate(ctx context.Context, prompt string) (string, error) {
	return m.runtime.Generate(ctx, m.coreModel, prompt)
}

// CurrentSpecialist reports the specialist resident right now, if any, for
// diagnostics; it is not meant to gate external decisions.
func (m *ResidencyManager) CurrentSpecialist() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.currentSpecialist
}

// WithSpecialist serializes load(model) → fn → unload(model)+reclaim against
// every other specialist request, honoring ctx's deadline while waiting for
// the lock. The unload+reclaim step runs unconditionally, on success,
// caller error, or fn panic — P2's guarantee — via a context detached from
// ctx's cancellation so a cancelled caller doesn't skip cleanup (§5).
func WithSpecialist[T any](ctx context.Context, m *ResidencyManager, model string, estimate time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	if err := m.specialistSem.Acquire(ctx, 1); err != nil {
		return zero, newErr(KindTimeout, "timed out waiting for specialist slot", err)
	}
	defer m.specialistSem.Release(1)

	m.mu.Lock()
	m.currentSpecialist = model
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.currentSpecialist = ""
		m.mu.Unlock()

		cleanupCtx, cancel := xcontext.DetachWithTimeout(ctx, 10*time.Second)
		defer cancel()

		if err := m.runtime.Unload(cleanupCtx, model); err != nil {
			log.Warn(cleanupCtx, "specialist unload failed", log.String("model", model), log.Cause(err))
		}

		if err := m.runtime.ReclaimMemory(cleanupCtx); err != nil {
			log.Warn(cleanupCtx, "accelerator memory reclaim failed", log.Cause(err))
		}
	}()

	if err := m.runtime.Load(ctx, model, estimate); err != nil {
		return zero, err
	}

	return fn(ctx)
}

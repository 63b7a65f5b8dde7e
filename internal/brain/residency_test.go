package brain

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeRuntime struct {
	mu sync.Mutex

	loaded   map[string]time.Duration
	unloaded []string

	loadErr      error
	generateErr  error
	reclaimCalls int32

	loadDelay time.Duration

	transcribeErr    error
	transcribeResult string
	visionResult     string
	embedResult      []float32
}

func newFakeRuntime() *fakeRuntime {
	return &fakeRuntime{loaded: map[string]time.Duration{}}
}

func (r *fakeRuntime) Load(ctx context.Context, model string, keepAlive time.Duration) error {
	if r.loadDelay > 0 {
		select {
		case <-time.After(r.loadDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if r.loadErr != nil {
		return r.loadErr
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaded[model] = keepAlive

	return nil
}

func (r *fakeRuntime) Unload(ctx context.Context, model string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unloaded = append(r.unloaded, model)

	return nil
}

func (r *fakeRuntime) ReclaimMemory(ctx context.Context) error {
	atomic.AddInt32(&r.reclaimCalls, 1)
	return nil
}

func (r *fakeRuntime) Probe(ctx context.Context, model string) error { return nil }

func (r *fakeRuntime) Generate(ctx context.Context, model, prompt string) (string, error) {
	if r.generateErr != nil {
		return "", r.generateErr
	}

	return "generated:" + prompt, nil
}

func (r *fakeRuntime) Embed(ctx context.Context, model, text string) ([]float32, error) {
	if r.embedResult != nil {
		return r.embedResult, nil
	}

	return []float32{0.1}, nil
}

func (r *fakeRuntime) VisionExtract(ctx context.Context, model string, data []byte, mediaType, instruction string) (string, error) {
	if r.visionResult != "" {
		return r.visionResult, nil
	}

	return "ocr", nil
}

func (r *fakeRuntime) Transcribe(ctx context.Context, model string, data []byte) (string, error) {
	if r.transcribeErr != nil {
		return "", r.transcribeErr
	}

	if r.transcribeResult != "" {
		return r.transcribeResult, nil
	}

	return "", newErr(KindUnavailable, "not configured", nil)
}

func TestResidencyManager_StartLoadsCoreModelUnbounded(t *testing.T) {
	rt := newFakeRuntime()
	m := NewResidencyManager(rt, "llama3.1")

	require.NoError(t, m.Start(context.Background()))
	require.Equal(t, time.Duration(-1), rt.loaded["llama3.1"])
}

func TestWithSpecialist_LoadsRunsUnloadsAndReclaims(t *testing.T) {
	rt := newFakeRuntime()
	m := NewResidencyManager(rt, "core")

	result, err := WithSpecialist(context.Background(), m, "vision", time.Second, func(ctx context.Context) (string, error) {
		require.Equal(t, "vision", m.CurrentSpecialist())
		return "ok", nil
	})
	require.NoError(t, err)
	require.Equal(t, "ok", result)
	require.Contains(t, rt.unloaded, "vision")
	require.EqualValues(t, 1, rt.reclaimCalls)
	require.Empty(t, m.CurrentSpecialist())
}

// TestWithSpecialist_UnloadsEvenOnCallerError covers P2: cleanup runs
// unconditionally, including when fn itself fails.
func TestWithSpecialist_UnloadsEvenOnCallerError(t *testing.T) {
	rt := newFakeRuntime()
	m := NewResidencyManager(rt, "core")

	_, err := WithSpecialist(context.Background(), m, "vision", time.Second, func(ctx context.Context) (string, error) {
		return "", newErr(KindInternal, "boom", nil)
	})
	require.Error(t, err)
	require.Contains(t, rt.unloaded, "vision")
	require.EqualValues(t, 1, rt.reclaimCalls)
}

// TestWithSpecialist_SerializesFIFO covers P1: only one specialist may be
// resident at a time, enforced by the size-1 weighted semaphore.
func TestWithSpecialist_SerializesFIFO(t *testing.T) {
	rt := newFakeRuntime()
	m := NewResidencyManager(rt, "core")

	var concurrent int32
	var maxConcurrent int32
	var wg sync.WaitGroup

	for i := 0; i < 5; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, _ = WithSpecialist(context.Background(), m, "vision", time.Second, func(ctx context.Context) (string, error) {
				n := atomic.AddInt32(&concurrent, 1)
				defer atomic.AddInt32(&concurrent, -1)

				for {
					old := atomic.LoadInt32(&maxConcurrent)
					if n <= old || atomic.CompareAndSwapInt32(&maxConcurrent, old, n) {
						break
					}
				}

				time.Sleep(time.Millisecond)

				return "", nil
			})
		}()
	}

	wg.Wait()
	require.EqualValues(t, 1, maxConcurrent, "specialist slot must never admit more than one caller at a time")
}

func TestWithSpecialist_HonorsCtxDeadlineWhileWaiting(t *testing.T) {
	rt := newFakeRuntime()
	m := NewResidencyManager(rt, "core")

	release := make(chan struct{})

	go func() {
		_, _ = WithSpecialist(context.Background(), m, "vision", time.Second, func(ctx context.Context) (string, error) {
			<-release
			return "", nil
		})
	}()

	// give the first caller time to acquire the slot
	time.Sleep(10 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	_, err := WithSpecialist(ctx, m, "embed", time.Second, func(ctx context.Context) (string, error) {
		return "", nil
	})
	require.Error(t, err)
	require.Equal(t, KindTimeout, KindOf(err))

	close(release)
}

func TestResidencyManager_GenerateBypassesSpecialistLock(t *testing.T) {
	rt := newFakeRuntime()
	m := NewResidencyManager(rt, "core")

	holding := make(chan struct{})
	release := make(chan struct{})

	go func() {
		_, _ = WithSpecialist(context.Background(), m, "vision", time.Second, func(ctx context.Context) (string, error) {
			close(holding)
			<-release
			return "", nil
		})
	}()

	<-holding

	text, err := m.Generate(context.Background(), "hello")
	require.NoError(t, err)
	require.Equal(t, "generated:hello", text)

	close(release)
}

// Package gc repurposes the teacher's cron-scheduled cleanup worker
// pattern into a single, read-only visibility sweep: materials stuck in
// "processing" past PROCESSING_TIMEOUT are logged and counted, never
// auto-resumed (§4.7's explicit prohibition on auto-transitioning status).
package gc

import (
	"context"
	"time"

	"github.com/zhenzou/executors"

	"github.com/Shaswata28/studymate/internal/authz"
	"github.com/Shaswata28/studymate/internal/log"
	"github.com/Shaswata28/studymate/internal/materials"
)

// Config controls the sweep's schedule and what counts as "stuck" (§6.3).
type Config struct {
	CRON              string        `conf:"cron" yaml:"cron" json:"cron" validate:"required"`
	ProcessingTimeout time.Duration `conf:"processing_timeout" yaml:"processing_timeout" json:"processing_timeout"`
}

// StuckGauge reports the number of materials currently stuck in
// "processing", for whatever metrics exporter is wired in; nil is a valid
// no-op.
type StuckGauge interface {
	Set(n int)
}

// Sweep is the stuck-processing visibility worker.
type Sweep struct {
	cfg      Config
	store    materials.Store
	executor executors.ScheduledExecutor
	gauge    StuckGauge

	cancel context.CancelFunc
}

// NewSweep wires a Sweep. gauge may be nil.
func NewSweep(cfg Config, store materials.Store, executor executors.ScheduledExecutor, gauge StuckGauge) *Sweep {
	return &Sweep{cfg: cfg, store: store, executor: executor, gauge: gauge}
}

// Start schedules the sweep at Config.CRON.
func (s *Sweep) Start(ctx context.Context) error {
	cancel, err := s.executor.ScheduleFuncAtCronRate(s.run, executors.CRONRule{Expr: s.cfg.CRON})
	if err != nil {
		return err
	}

	s.cancel = cancel

	log.Info(ctx, "stuck-material sweep started", log.String("cron", s.cfg.CRON))

	return nil
}

func (s *Sweep) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}

	return s.executor.Shutdown(ctx)
}

func (s *Sweep) run(ctx context.Context) {
	ctx = authz.NewSystemContext(ctx)

	cutoff := time.Now().UTC().Add(-s.cfg.ProcessingTimeout)

	stuck, err := s.store.ListStuckProcessing(ctx, cutoff)
	if err != nil {
		log.Error(ctx, "stuck-material sweep failed", log.Cause(err))
		return
	}

	if s.gauge != nil {
		s.gauge.Set(len(stuck))
	}

	if len(stuck) == 0 {
		return
	}

	log.Warn(ctx, "materials stuck in processing past timeout",
		log.Int("count", len(stuck)),
		log.Duration("timeout", s.cfg.ProcessingTimeout),
	)

	for _, m := range stuck {
		log.Warn(ctx, "material stuck in processing",
			log.String("material_id", m.ID),
			log.String("course_id", m.CourseID),
		)
	}
}

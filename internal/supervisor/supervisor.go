// Package supervisor implements the Brain Supervisor (C4): the API server's
// management of the Brain Service as a child process — start, health-gate,
// terminate, optional restart (§4.4).
package supervisor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/zhenzou/executors"

	"github.com/Shaswata28/studymate/internal/brainclient"
	"github.com/Shaswata28/studymate/internal/log"
)

// State is one of the supervisor's lifecycle states (§4.4).
type State string

const (
	StateAbsent   State = "Absent"
	StateStarting State = "Starting"
	StateHealthy  State = "Healthy"
	StateStopping State = "Stopping"
	StateCrashed  State = "Crashed"
)

// Config controls how the Brain child process is spawned and health-gated.
type Config struct {
	// Command is the Brain executable path, inheriting the supervisor's
	// environment (§4.4).
	Command string   `conf:"command" yaml:"command" json:"command"`
	Args    []string `conf:"args" yaml:"args" json:"args"`

	StartupDeadline time.Duration `conf:"startup_deadline" yaml:"startup_deadline" json:"startup_deadline"`
	PollInterval    time.Duration `conf:"poll_interval" yaml:"poll_interval" json:"poll_interval"`
	StopGrace       time.Duration `conf:"stop_grace" yaml:"stop_grace" json:"stop_grace"`
}

// Supervisor manages the Brain Service's process lifecycle.
type Supervisor struct {
	cfg    Config
	client *brainclient.Client

	executor executors.ScheduledExecutor

	mu    sync.Mutex
	state State
	cmd   *exec.Cmd
	done  chan struct{}
}

// New builds a Supervisor. client is used for the startup health-poll and
// is a BrainClient instance distinct from the request-hot-path client;
// is_healthy (§4.4) must not be called on the request hot path.
func New(cfg Config, client *brainclient.Client, executor executors.ScheduledExecutor) *Supervisor {
	return &Supervisor{
		cfg:      cfg,
		client:   client,
		executor: executor,
		state:    StateAbsent,
	}
}

// State reports the current lifecycle state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// IsHealthy is a non-blocking, fail-fast probe (§4.4); it must not be used
// on the chat/material request hot path, which relies on the Brain Client's
// own per-call timeouts instead.
func (s *Supervisor) IsHealthy() bool {
	return s.State() == StateHealthy
}

// Start spawns the Brain executable and polls GET /health until ready or
// StartupDeadline expires. A Brain startup failure is non-fatal for the API
// server (§4.4): it returns nil even when the Brain never became healthy,
// leaving AI routes to report "AI unavailable" via Supervisor.IsHealthy.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateHealthy || s.state == StateStarting {
		s.mu.Unlock()
		return nil
	}

	s.state = StateStarting
	cmd := exec.CommandContext(context.Background(), s.cfg.Command, s.cfg.Args...)
	cmd.Env = os.Environ()
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		s.state = StateAbsent
		s.mu.Unlock()

		log.Error(ctx, "brain failed to start", log.Cause(err))

		return nil
	}

	s.cmd = cmd
	done := make(chan struct{})
	s.done = done
	s.mu.Unlock()

	go func() {
		_ = cmd.Wait()
		close(done)
		s.onExit()
	}()

	deadline := time.Now().Add(s.cfg.StartupDeadline)

	for time.Now().Before(deadline) {
		if _, ok := s.client.HealthCheck(ctx); ok {
			s.mu.Lock()
			s.state = StateHealthy
			s.mu.Unlock()

			log.Info(ctx, "brain healthy")

			return nil
		}

		select {
		case <-ctx.Done():
			log.Warn(ctx, "brain startup cancelled before health-gate completed")

			s.mu.Lock()
			_ = s.killLocked()
			s.state = StateAbsent
			s.mu.Unlock()

			return ctx.Err()
		case <-time.After(s.cfg.PollInterval):
		}
	}

	log.Warn(ctx, "brain did not become healthy within startup deadline; AI features disabled")

	s.mu.Lock()
	_ = s.killLocked()
	s.state = StateAbsent
	s.mu.Unlock()

	return nil
}

// onExit transitions to Crashed if the process died while the supervisor
// still considered it running (i.e. not as part of an intentional Stop).
func (s *Supervisor) onExit() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateStopping || s.state == StateAbsent {
		return
	}

	s.state = StateCrashed

	log.Error(context.Background(), "brain process exited unexpectedly")
}

// Stop sends graceful termination, escalating to a forceful kill after
// StopGrace. Idempotent.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.mu.Lock()

	if s.cmd == nil || s.state == StateAbsent {
		s.state = StateAbsent
		s.mu.Unlock()

		return nil
	}

	s.state = StateStopping
	cmd := s.cmd
	done := s.done
	s.mu.Unlock()

	if cmd.Process != nil {
		_ = cmd.Process.Signal(os.Interrupt)
	}

	select {
	case <-done:
	case <-time.After(s.cfg.StopGrace):
		log.Warn(ctx, "brain did not exit within stop grace; killing")

		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}

		select {
		case <-done:
		case <-time.After(5 * time.Second):
		}
	}

	s.mu.Lock()
	s.state = StateAbsent
	s.cmd = nil
	s.mu.Unlock()

	return nil
}

// killLocked force-kills the child while holding s.mu. Caller must hold s.mu.
func (s *Supervisor) killLocked() error {
	if s.cmd == nil || s.cmd.Process == nil {
		return nil
	}

	return s.cmd.Process.Kill()
}

// Restart stops then starts the Brain; used only on explicit administrator
// action or a crash-detector hook (§4.4).
func (s *Supervisor) Restart(ctx context.Context) error {
	if err := s.Stop(ctx); err != nil {
		return fmt.Errorf("supervisor: stop during restart: %w", err)
	}

	return s.Start(ctx)
}

// WatchCrashes schedules a periodic crash-detector hook on cronExpr
// (default every minute) that restarts the Brain when it has moved to
// StateCrashed. It runs on the shared ScheduledExecutor the way the
// teacher's gc.Worker schedules its cleanup pass.
func (s *Supervisor) WatchCrashes(cronExpr string) (context.CancelFunc, error) {
	if cronExpr == "" {
		cronExpr = "*/1 * * * *"
	}

	return s.executor.ScheduleFuncAtCronRate(func(ctx context.Context) {
		if s.State() != StateCrashed {
			return
		}

		log.Warn(ctx, "brain crashed; attempting restart")

		if err := s.Restart(ctx); err != nil {
			log.Error(ctx, "brain restart failed", log.Cause(err))
		}
	}, executors.CRONRule{Expr: cronExpr})
}

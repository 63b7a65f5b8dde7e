package supervisor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/zhenzou/executors"

	"github.com/Shaswata28/studymate/internal/brainclient"
)

func testClient(url string) *brainclient.Client {
	return brainclient.New(brainclient.Config{
		Endpoint:      url,
		HealthTimeout: time.Second,
	})
}

func sleepConfig(deadline, poll, grace time.Duration) Config {
	return Config{
		Command:         "sh",
		Args:            []string{"-c", "sleep 10"},
		StartupDeadline: deadline,
		PollInterval:    poll,
		StopGrace:       grace,
	}
}

func TestStart_BecomesHealthyOnFirstSuccessfulProbe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"Active"}`))
	}))
	defer srv.Close()

	sup := New(sleepConfig(2*time.Second, 10*time.Millisecond, time.Second), testClient(srv.URL), executors.NewPoolScheduleExecutor())
	defer sup.Stop(context.Background())

	require.NoError(t, sup.Start(context.Background()))
	require.Equal(t, StateHealthy, sup.State())
	require.True(t, sup.IsHealthy())
}

func TestStart_GivesUpAndReturnsAbsentWhenNeverHealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	sup := New(sleepConfig(40*time.Millisecond, 10*time.Millisecond, time.Second), testClient(srv.URL), executors.NewPoolScheduleExecutor())

	require.NoError(t, sup.Start(context.Background()), "a brain that never becomes healthy is not a fatal error for the API server")
	require.Equal(t, StateAbsent, sup.State())
	require.False(t, sup.IsHealthy())
}

func TestStart_IsIdempotentWhileAlreadyHealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"Active"}`))
	}))
	defer srv.Close()

	sup := New(sleepConfig(2*time.Second, 10*time.Millisecond, time.Second), testClient(srv.URL), executors.NewPoolScheduleExecutor())
	defer sup.Stop(context.Background())

	require.NoError(t, sup.Start(context.Background()))
	require.Equal(t, StateHealthy, sup.State())

	require.NoError(t, sup.Start(context.Background()), "starting an already-healthy supervisor must be a no-op")
	require.Equal(t, StateHealthy, sup.State())
}

func TestStop_IsIdempotent(t *testing.T) {
	sup := New(Config{StopGrace: time.Second}, testClient("http://unused"), executors.NewPoolScheduleExecutor())

	require.NoError(t, sup.Stop(context.Background()))
	require.Equal(t, StateAbsent, sup.State())

	require.NoError(t, sup.Stop(context.Background()))
	require.Equal(t, StateAbsent, sup.State())
}

func TestStop_TerminatesARunningProcess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"Active"}`))
	}))
	defer srv.Close()

	sup := New(sleepConfig(2*time.Second, 10*time.Millisecond, 500*time.Millisecond), testClient(srv.URL), executors.NewPoolScheduleExecutor())

	require.NoError(t, sup.Start(context.Background()))
	require.Equal(t, StateHealthy, sup.State())

	require.NoError(t, sup.Stop(context.Background()))
	require.Equal(t, StateAbsent, sup.State())
}

func TestOnExit_MarksCrashedWhenNotIntentionallyStopped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"Active"}`))
	}))
	defer srv.Close()

	cfg := Config{
		Command:         "sh",
		Args:            []string{"-c", "exit 1"},
		StartupDeadline: 200 * time.Millisecond,
		PollInterval:    10 * time.Millisecond,
		StopGrace:       time.Second,
	}

	sup := New(cfg, testClient(srv.URL), executors.NewPoolScheduleExecutor())

	// The child exits almost immediately and never reports healthy; Start
	// gives up at its deadline and kills (a no-op, already exited) leaving
	// Absent rather than Crashed, since the startup-failure path sets
	// StateAbsent itself before onExit can observe a still-"running" state.
	require.NoError(t, sup.Start(context.Background()))
	require.Equal(t, StateAbsent, sup.State())
}

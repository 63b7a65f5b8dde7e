// Package dependencies wires the process's non-HTTP components into the fx
// graph in construction order: config -> store clients -> the Brain
// Supervisor's blocking health-gate -> the Background Queue -> everything
// the HTTP handlers need.
package dependencies

import (
	"context"

	"github.com/zhenzou/executors"
	"go.uber.org/fx"

	"github.com/Shaswata28/studymate/internal/brain"
	"github.com/Shaswata28/studymate/internal/brainclient"
	"github.com/Shaswata28/studymate/internal/chat"
	"github.com/Shaswata28/studymate/internal/log"
	"github.com/Shaswata28/studymate/internal/materials"
	"github.com/Shaswata28/studymate/internal/pkg/xcache"
	"github.com/Shaswata28/studymate/internal/personalize"
	"github.com/Shaswata28/studymate/internal/queue"
	"github.com/Shaswata28/studymate/internal/retrieval"
	"github.com/Shaswata28/studymate/internal/server/biz"
	"github.com/Shaswata28/studymate/internal/server/db"
	"github.com/Shaswata28/studymate/internal/server/gc"
	"github.com/Shaswata28/studymate/internal/supervisor"
)

var Module = fx.Module("dependencies",
	fx.Provide(log.New),
	fx.Provide(db.NewEntClient),
	fx.Provide(NewExecutors),

	// The Brain Client used here and the one handed to the Supervisor are
	// the same stateless HTTP client (§4.5 — it carries no request-scoped
	// state); a single instance is enough, see DESIGN.md.
	fx.Provide(brainclient.New),
	fx.Provide(supervisor.New),

	fx.Provide(fx.Annotate(biz.NewMaterialStore, fx.As(new(materials.Store)))),
	fx.Provide(fx.Annotate(biz.NewChatHistory, fx.As(new(chat.History)))),
	fx.Provide(fx.Annotate(NewFileStore, fx.As(new(materials.FileStore)))),
	fx.Provide(fx.Annotate(biz.NewExternalPersonalizationSource, fx.As(new(personalize.Source)))),

	fx.Provide(fx.Annotate(NewRetrievalSource, fx.As(new(retrieval.Source)))),
	fx.Provide(fx.Annotate(retrieval.NewBruteForce, fx.As(new(retrieval.Index)))),

	fx.Provide(NewPersonalizationCache),
	fx.Provide(personalize.NewReader),

	fx.Provide(NewMaterialsService),
	fx.Provide(NewBackgroundQueue),
	fx.Provide(chat.NewService),

	fx.Provide(NewGCSweepGauge),
	fx.Provide(gc.NewSweep),

	fx.Invoke(func(lc fx.Lifecycle, executor executors.ScheduledExecutor) {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return executor.Shutdown(ctx)
			},
		})
	}),

	// The Supervisor's Start blocks until the child Brain process reports
	// healthy (§4.4's startup health-gate), so it runs in OnStart: the API
	// server never accepts traffic before the Brain is ready.
	fx.Invoke(func(lc fx.Lifecycle, sup *supervisor.Supervisor) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				if err := sup.Start(ctx); err != nil {
					return err
				}

				_, err := sup.WatchCrashes("")

				return err
			},
			OnStop: func(ctx context.Context) error {
				return sup.Stop(ctx)
			},
		})
	}),

	fx.Invoke(func(lc fx.Lifecycle, q *queue.Queue) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				go q.Run(context.Background())
				return nil
			},
			OnStop: func(ctx context.Context) error {
				q.Stop()
				return nil
			},
		})
	}),

	fx.Invoke(func(lc fx.Lifecycle, sweep *gc.Sweep) {
		lc.Append(fx.Hook{
			OnStart: sweep.Start,
			OnStop:  sweep.Stop,
		})
	}),
)

// NewFileStore opens the materials.FileStore backend against a background
// context: fx has no request-scoped context to offer a singleton
// constructor, and opening a file-store handle is a one-time, uncancelable
// operation like db.NewEntClient's schema migration above.
func NewFileStore(cfg biz.FileStoreConfig) (*biz.FileStore, error) {
	return biz.NewFileStore(context.Background(), cfg)
}

// NewRetrievalSource adapts the materials store to retrieval.Source.
func NewRetrievalSource(store materials.Store) retrieval.MaterialSource {
	return retrieval.MaterialSource{Store: store}
}

// NewPersonalizationCache instantiates the generic xcache.Cache[Profile];
// fx.Provide can't be handed a bare generic function directly.
func NewPersonalizationCache(cfg xcache.Config) xcache.Cache[personalize.Profile] {
	return xcache.NewFromConfig[personalize.Profile](cfg)
}

// NewMaterialsService threads the Brain's configured embedding dimension
// (brain.ServiceConfig.EmbedDim) into materials.NewService's dimension-
// mismatch check (§4.6), keeping a bare int out of the fx graph, and hands
// it the same retrieval.Index the chat pipeline searches so a completed or
// failed material invalidates that course's cached document set (§4.8)
// instead of leaving Vector Search to serve a stale cache entry.
func NewMaterialsService(cfg materials.Config, store materials.Store, files materials.FileStore, brainClient *brainclient.Client, brainCfg brain.ServiceConfig, index retrieval.Index) *materials.Service {
	return materials.NewService(cfg, store, files, brainClient, brainCfg.EmbedDim, index)
}

// NewBackgroundQueue wires the Background Queue's handler to
// materials.Service.Process (§4.7).
func NewBackgroundQueue(cfg queue.Config, svc *materials.Service) *queue.Queue {
	return queue.New(cfg, func(ctx context.Context, job queue.Job) error {
		return svc.Process(ctx, job.MaterialID)
	})
}

// NewGCSweepGauge is nil until an exporter is wired through internal/metrics;
// gc.Sweep treats a nil StuckGauge as a valid no-op.
func NewGCSweepGauge() gc.StuckGauge { return nil }

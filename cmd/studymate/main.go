package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	sdk "go.opentelemetry.io/otel/sdk/metric"

	"github.com/Shaswata28/studymate/conf"
	"github.com/Shaswata28/studymate/internal/build"
	"github.com/Shaswata28/studymate/internal/ent"
	"github.com/Shaswata28/studymate/internal/log"
	"github.com/Shaswata28/studymate/internal/metrics"
	"github.com/Shaswata28/studymate/internal/server"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "config":
			handleConfigCommand()
			return
		case "version", "--version", "-v":
			showVersion()
			return
		case "help", "--help", "-h":
			showHelp()
			return
		case "build-info":
			showBuildInfo()
			return
		}
	}

	startServer()
}

func showBuildInfo() {
	fmt.Println(build.GetBuildInfo())
}

type logger struct{}

func (l *logger) LogEvent(event fxevent.Event) {
	log.Debug(context.Background(), "fx event", log.Any("event", event))
}

func startServer() {
	server.Run(
		fx.WithLogger(func() fxevent.Logger {
			return &logger{}
		}),
		fx.Provide(conf.Load),
		conf.Module,
		fx.Provide(metrics.NewProvider),
		fx.Invoke(func(lc fx.Lifecycle, srv *server.Server, provider *sdk.MeterProvider, entClient *ent.Client) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					_, err := metrics.SetupMetrics(provider, srv.Config.Name)
					return err
				},
				OnStop: func(ctx context.Context) error {
					return provider.Shutdown(ctx)
				},
			})
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					go func() {
						if err := srv.Run(); err != nil {
							log.Error(context.Background(), "server run error", log.Cause(err))
							os.Exit(1)
						}
					}()

					return nil
				},
				OnStop: func(ctx context.Context) error {
					// Both the HTTP/Brain-supervisor shutdown and the ent
					// connection close can independently fail; multierr
					// combines them into one error instead of the second
					// silently masking the first.
					var shutdownErr error

					if err := srv.Shutdown(ctx); err != nil {
						shutdownErr = multierr.Append(shutdownErr, fmt.Errorf("server shutdown: %w", err))
					}

					if err := entClient.Close(); err != nil {
						shutdownErr = multierr.Append(shutdownErr, fmt.Errorf("ent close: %w", err))
					}

					if shutdownErr != nil {
						log.Error(context.Background(), "shutdown error", log.Cause(shutdownErr))
					}

					return shutdownErr
				},
			})
		}),
	)
}

func handleConfigCommand() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: studymate config <preview|validate|get>")
		os.Exit(1)
	}

	switch os.Args[2] {
	case "preview":
		configPreview()
	case "validate":
		configValidate()
	case "get":
		configGet()
	default:
		fmt.Println("Usage: studymate config <preview|validate|get>")
		os.Exit(1)
	}
}

func configPreview() {
	config, err := conf.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	b, err := yaml.Marshal(config)
	if err != nil {
		fmt.Printf("Failed to preview config: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(string(b))
}

func configValidate() {
	config, err := conf.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	errs := validateConfig(config)

	if len(errs) == 0 {
		fmt.Println("Configuration is valid!")
		return
	}

	fmt.Println("Configuration validation failed:")

	for _, e := range errs {
		fmt.Printf("  - %s\n", e)
	}

	os.Exit(1)
}

func validateConfig(config conf.Config) []string {
	var errs []string

	if config.APIServer.Port <= 0 || config.APIServer.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}

	if config.DB.DSN == "" {
		errs = append(errs, "db.dsn cannot be empty")
	}

	if config.Brain.Supervisor.Command == "" {
		errs = append(errs, "brain.supervisor.command cannot be empty")
	}

	if config.APIServer.CORS.Enabled && len(config.APIServer.CORS.AllowedOrigins) == 0 {
		errs = append(errs, "server.cors.allowed_origins cannot be empty when CORS is enabled")
	}

	return errs
}

func configGet() {
	if len(os.Args) < 4 {
		fmt.Println("Usage: studymate config get <key>")
		fmt.Println("")
		fmt.Println("Available keys:")
		fmt.Println("  server.port              Server port number")
		fmt.Println("  server.name              Server name")
		fmt.Println("  db.dialect               Database dialect")
		fmt.Println("  db.dsn                   Database DSN")
		fmt.Println("  brain.supervisor.command Brain executable path")
		os.Exit(1)
	}

	key := os.Args[3]

	config, err := conf.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	var value interface{}

	switch key {
	case "server.port":
		value = config.APIServer.Port
	case "server.name":
		value = config.APIServer.Name
	case "server.base_path":
		value = config.APIServer.BasePath
	case "server.debug":
		value = config.APIServer.Debug
	case "db.dialect":
		value = config.DB.Dialect
	case "db.dsn":
		value = config.DB.DSN
	case "brain.supervisor.command":
		value = config.Brain.Supervisor.Command
	default:
		fmt.Fprintf(os.Stderr, "Unknown config key: %s\n", key)
		os.Exit(1)
	}

	fmt.Println(value)
}

func showHelp() {
	fmt.Println("StudyMate AI orchestration core")
	fmt.Println("")
	fmt.Println("Usage:")
	fmt.Println("  studymate                    Start the API server (default)")
	fmt.Println("  studymate config preview     Preview configuration")
	fmt.Println("  studymate config validate    Validate configuration")
	fmt.Println("  studymate config get <key>   Get a specific config value")
	fmt.Println("  studymate version            Show version")
	fmt.Println("  studymate help               Show this help message")
}

func showVersion() {
	fmt.Println(build.Version)
}

// Command housepipe trains, serves and orchestrates the house price model.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/subcommands"
	"go.uber.org/zap"

	"github.com/kailas-cloud/housepipe/internal/config"
	logpkg "github.com/kailas-cloud/housepipe/internal/logger"
	"github.com/kailas-cloud/housepipe/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, logpkg.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}

	logger.Debug("Configuration loaded",
		zap.String("env", env),
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("project_id", cfg.Derived.ProjectID),
		zap.String("region", cfg.Project.Region),
		zap.String("pipeline_root", cfg.Derived.PipelineRoot),
		zap.String("service_account", cfg.Derived.ServiceAccount),
		zap.Any("images", cfg.Derived.Images),
	)

	a := newApp(cfg, logger)

	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(&versionCmd{}, "")
	subcommands.Register(newTrainCmd(a), "tasks")
	subcommands.Register(newBatchPredictCmd(a), "tasks")
	subcommands.Register(newInferCmd(a), "tasks")
	subcommands.Register(&compilePipelineCmd{app: a}, "pipeline")
	subcommands.Register(&runPipelineCmd{app: a}, "pipeline")
	subcommands.Register(&serveCmd{app: a}, "serving")

	flag.Parse()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	status := subcommands.Execute(ctx)
	stop()
	_ = logger.Sync()
	os.Exit(int(status))
}

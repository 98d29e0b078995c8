package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/google/subcommands"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/housepipe/internal/config"
	dbValkey "github.com/kailas-cloud/housepipe/internal/db/valkey"
	logpkg "github.com/kailas-cloud/housepipe/internal/logger"
	"github.com/kailas-cloud/housepipe/internal/metrics"
	"github.com/kailas-cloud/housepipe/internal/repository/artifact"
	"github.com/kailas-cloud/housepipe/internal/usecase/runner"
	"github.com/kailas-cloud/housepipe/internal/warehouse/postgres"
)

// errUsage marks missing or malformed flags.
var errUsage = errors.New("usage error")

// app is the composition root shared by all commands.
type app struct {
	cfg      config.Config
	logger   *zap.Logger
	registry *prometheus.Registry
	metrics  *metrics.Task
}

func newApp(cfg config.Config, logger *zap.Logger) *app {
	reg := prometheus.NewRegistry()
	return &app{
		cfg:      cfg,
		logger:   logger,
		registry: reg,
		metrics:  metrics.NewTask(reg),
	}
}

// task is a command that can also run as a local pipeline step.
type task interface {
	subcommands.Command
	run(ctx context.Context) error
}

// execute runs a command, records its outcome and pushes task metrics.
func (a *app) execute(ctx context.Context, name string, run func(context.Context) error) subcommands.ExitStatus {
	started := time.Now()
	err := run(ctx)
	a.metrics.Observe(name, started, err)
	a.push(name)

	if errors.Is(err, errUsage) {
		a.logger.Error("Invalid arguments", zap.String("command", name), zap.Error(err))
		return subcommands.ExitUsageError
	}
	if err != nil {
		a.logger.Error("Command failed", zap.String("command", name), zap.Error(err))
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (a *app) push(name string) {
	url := a.cfg.Metrics.PushgatewayURL
	if url == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metrics.Push(ctx, url, "housepipe_"+name, a.registry); err != nil {
		a.logger.Warn("Failed to push metrics", zap.Error(err))
	}
}

// artifacts builds the artifact repository. The Valkey store is connected
// only when database addresses are configured; store is nil otherwise.
func (a *app) artifacts(ctx context.Context, log *zap.Logger) (repo *artifact.Repo, store *dbValkey.Store, err error) {
	if len(a.cfg.Database.Addrs) == 0 {
		return artifact.New(nil, log), nil, nil
	}
	store, err = dbValkey.NewStore(dbValkey.Config{
		Addrs:    a.cfg.Database.Addrs,
		Password: a.cfg.Database.Password,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create artifact store: %w", err)
	}
	timeout := time.Duration(a.cfg.Database.ReadinessTimeout) * time.Second
	if err := store.WaitForReady(ctx, timeout); err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("artifact store not ready: %w", err)
	}
	log.Info("Connected to artifact store", zap.Strings("addrs", a.cfg.Database.Addrs))
	return artifact.New(store, log), store, nil
}

// warehouse connects to the warehouse.
func (a *app) warehouse(ctx context.Context, log *zap.Logger) (*postgres.Warehouse, func(), error) {
	if a.cfg.Warehouse.DSN == "" {
		return nil, nil, fmt.Errorf("warehouse.dsn is not configured: %w", errUsage)
	}
	timeout := time.Duration(a.cfg.Warehouse.ConnectTimeoutSec) * time.Second
	pool, err := postgres.Connect(ctx, a.cfg.Warehouse.DSN, timeout)
	if err != nil {
		return nil, nil, err
	}
	return postgres.New(pool, log), pool.Close, nil
}

// commandLogger tags log entries with the command name.
func (a *app) commandLogger(name string) *zap.Logger {
	return logpkg.ForCommand(a.logger, name)
}

// local adapts a task to a pipeline step: args are parsed with the task's
// own flags, as a container entry point would.
func local(newTask func() task) runner.StepFunc {
	return func(ctx context.Context, args []string) error {
		t := newTask()
		fs := flag.NewFlagSet(t.Name(), flag.ContinueOnError)
		t.SetFlags(fs)
		if err := fs.Parse(args); err != nil {
			return fmt.Errorf("%s: %w: %w", t.Name(), errUsage, err)
		}
		return t.run(ctx)
	}
}

func required(name, value string) error {
	if value == "" {
		return fmt.Errorf("-%s is required: %w", name, errUsage)
	}
	return nil
}

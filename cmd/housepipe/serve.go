package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"time"

	"github.com/google/subcommands"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/housepipe/internal/estimator"
	"github.com/kailas-cloud/housepipe/internal/metrics"
	chiTransport "github.com/kailas-cloud/housepipe/internal/transport/chi"
	healthuc "github.com/kailas-cloud/housepipe/internal/usecase/health"
	onlineuc "github.com/kailas-cloud/housepipe/internal/usecase/online"
)

type serveCmd struct {
	app   *app
	model string
	port  int
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "Serve online predictions over HTTP." }
func (*serveCmd) Usage() string    { return "serve -model PATH [-port N]\n" }

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.model, "model", "", "artifact location")
	f.IntVar(&c.port, "port", c.app.cfg.HTTP.Port, "listen port")
}

func (c *serveCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	return c.app.execute(ctx, c.Name(), c.run)
}

func (c *serveCmd) run(ctx context.Context) error {
	if err := required("model", c.model); err != nil {
		return err
	}
	cfg := c.app.cfg.HTTP
	log := c.app.commandLogger(c.Name())

	repo, store, err := c.app.artifacts(ctx, log)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	blob, err := repo.Load(ctx, c.model)
	if err != nil {
		return fmt.Errorf("load model: %w", err)
	}
	model, err := estimator.Load(blob)
	if err != nil {
		return fmt.Errorf("load model %s: %w", c.model, err)
	}
	log.Info("Model loaded", zap.String("model", c.model))

	// Pass nil interface (not typed nil pointer!) when no store is configured.
	var pinger healthuc.DBPinger
	if store != nil {
		pinger = store
	}

	online := onlineuc.New(model, c.app.metrics, log)
	server := chiTransport.NewServer(online, healthuc.New(pinger, online), log).
		WithMaxRecords(cfg.MaxRecords).
		WithGatherer(prometheus.Gatherers{prometheus.DefaultGatherer, c.app.registry})
	router := chiTransport.NewRouter(server, chiTransport.RouterConfig{
		APIKeys: c.app.cfg.Auth.APIKeys,
		Metrics: metrics.NewHTTP(c.app.registry),
	}, log)

	addr := fmt.Sprintf(":%d", c.port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSec) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		log.Info("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownSec)*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("Server stopped gracefully")
	return nil
}

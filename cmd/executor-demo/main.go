// Command executor-demo runs a two-worker word-count topology — a
// sentence spout and a counting bolt, each its own executor — talking
// to each other over a real NATS connection, to exercise the executor
// core, transfer, grouping, scheduler, and transport packages end to
// end rather than through unit tests alone.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/streamkit/executor/executor"
	"github.com/streamkit/executor/metric"
	"golang.org/x/sync/errgroup"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "executor-demo"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("application failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s (%s)\n", appName, Version, BuildTime)
		return nil
	}
	if cliCfg.ShowHelp {
		printDetailedHelp()
		return nil
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return runTopology(ctx, cliCfg, logger)
}

func runTopology(ctx context.Context, cfg *CLIConfig, logger *slog.Logger) error {
	registry := metric.NewMetricsRegistry()
	metricsServer := metric.NewServer(cfg.MetricsAddr, cfg.MetricsPath, registry)
	go func() {
		if err := metricsServer.Start(ctx); err != nil && ctx.Err() == nil {
			logger.Error("metrics server exited", "error", err)
		}
	}()

	logger.Info("connecting demo workers to NATS", "url", cfg.NATSURL)

	// Both sides dial NATS and build their own transfer pipeline
	// independently, so they build concurrently under one errgroup: the
	// first failure cancels the other side's build rather than letting
	// it run to completion against a topology that's already dead.
	var spoutSide *side
	var spoutExec *executor.SpoutExecutor
	var boltSide *side
	var boltExec *executor.BoltExecutor

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		spoutSide, spoutExec, err = buildSpoutSide(gctx, cfg, registry, logger)
		return err
	})
	g.Go(func() error {
		var err error
		boltSide, boltExec, _, err = buildBoltSide(gctx, cfg, registry, logger)
		return err
	})
	if err := g.Wait(); err != nil {
		if spoutSide != nil {
			spoutSide.stop(cfg.ShutdownTimeout)
		}
		if boltSide != nil {
			boltSide.stop(cfg.ShutdownTimeout)
		}
		return fmt.Errorf("build demo topology: %w", err)
	}

	boltConf, err := loadTopologyOptions(cfg.TopologyPath, boltComponent)
	if err != nil {
		spoutSide.stop(cfg.ShutdownTimeout)
		boltSide.stop(cfg.ShutdownTimeout)
		return fmt.Errorf("load bolt topology options: %w", err)
	}
	if err := boltExec.Prepare(ctx, boltConf); err != nil {
		spoutSide.stop(cfg.ShutdownTimeout)
		boltSide.stop(cfg.ShutdownTimeout)
		return fmt.Errorf("prepare bolt: %w", err)
	}

	spoutConf, err := loadTopologyOptions(cfg.TopologyPath, spoutComponent)
	if err != nil {
		spoutSide.stop(cfg.ShutdownTimeout)
		boltSide.stop(cfg.ShutdownTimeout)
		return fmt.Errorf("load spout topology options: %w", err)
	}
	if err := spoutExec.Open(ctx, spoutConf); err != nil {
		spoutSide.stop(cfg.ShutdownTimeout)
		boltSide.stop(cfg.ShutdownTimeout)
		return fmt.Errorf("open spout: %w", err)
	}

	if err := boltSide.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start bolt scheduler: %w", err)
	}
	if err := spoutSide.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start spout scheduler: %w", err)
	}
	if err := boltExec.Start(ctx); err != nil {
		return fmt.Errorf("start bolt executor: %w", err)
	}
	if err := spoutExec.Start(ctx); err != nil {
		return fmt.Errorf("start spout executor: %w", err)
	}

	logger.Info("demo topology running", "metrics_addr", cfg.MetricsAddr, "metrics_path", cfg.MetricsPath)

	<-ctx.Done()
	logger.Info("shutdown signal received, draining")

	shutdownTimeout := cfg.ShutdownTimeout
	if err := spoutExec.Stop(shutdownTimeout); err != nil {
		logger.Error("error stopping spout executor", "error", err)
	}
	if err := boltExec.Stop(shutdownTimeout); err != nil {
		logger.Error("error stopping bolt executor", "error", err)
	}

	spoutSide.stop(shutdownTimeout)
	boltSide.stop(shutdownTimeout)

	if err := metricsServer.Stop(); err != nil {
		logger.Error("error stopping metrics server", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

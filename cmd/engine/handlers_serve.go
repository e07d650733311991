package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/haasonsaas/agent-engine/internal/compaction"
	"github.com/haasonsaas/agent-engine/internal/config"
	"github.com/haasonsaas/agent-engine/internal/engine"
	"github.com/haasonsaas/agent-engine/internal/httpapi"
	"github.com/haasonsaas/agent-engine/internal/observability"
	"github.com/haasonsaas/agent-engine/internal/planner"
	"github.com/haasonsaas/agent-engine/internal/provider"
	"github.com/haasonsaas/agent-engine/internal/terminalsvc"
	"github.com/haasonsaas/agent-engine/internal/toolkit"
	"github.com/haasonsaas/agent-engine/internal/workspace"
)

func runServe(ctx context.Context, debug bool) error {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})).With("component", "engine")
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if len(cfg.Providers.Enabled()) == 0 {
		logger.Warn("no LLM providers configured; set OPENAI_API_KEY, ANTHROPIC_API_KEY, or CUSTOM_API_KEY")
	}

	providers := provider.NewRegistry(cfg.Providers)
	defaultProviderID := ""
	if ids := providers.IDs(); len(ids) > 0 {
		defaultProviderID = ids[0]
	}

	fs := workspace.NewFS(cfg.Workspace.Root)
	tools := toolkit.NewRegistry()

	var summarizer compaction.Summarizer
	if defaultProviderID != "" {
		adapter, err := providers.Get(defaultProviderID)
		if err == nil {
			summarizer = planner.NewAdapterSummarizer(adapter)
		}
	}
	compactor := compaction.NewCompactor(summarizer)

	metrics := observability.NewMetrics()

	plnr := planner.New(tools, compactor)
	pool := engine.NewPool(engine.DefaultConcurrency)
	executor := engine.NewExecutor(tools, fs, plnr, pool)
	executor.SetMetrics(metrics)
	runs := engine.NewRegistry(executor, providers.All(), defaultProviderID)
	runs.StartSweeper(engine.DefaultSweepInterval)
	defer runs.Stop()

	terminals := terminalsvc.NewManager(cfg.Workspace.Root)

	server := httpapi.New(cfg.Server.Addr, fs, runs, terminals, cfg.Providers, logger, metrics)

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("start http server: %w", err)
	}

	logger.Info("engine started", "addr", cfg.Server.Addr, "workspace_root", cfg.Workspace.Root, "providers", providers.IDs())

	<-ctx.Done()
	logger.Info("shutdown signal received, stopping gracefully")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	logger.Info("engine stopped")
	return nil
}

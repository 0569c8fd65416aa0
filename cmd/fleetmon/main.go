package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"syscall"
	"time"

	"fleetmon/internal/api"
	"fleetmon/internal/config"
	"fleetmon/internal/fleet"
	"fleetmon/internal/health"
	"fleetmon/internal/store"

	"golang.org/x/sync/errgroup"
)

// @title fleetmon API
// @version 1.0
// @description Storage fleet monitoring backend API
// @host localhost:8420
// @BasePath /

var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

// buildInfo returns version, commit, build time, and VCS details from the
// embedded Go build info. ldflags-injected values take priority; VCS info
// from debug.ReadBuildInfo fills in anything left as default.
func buildInfo() (ver, sha, built, dirty string) {
	ver = version
	sha = commit
	built = buildTime
	dirty = "clean"

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if sha == "none" {
				sha = s.Value
			}
		case "vcs.time":
			if built == "unknown" {
				built = s.Value
			}
		case "vcs.modified":
			if s.Value == "true" {
				dirty = "dirty"
			}
		}
	}

	return
}

func thresholdsFromConfig(t config.Thresholds) health.Thresholds {
	return health.Thresholds{
		SystemStale:          time.Duration(t.SystemStaleMinutes) * time.Minute,
		DiskTempWarning:      t.DiskTempWarning,
		DiskTempCritical:     t.DiskTempCritical,
		PoolCapacityWarning:  t.PoolCapacityWarning,
		PoolCapacityCritical: t.PoolCapacityCritical,
		ScrubOverdue:         time.Duration(t.ScrubOverdueDays) * 24 * time.Hour,
		ReplicationStale:     time.Duration(t.ReplicationStaleHours) * time.Hour,
	}
}

func main() {
	configPath := flag.String("config", "", "path to fleetmon.yml config file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	ver, sha, built, dirty := buildInfo()

	if *showVersion {
		fmt.Printf("fleetmon %s\n  commit:    %s (%s)\n  built:     %s\n  go:        %s\n  platform:  %s/%s\n",
			ver, sha, dirty, built, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		os.Exit(0)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, config.ErrConfigFileNotFound) {
			fmt.Fprintf(os.Stderr, "error: %s\n\n", err)
			fmt.Fprintf(os.Stderr, "Copy the example config to get started:\n")
			fmt.Fprintf(os.Stderr, "  cp fleetmon.example.yml %s\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "error: loading config (%s): %s\n", *configPath, err)
		}
		os.Exit(1)
	}

	// Configure logging
	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: logLevel}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))

	slog.Info("starting fleetmon",
		"version", ver,
		"commit", sha,
		"built", built,
		"dirty", dirty,
		"go", runtime.Version(),
		"listen", cfg.Listen,
	)

	// Initialize store
	st, err := store.New(cfg.DBPath)
	if err != nil {
		slog.Error("opening database", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	// Setup context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	// Start retention pruner
	retention := store.DefaultRetention()
	retention.MetricEvents = time.Duration(cfg.RetentionHours) * time.Hour
	pruner := store.NewPruner(st, retention)
	g.Go(func() error { return pruner.Run(ctx) })

	// Aggregator over the resolved entity views
	agg := fleet.NewAggregator(st,
		thresholdsFromConfig(cfg.Thresholds),
		time.Duration(cfg.LookbackHours)*time.Hour,
		cfg.AggregationTimeout.Duration,
		cfg.SummaryCacheTTL.Duration,
	)

	// Start HTTP server
	server := api.NewServer(cfg.Listen, st, agg, cfg.WebhookAPIKey)
	g.Go(func() error { return server.Run(ctx) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("fatal error", "error", err)
	}

	slog.Info("fleetmon stopped gracefully")
}

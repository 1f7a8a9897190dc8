package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Hino9LLC/newsearch/internal/config"
	"github.com/Hino9LLC/newsearch/internal/logging"
	"github.com/Hino9LLC/newsearch/internal/ratelimit"
	"github.com/Hino9LLC/newsearch/internal/search"
	"github.com/Hino9LLC/newsearch/internal/server"
	"github.com/Hino9LLC/newsearch/internal/store"
	"github.com/Hino9LLC/newsearch/internal/telemetry"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the search HTTP server",
		Long: `Start the HTTP API server.

The server loads the content store, rebuilds the in-memory vector index
from stored embeddings, and serves /api/v1/search until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, cleanup, err := logging.Setup(logging.Config{
		Level:         cfg.Log.Level,
		FilePath:      cfg.Log.FilePath,
		MaxSizeMB:     cfg.Log.MaxSizeMB,
		MaxFiles:      cfg.Log.MaxFiles,
		WriteToStderr: true,
	})
	if err != nil {
		return err
	}
	defer cleanup()

	cs, index, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer cs.Close()
	defer index.Close()

	embedder, err := newEmbedder(cfg)
	if err != nil {
		return err
	}
	defer embedder.Close()
	logger.Info("embedder ready", "model", embedder.ModelName(), "dimensions", embedder.Dimensions())

	start := time.Now()
	added, removed, err := store.SyncFromStore(ctx, index, cs)
	if err != nil {
		return fmt.Errorf("rebuild vector index: %w", err)
	}
	logger.Info("vector index ready",
		"added", added, "removed", removed,
		"count", index.Count(), "took_ms", time.Since(start).Milliseconds())

	var limiter ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		limiter, err = ratelimit.NewSlidingWindow(cfg.RateLimit.Limit, cfg.RateLimit.Window, cfg.RateLimit.MaxClients)
		if err != nil {
			return err
		}
	}

	metrics := telemetry.NewMetrics()
	engine := search.NewEngine(cs, index, embedder, limiter, metrics, logger, search.EngineConfig{
		RRFConstant:     cfg.Search.RRFConstant,
		CandidateLimit:  cfg.Search.CandidateLimit,
		DefaultPageSize: cfg.Search.PageSize,
	})

	srv := server.New(engine, cs, index, metrics, logger, server.Config{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		RequestTimeout: cfg.Server.RequestTimeout,
	})
	return srv.Run(ctx)
}

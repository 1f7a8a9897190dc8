// Package cmd provides the CLI commands for newsearch.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Hino9LLC/newsearch/internal/config"
	"github.com/Hino9LLC/newsearch/internal/embed"
	"github.com/Hino9LLC/newsearch/internal/store"
	"github.com/Hino9LLC/newsearch/pkg/version"
)

var configPath string

// NewRootCmd creates the root command for the newsearch CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "newsearch",
		Short: "Hybrid news search engine",
		Long: `newsearch serves search over a news corpus with three strategies:
lexical full-text, vector similarity, and an RRF-fused hybrid.

Run 'newsearch serve' to start the HTTP API, or 'newsearch search'
for a one-shot query against a local store.`,
		Version:       version.Short(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("newsearch version {{.Version}}\n")
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (YAML)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command with signal-aware context cancellation.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// newEmbedder builds the configured embedder. The static provider needs no
// endpoint and is the implicit fallback when none is configured.
func newEmbedder(cfg *config.Config) (embed.Embedder, error) {
	if cfg.Embedding.Provider == "static" || cfg.Embedding.Endpoint == "" {
		return embed.NewStaticEmbedder(cfg.Embedding.Dimensions), nil
	}
	return embed.NewRemoteEmbedder(embed.RemoteConfig{
		Endpoint:      cfg.Embedding.Endpoint,
		APIKey:        cfg.Embedding.APIKey,
		SigningSecret: cfg.Embedding.SigningSecret,
		Dimensions:    cfg.Embedding.Dimensions,
		Timeout:       cfg.Embedding.Timeout,
		MaxRetries:    cfg.Embedding.MaxRetries,
	})
}

// openStore opens the content store and vector index from config.
func openStore(cfg *config.Config) (*store.SQLiteStore, *store.HNSWIndex, error) {
	cs, err := store.NewSQLiteStore(store.SQLiteConfig{
		Path:             cfg.Store.Path,
		CacheMB:          cfg.Store.CacheMB,
		NewsWeight:       cfg.Search.NewsWeight,
		ArticleWeight:    cfg.Search.ArticleWeight,
		RecencyBoostDays: cfg.Search.RecencyBoostDays,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("open content store: %w", err)
	}

	index, err := store.NewHNSWIndex(store.HNSWConfig{Dimensions: cfg.Embedding.Dimensions})
	if err != nil {
		cs.Close()
		return nil, nil, fmt.Errorf("create vector index: %w", err)
	}
	return cs, index, nil
}

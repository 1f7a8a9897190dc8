package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Hino9LLC/newsearch/internal/config"
	"github.com/Hino9LLC/newsearch/internal/logging"
	"github.com/Hino9LLC/newsearch/internal/search"
	"github.com/Hino9LLC/newsearch/internal/store"
)

// searchOptions holds CLI flags for one-shot search.
type searchOptions struct {
	strategy string
	page     int
	pageSize int
	format   string // "text", "json"
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the news store from the command line",
		Long: `Run a one-shot search against the local store.

Examples:
  newsearch search "wildfire evacuation"
  newsearch search "rate hike" --type lexical --page 2
  newsearch search "housing policy" --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runSearch(cmd.Context(), cmd, query, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.strategy, "type", "t", "hybrid", "Search strategy: hybrid, lexical, vector")
	cmd.Flags().IntVarP(&opts.page, "page", "p", 1, "Result page (1-indexed)")
	cmd.Flags().IntVarP(&opts.pageSize, "limit", "n", 10, "Results per page")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, opts searchOptions) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	// Logs go to stderr or the configured file; stdout is for results.
	logCfg := logging.Config{Level: cfg.Log.Level, FilePath: cfg.Log.FilePath}
	logger, cleanup, err := logging.Setup(logCfg)
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

	if _, _, err := store.SyncFromStore(ctx, index, cs); err != nil {
		return fmt.Errorf("rebuild vector index: %w", err)
	}

	engine := search.NewEngine(cs, index, embedder, nil, nil, logger, search.EngineConfig{
		RRFConstant:    cfg.Search.RRFConstant,
		CandidateLimit: cfg.Search.CandidateLimit,
	})

	page, err := engine.Search(ctx, search.Request{
		Query:    query,
		Strategy: search.NormalizeStrategy(opts.strategy),
		Page:     opts.page,
		PageSize: opts.pageSize,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(page)
	}

	if len(page.Results) == 0 {
		fmt.Fprintln(out, "No results.")
		return nil
	}
	if page.Degraded {
		fmt.Fprintln(out, "(embedding endpoint unavailable, lexical results only)")
	}
	for i, r := range page.Results {
		rank := (page.Page-1)*page.PageSize + i + 1
		fmt.Fprintf(out, "%2d. [%.3f] %s\n", rank, r.Score, r.Title)
		if r.URL != "" {
			fmt.Fprintf(out, "    %s\n", r.URL)
		}
	}
	fmt.Fprintf(out, "\n%d results (page %d/%d, %dms)\n", page.Total, page.Page, page.TotalPages, page.Took)
	return nil
}

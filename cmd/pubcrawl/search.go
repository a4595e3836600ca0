package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/henrybloomingdale/pubcrawl/internal/config"
	"github.com/henrybloomingdale/pubcrawl/internal/output"
	"github.com/henrybloomingdale/pubcrawl/internal/pipeline"
)

// searchCmd implements the search subcommand.
var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Collect PubMed identifiers for the configured keywords",
	Long: `Search PubMed once per configured keyword within the mindate..maxdate
publication window and write the de-duplicated identifiers, one per line, to
the ids file. A keyword whose search fails is logged and skipped.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.ValidateSearch(); err != nil {
			return err
		}

		if cfg.HasAPIKey() {
			logger.Info("using NCBI API key", zap.Int("rate_per_second", 10))
		} else {
			logger.Info("no NCBI API key, rate limited", zap.Int("rate_per_second", 3))
		}
		if cfg.OverBudget() {
			hint := "reduce the keyword list"
			if !cfg.HasAPIKey() {
				hint = "add an NCBI API key"
			}
			logger.Warn("more keywords than recommended",
				zap.Int("keywords", len(cfg.SearchKeywords)),
				zap.Int("limit", cfg.KeywordBudget()),
				zap.String("hint", hint))
		}

		report, err := pipeline.CollectIDs(cmd.Context(), newEutilsClient(), pipeline.SearchRequest{
			Keywords: cfg.SearchKeywords,
			MinDate:  cfg.MinDate,
			MaxDate:  cfg.MaxDate,
		}, logger)
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}

		if err := output.WriteIDList(cfg.IDsFile, report.IDs); err != nil {
			return err
		}
		return output.WriteSearchSummary(cmd.OutOrStdout(), report.Hits, len(report.IDs), cfg.IDsFile)
	},
}

func init() {
	searchCmd.Flags().String("ids", config.DefaultIDsFile, "file to write PubMed identifiers to")
}

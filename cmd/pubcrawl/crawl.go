package main

import (
	"github.com/spf13/cobra"

	"github.com/henrybloomingdale/pubcrawl/internal/config"
	"github.com/henrybloomingdale/pubcrawl/internal/ncbi"
	"github.com/henrybloomingdale/pubcrawl/internal/output"
	"github.com/henrybloomingdale/pubcrawl/internal/pipeline"
)

// crawlCmd implements the crawl subcommand.
var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Fetch metadata and write Markdown and HTML documents",
	Long: `Read PubMed identifiers from the ids file and fetch each article once. Every
article found is written as <id>.md and <id>.html in the output directory and
listed in eligible_ids.txt; identifiers that cannot be resolved go to
failed_ids.txt. With --link-filter, articles linking to a code host are also
written as link_<id>.md and link_<id>.html and listed in link_ids.txt.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.ValidateCrawl(); err != nil {
			return err
		}

		// One lookup per identifier: a 429 is a failure, not a retry.
		client := newEutilsClient(ncbi.WithMaxRetries(0))
		crawler := pipeline.NewCrawler(client, logger)

		sets, err := crawler.Run(cmd.Context(), pipeline.CrawlOptions{
			IDsFile:     cfg.IDsFile,
			OutputDir:   cfg.OutputDir,
			LinkFilter:  cfg.LinkFilter,
			Workers:     cfg.Workers,
			RISFile:     cfg.RISFile,
			MetricsFile: cfg.MetricsFile,
		})
		if err != nil {
			return err
		}
		return output.WriteCrawlSummary(cmd.OutOrStdout(), sets, cfg.OutputDir)
	},
}

func init() {
	f := crawlCmd.Flags()
	f.String("ids", config.DefaultIDsFile, "file with one PubMed identifier per line")
	f.String("out", config.DefaultOutputDir, "output directory")
	f.Bool("link-filter", true, "also emit link_ documents for articles linking to a code host")
	f.Int("workers", config.DefaultWorkers, "concurrent fetches (results keep input order)")
	f.String("ris", "", "also export successful records to this RIS file")
	f.String("metrics-file", "", "write Prometheus metrics for the run to this file")
}

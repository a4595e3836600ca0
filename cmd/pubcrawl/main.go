// Command pubcrawl collects PubMed identifiers for a set of keywords and
// turns each article's metadata into a Markdown and an HTML document.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/henrybloomingdale/pubcrawl/internal/config"
	"github.com/henrybloomingdale/pubcrawl/internal/eutils"
	"github.com/henrybloomingdale/pubcrawl/internal/ncbi"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	flagConfig    string
	flagEutilsURL string

	// Resolved for each invocation in PersistentPreRunE.
	cfg    = config.Default()
	logger = zap.NewNop()
)

// flagKeys maps command-line flags onto config keys.
var flagKeys = map[string]string{
	"log-level":    config.KeyLogLevel,
	"api-key":      config.KeyAPIKey,
	"email":        config.KeyEmail,
	"ids":          config.KeyIDsFile,
	"out":          config.KeyOutputDir,
	"link-filter":  config.KeyLinkFilter,
	"workers":      config.KeyWorkers,
	"ris":          config.KeyRISFile,
	"metrics-file": config.KeyMetricsFile,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "pubcrawl",
	Short: "Collect PubMed articles into Markdown and HTML",
	Long: `pubcrawl searches PubMed for a list of keywords, then fetches the metadata of
every article found and writes it as a Markdown document for machine parsing
and an HTML page for reading. Articles whose text links to a code repository
can be written a second time under a link_ prefix.

Settings come from flags, PUBCRAWL_* environment variables, a .env file and
pubcrawl.yaml (or .json) in the working directory or ~/.config/pubcrawl.`,
	Version:      version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup(cmd)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "config file (default: ./pubcrawl.yaml or ~/.config/pubcrawl/pubcrawl.yaml)")
	pf.String("log-level", config.DefaultLogLevel, "log level: debug, info, warn, error")
	pf.String("api-key", "", "NCBI API key (or set NCBI_API_KEY env var)")
	pf.String("email", "", "contact email sent to NCBI with every request")
	pf.StringVar(&flagEutilsURL, "eutils-url", ncbi.DefaultBaseURL, "E-utilities base URL")
	_ = pf.MarkHidden("eutils-url")

	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(crawlCmd)
	rootCmd.AddCommand(configCmd)
}

// setup loads .env, the config file, flags and environment into cfg and
// builds the logger.
func setup(cmd *cobra.Command) error {
	if err := loadDotEnv(".env"); err != nil {
		return err
	}

	v := viper.New()
	config.SetDefaults(v)
	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("binding flag --%s: %w", name, err)
			}
		}
	}

	used, err := config.ReadFile(v, flagConfig)
	if err != nil {
		return err
	}
	cfg = config.Load(v)

	l, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger = l
	if used != "" {
		logger.Info("using config file", zap.String("path", used))
	}
	return nil
}

// loadDotEnv loads path into the environment without overriding variables
// that are already set. A missing file is fine.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("%w: loading %s: %v", config.ErrInvalid, path, err)
	}
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("%w: log_level: %v", config.ErrInvalid, err)
	}

	zc := zap.NewProductionConfig()
	zc.Level = lvl
	zc.Encoding = "console"
	zc.Sampling = nil
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	return zc.Build()
}

func newEutilsClient(opts ...ncbi.Option) *eutils.Client {
	base := []ncbi.Option{
		ncbi.WithBaseURL(flagEutilsURL),
		ncbi.WithEmail(cfg.Email),
		ncbi.WithLogger(logger),
	}
	if cfg.APIKey != "" {
		base = append(base, ncbi.WithAPIKey(cfg.APIKey))
	}
	return eutils.NewClient(append(base, opts...)...)
}

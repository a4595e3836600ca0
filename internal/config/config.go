// Package config loads pubcrawl settings from flags, environment, .env and
// an optional YAML or JSON config file, and validates them before any stage
// runs. Validation errors are fatal: nothing is fetched or written.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"
)

// Keys understood by the config file and the PUBCRAWL_ environment.
const (
	KeyEmail          = "email"
	KeyAPIKey         = "ncbi_api_key"
	KeySearchKeywords = "search_keywords"
	KeyMinDate        = "mindate"
	KeyMaxDate        = "maxdate"
	KeyIDsFile        = "ids_file"
	KeyOutputDir      = "output_dir"
	KeyLinkFilter     = "link_filter"
	KeyWorkers        = "workers"
	KeyRISFile        = "ris_file"
	KeyMetricsFile    = "metrics_file"
	KeyLogLevel       = "log_level"

	keyLegacyAPIKey = "ncbi_api"

	// EnvPrefix namespaces environment overrides, e.g. PUBCRAWL_EMAIL.
	EnvPrefix = "PUBCRAWL"
	// FileName is the config file name searched for, without extension.
	FileName = "pubcrawl"
)

// Defaults.
const (
	DefaultIDsFile   = "pubmed_ids.txt"
	DefaultOutputDir = "output"
	DefaultWorkers   = 1
	DefaultLogLevel  = "info"
	MaxWorkers       = 10

	// Keyword budgets per NCBI rate tier.
	KeywordsWithKey    = 10
	KeywordsWithoutKey = 3
)

// ErrInvalid marks configuration that must abort the run.
var ErrInvalid = errors.New("invalid configuration")

var (
	datePattern = regexp.MustCompile(`^[0-9]{4}(/[0-9]{2}(/[0-9]{2})?)?$`)

	placeholderKeys = map[string]bool{
		"":                           true,
		"your_api_key_here_optional": true,
		"optional":                   true,
	}
)

// Config is the resolved configuration for one invocation.
type Config struct {
	Email          string   `yaml:"email" json:"email"`
	APIKey         string   `yaml:"ncbi_api_key" json:"ncbi_api_key"`
	SearchKeywords []string `yaml:"search_keywords" json:"search_keywords"`
	MinDate        string   `yaml:"mindate" json:"mindate"`
	MaxDate        string   `yaml:"maxdate" json:"maxdate"`
	IDsFile        string   `yaml:"ids_file" json:"ids_file"`
	OutputDir      string   `yaml:"output_dir" json:"output_dir"`
	LinkFilter     bool     `yaml:"link_filter" json:"link_filter"`
	Workers        int      `yaml:"workers" json:"workers"`
	RISFile        string   `yaml:"ris_file,omitempty" json:"ris_file,omitempty"`
	MetricsFile    string   `yaml:"metrics_file,omitempty" json:"metrics_file,omitempty"`
	LogLevel       string   `yaml:"log_level" json:"log_level"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		SearchKeywords: []string{},
		IDsFile:        DefaultIDsFile,
		OutputDir:      DefaultOutputDir,
		LinkFilter:     true,
		Workers:        DefaultWorkers,
		LogLevel:       DefaultLogLevel,
	}
}

// SetDefaults registers defaults and environment bindings on v.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault(KeyIDsFile, d.IDsFile)
	v.SetDefault(KeyOutputDir, d.OutputDir)
	v.SetDefault(KeyLinkFilter, d.LinkFilter)
	v.SetDefault(KeyWorkers, d.Workers)
	v.SetDefault(KeyLogLevel, d.LogLevel)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	// NCBI_API_KEY is the name NCBI documents; PUBCRAWL_NCBI_API_KEY also works.
	_ = v.BindEnv(KeyAPIKey, EnvPrefix+"_NCBI_API_KEY", "NCBI_API_KEY")
}

// ReadFile points v at path, or at pubcrawl.{yaml,json} in the working
// directory or ~/.config/pubcrawl when path is empty, and reads it. A missing
// file is not an error unless path was given explicitly. It returns the file
// that was used, if any.
func ReadFile(v *viper.Viper, path string) (string, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(FileName)
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", FileName))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			return "", nil
		}
		return "", fmt.Errorf("%w: reading config file: %v", ErrInvalid, err)
	}
	return v.ConfigFileUsed(), nil
}

// Load resolves a Config from v.
func Load(v *viper.Viper) *Config {
	c := &Config{
		Email:          strings.TrimSpace(v.GetString(KeyEmail)),
		APIKey:         normalizeAPIKey(v.GetString(KeyAPIKey)),
		SearchKeywords: stringList(v, KeySearchKeywords),
		MinDate:        strings.TrimSpace(v.GetString(KeyMinDate)),
		MaxDate:        strings.TrimSpace(v.GetString(KeyMaxDate)),
		IDsFile:        strings.TrimSpace(v.GetString(KeyIDsFile)),
		OutputDir:      strings.TrimSpace(v.GetString(KeyOutputDir)),
		LinkFilter:     v.GetBool(KeyLinkFilter),
		Workers:        v.GetInt(KeyWorkers),
		RISFile:        strings.TrimSpace(v.GetString(KeyRISFile)),
		MetricsFile:    strings.TrimSpace(v.GetString(KeyMetricsFile)),
		LogLevel:       strings.TrimSpace(v.GetString(KeyLogLevel)),
	}
	if c.APIKey == "" {
		// Older search configs spelled the key NCBI_api.
		c.APIKey = normalizeAPIKey(v.GetString(keyLegacyAPIKey))
	}
	return c
}

// normalizeAPIKey maps template placeholders to "no key".
func normalizeAPIKey(key string) string {
	key = strings.TrimSpace(key)
	if placeholderKeys[strings.ToLower(key)] {
		return ""
	}
	return key
}

// stringList reads a list value. Strings from the environment are split on
// commas so keywords may contain spaces.
func stringList(v *viper.Viper, key string) []string {
	var raw []string
	if s, ok := v.Get(key).(string); ok {
		raw = strings.Split(s, ",")
	} else {
		raw = v.GetStringSlice(key)
	}

	out := []string{}
	for _, item := range raw {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// HasAPIKey reports whether a real API key is configured.
func (c *Config) HasAPIKey() bool {
	return c.APIKey != ""
}

// KeywordBudget is the number of keywords NCBI's rate tier comfortably allows.
func (c *Config) KeywordBudget() int {
	if c.HasAPIKey() {
		return KeywordsWithKey
	}
	return KeywordsWithoutKey
}

// OverBudget reports whether more keywords are configured than the budget.
func (c *Config) OverBudget() bool {
	return len(c.SearchKeywords) > c.KeywordBudget()
}

// ValidateSearch checks the settings the search stage needs.
func (c *Config) ValidateSearch() error {
	var problems []string
	if len(c.SearchKeywords) == 0 {
		problems = append(problems, KeySearchKeywords+" is empty")
	}
	if c.Email == "" {
		problems = append(problems, KeyEmail+" is required by NCBI")
	}
	if c.MinDate == "" || c.MaxDate == "" {
		problems = append(problems, "both "+KeyMinDate+" and "+KeyMaxDate+" are required (YYYY, YYYY/MM or YYYY/MM/DD)")
	} else {
		for _, d := range []struct{ key, val string }{{KeyMinDate, c.MinDate}, {KeyMaxDate, c.MaxDate}} {
			if !datePattern.MatchString(d.val) {
				problems = append(problems, fmt.Sprintf("%s %q is not YYYY, YYYY/MM or YYYY/MM/DD", d.key, d.val))
			}
		}
	}
	if c.IDsFile == "" {
		problems = append(problems, KeyIDsFile+" is empty")
	}
	return joinProblems(problems)
}

// ValidateCrawl checks the settings the fetch and render stage needs.
func (c *Config) ValidateCrawl() error {
	var problems []string
	if c.IDsFile == "" {
		problems = append(problems, KeyIDsFile+" is empty")
	}
	if c.OutputDir == "" {
		problems = append(problems, KeyOutputDir+" is empty")
	}
	if c.Workers < 1 || c.Workers > MaxWorkers {
		problems = append(problems, fmt.Sprintf("%s must be between 1 and %d, got %d", KeyWorkers, MaxWorkers, c.Workers))
	}
	return joinProblems(problems)
}

func joinProblems(problems []string) error {
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
}

// WriteDefault writes a starter config file to path. It refuses to replace an
// existing file unless force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}

	c := Default()
	c.Email = "you@example.org"
	c.APIKey = "your_api_key_here_optional"
	c.SearchKeywords = []string{"deep learning", "single-cell RNA-seq"}
	c.MinDate = "2024/01/01"
	c.MaxDate = "2024/12/31"

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling default config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
	}
	return os.WriteFile(path, data, 0o644)
}

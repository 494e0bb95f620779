// Package cmd provides the command-line interface for ShopTadoru.
// It handles flag parsing, configuration loading and runs the scraper.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/masahif/shoptadoru/internal/config"
	"github.com/masahif/shoptadoru/internal/fetch"
	"github.com/masahif/shoptadoru/internal/logging"
	"github.com/masahif/shoptadoru/internal/metrics"
	"github.com/masahif/shoptadoru/internal/scraper"
	"github.com/masahif/shoptadoru/internal/sheet"
	"github.com/masahif/shoptadoru/internal/storage"
)

const (
	appName   = "shoptadoru"
	envPrefix = "ST"
)

// Exit statuses
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitInterrupted = 130
)

// ErrInvalidURL is returned when the seed is not an absolute http(s) URL
var ErrInvalidURL = errors.New("URL must be an absolute http or https URL")

// application holds one command tree with its own viper instance
type application struct {
	cmd     *cobra.Command
	v       *viper.Viper
	cfgFile string
	lang    string
}

var app = newApplication()

// Execute runs the root command with the process arguments
func Execute(ctx context.Context, args []string) error {
	return app.execute(ctx, args)
}

// SetVersionInfo sets version information for the CLI
func SetVersionInfo(version, buildTime string) {
	app.cmd.Version = fmt.Sprintf("%s (built %s)", version, buildTime)
}

// ExitCode maps a run error to the process exit status
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, context.Canceled):
		return ExitInterrupted
	default:
		return ExitFailure
	}
}

func newApplication() *application {
	a := &application{
		v:    viper.New(),
		lang: config.LangEN,
	}

	a.cmd = &cobra.Command{
		Use:   appName + " [flags] URL",
		Short: "Collect product data from a shop page into an Excel workbook",
		Long: `ShopTadoru fetches a product page or a catalog listing, extracts product
data (JSON-LD, OpenGraph or DOM heuristics) and appends it to an .xlsx file.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initConfig()
		},
		RunE: a.run,
	}

	defaults := config.DefaultConfig()
	flags := a.cmd.Flags()

	a.cmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is ./shoptadoru.yml or $XDG_CONFIG_HOME/shoptadoru/shoptadoru.yml)")
	flags.Bool("show-config", false, "Display current configuration in YAML format and exit")

	flags.StringP("out", "o", defaults.OutputPath, "Path to the output workbook")
	flags.StringP("template", "t", defaults.TemplatePath, "Path to a template workbook (optional)")
	flags.IntP("limit", "l", defaults.Limit, "Maximum number of products to extract")
	flags.Float64P("delay", "d", defaults.RequestDelay, "Delay before each product request in seconds")
	flags.StringP("user-agent", "u", defaults.UserAgent, "HTTP User-Agent header")
	flags.StringSliceP("header", "H", defaults.Headers, "Custom HTTP headers in 'Name: Value' format (use multiple times for multiple headers)")
	flags.IntP("retries", "r", defaults.Retries, "Retry count for transient HTTP errors")
	flags.Duration("timeout", defaults.RequestTimeout, "HTTP request timeout")
	flags.String("lang", defaults.Lang, "Messages language: en or ru")
	flags.Bool("respect-robots", defaults.RespectRobots, "Skip product links disallowed by robots.txt")
	flags.String("history", defaults.HistoryPath, "Record runs in this SQLite database (optional)")
	flags.String("metrics-file", defaults.MetricsFile, "Write Prometheus metrics to this file (optional)")
	flags.String("log-level", defaults.LogLevel, "Log level: debug, info, warn, error")
	flags.String("log-file", defaults.LogFile, "Also write JSON logs to this file")

	bindFlags := []struct {
		viperKey string
		flagName string
	}{
		{"out", "out"},
		{"template", "template"},
		{"limit", "limit"},
		{"delay", "delay"},
		{"user_agent", "user-agent"},
		{"headers", "header"},
		{"retries", "retries"},
		{"timeout", "timeout"},
		{"lang", "lang"},
		{"respect_robots", "respect-robots"},
		{"history", "history"},
		{"metrics_file", "metrics-file"},
		{"log_level", "log-level"},
		{"log_file", "log-file"},
	}

	for _, bind := range bindFlags {
		// Lookup cannot fail for flags registered above
		_ = a.v.BindPFlag(bind.viperKey, flags.Lookup(bind.flagName))
	}

	return a
}

func (a *application) execute(ctx context.Context, args []string) error {
	a.cmd.SetArgs(args)
	err := a.cmd.ExecuteContext(ctx)
	if err == nil {
		return nil
	}

	p := newPrinter(a.lang)
	if ExitCode(err) == ExitInterrupted {
		_, _ = p.Fprintln(a.cmd.ErrOrStderr(), p.Sprintf(msgInterrupted))
	} else {
		_, _ = p.Fprintln(a.cmd.ErrOrStderr(), p.Sprintf(msgError, err))
	}
	return err
}

// initConfig reads .env, the config file and environment variables
func (a *application) initConfig() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		a.v.AddConfigPath(".")
		a.v.AddConfigPath(filepath.Join(xdg.ConfigHome, appName))
		a.v.SetConfigType("yaml")
		a.v.SetConfigName(appName)
	}

	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	a.v.AutomaticEnv()

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if a.cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		_, _ = fmt.Fprintf(a.cmd.ErrOrStderr(), "Using config file: %s\n", a.v.ConfigFileUsed())
	}

	return nil
}

// loadConfig merges defaults, config file, environment and flags
func (a *application) loadConfig() (*config.ScrapeConfig, error) {
	cfg := config.DefaultConfig()
	if err := a.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.Lang == config.LangEN || cfg.Lang == config.LangRU {
		a.lang = cfg.Lang
	}
	return cfg, nil
}

func (a *application) run(cmd *cobra.Command, args []string) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	if showConfig, _ := cmd.Flags().GetBool("show-config"); showConfig {
		return a.showCurrentConfig(cmd.OutOrStdout(), cfg)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if len(args) != 1 {
		return fmt.Errorf("exactly one URL is required\nUsage: %s", cmd.UseLine())
	}
	seedURL, err := parseSeedURL(args[0])
	if err != nil {
		return err
	}

	logConfig := logging.DefaultConfig()
	logConfig.Level = logging.ParseLevel(cfg.LogLevel)
	logConfig.FilePath = cfg.LogFile
	logConfig.Console = cmd.ErrOrStderr()
	logCloser, err := logging.SetDefault(*logConfig)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer func() { _ = logCloser.Close() }()

	summary, err := a.scrape(cmd.Context(), cmd.OutOrStdout(), cfg, seedURL)
	if err != nil {
		return err
	}

	p := newPrinter(cfg.Lang)
	_, _ = p.Fprintln(cmd.OutOrStdout(), p.Sprintf(msgSuccess, num(summary.ProductCount())))
	_, _ = p.Fprintln(cmd.OutOrStdout(), p.Sprintf(msgFile, summary.OutputPath))
	return nil
}

// scrape builds the scraper from cfg and runs it
func (a *application) scrape(ctx context.Context, out io.Writer, cfg *config.ScrapeConfig, seedURL string) (*scraper.Summary, error) {
	headers, err := cfg.HeaderMap()
	if err != nil {
		return nil, err
	}

	client, err := fetch.NewHTTPClient(fetch.Config{
		UserAgent:      cfg.UserAgent,
		Timeout:        cfg.RequestTimeout,
		Retries:        cfg.Retries,
		BackoffFactor:  fetch.DefaultBackoffFactor,
		MaxBackoff:     fetch.DefaultMaxBackoff,
		Headers:        headers,
		AcceptLanguage: cfg.AcceptLanguage(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}
	defer client.Close()

	options := []scraper.Option{
		scraper.WithReporter(newProgressReporter(out, cfg.Lang)),
	}

	if cfg.MetricsFile != "" {
		collector := metrics.New()
		client.SetRetryObserver(collector)
		options = append(options, scraper.WithMetrics(collector))
		defer func() {
			if err := collector.WriteTextfile(cfg.MetricsFile); err != nil {
				slog.Error("Failed to write metrics", "path", cfg.MetricsFile, "error", err)
			}
		}()
	}

	if cfg.RespectRobots {
		options = append(options, scraper.WithRobots(fetch.NewRobotsPolicy(client, cfg.UserAgent)))
	}

	if cfg.HistoryPath != "" {
		journal, err := storage.NewSQLiteJournal(cfg.HistoryPath)
		if err != nil {
			slog.Error("Run history disabled", "path", cfg.HistoryPath, "error", err)
		} else {
			defer func() { _ = journal.Close() }()
			options = append(options, scraper.WithJournal(journal))
		}
	}

	s, err := scraper.New(scraper.Options{
		Limit:        cfg.Limit,
		Delay:        cfg.Delay(),
		OutputPath:   cfg.OutputPath,
		TemplatePath: cfg.TemplatePath,
	}, client, sheet.NewWriter(cfg.Lang), options...)
	if err != nil {
		return nil, err
	}

	return s.Run(ctx, seedURL)
}

// parseSeedURL accepts absolute http and https URLs only
func parseSeedURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	return u.String(), nil
}

func (a *application) showCurrentConfig(out io.Writer, cfg *config.ScrapeConfig) error {
	if err := cfg.Validate(); err != nil {
		_, _ = fmt.Fprintf(a.cmd.ErrOrStderr(), "Warning: Configuration validation failed: %v\n", err)
		_, _ = fmt.Fprintf(a.cmd.ErrOrStderr(), "Displaying configuration anyway...\n\n")
	}

	yamlData, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration to YAML: %w", err)
	}

	source := a.v.ConfigFileUsed()
	if source == "" {
		source = "(none)"
	}

	_, _ = fmt.Fprintf(out, "# Current ShopTadoru Configuration\n")
	_, _ = fmt.Fprintf(out, "# Generated at: %s\n", time.Now().Format(time.RFC3339))
	_, _ = fmt.Fprintf(out, "# Configuration file: %s\n", source)
	_, _ = fmt.Fprintf(out, "# Environment variables prefix: %s_\n\n", envPrefix)
	_, _ = fmt.Fprint(out, string(yamlData))

	_, _ = fmt.Fprintf(out, "\n# Configuration source priority:\n")
	_, _ = fmt.Fprintf(out, "# 1. Command-line arguments (highest priority)\n")
	_, _ = fmt.Fprintf(out, "# 2. Environment variables (%s_ prefix, .env supported)\n", envPrefix)
	_, _ = fmt.Fprintf(out, "# 3. Configuration file (%s.yml)\n", appName)
	_, _ = fmt.Fprintf(out, "# 4. Default values (lowest priority)\n")

	return nil
}

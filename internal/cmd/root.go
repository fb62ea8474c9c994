// Package cmd provides the command-line interface for PoliteCrawl.
// It handles command parsing, configuration loading, and crawl execution.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/masahif/politecrawl/internal/config"
	"github.com/masahif/politecrawl/internal/crawler"
	"github.com/masahif/politecrawl/internal/fetcher"
	"github.com/masahif/politecrawl/internal/logging"
	"github.com/masahif/politecrawl/internal/robots"
	"github.com/masahif/politecrawl/internal/sitemap"
	"github.com/masahif/politecrawl/internal/storage"
	"github.com/masahif/politecrawl/internal/urlscope"
)

const (
	appName   = "politecrawl"
	envPrefix = "PC"
)

var (
	cfgFile   string
	version   string
	buildTime string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "politecrawl [start-url]",
	Short: "A polite, single-domain, breadth-first web crawler",
	Long: `PoliteCrawl visits the pages of one site in breadth-first order.

It paces its requests, stays on the start URL's host, and reports the
title, visible text length and link count of every page it fetches.
Crawl only sites you are allowed to crawl.`,
	Args:          cobra.MaximumNArgs(1),
	RunE:          runCrawler,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with ctx, so cancelling ctx stops the crawl.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// SetVersionInfo sets version information for the CLI
func SetVersionInfo(v, bt string) {
	version = v
	buildTime = bt
	rootCmd.Version = fmt.Sprintf("%s (built %s)", version, buildTime)
}

func init() {
	cobra.OnInitialize(initConfig)

	defaults := config.DefaultConfig()

	// Configuration file flag
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./politecrawl.yml or $XDG_CONFIG_HOME/politecrawl/politecrawl.yml)")

	// Configuration management flags
	rootCmd.Flags().Bool("show-config", false, "Display current configuration in YAML format and exit")

	// Crawl flags
	rootCmd.Flags().IntP("max-pages", "n", defaults.MaxPages, "Stop after N successfully fetched pages")
	rootCmd.Flags().DurationP("delay", "r", defaults.Delay, "Pause between requests")
	rootCmd.Flags().DurationP("timeout", "t", defaults.RequestTimeout, "HTTP request timeout")
	rootCmd.Flags().Duration("robots-timeout", defaults.RobotsTimeout, "robots.txt request timeout")
	rootCmd.Flags().StringP("user-agent", "u", defaults.UserAgent, "HTTP User-Agent header")
	rootCmd.Flags().Bool("check-robots", defaults.CheckRobots, "Fetch and report robots.txt (advisory only)")
	rootCmd.Flags().Bool("skip-failed", defaults.SkipFailed, "Never retry a URL whose fetch failed")

	// Output flags
	rootCmd.Flags().StringP("sitemap", "o", "", "Write a sitemap to this file")
	rootCmd.Flags().String("sitemap-format", defaults.SitemapFormat, "Sitemap format: 'text' or 'markdown'")
	rootCmd.Flags().StringP("database", "d", "", "Archive results in this SQLite database")
	rootCmd.Flags().Bool("progress", false, "Show a progress spinner")

	// Logging flags
	rootCmd.Flags().String("log-level", defaults.Log.Level, "Log level: debug, info, warn, error")
	rootCmd.Flags().String("log-format", defaults.Log.Format, "Log format: 'text' or 'json'")
	rootCmd.Flags().String("log-file", "", "Also write logs to this file (rotated by size)")

	bindFlags := []struct {
		viperKey string
		flagName string
	}{
		{"max_pages", "max-pages"},
		{"delay", "delay"},
		{"request_timeout", "timeout"},
		{"robots_timeout", "robots-timeout"},
		{"user_agent", "user-agent"},
		{"check_robots", "check-robots"},
		{"skip_failed", "skip-failed"},
		{"sitemap_path", "sitemap"},
		{"sitemap_format", "sitemap-format"},
		{"database_path", "database"},
		{"progress", "progress"},
		{"log.level", "log-level"},
		{"log.format", "log-format"},
		{"log.file", "log-file"},
	}

	for _, bind := range bindFlags {
		if err := viper.BindPFlag(bind.viperKey, rootCmd.Flags().Lookup(bind.flagName)); err != nil {
			// Log the error but continue - non-critical for operation
			fmt.Fprintf(os.Stderr, "Warning: failed to bind flag %s: %v\n", bind.flagName, err)
		}
	}

	// Keys without flags still need to be known to viper for env lookups
	viper.SetDefault("start_url", "")
	viper.SetDefault("log.max_size_mb", defaults.Log.MaxSizeMB)
	viper.SetDefault("log.max_backups", defaults.Log.MaxBackups)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath(filepath.Join(xdg.ConfigHome, appName))
		viper.SetConfigType("yaml")
		viper.SetConfigName(appName)
	}

	viper.AutomaticEnv() // read in environment variables that match
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

func generateUserAgent() string {
	if version != "" && version != "dev" {
		return fmt.Sprintf("PoliteCrawl/%s (+educational crawler)", version)
	}
	return config.DefaultUserAgent
}

func showCurrentConfig(w io.Writer, cfg *config.CrawlConfig) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	// Validate configuration before showing it
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Configuration validation failed: %v\n", err)
		fmt.Fprintf(os.Stderr, "Displaying configuration anyway...\n\n")
	}

	yamlData, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration to YAML: %w", err)
	}

	fmt.Fprintf(w, "# Current PoliteCrawl Configuration\n")
	fmt.Fprintf(w, "# Generated at: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(w, "# Configuration file search paths: ./%s.yml, %s\n", appName, filepath.Join(xdg.ConfigHome, appName, appName+".yml"))
	fmt.Fprintf(w, "# Environment variables prefix: %s_\n\n", envPrefix)

	fmt.Fprint(w, string(yamlData))

	fmt.Fprintf(w, "\n# Configuration source priority:\n")
	fmt.Fprintf(w, "# 1. Command-line arguments (highest priority)\n")
	fmt.Fprintf(w, "# 2. Environment variables (%s_ prefix)\n", envPrefix)
	fmt.Fprintf(w, "# 3. Configuration file (%s.yml)\n", appName)
	fmt.Fprintf(w, "# 4. Default values (lowest priority)\n")

	return nil
}

// loadConfig merges defaults, viper sources and the positional start URL.
func loadConfig(cmd *cobra.Command, args []string) (*config.CrawlConfig, error) {
	cfg := config.DefaultConfig()

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if len(args) > 0 {
		cfg.StartURL = args[0]
	}

	// Update User-Agent with dynamic version if not explicitly set
	if !cmd.Flags().Changed("user-agent") && cfg.UserAgent == config.DefaultUserAgent {
		cfg.UserAgent = generateUserAgent()
	}

	return cfg, nil
}

func runCrawler(cmd *cobra.Command, args []string) error {
	showConfig, _ := cmd.Flags().GetBool("show-config")

	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}

	// Handle --show-config: display current configuration and exit
	if showConfig {
		return showCurrentConfig(cmd.OutOrStdout(), cfg)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logCloser, err := logging.SetDefault(logging.Config{
		Level:      consoleLevel(cfg),
		Format:     cfg.Log.Format,
		FilePath:   cfg.Log.File,
		MaxSize:    cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		Console:    true,
		Writer:     cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer func() { _ = logCloser.Close() }()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Starting crawler with configuration:\n")
	fmt.Fprintf(out, "  Start URL: %s\n", cfg.StartURL)
	fmt.Fprintf(out, "  Max pages: %d\n", cfg.MaxPages)
	fmt.Fprintf(out, "  Delay: %v\n", cfg.Delay)
	fmt.Fprintf(out, "  User-Agent: %s\n", cfg.UserAgent)
	if cfg.DatabasePath != "" {
		fmt.Fprintf(out, "  Database: %s\n", cfg.DatabasePath)
	}

	client := fetcher.NewHTTPClient(cfg.UserAgent, cfg.RequestTimeout)
	defer client.Close()

	observers := crawler.MultiObserver{crawler.LogObserver{}}

	var (
		store    *storage.SQLiteStorage
		recorder *storage.Recorder
	)
	if cfg.DatabasePath != "" {
		store, err = openStorage(cfg.DatabasePath)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		domain, err := urlscope.Domain(cfg.StartURL)
		if err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		recorder = storage.NewRecorder(store, storage.RunInfo{
			StartURL:  cfg.StartURL,
			Domain:    domain,
			MaxPages:  cfg.MaxPages,
			Delay:     cfg.Delay,
			UserAgent: cfg.UserAgent,
		})
		observers = append(observers, recorder)
	}

	if cfg.Progress {
		observers = append(observers, newProgressObserver(cmd.ErrOrStderr()))
	}

	engine, err := crawler.New(cfg, client, crawler.WithObserver(observers))
	if err != nil {
		return fmt.Errorf("failed to initialize crawler: %w", err)
	}

	result, runErr := crawl(cmd.Context(), cfg, engine, client)
	if result == nil {
		return runErr
	}

	printResults(out, result)

	if cfg.SitemapPath != "" {
		if err := sitemap.WriteFile(cfg.SitemapPath, cfg.SitemapFormat, result.Pages, result); err != nil {
			return fmt.Errorf("failed to write sitemap: %w", err)
		}
		slog.Info("Sitemap written", "path", cfg.SitemapPath, "format", cfg.SitemapFormat, "pages", len(result.Pages))
	}

	if recorder != nil && recorder.RunID() != "" {
		if err := store.SetMeta(recorder.RunID(), "version", version); err != nil {
			slog.Warn("Failed to record version", "error", err)
		}
		if cfg.SitemapPath != "" {
			if err := store.SetMeta(recorder.RunID(), "sitemap_path", cfg.SitemapPath); err != nil {
				slog.Warn("Failed to record sitemap path", "error", err)
			}
		}
		slog.Info("Results archived", "database", cfg.DatabasePath, "run_id", recorder.RunID())
	}

	if errors.Is(runErr, context.Canceled) {
		slog.Warn("Crawl interrupted, partial results shown")
	}
	return runErr
}

// crawl runs the advisory robots.txt check, when enabled, and then the
// engine. The check only logs and its timeout bounds it, so it never gates
// the crawl. Running it first keeps a single request in flight.
// consoleLevel returns the configured log level, raised to warn while the
// progress spinner owns stderr.
func consoleLevel(cfg *config.CrawlConfig) slog.Level {
	level := logging.ParseLevel(cfg.Log.Level)
	if cfg.Progress && level < slog.LevelWarn {
		return slog.LevelWarn
	}
	return level
}

func crawl(ctx context.Context, cfg *config.CrawlConfig, engine *crawler.Engine, client *fetcher.HTTPClient) (*crawler.Result, error) {
	if cfg.CheckRobots {
		robots.NewAdvisor(client, cfg.RobotsTimeout).Advise(ctx, cfg.StartURL)
	}
	return engine.Run(ctx)
}

func openStorage(path string) (*storage.SQLiteStorage, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	store, err := storage.NewSQLiteStorage(path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	return store, nil
}

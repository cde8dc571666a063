// Package cmd defines the CLI commands for the projectsync executable.
package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/itakello/projectsync/internal/config"
	"github.com/itakello/projectsync/internal/github"
	"github.com/itakello/projectsync/internal/logging"
	"github.com/itakello/projectsync/internal/notion"
	"github.com/itakello/projectsync/internal/summarize"
)

var cfgFile string

// runtime bundles the configured clients every subcommand works with.
type runtime struct {
	cfg      config.Config
	logger   *zap.Logger
	source   *github.Client
	store    *notion.Client
	enricher *summarize.Enricher
}

// newRuntime loads configuration and wires the clients. A .env file is
// applied best-effort before Viper reads the environment.
func newRuntime() (*runtime, error) {
	_ = godotenv.Load()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	zap.ReplaceGlobals(logger)

	source := github.New(github.Config{
		Owner:    cfg.GitHub.Owner,
		Token:    cfg.GitHub.Token,
		APIBase:  cfg.GitHub.APIBase,
		PageSize: cfg.GitHub.PageSize,
		Timeout:  cfg.HTTPTimeout(),
	}, logger.Named("github"))

	store := notion.New(notion.Config{
		Token:      cfg.Notion.Token,
		DatabaseID: cfg.Notion.DatabaseID,
		APIBase:    cfg.Notion.APIBase,
		Timeout:    cfg.HTTPTimeout(),
	}, logger.Named("notion"))

	llm := summarize.NewLLMClient(summarize.LLMConfig{
		APIKey:         cfg.Summarizer.APIKey,
		Model:          cfg.Summarizer.Model,
		MaxReadmeChars: cfg.Summarizer.MaxReadmeChars,
		MaxTags:        cfg.Summarizer.MaxTags,
		Timeout:        time.Duration(cfg.Summarizer.TimeoutSeconds) * time.Second,
	}, logger.Named("summarizer"))

	return &runtime{
		cfg:      cfg,
		logger:   logger,
		source:   source,
		store:    store,
		enricher: summarize.NewEnricher(llm, logger.Named("enrich")),
	}, nil
}

func (rt *runtime) close() {
	_ = rt.logger.Sync()
}

// requireStore fails fast for commands that write to the remote database.
func (rt *runtime) requireStore() error {
	if !rt.store.Enabled() {
		return fmt.Errorf("notion token and database id must be configured")
	}
	return nil
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projectsync",
		Short: "Keeps a project showcase in sync across GitHub, Notion and a curated list.",
		Long: `projectsync merges a hand-curated project list, the live GitHub repository
listing and a Notion database into one deduplicated, year-grouped showcase,
and keeps the Notion side current from GitHub webhook events.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (environment is always read)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newSyncCmd())
	cmd.AddCommand(newEnrichCmd())
	cmd.AddCommand(newDiffCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

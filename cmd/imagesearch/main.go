package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/anime-shed/image-search-go/internal/config"
	"github.com/anime-shed/image-search-go/internal/container"
	"github.com/anime-shed/image-search-go/internal/logger"
)

var (
	dbPath     string
	dbDriver   string
	workers    int
	outputJSON bool
)

var rootCmd = &cobra.Command{
	Use:   "imagesearch",
	Short: "Catalogue images and search them by computed tags",
	Long: `imagesearch keeps a SQLite catalogue of images. Every registered tagger
owns a column of computed values that can be selected on and ranked by.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "catalogue database path (default $DB_PATH or images.db)")
	rootCmd.PersistentFlags().StringVar(&dbDriver, "driver", "", "database driver: sqlite3 or sqlite")
	rootCmd.PersistentFlags().IntVar(&workers, "workers", -1, "tagging workers (0 = one per CPU)")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "print results as JSON")

	rootCmd.AddCommand(addCmd, queryCmd, getCmd, passCmd, distancesCmd, taggersCmd, serveCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the environment and applies command line overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if dbDriver != "" {
		cfg.DBDriver = dbDriver
	}
	if workers >= 0 {
		cfg.WorkerCount = workers
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// the CLI logs for a human unless LOG_FORMAT says otherwise
	format := cfg.LogFormat
	if os.Getenv("LOG_FORMAT") == "" && cmd.Name() != "serve" {
		format = "text"
	}
	logger.Configure(cfg.LogLevel, format)
	return cfg, nil
}

func openContainer(cmd *cobra.Command) (*container.Container, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	c, err := container.NewContainer(cmd.Context(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize container: %w", err)
	}
	return c, nil
}

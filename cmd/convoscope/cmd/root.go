package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/convolab/convoscope/internal/auth"
	"github.com/convolab/convoscope/internal/config"
	"github.com/convolab/convoscope/internal/conv"
	"github.com/convolab/convoscope/internal/filter"
)

var (
	cfgFile string
	homeDir string
	csvPath string
	verbose bool
	cfg     *config.Config
	logger  *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "convoscope",
	Short: "Conversation log analytics for chat assistants",
	Long: `convoscope loads chat-assistant conversation exports (CSV) and
provides filtering, descriptive statistics, keyword search, an
interactive explorer, an HTTP API, and an LLM-backed question
interface over the loaded data.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}

		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		// Human-readable logs on a terminal, JSON when piped.
		if isatty.IsTerminal(os.Stderr.Fd()) {
			logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		} else {
			logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		}

		var err error
		cfg, err = config.Load(cfgFile, homeDir)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $CONVOSCOPE_HOME/config.toml)")
	rootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "convoscope home directory (default ~/.convoscope)")
	rootCmd.PersistentFlags().StringVar(&csvPath, "csv", "", "conversation export to load (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

// Execute runs the root command with a background context.
// Prefer ExecuteContext for signal-aware execution.
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the root command with the given context,
// enabling graceful shutdown when the context is cancelled.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// loadDataset reads the configured CSV and applies the configured
// minimum date, logging what was loaded.
func loadDataset() (*conv.Dataset, error) {
	path := cfg.CSVPath(csvPath)
	if path == "" {
		return nil, fmt.Errorf("no conversation export configured: pass --csv or set [data] csv_path in %s", cfg.ConfigFilePath())
	}

	ds, err := conv.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	if cfg.Data.MinDate != "" {
		min, err := time.Parse("2006-01-02", cfg.Data.MinDate)
		if err != nil {
			return nil, fmt.Errorf("[data] min_date %q: expected YYYY-MM-DD", cfg.Data.MinDate)
		}
		ds = filter.ApplyMinDate(ds, min)
	}

	logger.Info("dataset loaded",
		"path", path,
		"messages", len(ds.Messages),
		"threads", len(ds.Threads()),
		"dropped", ds.Dropped,
	)
	return ds, nil
}

// userStore builds the login store from config.
func userStore() *auth.Store {
	users := make([]auth.User, 0, len(cfg.Users))
	for _, u := range cfg.Users {
		users = append(users, auth.User{
			Username:     u.Username,
			PasswordHash: u.PasswordHash,
			Role:         auth.Role(u.Role),
		})
	}
	return auth.NewStore(users)
}

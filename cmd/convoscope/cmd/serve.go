package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/convolab/convoscope/internal/api"
	"github.com/convolab/convoscope/internal/intelligence"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Run the analytics API server over the configured conversation export.

The server requires login; configure accounts in config.toml:

  [[users]]
  username = "admin"
  password_hash = "<from: convoscope hash-password>"
  role = "admin"

The intelligence endpoint activates when an OpenAI API key is set via
[intelligence] api_key or the OPENAI_API_KEY environment variable.

Use Ctrl+C to stop the server gracefully.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ds, err := loadDataset()
	if err != nil {
		return err
	}

	var agent intelligence.Agent
	a, err := intelligence.NewOpenAIAgent(intelligence.Config{
		APIKey:  cfg.Intelligence.APIKey,
		BaseURL: cfg.Intelligence.BaseURL,
		Model:   cfg.Intelligence.Model,
	})
	switch {
	case err == nil:
		agent = a
	case errors.Is(err, intelligence.ErrCredential):
		logger.Warn("intelligence disabled: no OpenAI API key configured")
	default:
		return err
	}

	srv := api.NewServer(cfg, ds, userStore(), agent, logger)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

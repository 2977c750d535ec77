package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"dify-manga/internal/bootstrap"
	"dify-manga/internal/config"
	"dify-manga/internal/domain"
	"dify-manga/internal/logger"
	"dify-manga/internal/service"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type options struct {
	question string
	level    string
	mode     string
	asJSON   bool
}

// generateFunc runs one generation; replaced in tests.
type generateFunc func(ctx context.Context, cfg *config.Config, req domain.GenerationRequest, progress service.ProgressFunc) (*service.GenerationOutcome, error)

func runWithContainer(ctx context.Context, cfg *config.Config, req domain.GenerationRequest, progress service.ProgressFunc) (*service.GenerationOutcome, error) {
	container, err := bootstrap.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer container.Close()
	return container.Strategy.Generate(ctx, req, progress)
}

// NewRootCommand builds the generate command. loadConfig and run are
// injectable for tests.
func NewRootCommand(loadConfig func() (*config.Config, error), run generateFunc) *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a manga from the command line",
		Long: `generate submits a question to the Dify manga workflow, waits for the
result using the configured generation mode and saves it to the library.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if opts.mode != "" {
				cfg.Generation.Mode = opts.mode
				if err := cfg.Validate(); err != nil {
					return err
				}
			}
			if err := logger.Initialize(cfg.Logger); err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			progress := func(message string) {
				if !opts.asJSON {
					fmt.Fprintln(cmd.ErrOrStderr(), message)
				}
			}

			outcome, err := run(ctx, cfg, domain.NewGenerationRequest(opts.question, opts.level), progress)
			if err != nil {
				logger.Get().Error("Generation failed", zap.Error(err))
				return err
			}
			return printOutcome(out, outcome, opts.asJSON)
		},
	}

	cmd.Flags().StringVarP(&opts.question, "question", "q", "", "question the manga explains")
	cmd.Flags().StringVarP(&opts.level, "level", "l", "", "reader level, e.g. 小学6年生")
	cmd.Flags().StringVar(&opts.mode, "mode", "", "override generation.mode (polling or streaming)")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print the outcome as JSON")
	_ = cmd.MarkFlagRequired("question")
	_ = cmd.MarkFlagRequired("level")
	return cmd
}

func printOutcome(w io.Writer, outcome *service.GenerationOutcome, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]interface{}{
			"run_id":     outcome.RunID,
			"status":     outcome.Status,
			"image_urls": outcome.ImageURLs,
			"library_id": outcome.LibraryID,
			"message":    outcome.Message,
			"degraded":   outcome.Degraded,
		})
	}
	fmt.Fprintf(w, "run:      %s\n", outcome.RunID)
	fmt.Fprintf(w, "status:   %s\n", outcome.Status)
	if outcome.Degraded {
		fmt.Fprintln(w, "degraded: true")
	}
	if outcome.LibraryID != "" {
		fmt.Fprintf(w, "library:  %s\n", outcome.LibraryID)
	}
	if outcome.Message != "" {
		fmt.Fprintf(w, "message:  %s\n", outcome.Message)
	}
	for i, u := range outcome.ImageURLs {
		fmt.Fprintf(w, "panel %d:  %s\n", i+1, u)
	}
	return nil
}

// Execute runs the command with the real configuration and services.
func Execute() error {
	return NewRootCommand(config.LoadConfig, runWithContainer).Execute()
}

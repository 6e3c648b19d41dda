package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"studio/internal/domain"
	"studio/internal/infra"
	"studio/internal/providers/genai"
	"studio/internal/studio"
)

type rootOptions struct {
	verbose bool
}

// app carries what every subcommand needs once configuration is loaded.
type app struct {
	cfg     *infra.Config
	logger  infra.Logger
	client  studio.Service
	connect func(ctx context.Context, cfg *infra.Config, logger *infra.Logger) (studio.Service, error)
}

func newRootCmd() *cobra.Command {
	return newRootCmdFor(&app{connect: connectGemini})
}

func connectGemini(ctx context.Context, cfg *infra.Config, logger *infra.Logger) (studio.Service, error) {
	client, err := genai.NewClient(ctx, genai.Options{
		APIKey:          cfg.GeminiAPIKey,
		BaseURL:         cfg.GeminiBaseURL,
		ImageModel:      cfg.ImageModel,
		SuggestionModel: cfg.SuggestionModel,
		VideoModel:      cfg.VideoModel,
		PollInterval:    cfg.VideoPollInterval,
		RatePerSecond:   cfg.BackendRatePerSec,
		Logger:          logger,
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}

func newRootCmdFor(a *app) *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "studio",
		Short:         "Generate images and short videos from a text prompt",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := infra.LoadConfig()
			if err != nil {
				return fmt.Errorf("configuration: %w", err)
			}
			a.cfg = cfg
			a.logger = infra.NewLoggerTo("development", os.Stderr)
			if !opts.verbose {
				a.logger = a.logger.Level(zerolog.WarnLevel)
			}
			client, err := a.connect(cmd.Context(), cfg, &a.logger)
			if err != nil {
				return err
			}
			a.client = client
			return nil
		},
	}
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log backend calls to stderr")

	root.AddCommand(
		newSuggestCmd(a),
		newGenerateCmd(a),
		newAnimateCmd(a),
	)
	return root
}

// newSession builds a throwaway session with the prompt and ratio applied.
func (a *app) newSession(cmd *cobra.Command, prompt, aspect string, onChange func(studio.Snapshot)) (*studio.Session, error) {
	s := studio.NewSession(cmd.Context(), "cli", a.client, studio.SessionOptions{
		Prompt:   prompt,
		Logger:   &a.logger,
		OnChange: onChange,
	})
	if err := s.SetAspectRatio(aspect); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func writeImage(path string, img *domain.GeneratedImage) error {
	if err := os.WriteFile(path, img.Data, 0o644); err != nil {
		return fmt.Errorf("write image: %w", err)
	}
	return nil
}

func aspectHelp() string {
	help := "aspect ratio:"
	for _, opt := range domain.AspectRatioOptions() {
		help += " " + string(opt.Value)
	}
	return help
}

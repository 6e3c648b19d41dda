package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"studio/internal/domain"
)

type generateOptions struct {
	prompt string
	aspect string
	out    string
}

func newGenerateCmd(a *app) *cobra.Command {
	opts := &generateOptions{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate one image from a prompt",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.newSession(cmd, opts.prompt, opts.aspect, nil)
			if err != nil {
				return err
			}
			defer s.Close()

			fmt.Fprintln(cmd.ErrOrStderr(), "Generating image...")
			if err := s.Generate(cmd.Context()); err != nil {
				return err
			}
			img, err := s.Image()
			if err != nil {
				return err
			}
			if err := writeImage(opts.out, img); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", opts.out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.prompt, "prompt", "p", "", "text prompt")
	cmd.Flags().StringVarP(&opts.aspect, "aspect-ratio", "a", string(domain.DefaultAspectRatio), aspectHelp())
	cmd.Flags().StringVarP(&opts.out, "out", "o", "image.jpg", "output image path")
	return cmd
}

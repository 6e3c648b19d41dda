package main

import (
	"fmt"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"studio/internal/domain"
	"studio/internal/studio"
)

type animateOptions struct {
	prompt   string
	aspect   string
	outImage string
	outVideo string
}

func newAnimateCmd(a *app) *cobra.Command {
	opts := &animateOptions{}
	cmd := &cobra.Command{
		Use:   "animate",
		Short: "Generate an image from a prompt and animate it into a video",
		RunE: func(cmd *cobra.Command, args []string) error {
			progress := newProgressPrinter(cmd)
			s, err := a.newSession(cmd, opts.prompt, opts.aspect, progress.update)
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
			if opts.outImage != "" {
				if err := writeImage(opts.outImage, img); err != nil {
					return err
				}
			}

			fmt.Fprintln(cmd.ErrOrStderr(), "Animating image. This can take a few minutes...")
			if err := s.Animate(cmd.Context()); err != nil {
				return err
			}
			data, _, err := s.Video(cmd.Context())
			if err != nil {
				return err
			}
			if err := os.WriteFile(opts.outVideo, data, 0o644); err != nil {
				return fmt.Errorf("write video: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", opts.outVideo)
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.prompt, "prompt", "p", "", "text prompt")
	cmd.Flags().StringVarP(&opts.aspect, "aspect-ratio", "a", string(domain.DefaultAspectRatio), aspectHelp())
	cmd.Flags().StringVar(&opts.outImage, "out-image", "", "also save the source image here")
	cmd.Flags().StringVarP(&opts.outVideo, "out-video", "o", "video.mp4", "output video path")
	return cmd
}

// progressPrinter reports each video status check once.
type progressPrinter struct {
	cmd *cobra.Command

	mu     sync.Mutex
	checks int
}

func newProgressPrinter(cmd *cobra.Command) *progressPrinter {
	return &progressPrinter{cmd: cmd, checks: -1}
}

func (p *progressPrinter) update(snap studio.Snapshot) {
	if snap.Job == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if snap.Job.Checks == p.checks {
		return
	}
	p.checks = snap.Job.Checks
	fmt.Fprintf(p.cmd.ErrOrStderr(), "  video job %s: %s (check %d)\n", snap.Job.Name, snap.Job.State, snap.Job.Checks)
}

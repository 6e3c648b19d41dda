package genai

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	sdk "google.golang.org/genai"

	"studio/internal/domain"
)

// AnimateImageToVideo submits an image-to-video job, polls it until the
// backend reports it done, and downloads the resulting video.
//
// The poll loop has no upper bound; it only stops when the job finishes or
// ctx is cancelled.
func (c *Client) AnimateImageToVideo(ctx context.Context, prompt string, image *domain.GeneratedImage, observe domain.JobObserver) (*domain.GeneratedVideo, error) {
	video, err := c.animate(ctx, prompt, image, observe)
	if err != nil {
		c.logger.Error().
			Err(err).
			Str("model", c.videoModel).
			Msg("genai: animation failed")
		return nil, domain.NewBackendError("animate image", domain.MsgAnimationFailed, err)
	}
	return video, nil
}

func (c *Client) animate(ctx context.Context, prompt string, image *domain.GeneratedImage, observe domain.JobObserver) (*domain.GeneratedVideo, error) {
	if image == nil || len(image.Data) == 0 {
		return nil, errors.New("no source image")
	}
	if err := c.throttle(ctx); err != nil {
		return nil, err
	}
	op, err := c.models.GenerateVideos(ctx, c.videoModel, prompt, &sdk.Image{
		ImageBytes: image.Data,
		MIMEType:   firstNonEmpty(image.MIMEType, domain.ImageMIMEType),
	}, &sdk.GenerateVideosConfig{
		NumberOfVideos: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("submit video job: %w", err)
	}
	if op == nil {
		return nil, errors.New("submit video job: empty operation")
	}
	job := domain.AnimationJob{Name: op.Name, State: domain.JobSubmitted}
	notify(observe, job)
	c.logger.Info().
		Str("operation", op.Name).
		Str("model", c.videoModel).
		Msg("genai: video job submitted")

	op, err = c.pollVideo(ctx, op, &job, observe)
	if err != nil {
		return nil, err
	}
	if msg := operationError(op); msg != "" {
		job.State = domain.JobFailed
		notify(observe, job)
		return nil, fmt.Errorf("video job failed: %s", msg)
	}
	job.State = domain.JobDone
	notify(observe, job)

	return c.resolveVideo(ctx, op)
}

// pollVideo re-fetches the operation every pollInterval until Done is set.
func (c *Client) pollVideo(ctx context.Context, op *sdk.GenerateVideosOperation, job *domain.AnimationJob, observe domain.JobObserver) (*sdk.GenerateVideosOperation, error) {
	for !op.Done {
		job.State = domain.JobPending
		if err := c.wait(ctx, c.pollInterval); err != nil {
			return nil, err
		}
		next, err := c.operations.GetVideosOperation(ctx, op, nil)
		job.Checks++
		if err != nil {
			return nil, fmt.Errorf("check video job %s: %w", op.Name, err)
		}
		if next == nil {
			return nil, fmt.Errorf("check video job %s: empty operation", op.Name)
		}
		op = next
		c.logger.Debug().
			Str("operation", op.Name).
			Int("checks", job.Checks).
			Bool("done", op.Done).
			Msg("genai: video job polled")
		if !op.Done {
			notify(observe, *job)
		}
	}
	return op, nil
}

func (c *Client) resolveVideo(ctx context.Context, op *sdk.GenerateVideosOperation) (*domain.GeneratedVideo, error) {
	var video *sdk.Video
	if op.Response != nil {
		for _, generated := range op.Response.GeneratedVideos {
			if generated != nil && generated.Video != nil {
				video = generated.Video
				break
			}
		}
	}
	if video == nil {
		return nil, errors.New(domain.MsgMissingVideoLink)
	}
	if len(video.VideoBytes) > 0 {
		return &domain.GeneratedVideo{
			Data:     video.VideoBytes,
			MIMEType: firstNonEmpty(video.MIMEType, domain.VideoMIMEType),
		}, nil
	}
	if video.URI == "" {
		return nil, errors.New(domain.MsgMissingVideoLink)
	}
	data, mime, err := c.download(ctx, video.URI)
	if err != nil {
		return nil, err
	}
	c.logger.Debug().
		Str("operation", op.Name).
		Int("bytes", len(data)).
		Msg("genai: video downloaded")
	return &domain.GeneratedVideo{
		Data:      data,
		MIMEType:  firstNonEmpty(video.MIMEType, mime, domain.VideoMIMEType),
		SourceURI: video.URI,
	}, nil
}

func operationError(op *sdk.GenerateVideosOperation) string {
	if len(op.Error) == 0 {
		return ""
	}
	if msg, ok := op.Error["message"].(string); ok && msg != "" {
		return msg
	}
	return fmt.Sprintf("%v", op.Error)
}

// appendKey adds the credential to the artifact locator's query string.
func appendKey(uri, apiKey string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("parse video link: %w", err)
	}
	if apiKey != "" {
		q := u.Query()
		q.Set("key", apiKey)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func notify(observe domain.JobObserver, job domain.AnimationJob) {
	if observe != nil {
		observe(job)
	}
}

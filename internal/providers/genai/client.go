package genai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
	sdk "google.golang.org/genai"

	"studio/internal/domain"
	"studio/internal/infra"
)

const (
	DefaultImageModel      = "imagen-3.0-generate-002"
	DefaultSuggestionModel = "gemini-2.5-flash"
	DefaultVideoModel      = "veo-2.0-generate-001"
	DefaultPollInterval    = 10 * time.Second

	maxSuggestions = 3
)

// Options controls how the Gemini client is configured.
type Options struct {
	APIKey          string
	BaseURL         string
	ImageModel      string
	SuggestionModel string
	VideoModel      string
	PollInterval    time.Duration
	// RatePerSecond caps outgoing backend calls. Zero disables the limiter.
	RatePerSecond int
	HTTPClient    *http.Client
	Logger        *infra.Logger
}

// modelService is the subset of the SDK's Models service used here.
type modelService interface {
	GenerateImages(ctx context.Context, model, prompt string, config *sdk.GenerateImagesConfig) (*sdk.GenerateImagesResponse, error)
	GenerateContent(ctx context.Context, model string, contents []*sdk.Content, config *sdk.GenerateContentConfig) (*sdk.GenerateContentResponse, error)
	GenerateVideos(ctx context.Context, model, prompt string, image *sdk.Image, config *sdk.GenerateVideosConfig) (*sdk.GenerateVideosOperation, error)
}

// operationService is the subset of the SDK's Operations service used here.
type operationService interface {
	GetVideosOperation(ctx context.Context, op *sdk.GenerateVideosOperation, config *sdk.GetOperationConfig) (*sdk.GenerateVideosOperation, error)
}

type waitFunc func(ctx context.Context, d time.Duration) error

// Client is the single entry point to the generative backend. It turns SDK
// failures into domain.BackendError values and keeps suggestion lookups
// best-effort.
type Client struct {
	apiKey          string
	imageModel      string
	suggestionModel string
	videoModel      string
	pollInterval    time.Duration
	models          modelService
	operations      operationService
	httpClient      *http.Client
	limiter         *rate.Limiter
	wait            waitFunc
	logger          *infra.Logger
}

// NewClient constructs a client backed by the Gemini API.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, errors.New("genai: api key is required")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	cfg := &sdk.ClientConfig{
		APIKey:     apiKey,
		Backend:    sdk.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"); base != "" {
		cfg.HTTPOptions = sdk.HTTPOptions{BaseURL: base + "/"}
	}
	sdkClient, err := sdk.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("genai: create client: %w", err)
	}
	return newClient(opts, sdkClient.Models, sdkClient.Operations), nil
}

func newClient(opts Options, models modelService, operations operationService) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	var limiter *rate.Limiter
	if opts.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), opts.RatePerSecond)
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &Client{
		apiKey:          strings.TrimSpace(opts.APIKey),
		imageModel:      firstNonEmpty(opts.ImageModel, DefaultImageModel),
		suggestionModel: firstNonEmpty(opts.SuggestionModel, DefaultSuggestionModel),
		videoModel:      firstNonEmpty(opts.VideoModel, DefaultVideoModel),
		pollInterval:    pollInterval,
		models:          models,
		operations:      operations,
		httpClient:      httpClient,
		limiter:         limiter,
		wait:            sleepContext,
		logger:          logger,
	}
}

// GenerateImage asks the image model for exactly one JPEG at the given ratio.
func (c *Client) GenerateImage(ctx context.Context, prompt string, aspect domain.AspectRatio) (*domain.GeneratedImage, error) {
	img, err := c.generateImage(ctx, prompt, aspect)
	if err != nil {
		c.logger.Error().
			Err(err).
			Str("model", c.imageModel).
			Str("aspect_ratio", string(aspect)).
			Msg("genai: image generation failed")
		return nil, domain.NewBackendError("generate image", domain.MsgImageGenerationFailed, err)
	}
	return img, nil
}

func (c *Client) generateImage(ctx context.Context, prompt string, aspect domain.AspectRatio) (*domain.GeneratedImage, error) {
	if err := c.throttle(ctx); err != nil {
		return nil, err
	}
	resp, err := c.models.GenerateImages(ctx, c.imageModel, prompt, &sdk.GenerateImagesConfig{
		NumberOfImages: 1,
		OutputMIMEType: domain.ImageMIMEType,
		AspectRatio:    string(aspect),
	})
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, errors.New(domain.MsgEmptyImageResponse)
	}
	for _, generated := range resp.GeneratedImages {
		if generated == nil || generated.Image == nil || len(generated.Image.ImageBytes) == 0 {
			continue
		}
		mime := firstNonEmpty(generated.Image.MIMEType, domain.ImageMIMEType)
		c.logger.Debug().
			Str("model", c.imageModel).
			Int("bytes", len(generated.Image.ImageBytes)).
			Msg("genai: image generated")
		return &domain.GeneratedImage{Data: generated.Image.ImageBytes, MIMEType: mime}, nil
	}
	return nil, errors.New(domain.MsgEmptyImageResponse)
}

func (c *Client) throttle(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

func (c *Client) download(ctx context.Context, uri string) ([]byte, string, error) {
	target, err := appendKey(uri, c.apiKey)
	if err != nil {
		return nil, "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create download request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download video: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("Failed to download the video. Status: %d", resp.StatusCode)
	}
	blob, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read video: %w", err)
	}
	return blob, resp.Header.Get("Content-Type"), nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

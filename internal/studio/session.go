package studio

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"studio/internal/domain"
	"studio/internal/infra"
	"studio/internal/storage"
	"studio/internal/suggest"
)

// Snapshot is the externally visible state of a session.
type Snapshot struct {
	ID          string               `json:"id"`
	Version     uint64               `json:"version"`
	Prompt      string               `json:"prompt"`
	AspectRatio domain.AspectRatio   `json:"aspect_ratio"`
	Suggestions SuggestionsView      `json:"suggestions"`
	Activity    Activity             `json:"activity"`
	Generate    FlowStatus           `json:"generate"`
	Animate     FlowStatus           `json:"animate"`
	Generating  bool                 `json:"is_generating"`
	Animating   bool                 `json:"is_animating"`
	Job         *domain.AnimationJob `json:"job,omitempty"`
	Error       string               `json:"error,omitempty"`
	ImageURL    string               `json:"image_url,omitempty"`
	VideoURL    string               `json:"video_url,omitempty"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

type SuggestionsView struct {
	Items   []string      `json:"items"`
	Visible bool          `json:"visible"`
	State   suggest.State `json:"state"`
}

type SessionOptions struct {
	// Prompt seeds the prompt text without a suggestion lookup.
	Prompt   string
	Debounce time.Duration
	Store    *storage.FileStore
	Logger   *infra.Logger
	// OnChange receives a fresh snapshot after every state change.
	OnChange func(Snapshot)
}

// Session is one user's studio: the prompt under edit, the selected aspect
// ratio, the suggestion panel and the generate/animate flows.
type Session struct {
	id       string
	store    *storage.FileStore
	logger   *infra.Logger
	onChange func(Snapshot)

	suggestions  *suggest.Debouncer
	orchestrator *Orchestrator

	mu      sync.Mutex
	aspect  domain.AspectRatio
	updated time.Time

	// publishMu orders change notifications by version.
	publishMu sync.Mutex
	version   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
	done      chan struct{}
}

// Service combines what a session needs from the generative backend.
type Service interface {
	Backend
	suggest.Fetcher
}

func NewSession(ctx context.Context, id string, backend Service, opts SessionOptions) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}
	sessionLogger := logger.With().Str("session_id", id).Logger()

	s := &Session{
		id:       id,
		store:    opts.Store,
		logger:   &sessionLogger,
		onChange: opts.OnChange,
		aspect:   domain.DefaultAspectRatio,
		updated:  time.Now().UTC(),
		done:     make(chan struct{}),
	}

	var flows Backend = backend
	if s.store != nil {
		flows = &storingBackend{Backend: backend, store: s.store, prefix: s.StoragePrefix()}
	}
	s.suggestions = suggest.New(ctx, backend, suggest.Options{
		Delay:    opts.Debounce,
		Prompt:   opts.Prompt,
		OnChange: func(suggest.View) { s.changed() },
	})
	s.orchestrator = NewOrchestrator(ctx, flows, OrchestratorOptions{
		Logger:   s.logger,
		OnChange: s.changed,
	})
	return s
}

func (s *Session) ID() string {
	return s.id
}

// StoragePrefix is the key prefix under which this session's artifacts live.
func (s *Session) StoragePrefix() string {
	return "sessions/" + s.id
}

func (s *Session) SetPrompt(text string) error {
	if s.closed.Load() {
		return ErrClosed
	}
	s.suggestions.SetPrompt(text)
	return nil
}

func (s *Session) SetAspectRatio(raw string) error {
	if s.closed.Load() {
		return ErrClosed
	}
	aspect, err := domain.ParseAspectRatio(raw)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.aspect = aspect
	s.mu.Unlock()
	s.changed()
	return nil
}

func (s *Session) SelectSuggestion(suggestion string) error {
	if s.closed.Load() {
		return ErrClosed
	}
	s.suggestions.Select(suggestion)
	return nil
}

func (s *Session) DismissSuggestions() {
	s.suggestions.Dismiss()
}

func (s *Session) FocusPrompt() {
	s.suggestions.Focus()
}

// StartGenerate kicks off image generation for the current prompt and aspect
// ratio. Validation and busy errors are returned immediately.
func (s *Session) StartGenerate() error {
	req := s.request()
	s.suggestions.Hide()
	return s.orchestrator.StartGenerate(req)
}

// Generate runs image generation and waits for the result.
func (s *Session) Generate(ctx context.Context) error {
	req := s.request()
	s.suggestions.Hide()
	return s.orchestrator.Generate(ctx, req)
}

func (s *Session) StartAnimate() error {
	return s.orchestrator.StartAnimate(s.suggestions.View().Prompt)
}

func (s *Session) Animate(ctx context.Context) error {
	return s.orchestrator.Animate(ctx, s.suggestions.View().Prompt)
}

// Image returns the current generated image, or domain.ErrNoImage.
func (s *Session) Image() (*domain.GeneratedImage, error) {
	img := s.orchestrator.State().Image
	if img == nil {
		return nil, domain.ErrNoImage
	}
	return img, nil
}

// Video returns the bytes of the current generated video, reading them back
// from the store when they were persisted.
func (s *Session) Video(ctx context.Context) ([]byte, string, error) {
	video := s.orchestrator.State().Video
	if video == nil {
		return nil, "", domain.ErrNoVideoLink
	}
	mime := video.MIMEType
	if mime == "" {
		mime = domain.VideoMIMEType
	}
	if video.Key == "" || s.store == nil {
		return video.Data, mime, nil
	}
	data, err := s.store.Read(ctx, video.Key)
	if err != nil {
		return nil, "", fmt.Errorf("read video %s: %w", video.Key, err)
	}
	return data, mime, nil
}

// Wait blocks until background flows have finished.
func (s *Session) Wait() {
	s.orchestrator.Wait()
}

func (s *Session) Snapshot() Snapshot {
	return s.snapshot(s.version.Load())
}

func (s *Session) snapshot(version uint64) Snapshot {
	view := s.suggestions.View()
	st := s.orchestrator.State()

	s.mu.Lock()
	aspect := s.aspect
	updated := s.updated
	s.mu.Unlock()

	snap := Snapshot{
		ID:          s.id,
		Version:     version,
		Prompt:      view.Prompt,
		AspectRatio: aspect,
		Suggestions: SuggestionsView{
			Items:   view.Suggestions,
			Visible: view.Visible,
			State:   view.State,
		},
		Activity:   st.Activity,
		Generate:   st.Generate,
		Animate:    st.Animate,
		Generating: st.Activity == ActivityGenerating,
		Animating:  st.Activity == ActivityAnimating,
		Job:        st.Job,
		Error:      st.Error,
		UpdatedAt:  updated,
	}
	if snap.Suggestions.Items == nil {
		snap.Suggestions.Items = []string{}
	}
	if st.Image != nil {
		snap.ImageURL = fmt.Sprintf("/v1/sessions/%s/image", s.id)
	}
	if st.Video != nil {
		snap.VideoURL = fmt.Sprintf("/v1/sessions/%s/video", s.id)
	}
	return snap
}

func (s *Session) Closed() bool {
	return s.closed.Load()
}

// Done is closed once the session has been torn down.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Close stops the debouncer and cancels running flows. It is safe to call
// more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.suggestions.Close()
		s.orchestrator.Close()
		close(s.done)
		s.logger.Debug().Msg("studio: session closed")
	})
}

func (s *Session) request() domain.GenerationRequest {
	s.mu.Lock()
	aspect := s.aspect
	s.mu.Unlock()
	return domain.GenerationRequest{
		Prompt:      s.suggestions.View().Prompt,
		AspectRatio: aspect,
	}
}

func (s *Session) changed() {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	version := s.version.Add(1)
	s.mu.Lock()
	s.updated = time.Now().UTC()
	s.mu.Unlock()
	if s.onChange != nil {
		s.onChange(s.snapshot(version))
	}
}

// storingBackend persists finished videos so the session keeps a key instead
// of the raw bytes.
type storingBackend struct {
	Backend
	store  *storage.FileStore
	prefix string
}

func (b *storingBackend) AnimateImageToVideo(ctx context.Context, prompt string, image *domain.GeneratedImage, observe domain.JobObserver) (*domain.GeneratedVideo, error) {
	video, err := b.Backend.AnimateImageToVideo(ctx, prompt, image, observe)
	if err != nil {
		return nil, err
	}
	key, err := b.store.Write(ctx, b.prefix+"/video.mp4", video.Data)
	if err != nil {
		return nil, domain.NewBackendError("store video", domain.MsgAnimationFailed, err)
	}
	stored := *video
	stored.Key = key
	stored.Data = nil
	return &stored, nil
}

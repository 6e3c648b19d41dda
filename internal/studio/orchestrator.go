package studio

import (
	"context"
	"errors"
	"sync"

	"studio/internal/domain"
	"studio/internal/infra"
)

var (
	ErrBusy            = errors.New("another generation is already running")
	ErrClosed          = errors.New("session closed")
	ErrSessionNotFound = errors.New("session not found")
)

// Backend is the generative service the orchestrator drives.
type Backend interface {
	GenerateImage(ctx context.Context, prompt string, aspect domain.AspectRatio) (*domain.GeneratedImage, error)
	AnimateImageToVideo(ctx context.Context, prompt string, image *domain.GeneratedImage, observe domain.JobObserver) (*domain.GeneratedVideo, error)
}

// Activity is the mutual-exclusion register: at most one of generate and
// animate runs at a time.
type Activity string

const (
	ActivityIdle       Activity = "idle"
	ActivityGenerating Activity = "generating"
	ActivityAnimating  Activity = "animating"
)

type FlowStatus string

const (
	FlowIdle      FlowStatus = "idle"
	FlowRunning   FlowStatus = "running"
	FlowSucceeded FlowStatus = "succeeded"
	FlowFailed    FlowStatus = "failed"
)

// FlowState is a copy of the orchestrator's observable state.
type FlowState struct {
	Activity Activity
	Generate FlowStatus
	Animate  FlowStatus
	Image    *domain.GeneratedImage
	Video    *domain.GeneratedVideo
	Job      *domain.AnimationJob
	Error    string
}

type OrchestratorOptions struct {
	Logger *infra.Logger
	// OnChange is called after every state transition, outside the lock.
	OnChange func()
}

// Orchestrator owns the generate and animate flows of one session.
type Orchestrator struct {
	backend  Backend
	logger   *infra.Logger
	onChange func()

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	activity Activity
	generate FlowStatus
	animate  FlowStatus
	image    *domain.GeneratedImage
	video    *domain.GeneratedVideo
	job      *domain.AnimationJob
	errMsg   string
	closed   bool
}

// NewOrchestrator binds the flows to ctx; cancelling it, or calling Close,
// aborts whatever is still running.
func NewOrchestrator(ctx context.Context, backend Backend, opts OrchestratorOptions) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Orchestrator{
		backend:  backend,
		logger:   logger,
		onChange: opts.OnChange,
		ctx:      ctx,
		cancel:   cancel,
		activity: ActivityIdle,
		generate: FlowIdle,
		animate:  FlowIdle,
	}
}

// Generate runs the generate flow to completion.
func (o *Orchestrator) Generate(ctx context.Context, req domain.GenerationRequest) error {
	if err := o.beginGenerate(req, false); err != nil {
		return err
	}
	ctx, stop := o.bind(ctx)
	defer stop()
	return o.runGenerate(ctx, req)
}

// StartGenerate validates and claims the flow synchronously, then runs the
// backend call in the background.
func (o *Orchestrator) StartGenerate(req domain.GenerationRequest) error {
	if err := o.beginGenerate(req, true); err != nil {
		return err
	}
	go func() {
		defer o.wg.Done()
		_ = o.runGenerate(o.ctx, req)
	}()
	return nil
}

// Animate runs the animate flow to completion.
func (o *Orchestrator) Animate(ctx context.Context, prompt string) error {
	image, err := o.beginAnimate(prompt, false)
	if err != nil {
		return err
	}
	ctx, stop := o.bind(ctx)
	defer stop()
	return o.runAnimate(ctx, prompt, image)
}

// StartAnimate is the background form of Animate.
func (o *Orchestrator) StartAnimate(prompt string) error {
	image, err := o.beginAnimate(prompt, true)
	if err != nil {
		return err
	}
	go func() {
		defer o.wg.Done()
		_ = o.runAnimate(o.ctx, prompt, image)
	}()
	return nil
}

// Wait blocks until every background flow has finished.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// State returns a snapshot of the flows.
func (o *Orchestrator) State() FlowState {
	o.mu.Lock()
	defer o.mu.Unlock()
	st := FlowState{
		Activity: o.activity,
		Generate: o.generate,
		Animate:  o.animate,
		Image:    o.image,
		Video:    o.video,
		Error:    o.errMsg,
	}
	if o.job != nil {
		job := *o.job
		st.Job = &job
	}
	return st
}

// Close cancels running flows and waits for them to return.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()
	o.cancel()
	o.wg.Wait()
}

// beginGenerate applies the guards and claims the register. A background run
// is registered with the wait group while the lock is held so Close cannot
// miss it.
func (o *Orchestrator) beginGenerate(req domain.GenerationRequest, background bool) error {
	o.mu.Lock()
	if err := o.claimLocked(); err != nil {
		o.mu.Unlock()
		return err
	}
	if !domain.HasPrompt(req.Prompt) {
		o.generate = FlowFailed
		o.errMsg = domain.MsgPromptRequired
		o.mu.Unlock()
		o.changed()
		return &domain.ValidationError{Message: domain.MsgPromptRequired, Err: domain.ErrEmptyPrompt}
	}
	if background {
		o.wg.Add(1)
	}
	o.activity = ActivityGenerating
	o.generate = FlowRunning
	o.image = nil
	o.video = nil
	o.job = nil
	o.errMsg = ""
	o.mu.Unlock()
	o.changed()
	return nil
}

func (o *Orchestrator) runGenerate(ctx context.Context, req domain.GenerationRequest) error {
	aspect := req.AspectRatio
	if aspect == "" {
		aspect = domain.DefaultAspectRatio
	}
	image, err := o.backend.GenerateImage(ctx, req.Prompt, aspect)

	o.mu.Lock()
	o.activity = ActivityIdle
	if err != nil {
		o.generate = FlowFailed
		o.errMsg = errorMessage(err)
	} else {
		o.generate = FlowSucceeded
		o.image = image
	}
	o.mu.Unlock()

	if err != nil {
		o.logger.Warn().Err(err).Msg("studio: generate failed")
	} else {
		o.logger.Info().Str("aspect_ratio", string(aspect)).Msg("studio: image ready")
	}
	o.changed()
	return err
}

func (o *Orchestrator) beginAnimate(prompt string, background bool) (*domain.GeneratedImage, error) {
	o.mu.Lock()
	if err := o.claimLocked(); err != nil {
		o.mu.Unlock()
		return nil, err
	}
	if !domain.HasPrompt(prompt) || o.image == nil {
		cause := domain.ErrEmptyPrompt
		if o.image == nil {
			cause = domain.ErrNoImage
		}
		o.animate = FlowFailed
		o.errMsg = domain.MsgAnimateRequiresImage
		o.mu.Unlock()
		o.changed()
		return nil, &domain.ValidationError{Message: domain.MsgAnimateRequiresImage, Err: cause}
	}
	if background {
		o.wg.Add(1)
	}
	image := o.image
	o.activity = ActivityAnimating
	o.animate = FlowRunning
	o.video = nil
	o.job = nil
	o.errMsg = ""
	o.mu.Unlock()
	o.changed()
	return image, nil
}

func (o *Orchestrator) runAnimate(ctx context.Context, prompt string, image *domain.GeneratedImage) error {
	video, err := o.backend.AnimateImageToVideo(ctx, prompt, image, o.observeJob)

	o.mu.Lock()
	o.activity = ActivityIdle
	if err != nil {
		o.animate = FlowFailed
		o.errMsg = errorMessage(err)
	} else {
		o.animate = FlowSucceeded
		o.video = video
	}
	o.mu.Unlock()

	if err != nil {
		o.logger.Warn().Err(err).Msg("studio: animate failed")
	} else {
		o.logger.Info().Int("bytes", len(video.Data)).Msg("studio: video ready")
	}
	o.changed()
	return err
}

func (o *Orchestrator) observeJob(job domain.AnimationJob) {
	o.mu.Lock()
	o.job = &job
	o.mu.Unlock()
	o.changed()
}

func (o *Orchestrator) claimLocked() error {
	if o.closed {
		return ErrClosed
	}
	if o.activity != ActivityIdle {
		return ErrBusy
	}
	return nil
}

// bind ties a caller context to the orchestrator's lifetime.
func (o *Orchestrator) bind(ctx context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(o.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func (o *Orchestrator) changed() {
	if o.onChange != nil {
		o.onChange()
	}
}

func errorMessage(err error) string {
	if err == nil {
		return ""
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return "An unexpected error occurred."
}

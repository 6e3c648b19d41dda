// Package suggest turns prompt edits into debounced suggestion lookups and
// keeps only the answer for the prompt the user is currently looking at.
package suggest

import (
	"context"
	"sync"
	"time"

	"studio/internal/domain"
)

// DefaultDelay is the quiet period after the last edit before a lookup starts.
const DefaultDelay = 500 * time.Millisecond

// Fetcher resolves suggestions for a prompt. Implementations must not fail;
// an unavailable backend is reported as an empty slice.
type Fetcher interface {
	PromptSuggestions(ctx context.Context, prompt string) []string
}

type State string

const (
	StateIdle     State = "idle"
	StateWaiting  State = "waiting"
	StateFetching State = "fetching"
)

// View is what the presentation layer renders.
type View struct {
	Prompt      string   `json:"prompt"`
	Suggestions []string `json:"suggestions"`
	Visible     bool     `json:"visible"`
	State       State    `json:"state"`
}

type Options struct {
	Delay     time.Duration
	MinLength int
	// Prompt is the starting prompt text. It is not looked up.
	Prompt string
	// OnChange is called after every visible change, outside the lock.
	OnChange func(View)
}

// Debouncer tracks the prompt text and the suggestion panel for one session.
// Every edit supersedes the previous one: a pending timer is stopped and a
// fetch already in flight has its result dropped when it arrives.
type Debouncer struct {
	fetcher   Fetcher
	delay     time.Duration
	minLength int
	onChange  func(View)

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	seq     uint64
	prompt  string
	set     domain.SuggestionSet
	visible bool
	state   State
	timer   *time.Timer
	closed  bool
}

func New(ctx context.Context, fetcher Fetcher, opts Options) *Debouncer {
	delay := opts.Delay
	if delay <= 0 {
		delay = DefaultDelay
	}
	minLength := opts.MinLength
	if minLength <= 0 {
		minLength = domain.MinSuggestionPromptLength
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Debouncer{
		fetcher:   fetcher,
		delay:     delay,
		minLength: minLength,
		onChange:  opts.OnChange,
		ctx:       ctx,
		cancel:    cancel,
		prompt:    opts.Prompt,
		state:     StateIdle,
	}
}

// SetPrompt records an edit of the prompt text. Resending the current text
// is not an edit.
func (d *Debouncer) SetPrompt(text string) {
	d.mu.Lock()
	if d.closed || text == d.prompt {
		d.mu.Unlock()
		return
	}
	d.prompt = text
	d.seq++
	d.stopTimerLocked()
	d.visible = false

	if domain.PromptLength(text) < d.minLength {
		d.state = StateIdle
		d.set = domain.SuggestionSet{}
		view := d.viewLocked()
		d.mu.Unlock()
		d.emit(view)
		return
	}

	d.state = StateWaiting
	seq := d.seq
	d.timer = time.AfterFunc(d.delay, func() { d.fetch(seq, text) })
	view := d.viewLocked()
	d.mu.Unlock()
	d.emit(view)
}

// Select replaces the prompt with the chosen suggestion, clears the list and
// hides the panel. No lookup is scheduled for the replaced text.
func (d *Debouncer) Select(suggestion string) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.prompt = suggestion
	d.seq++
	d.stopTimerLocked()
	d.set = domain.SuggestionSet{}
	d.visible = false
	d.state = StateIdle
	view := d.viewLocked()
	d.mu.Unlock()
	d.emit(view)
}

// Dismiss hides the panel without discarding the list, as a click outside the
// panel does.
func (d *Debouncer) Dismiss() {
	d.mu.Lock()
	if d.closed || !d.visible {
		d.mu.Unlock()
		return
	}
	d.visible = false
	view := d.viewLocked()
	d.mu.Unlock()
	d.emit(view)
}

// Focus reopens the panel when the current prompt still has suggestions.
func (d *Debouncer) Focus() {
	d.mu.Lock()
	if d.closed || d.visible || !d.set.Matches(d.prompt) {
		d.mu.Unlock()
		return
	}
	d.visible = true
	view := d.viewLocked()
	d.mu.Unlock()
	d.emit(view)
}

// Hide closes the panel; used when a generation starts.
func (d *Debouncer) Hide() {
	d.Dismiss()
}

func (d *Debouncer) View() View {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.viewLocked()
}

// Close stops the pending timer and aborts any fetch in flight. Later results
// are ignored.
func (d *Debouncer) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.seq++
	d.stopTimerLocked()
	d.mu.Unlock()
	d.cancel()
}

func (d *Debouncer) fetch(seq uint64, prompt string) {
	d.mu.Lock()
	if d.closed || seq != d.seq {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.state = StateFetching
	view := d.viewLocked()
	d.mu.Unlock()
	d.emit(view)

	items := d.fetcher.PromptSuggestions(d.ctx, prompt)

	d.mu.Lock()
	if d.closed || seq != d.seq {
		d.mu.Unlock()
		return
	}
	d.state = StateIdle
	if len(items) > 0 {
		d.set = domain.SuggestionSet{Prompt: prompt, Items: append([]string(nil), items...)}
		d.visible = true
	} else {
		d.set = domain.SuggestionSet{}
		d.visible = false
	}
	view = d.viewLocked()
	d.mu.Unlock()
	d.emit(view)
}

func (d *Debouncer) stopTimerLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

func (d *Debouncer) viewLocked() View {
	v := View{Prompt: d.prompt, State: d.state}
	if d.set.Matches(d.prompt) {
		v.Suggestions = append([]string(nil), d.set.Items...)
		v.Visible = d.visible
	}
	return v
}

func (d *Debouncer) emit(v View) {
	if d.onChange != nil {
		d.onChange(v)
	}
}

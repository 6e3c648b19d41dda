package studio

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"studio/internal/domain"
	"studio/internal/storage"
)

type fakeService struct {
	fakeBackend
	suggestions map[string][]string

	fetchMu sync.Mutex
	fetches []string
}

func (f *fakeService) PromptSuggestions(ctx context.Context, prompt string) []string {
	f.fetchMu.Lock()
	f.fetches = append(f.fetches, prompt)
	f.fetchMu.Unlock()
	return f.suggestions[prompt]
}

func (f *fakeService) fetchCount() int {
	f.fetchMu.Lock()
	defer f.fetchMu.Unlock()
	return len(f.fetches)
}

type recordingPublisher struct {
	mu       sync.Mutex
	messages map[string][][]byte
}

func (p *recordingPublisher) Publish(topic string, msg []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.messages == nil {
		p.messages = map[string][][]byte{}
	}
	p.messages[topic] = append(p.messages[topic], msg)
}

func (p *recordingPublisher) last(t *testing.T, topic string) Snapshot {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	msgs := p.messages[topic]
	if len(msgs) == 0 {
		t.Fatalf("no snapshots published for %s", topic)
	}
	var snap Snapshot
	if err := json.Unmarshal(msgs[len(msgs)-1], &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	return snap
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func newTestStore(t *testing.T) *storage.FileStore {
	t.Helper()
	store, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return store
}

func TestSessionGenerateUsesPromptAndAspect(t *testing.T) {
	svc := &fakeService{}
	s := NewSession(context.Background(), "s1", svc, SessionOptions{Debounce: 10 * time.Millisecond})
	defer s.Close()

	if err := s.SetPrompt("a lighthouse"); err != nil {
		t.Fatalf("SetPrompt: %v", err)
	}
	if err := s.SetAspectRatio("16:9"); err != nil {
		t.Fatalf("SetAspectRatio: %v", err)
	}
	if err := s.Generate(context.Background()); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if svc.lastAspect != domain.AspectLandscape {
		t.Fatalf("aspect = %q", svc.lastAspect)
	}
	img, err := s.Image()
	if err != nil || string(img.Data) != "img:a lighthouse" {
		t.Fatalf("Image = %v, %v", img, err)
	}
	snap := s.Snapshot()
	if snap.ImageURL != "/v1/sessions/s1/image" || snap.VideoURL != "" {
		t.Fatalf("unexpected urls %+v", snap)
	}
}

func TestSessionSeededPromptSkipsLookup(t *testing.T) {
	svc := &fakeService{}
	s := NewSession(context.Background(), "s1", svc, SessionOptions{Prompt: "a paper boat", Debounce: 5 * time.Millisecond})
	defer s.Close()

	if snap := s.Snapshot(); snap.Prompt != "a paper boat" || snap.Suggestions.Visible {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if err := s.Generate(context.Background()); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	img, err := s.Image()
	if err != nil || string(img.Data) != "img:a paper boat" {
		t.Fatalf("Image = %v, %v", img, err)
	}
	time.Sleep(20 * time.Millisecond)
	if n := svc.fetchCount(); n != 0 {
		t.Fatalf("seeded prompt triggered %d lookups", n)
	}
}

func TestSessionNotifiesInVersionOrder(t *testing.T) {
	var mu sync.Mutex
	var versions []uint64
	s := NewSession(context.Background(), "s1", &fakeService{}, SessionOptions{
		Debounce: time.Hour,
		OnChange: func(snap Snapshot) {
			mu.Lock()
			versions = append(versions, snap.Version)
			mu.Unlock()
		},
	})
	defer s.Close()

	ratios := []string{"1:1", "16:9", "9:16", "4:3", "3:4"}
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = s.SetAspectRatio(ratios[i%len(ratios)])
			_ = s.SetPrompt(strings.Repeat("x", i+3))
		}(i)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(versions) != 40 {
		t.Fatalf("got %d notifications, want 40", len(versions))
	}
	for i, v := range versions {
		if v != uint64(i+1) {
			t.Fatalf("notification %d carried version %d: %v", i, v, versions)
		}
	}
}

func TestSessionRejectsUnknownAspectRatio(t *testing.T) {
	s := NewSession(context.Background(), "s1", &fakeService{}, SessionOptions{})
	defer s.Close()

	if err := s.SetAspectRatio("2:1"); !domain.IsValidation(err) {
		t.Fatalf("SetAspectRatio error = %v, want ValidationError", err)
	}
	if snap := s.Snapshot(); snap.AspectRatio != domain.DefaultAspectRatio {
		t.Fatalf("aspect changed to %q", snap.AspectRatio)
	}
}

func TestSessionStoresVideo(t *testing.T) {
	store := newTestStore(t)
	s := NewSession(context.Background(), "s1", &fakeService{}, SessionOptions{Store: store})
	defer s.Close()

	_ = s.SetPrompt("a lighthouse")
	if err := s.Generate(context.Background()); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if err := s.Animate(context.Background()); err != nil {
		t.Fatalf("Animate: %v", err)
	}

	data, mime, err := s.Video(context.Background())
	if err != nil {
		t.Fatalf("Video: %v", err)
	}
	if string(data) != "vid:a lighthouse" || mime != domain.VideoMIMEType {
		t.Fatalf("Video = %q, %q", data, mime)
	}
	stored, err := store.Read(context.Background(), "sessions/s1/video.mp4")
	if err != nil || string(stored) != "vid:a lighthouse" {
		t.Fatalf("stored video = %q, %v", stored, err)
	}
	if st := s.orchestrator.State(); st.Video.Data != nil || st.Video.Key == "" {
		t.Fatalf("video kept in memory: %+v", st.Video)
	}
}

func TestSessionMediaAbsent(t *testing.T) {
	s := NewSession(context.Background(), "s1", &fakeService{}, SessionOptions{})
	defer s.Close()

	if _, err := s.Image(); !errors.Is(err, domain.ErrNoImage) {
		t.Fatalf("Image error = %v", err)
	}
	if _, _, err := s.Video(context.Background()); !errors.Is(err, domain.ErrNoVideoLink) {
		t.Fatalf("Video error = %v", err)
	}
}

func TestSessionGenerateHidesSuggestions(t *testing.T) {
	svc := &fakeService{suggestions: map[string][]string{"a red barn": {"a red barn at dawn"}}}
	s := NewSession(context.Background(), "s1", svc, SessionOptions{Debounce: 10 * time.Millisecond})
	defer s.Close()

	_ = s.SetPrompt("a red barn")
	eventually(t, "suggestions", func() bool { return s.Snapshot().Suggestions.Visible })

	if err := s.StartGenerate(); err != nil {
		t.Fatalf("StartGenerate: %v", err)
	}
	if snap := s.Snapshot(); snap.Suggestions.Visible {
		t.Fatalf("suggestions still visible: %+v", snap.Suggestions)
	}
	s.Wait()
}

func TestSessionClosedRejectsEdits(t *testing.T) {
	s := NewSession(context.Background(), "s1", &fakeService{}, SessionOptions{})
	s.Close()
	s.Close()

	if err := s.SetPrompt("anything"); !errors.Is(err, ErrClosed) {
		t.Fatalf("SetPrompt after close = %v", err)
	}
	if err := s.StartGenerate(); !errors.Is(err, ErrClosed) {
		t.Fatalf("StartGenerate after close = %v", err)
	}
}

func TestRegistryPublishesSnapshots(t *testing.T) {
	pub := &recordingPublisher{}
	r := NewRegistry(context.Background(), &fakeService{}, RegistryOptions{Publisher: pub})
	defer r.Close()

	s, err := r.Create()
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	_ = s.SetPrompt("a quiet harbor")
	if err := s.Generate(context.Background()); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	snap := pub.last(t, s.ID())
	if snap.Generate != FlowSucceeded || snap.Prompt != "a quiet harbor" || snap.ImageURL == "" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestRegistryDeleteClosesSessionAndRemovesArtifacts(t *testing.T) {
	store := newTestStore(t)
	r := NewRegistry(context.Background(), &fakeService{}, RegistryOptions{Store: store})
	defer r.Close()

	s, err := r.Create()
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	_ = s.SetPrompt("a quiet harbor")
	if err := s.Generate(context.Background()); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if err := s.Animate(context.Background()); err != nil {
		t.Fatalf("Animate: %v", err)
	}

	if err := r.Delete(s.ID()); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if !s.Closed() {
		t.Fatal("session not closed")
	}
	if _, err := r.Get(s.ID()); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Get after delete = %v", err)
	}
	if _, err := store.Read(context.Background(), s.StoragePrefix()+"/video.mp4"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("artifact survived: %v", err)
	}
	if err := r.Delete(s.ID()); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("second Delete = %v", err)
	}
}

func TestRegistryEvictsIdleSessions(t *testing.T) {
	r := NewRegistry(context.Background(), &fakeService{}, RegistryOptions{TTL: 30 * time.Millisecond})
	defer r.Close()

	s, err := r.Create()
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	eventually(t, "eviction", s.Closed)
	if _, err := r.Get(s.ID()); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Get after eviction = %v", err)
	}
}

func TestRegistryEvictionCancelsRunningAnimation(t *testing.T) {
	started := make(chan struct{})
	svc := &fakeService{}
	svc.animateFn = func(ctx context.Context, prompt string, image *domain.GeneratedImage, observe domain.JobObserver) (*domain.GeneratedVideo, error) {
		close(started)
		<-ctx.Done()
		return nil, domain.NewBackendError("animate image", domain.MsgAnimationFailed, ctx.Err())
	}
	r := NewRegistry(context.Background(), svc, RegistryOptions{})
	defer r.Close()

	s, err := r.Create()
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	_ = s.SetPrompt("a quiet harbor")
	if err := s.Generate(context.Background()); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if err := s.StartAnimate(); err != nil {
		t.Fatalf("StartAnimate: %v", err)
	}
	<-started

	if err := r.Delete(s.ID()); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	snap := s.Snapshot()
	if snap.Animate != FlowFailed || !strings.Contains(snap.Error, "context canceled") {
		t.Fatalf("unexpected snapshot after teardown %+v", snap)
	}
}

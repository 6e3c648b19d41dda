package studio

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"studio/internal/infra"
	"studio/internal/storage"
)

const (
	DefaultSessionTTL    = 30 * time.Minute
	sessionCleanupPeriod = time.Minute
)

// Publisher receives serialized snapshots keyed by session id.
type Publisher interface {
	Publish(topic string, msg []byte)
}

type RegistryOptions struct {
	TTL       time.Duration
	Debounce  time.Duration
	Store     *storage.FileStore
	Publisher Publisher
	Logger    *infra.Logger
}

// Registry owns the live sessions. Sessions idle for longer than the TTL are
// evicted: their flows are cancelled and their stored artifacts removed.
type Registry struct {
	ctx       context.Context
	backend   Service
	debounce  time.Duration
	store     *storage.FileStore
	publisher Publisher
	logger    *infra.Logger
	sessions  *cache.Cache
}

func NewRegistry(ctx context.Context, backend Service, opts RegistryOptions) *Registry {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}
	cleanup := sessionCleanupPeriod
	if ttl < cleanup {
		cleanup = ttl
	}
	r := &Registry{
		ctx:       ctx,
		backend:   backend,
		debounce:  opts.Debounce,
		store:     opts.Store,
		publisher: opts.Publisher,
		logger:    logger,
		sessions:  cache.New(ttl, cleanup),
	}
	r.sessions.OnEvicted(r.evicted)
	return r
}

// Create starts a new session and returns it.
func (r *Registry) Create() (*Session, error) {
	if err := r.ctx.Err(); err != nil {
		return nil, ErrClosed
	}
	id := uuid.NewString()
	s := NewSession(r.ctx, id, r.backend, SessionOptions{
		Debounce: r.debounce,
		Store:    r.store,
		Logger:   r.logger,
		OnChange: func(snap Snapshot) {
			r.touch(id)
			r.publish(snap)
		},
	})
	if err := r.sessions.Add(id, s, cache.DefaultExpiration); err != nil {
		s.Close()
		return nil, err
	}
	r.logger.Info().Str("session_id", id).Msg("studio: session created")
	return s, nil
}

// Get returns a live session and extends its idle deadline.
func (r *Registry) Get(id string) (*Session, error) {
	v, ok := r.sessions.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	s := v.(*Session)
	if s.Closed() {
		r.sessions.Delete(id)
		return nil, ErrSessionNotFound
	}
	r.sessions.Set(id, s, cache.DefaultExpiration)
	return s, nil
}

// Delete tears a session down immediately.
func (r *Registry) Delete(id string) error {
	if _, ok := r.sessions.Get(id); !ok {
		return ErrSessionNotFound
	}
	r.sessions.Delete(id)
	return nil
}

func (r *Registry) Len() int {
	return r.sessions.ItemCount()
}

// Close tears down every session.
func (r *Registry) Close() {
	for id := range r.sessions.Items() {
		r.sessions.Delete(id)
	}
}

// touch keeps a session alive while its flows make progress. It runs on flow
// goroutines, so it must never close the session itself.
func (r *Registry) touch(id string) {
	v, ok := r.sessions.Get(id)
	if !ok {
		return
	}
	if s := v.(*Session); !s.Closed() {
		r.sessions.Set(id, s, cache.DefaultExpiration)
	}
}

func (r *Registry) publish(snap Snapshot) {
	if r.publisher == nil {
		return
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		r.logger.Error().Err(err).Str("session_id", snap.ID).Msg("studio: encode snapshot")
		return
	}
	r.publisher.Publish(snap.ID, payload)
}

func (r *Registry) evicted(id string, v interface{}) {
	s, ok := v.(*Session)
	if !ok {
		return
	}
	s.Close()
	if r.store != nil {
		if err := r.store.RemoveAll(context.Background(), s.StoragePrefix()); err != nil {
			r.logger.Warn().Err(err).Str("session_id", id).Msg("studio: remove session artifacts")
		}
	}
	r.logger.Info().Str("session_id", id).Msg("studio: session removed")
}

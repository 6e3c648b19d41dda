package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"studio/internal/domain"
	"studio/internal/events"
	"studio/pkg/zip"
)

// Generate starts image generation for the session's current prompt. The
// result arrives through the snapshot stream.
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	if err := s.StartGenerate(); err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusAccepted, s.Snapshot())
}

// Animate starts video generation from the session's current image.
func (a *App) Animate(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	if err := s.StartAnimate(); err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusAccepted, s.Snapshot())
}

func (a *App) Image(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	img, err := s.Image()
	if errors.Is(err, domain.ErrNoImage) {
		a.error(w, http.StatusNotFound, "not_found", "no image generated")
		return
	}
	if err != nil {
		a.fail(w, r, err)
		return
	}
	mime := img.MIMEType
	if mime == "" {
		mime = domain.ImageMIMEType
	}
	writeMedia(w, mime, img.Data)
}

func (a *App) Video(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	data, mime, err := s.Video(r.Context())
	if errors.Is(err, domain.ErrNoVideoLink) {
		a.error(w, http.StatusNotFound, "not_found", "no video generated")
		return
	}
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeMedia(w, mime, data)
}

// Events streams session snapshots as server-sent events.
func (a *App) Events(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	if a.Hub == nil {
		a.error(w, http.StatusServiceUnavailable, "unavailable", "event stream not configured")
		return
	}
	initial, err := json.Marshal(s.Snapshot())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		select {
		case <-s.Done():
			cancel()
		case <-ctx.Done():
		}
	}()
	if err := events.Stream(ctx, w, a.Hub, s.ID(), initial); err != nil {
		if errors.Is(err, events.ErrStreamingUnsupported) {
			a.error(w, http.StatusInternalServerError, "internal", "streaming unsupported")
			return
		}
		a.Logger.Debug().Err(err).Str("session_id", s.ID()).Msg("http: event stream ended")
	}
}

func writeMedia(w http.ResponseWriter, mime string, data []byte) {
	h := w.Header()
	h.Set("Content-Type", mime)
	h.Set("Content-Length", strconv.Itoa(len(data)))
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Export downloads the session's prompt, image and video as one zip archive.
func (a *App) Export(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	snap := s.Snapshot()
	assets := []zip.Asset{{Filename: "prompt.txt", Data: []byte(snap.Prompt)}}
	img, err := s.Image()
	if errors.Is(err, domain.ErrNoImage) {
		a.error(w, http.StatusNotFound, "not_found", "no image generated")
		return
	}
	if err != nil {
		a.fail(w, r, err)
		return
	}
	assets = append(assets, zip.Asset{Filename: "image.jpg", Data: img.Data})
	if data, _, err := s.Video(r.Context()); err == nil {
		assets = append(assets, zip.Asset{Filename: "video.mp4", Data: data})
	} else if !errors.Is(err, domain.ErrNoVideoLink) {
		a.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="studio-`+s.ID()+`.zip"`)
	if err := zip.WriteAssets(w, snap.UpdatedAt, assets); err != nil {
		a.Logger.Warn().Err(err).Str("session_id", s.ID()).Msg("http: export failed")
	}
}

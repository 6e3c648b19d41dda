package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type promptRequest struct {
	Text string `json:"text"`
}

type aspectRatioRequest struct {
	AspectRatio string `json:"aspect_ratio"`
}

type selectSuggestionRequest struct {
	Suggestion string `json:"suggestion"`
}

func (a *App) CreateSession(w http.ResponseWriter, r *http.Request) {
	s, err := a.Sessions.Create()
	if err != nil {
		a.fail(w, r, err)
		return
	}
	w.Header().Set("Location", "/v1/sessions/"+s.ID())
	a.json(w, http.StatusCreated, s.Snapshot())
}

func (a *App) GetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	a.json(w, http.StatusOK, s.Snapshot())
}

func (a *App) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := a.Sessions.Delete(chi.URLParam(r, "id")); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) SetPrompt(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	var req promptRequest
	if !a.decode(w, r, &req) {
		return
	}
	if err := s.SetPrompt(req.Text); err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, s.Snapshot())
}

func (a *App) SetAspectRatio(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	var req aspectRatioRequest
	if !a.decode(w, r, &req) {
		return
	}
	if err := s.SetAspectRatio(req.AspectRatio); err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, s.Snapshot())
}

func (a *App) SelectSuggestion(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	var req selectSuggestionRequest
	if !a.decode(w, r, &req) {
		return
	}
	if req.Suggestion == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "suggestion required")
		return
	}
	if err := s.SelectSuggestion(req.Suggestion); err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, s.Snapshot())
}

func (a *App) DismissSuggestions(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	s.DismissSuggestions()
	a.json(w, http.StatusOK, s.Snapshot())
}

func (a *App) FocusPrompt(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	s.FocusPrompt()
	a.json(w, http.StatusOK, s.Snapshot())
}

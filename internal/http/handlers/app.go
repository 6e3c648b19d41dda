package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"studio/internal/domain"
	"studio/internal/events"
	"studio/internal/infra"
	"studio/internal/studio"
)

const maxBodyBytes = 64 << 10

// Sessions is the part of the session registry the handlers use.
type Sessions interface {
	Create() (*studio.Session, error)
	Get(id string) (*studio.Session, error)
	Delete(id string) error
}

type App struct {
	Sessions Sessions
	Hub      *events.Hub
	Logger   *infra.Logger
}

func NewApp(sessions Sessions, hub *events.Hub, logger *infra.Logger) *App {
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &App{Sessions: sessions, Hub: hub, Logger: logger}
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, errorBody{Error: errorDetail{Code: code, Message: message}})
}

// fail maps domain and session errors onto HTTP statuses.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	var verr *domain.ValidationError
	var berr *domain.BackendError
	switch {
	case errors.As(err, &verr):
		a.error(w, http.StatusBadRequest, "validation_error", verr.Message)
	case errors.Is(err, studio.ErrSessionNotFound):
		a.error(w, http.StatusNotFound, "not_found", "session not found")
	case errors.Is(err, studio.ErrClosed):
		a.error(w, http.StatusGone, "gone", "session closed")
	case errors.Is(err, studio.ErrBusy):
		a.error(w, http.StatusConflict, "busy", "Another generation is already in progress.")
	case errors.As(err, &berr):
		a.error(w, http.StatusBadGateway, "backend_error", berr.Error())
	default:
		a.Logger.Error().Err(err).Str("path", r.URL.Path).Msg("http: unhandled error")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func (a *App) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return false
	}
	return true
}

func (a *App) session(w http.ResponseWriter, r *http.Request) (*studio.Session, bool) {
	s, err := a.Sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return nil, false
	}
	return s, true
}

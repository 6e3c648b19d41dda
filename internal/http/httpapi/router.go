package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"studio/internal/http/handlers"
	"studio/internal/infra"
	"studio/internal/middleware"
)

type RouterOptions struct {
	AllowedOrigins  []string
	RateLimitPerMin int
	Logger          infra.Logger
}

func NewRouter(app *handlers.App, opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		middleware.Logger(opts.Logger),
		chimw.Recoverer,
		middleware.CORS(opts.AllowedOrigins),
	)

	r.Get("/v1/healthz", app.Health)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(opts.RateLimitPerMin, time.Minute))

		r.Get("/v1/aspect-ratios", app.AspectRatios)

		r.Route("/v1/sessions", func(r chi.Router) {
			r.Post("/", app.CreateSession)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", app.GetSession)
				r.Delete("/", app.DeleteSession)
				r.Put("/prompt", app.SetPrompt)
				r.Put("/aspect-ratio", app.SetAspectRatio)
				r.Post("/suggestions/select", app.SelectSuggestion)
				r.Post("/suggestions/dismiss", app.DismissSuggestions)
				r.Post("/suggestions/focus", app.FocusPrompt)
				r.Post("/generate", app.Generate)
				r.Post("/animate", app.Animate)
				r.Get("/image", app.Image)
				r.Get("/video", app.Video)
				r.Get("/export", app.Export)
				r.Get("/events", app.Events)
			})
		})
	})

	return r
}

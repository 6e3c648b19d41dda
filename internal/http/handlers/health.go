package handlers

import (
	"net/http"

	"studio/internal/domain"
)

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}

// AspectRatios lists the selectable ratios with their labels.
func (a *App) AspectRatios(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]any{
		"items":   domain.AspectRatioOptions(),
		"default": domain.DefaultAspectRatio,
	})
}

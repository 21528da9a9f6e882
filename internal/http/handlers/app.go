package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"imagestudio/internal/gallery"
	"imagestudio/internal/infra"
	"imagestudio/internal/infra/geoip"
	"imagestudio/internal/service"
)

// App bundles the dependencies every handler needs.
type App struct {
	Predictions *service.Predictions
	Gallery     gallery.Store
	Config      *infra.Config
	Logger      zerolog.Logger
	Geo         *geoip.Resolver
}

func NewApp(predictions *service.Predictions, galleryStore gallery.Store, cfg *infra.Config, logger zerolog.Logger, geo *geoip.Resolver) *App {
	return &App{
		Predictions: predictions,
		Gallery:     galleryStore,
		Config:      cfg,
		Logger:      logger,
		Geo:         geo,
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, message string) {
	a.json(w, code, map[string]string{"error": message})
}

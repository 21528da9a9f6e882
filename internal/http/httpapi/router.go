package httpapi

import (
	stdhttp "net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"imagestudio/internal/http/handlers"
	"imagestudio/internal/middleware"
)

// NewRouter wires the HTTP surface. The API routes sit under /api; when
// the configuration requires authentication the whole subtree goes behind
// the JWT middleware, otherwise the same handlers serve openly.
func NewRouter(app *handlers.App) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, chimw.RealIP, chimw.Recoverer)
	r.Use(middleware.Logger(app.Logger, app.Geo))
	r.Use(middleware.CORS(app.Config.CORSOrigins))

	// Health
	r.Get("/v1/healthz", app.Health)

	r.Route("/api", func(r chi.Router) {
		if app.Config.RateLimitPerMin > 0 {
			r.Use(middleware.RateLimit(app.Config.RateLimitPerMin, time.Minute))
		}
		if app.Config.AuthRequired {
			r.Use(middleware.AuthJWT(app.Config.JWTSecret))
		}

		r.Post("/text-to-image", app.TextToImage)
		r.Post("/inpainting", app.Inpainting)
		r.Get("/predictions/{id}", app.PredictionStatus)

		r.Post("/masks", app.RasterizeMask)

		r.Route("/gallery", func(r chi.Router) {
			r.Get("/", app.GalleryList)
			r.Post("/", app.GalleryAdd)
			r.Get("/archive", app.GalleryArchive)
			r.Delete("/{id}", app.GalleryRemove)
			r.Delete("/", app.GalleryClear)
		})
	})

	return r
}

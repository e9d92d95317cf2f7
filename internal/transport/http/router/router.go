package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hasanat-app/deeds-service/internal/config"
	"github.com/hasanat-app/deeds-service/internal/transport/http/handlers"
	authmw "github.com/hasanat-app/deeds-service/internal/transport/http/middleware"
)

func New(
	deeds *handlers.DeedsHandler,
	lb *handlers.LeaderboardHandler,
	totals *handlers.TotalsHandler,
	admin *handlers.AdminHandler,
	z *handlers.HealthHandler,
	auth *authmw.AuthMiddleware,
	cfg *config.Config,
) http.Handler {
	r := chi.NewRouter()

	r.Use(authmw.RequestID)
	r.Use(authmw.SecurityHeaders)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(authmw.AccessLog)
	r.Use(authmw.Metrics)

	if cfg.RLEnabled {
		r.Use(httprate.Limit(
			cfg.RLLimit,
			cfg.RLWindow,
			httprate.WithKeyFuncs(httprate.KeyByIP),
		))
	}

	r.Get("/healthz", z.Healthz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/deeds/v1", func(r chi.Router) {
		r.Get("/leaderboard", lb.Get)

		r.Group(func(r chi.Router) {
			r.Use(auth.Require)
			r.Post("/deeds", deeds.Submit)
			r.Get("/me/totals", totals.Me)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.Require)
			r.Use(auth.RequireRole("admin"))
			r.Post("/admin/recompute", admin.Recompute)
		})
	})

	return r
}

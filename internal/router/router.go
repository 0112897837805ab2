package router

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/arjenou/5000React/internal/handlers"
	"github.com/arjenou/5000React/internal/middleware"
	"github.com/arjenou/5000React/internal/projects"
	"github.com/arjenou/5000React/internal/uploads"
)

type Deps struct {
	Log          *slog.Logger
	CORSOrigins  []string
	Server       *handlers.Server
	Projects     *projects.Handler
	Uploads      *uploads.Handler
	Auth         middleware.Authenticator
	LoginLimiter *middleware.RateLimiter

	// MediaDir, when set, is served under /media/ (disk blob driver).
	MediaDir       string
	MetricsEnabled bool
}

func New(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID())
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.Recover(d.Log))
	r.Use(middleware.Logger(d.Log))
	r.Use(middleware.Metrics)
	r.Use(middleware.CORS(d.CORSOrigins))
	r.Use(middleware.Timeout(30 * time.Second))

	r.NotFound(handlers.NotFound)
	r.MethodNotAllowed(handlers.NotFound)

	r.Get("/health", d.Server.Health)
	if d.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	if d.MediaDir != "" {
		r.Handle("/media/*", http.StripPrefix("/media/", http.FileServer(http.Dir(d.MediaDir))))
	}

	adminAuth := middleware.AdminAuth(d.Auth, d.Log)
	limitLogin := func(next http.Handler) http.Handler { return next }
	if d.LoginLimiter != nil {
		limitLogin = d.LoginLimiter.Middleware
	}

	r.Route("/api", func(api chi.Router) {
		api.Get("/projects", d.Projects.PublicList)
		api.Get("/projects/{slug}", d.Projects.PublicGetBySlug)

		api.Route("/admin", func(admin chi.Router) {
			admin.With(limitLogin).Post("/login", d.Server.AdminLogin)

			admin.Group(func(protected chi.Router) {
				protected.Use(adminAuth)
				protected.Get("/verify", d.Server.AdminVerify)
				protected.Get("/projects", d.Projects.AdminList)
				protected.Post("/projects", d.Projects.AdminCreate)
				protected.Get("/projects/{id}", d.Projects.AdminGet)
				protected.Put("/projects/{id}", d.Projects.AdminUpdate)
				protected.Delete("/projects/{id}", d.Projects.AdminDelete)
				protected.Post("/upload", d.Uploads.Upload)
			})
		})
	})

	return r
}

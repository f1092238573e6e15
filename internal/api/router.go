package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yangguang01/vibesub/internal/api/handlers"
	"github.com/yangguang01/vibesub/internal/api/middleware"
	"github.com/yangguang01/vibesub/internal/auth"
	"github.com/yangguang01/vibesub/internal/config"
	"github.com/yangguang01/vibesub/internal/store"
	"github.com/yangguang01/vibesub/internal/task"
)

// Deps are the engine components the router exposes.
type Deps struct {
	Config     *config.Config
	JWT        *auth.JWTService
	Store      *store.Store
	Poller     *task.Poller
	Hub        *task.Hub
	Dispatcher handlers.Dispatcher
	Version    string

	// OnSettingChange runs after a setting is stored.
	OnSettingChange func(key, value string)
}

func NewRouter(d Deps) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger)
	r.Use(cors.Handler(middleware.CORSHandler(d.Config.Server.CORSOrigins)))

	// Handlers
	authHandler := handlers.NewAuthHandler()
	healthHandler := handlers.NewHealthHandler(d.Version, func() int { return len(d.Poller.Active()) })
	commandHandler := handlers.NewCommandHandler(d.Dispatcher)
	eventsHandler := handlers.NewEventsHandler(d.Hub)
	taskHandler := handlers.NewTaskHandler(d.Poller)
	videoHandler := handlers.NewVideoHandler(d.Store)
	positionHandler := handlers.NewPositionHandler(d.Store)
	settingsHandler := handlers.NewSettingsHandler(d.Store, d.OnSettingChange)
	commandLimiter := middleware.NewRateLimiter(300, time.Minute)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler.Health)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(d.JWT))

			r.Get("/auth/me", authHandler.Me)

			// Events stream; no body limit applies to a GET
			r.Get("/events", eventsHandler.Stream)

			r.Group(func(r chi.Router) {
				r.Use(middleware.MaxBodySize(d.Config.Server.MaxBodyBytes))

				// Commands
				r.Get("/commands", commandHandler.ListKinds)
				r.With(commandLimiter.Handler).Post("/commands/{kind}", commandHandler.Run)

				// Tasks
				r.Get("/tasks", taskHandler.ListTasks)
				r.Get("/tasks/{id}", taskHandler.GetTask)
				r.Delete("/tasks/{id}", taskHandler.StopTask)

				// Videos and subtitles
				r.Get("/videos/{videoID}", videoHandler.GetVideo)
				r.Delete("/videos/{videoID}", videoHandler.DeleteVideo)
				r.Get("/subtitles/{videoID}", videoHandler.ServeSubtitle)

				// Overlay position
				r.Get("/position", positionHandler.GetPosition)
				r.Put("/position", positionHandler.SavePosition)

				// Settings
				r.Get("/settings", settingsHandler.GetSettings)
				r.Put("/settings", settingsHandler.UpdateSettings)
			})
		})
	})

	return r
}

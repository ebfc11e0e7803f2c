package worker

import (
	"net/http"
	"time"

	"ledger/src/app"
	"ledger/src/config"
	"ledger/src/utils"
	"ledger/src/worker/controllers"
	"ledger/src/worker/handlers"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

type Server struct {
	Router  *chi.Mux
	Handler *handlers.Handler
	logger  *logrus.Logger
	port    string
}

// NewServer builds the worker and installs the nightly extension task.
func NewServer(cfg *config.Config, deps *app.Dependencies, logger *logrus.Logger) (*Server, error) {
	controller := controllers.NewController(deps.SnapshotService, logger)
	if cfg.Snapshots.ExtendCron != "" {
		if err := controller.LoadExtendSchedule(cfg.Snapshots.ExtendCron); err != nil {
			return nil, err
		}
	}
	server := &Server{
		Router:  chi.NewRouter(),
		Handler: handlers.NewHandler(controller),
		logger:  logger,
		port:    cfg.Service.Port,
	}
	server.InitRoutes()
	return server, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}

func (s *Server) InitRoutes() {
	s.Router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(utils.WithLogger(r.Context(), s.logger)))
		})
	})
	s.Router.Get("/alive", s.Handler.Healthcheck)
	s.Router.Post("/api/events", s.Handler.HandleEvent)
	s.Router.Post("/api/snapshots/extend", s.Handler.ExtendSnapshots)
}

// Close stops the scheduled extension task.
func (s *Server) Close() {
	s.Handler.Controller.StopSchedule()
}

func NewHTTPServer(server *Server) *http.Server {
	port := server.port
	if port == "" {
		port = "8000"
	}
	httpServer := &http.Server{
		Addr:         ":" + port,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 15 * time.Minute,
		Handler:      server,
	}
	return httpServer
}

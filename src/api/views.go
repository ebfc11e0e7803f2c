package api

import (
	"net/http"
	"time"

	"ledger/src/api/controllers"
	"ledger/src/api/handlers"
	"ledger/src/app"
	"ledger/src/config"
	"ledger/src/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

type Server struct {
	Router  *chi.Mux
	Handler *handlers.Handler
	logger  *logrus.Logger
	port    string
}

func NewServer(cfg *config.Config, deps *app.Dependencies, logger *logrus.Logger) *Server {
	server := &Server{
		Router:  chi.NewRouter(),
		Handler: handlers.NewHandler(controllers.NewController(deps)),
		logger:  logger,
		port:    cfg.Service.Port,
	}
	server.InitRoutes()
	return server
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}

func (s *Server) InitRoutes() {
	s.Router.Use(middleware.RequestID)
	s.Router.Use(middleware.Recoverer)
	s.Router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(utils.WithLogger(r.Context(), s.logger)))
		})
	})

	s.Router.Get("/alive", handlers.Healthcheck)

	s.Router.Route("/api/portfolios/{portfolioID}", func(r chi.Router) {
		r.Get("/transactions", s.Handler.GetTransactions)
		r.Post("/transactions", s.Handler.AddTransaction)

		r.Get("/holdings", s.Handler.GetHoldings)
		r.Post("/holdings/recalculate", s.Handler.RecalculateHoldings)

		r.Get("/snapshots", s.Handler.GetSnapshots)
		r.Get("/snapshots/latest", s.Handler.GetLatestSnapshot)
		r.Post("/snapshots/compute", s.Handler.ComputeSnapshots)
		r.Post("/snapshots/recompute", s.Handler.RecomputeSnapshots)
		r.Delete("/snapshots", s.Handler.DeleteSnapshots)

		r.Post("/tax-estimate", s.Handler.EstimateTax)
	})

	s.Router.Post("/api/events", s.Handler.HandleEvent)
	s.Router.Put("/api/prices/{assetID}", s.Handler.SetPrice)
}

func NewHTTPServer(server *Server) *http.Server {
	port := server.port
	if port == "" {
		port = "8000"
	}
	httpServer := &http.Server{
		Addr:         ":" + port,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 3 * time.Minute,
		Handler:      server,
	}
	return httpServer
}

package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ledger/src/api"
	"ledger/src/app"
	"ledger/src/config"
	"ledger/src/utils"
	"ledger/src/worker"

	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.LoadConfig("./settings", os.Getenv("ENV"))
	if err != nil {
		log.Println(err, "Error while loading config")
		return
	}
	logger, err := utils.NewLogger(cfg.Logging)
	if err != nil {
		log.Println(err, "Error while creating logger")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.WithError(err).Error("Error while running")
	}
}

func run(ctx context.Context, cfg *config.Config, logger *logrus.Logger) error {
	deps, err := app.New(utils.WithLogger(ctx, logger), cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	var httpServer *http.Server
	if cfg.Service.Type == config.API {
		httpServer = api.NewHTTPServer(api.NewServer(cfg, deps, logger))
	} else {
		server, err := worker.NewServer(cfg, deps, logger)
		if err != nil {
			return err
		}
		defer server.Close()
		httpServer = worker.NewHTTPServer(server)
	}

	errC := make(chan error, 1)
	go func() {
		logger.WithFields(logrus.Fields{
			"type": cfg.Service.Type,
			"addr": httpServer.Addr,
		}).Info("Starting server")

		// "ListenAndServe always returns a non-nil error. After Shutdown or Close, the returned error is
		// ErrServerClosed."
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errC <- err
		}
		close(errC)
	}()

	select {
	case err := <-errC:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

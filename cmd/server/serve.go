package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"participant-import-backend/internal/config"
	handler "participant-import-backend/internal/handlers"
	"participant-import-backend/internal/routes"
	"participant-import-backend/internal/services/importrequest"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("storage", cfg.Storage.Driver).Msg("starting server")

	db, err := config.InitDB(cfg.Database, cfg.IsDevelopment())
	if err != nil {
		return err
	}
	defer func() { _ = config.CloseDB(db) }()

	store, closeStore, err := openStorage(ctx, db)
	if err != nil {
		return err
	}
	defer closeStore()

	directory, closeDirectory, err := openDirectory(db)
	if err != nil {
		return err
	}
	defer closeDirectory()

	publisher, closePublisher, err := openPublisher()
	if err != nil {
		return err
	}
	defer closePublisher()

	svc := importrequest.NewService(store, directory, newReconciler(), publisher)

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := routes.NewRouter(cfg.Server, handler.NewImportRequestHandler(svc, cfg.Upload.MaxRows))

	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("address", cfg.Server.Address).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return errors.Wrap(err, "http server")
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		return err
	}

	log.Info().Msg("server exited properly")
	return nil
}

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ampet/importer/internal/config"
	"github.com/ampet/importer/internal/db"
	"github.com/ampet/importer/internal/importer"
	"github.com/ampet/importer/internal/logger"
	"github.com/ampet/importer/internal/middleware"
	"github.com/ampet/importer/internal/repository"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog := logger.New(cfg.Server.LogLevel)
	defer func() { _ = zlog.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conn, err := db.NewConnection(ctx, cfg.Database)
	if err != nil {
		zlog.Fatalw("failed to connect to database", "error", err)
	}
	defer conn.Close()

	if err := db.RunMigrations(cfg.Database, cfg.Server.MigrationsPath); err != nil {
		zlog.Fatalw("failed to run migrations", "error", err)
	}

	accountRepo := repository.NewAccountRepository(conn.Pool)
	petRepo := repository.NewPetRepository(conn.Pool)
	logRepo := repository.NewImportLogRepository(conn.Pool)

	importService := importer.NewService(accountRepo, petRepo, logRepo, zlog)
	importHandler := importer.NewHTTPHandler(importService, logRepo)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
	})

	mux := http.NewServeMux()
	mux.Handle("/imports", importHandler)
	mux.Handle("/imports/", importHandler)

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      corsHandler.Handler(middleware.Logging(zlog)(mux)),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // large imports run within the request
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		zlog.Infow("starting import server", "addr", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatalw("failed to start server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Fatalw("server forced to shutdown", "error", err)
	}

	zlog.Info("server exited")
}

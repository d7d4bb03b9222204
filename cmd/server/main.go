package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goliatone/go-sharelinks/internal/server"
	"github.com/goliatone/go-sharelinks/pkg/config"
	"github.com/goliatone/go-sharelinks/pkg/interfaces/logger"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load(config.Defaults())
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	lgr := logger.New()

	app, err := NewApp(ctx, cfg, lgr)
	if err != nil {
		log.Fatalf("failed to assemble app: %v", err)
	}
	defer app.Close()

	srv, err := server.New(server.Options{
		Module: app.Module,
		Logger: lgr,
	})
	if err != nil {
		log.Fatalf("failed to configure server: %v", err)
	}

	addr := cfg.Server.Addr()
	lgr.Info("starting server", logger.F("addr", addr))

	go func() {
		if err := srv.Serve(addr); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	lgr.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lgr.Error("server shutdown error", logger.F("error", err.Error()))
	}
	app.Module.Shutdown()
}

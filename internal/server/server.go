// Package server exposes the sharing module over HTTP: tenant-scoped
// admin routes for links, policies, and templates, plus the anonymous
// viewer route that resolves share tokens.
package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-sharelinks/pkg/interfaces/logger"
	"github.com/goliatone/go-sharelinks/pkg/sharing"
)

// Options configure the HTTP server.
type Options struct {
	Module  *sharing.Module
	Logger  logger.Logger
	AppName string
}

// Server wraps the fiber adapter with the sharing routes mounted.
type Server struct {
	app *App
	srv router.Server[*fiber.App]
}

// New builds the server and mounts every route. Serve must still be
// called to start listening.
func New(opts Options) (*Server, error) {
	if opts.Module == nil {
		return nil, errors.New("server: sharing module is required")
	}

	log := opts.Logger
	if log == nil {
		log = &logger.Nop{}
	}
	name := opts.AppName
	if name == "" {
		name = "sharelinks"
	}

	app := &App{
		module: opts.Module,
		log:    log.With(logger.F("component", "server")),
	}

	srv := router.NewFiberAdapter(func(*fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			AppName: name,
		}))
	})

	srv.WrappedRouter().Use(cors.New())

	app.SetupRoutes(srv.Router())

	return &Server{app: app, srv: srv}, nil
}

// Serve blocks listening on addr until the server stops.
func (s *Server) Serve(addr string) error {
	return s.srv.Serve(addr)
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Test dispatches a request through the underlying fiber app without a
// network listener.
func (s *Server) Test(req *http.Request, msTimeout ...int) (*http.Response, error) {
	return s.srv.WrappedRouter().Test(req, msTimeout...)
}

package server

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-sharelinks/pkg/interfaces/logger"
	"github.com/goliatone/go-sharelinks/pkg/sharing"
)

// App holds the handler dependencies.
type App struct {
	module *sharing.Module
	log    logger.Logger
}

// SetupRoutes mounts the admin API and the viewer route.
func (a *App) SetupRoutes(r router.Router[*fiber.App]) {
	r.Get("/health", func(c router.Context) error {
		return c.JSON(http.StatusOK, map[string]any{"status": "ok"})
	})

	// Anonymous viewer path. The token is the only credential.
	r.Get("/shared/:token", a.ViewShared)

	api := r.Group("/api/v1")
	api.Use(a.RequireActor())

	api.Post("/shares", a.CreateShare)
	api.Get("/shares", a.ListShares)
	api.Get("/shares/:id", a.GetShare)
	api.Delete("/shares/:id", a.RevokeShare)

	api.Post("/shares/:id/policies", a.CreatePolicy)
	api.Get("/shares/:id/policies", a.ListPolicies)
	api.Delete("/shares/:id/policies/:policyId", a.DeletePolicy)

	api.Post("/templates", a.CreateTemplate)
	api.Get("/templates", a.ListTemplates)
	api.Post("/templates/preview", a.PreviewTemplate)
	api.Get("/templates/:id", a.GetTemplate)
	api.Put("/templates/:id", a.UpdateTemplate)
	api.Delete("/templates/:id", a.DeleteTemplate)
}

package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/goliatone/go-router"
	"github.com/goliatone/go-sharelinks/pkg/domain"
)

// Actor headers. Upstream auth (gateway or session layer) resolves the
// caller and forwards identity here; this module trusts the headers.
const (
	HeaderTenantID = "X-Tenant-ID"
	HeaderUserID   = "X-User-ID"
	HeaderUserName = "X-User-Name"
)

// Viewer attribute headers consumed by policy evaluation.
const (
	HeaderRealIP       = "X-Real-IP"
	HeaderForwardedFor = "X-Forwarded-For"
	HeaderClientMAC    = "X-Client-MAC"
	HeaderClientRegion = "X-Client-Region"
	HeaderDeviceID     = "X-Device-ID"
	HeaderNetworkID    = "X-Network-ID"
)

type actorContextKey struct{}

// RequireActor rejects admin requests that do not carry tenant and user
// identity, and stashes the resolved actor in the request context.
func (a *App) RequireActor() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			tenantID := strings.TrimSpace(c.Header(HeaderTenantID))
			userID := strings.TrimSpace(c.Header(HeaderUserID))
			if tenantID == "" || userID == "" {
				return c.JSON(http.StatusUnauthorized, map[string]any{
					"error": "tenant and user identity required",
				})
			}

			actor := domain.Actor{
				TenantID: tenantID,
				UserID:   userID,
				Name:     strings.TrimSpace(c.Header(HeaderUserName)),
			}
			c.SetContext(context.WithValue(c.Context(), actorContextKey{}, actor))
			return next(c)
		}
	}
}

// GetActor retrieves the actor resolved by RequireActor.
func GetActor(c router.Context) (domain.Actor, bool) {
	actor, ok := c.Context().Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// viewerContext builds the policy evaluation context from request
// headers. The client IP follows the usual proxy chain: X-Real-IP first,
// then the first hop of X-Forwarded-For. Absent attributes stay empty;
// the evaluator treats them as non-matching.
func viewerContext(c router.Context) domain.RequestContext {
	ip := strings.TrimSpace(c.Header(HeaderRealIP))
	if ip == "" {
		ip = c.Header(HeaderForwardedFor)
		if idx := strings.Index(ip, ","); idx > 0 {
			ip = ip[:idx]
		}
		ip = strings.TrimSpace(ip)
	}

	return domain.RequestContext{
		IP:        ip,
		MAC:       strings.TrimSpace(c.Header(HeaderClientMAC)),
		Region:    strings.TrimSpace(c.Header(HeaderClientRegion)),
		DeviceID:  strings.TrimSpace(c.Header(HeaderDeviceID)),
		NetworkID: strings.TrimSpace(c.Header(HeaderNetworkID)),
	}
}

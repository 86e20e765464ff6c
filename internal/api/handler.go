// Package api exposes the REST surface: login, device management and
// health.
package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/op/go-logging"

	"github.com/Rooney-Eli/gorilla-groove/internal/auth"
	"github.com/Rooney-Eli/gorilla-groove/internal/domain"
	"github.com/Rooney-Eli/gorilla-groove/internal/hub"
	"github.com/Rooney-Eli/gorilla-groove/internal/service"
)

var log = logging.MustGetLogger("api")

const userContextKey = "user"

// Handler holds the REST handlers.
type Handler struct {
	svc  *service.Service
	hub  *hub.Hub
	auth *auth.Manager
}

// NewHandler creates the REST handler set.
func NewHandler(svc *service.Service, h *hub.Hub, authManager *auth.Manager) *Handler {
	return &Handler{svc: svc, hub: h, auth: authManager}
}

// RegisterRoutes wires the REST routes onto the echo instance. Everything
// under /api/device requires a valid token.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)
	e.POST("/api/authentication/login", h.Login)
	e.POST("/api/authentication/logout", h.Logout)

	device := e.Group("/api/device", h.requireUser)
	device.GET("", h.GetDevices)
	device.PUT("", h.UpdateDevice)
	device.GET("/active", h.GetActiveDevices)
	device.POST("/party/:id", h.EnableParty)
	device.DELETE("/party/:id", h.DisableParty)
}

// requireUser resolves the bearer token and stashes the user on the
// request context.
func (h *Handler) requireUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := bearerToken(c.Request().Header.Get("Authorization"))
		user, err := h.auth.Resolve(c.Request().Context(), token)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid or expired token"})
		}
		c.Set(userContextKey, user)
		return next(c)
	}
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	return ""
}

func currentUser(c echo.Context) *domain.User {
	return c.Get(userContextKey).(*domain.User)
}

// Health reports liveness plus broker occupancy.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"sessions":  h.hub.Count(),
		"snapshots": h.svc.SnapshotCount(),
	})
}

// errorStatus maps domain errors onto HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrDeviceNotFound), errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidOperation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func jsonError(c echo.Context, err error) error {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		log.Errorf("%s %s failed: %v", c.Request().Method, c.Path(), err)
		return c.JSON(status, map[string]string{"error": "internal error"})
	}
	return c.JSON(status, map[string]string{"error": err.Error()})
}

package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Rooney-Eli/gorilla-groove/internal/domain"
)

// LoginRequest is the body for POST /api/authentication/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the minted token.
type LoginResponse struct {
	Token     string `json:"token"`
	UserID    int64  `json:"userId"`
	ExpiresAt int64  `json:"expiresAt"` // epoch millis
}

// Login verifies credentials and mints a token.
func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "email and password are required"})
	}

	token, err := h.auth.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		}
		return jsonError(c, err)
	}

	return c.JSON(http.StatusOK, LoginResponse{
		Token:     token.Token,
		UserID:    token.UserID,
		ExpiresAt: token.ExpiresAt.UnixMilli(),
	})
}

// Logout revokes the presented token.
func (h *Handler) Logout(c echo.Context) error {
	token := bearerToken(c.Request().Header.Get("Authorization"))
	if token == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "no token presented"})
	}
	if err := h.auth.Logout(c.Request().Context(), token); err != nil {
		return jsonError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

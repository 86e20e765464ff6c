package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
)

// GetDevices lists the caller's devices.
func (h *Handler) GetDevices(c echo.Context) error {
	user := currentUser(c)
	devices, err := h.svc.DevicesForUser(c.Request().Context(), user.ID)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, devices)
}

// UpdateDeviceRequest is the body for PUT /api/device.
type UpdateDeviceRequest struct {
	DeviceID   string `json:"deviceId"`
	DeviceType string `json:"deviceType"`
	Version    string `json:"version"`
}

// UpdateDevice records a device sighting, creating the device on first
// sight.
func (h *Handler) UpdateDevice(c echo.Context) error {
	user := currentUser(c)

	var req UpdateDeviceRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.DeviceID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "deviceId is required"})
	}

	device, err := h.svc.RegisterDevice(c.Request().Context(), user.ID, req.DeviceID, req.DeviceType, req.Version)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, device)
}

// GetActiveDevices lists the caller's connected devices plus devices shared
// with them through an active party grant.
func (h *Handler) GetActiveDevices(c echo.Context) error {
	user := currentUser(c)
	excluding := c.QueryParam("excluding-device-id")

	devices, err := h.svc.ActiveDevices(c.Request().Context(), user.ID, excluding)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, devices)
}

// PartyRequest is the body for POST /api/device/party/:id.
type PartyRequest struct {
	ControllingUserIDs []int64 `json:"controllingUserIds"`
	PartyUntil         int64   `json:"partyUntil"` // epoch millis
}

// EnableParty turns on the sharing grant for an owned device.
func (h *Handler) EnableParty(c echo.Context) error {
	user := currentUser(c)

	deviceID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid device id"})
	}

	var req PartyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.PartyUntil <= 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "partyUntil is required"})
	}

	device, err := h.svc.EnableParty(c.Request().Context(), user.ID, deviceID,
		time.UnixMilli(req.PartyUntil), req.ControllingUserIDs)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, device)
}

// DisableParty clears the sharing grant for an owned device.
func (h *Handler) DisableParty(c echo.Context) error {
	user := currentUser(c)

	deviceID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid device id"})
	}

	if err := h.svc.DisableParty(c.Request().Context(), user.ID, deviceID); err != nil {
		return jsonError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

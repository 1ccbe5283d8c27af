package handlers

import (
	"errors"
	"net/http"

	"printwatch/internal/service"

	"github.com/gin-gonic/gin"
)

// Common response/status constants to avoid magic strings and typos.
const (
	statusOK          = "ok"
	statusReconnected = "reconnected"
	statusSent        = "sent"

	errGetStatus       = "failed to load printer status"
	errNoConnection    = "printer is not connected"
	errInvalidBodyPref = "invalid body: "
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// Map service command errors onto HTTP codes: missing connection is 503,
// a device rejection is 502, anything else is the caller's fault.
func (h *Handler) commandError(c *gin.Context, logKey string, err error, kv ...interface{}) {
	switch {
	case errors.Is(err, service.ErrNotConnected):
		h.logAndJSONError(c, http.StatusServiceUnavailable, errNoConnection, logKey, err, kv...)
	case errors.Is(err, service.ErrRejected):
		h.logAndJSONError(c, http.StatusBadGateway, err.Error(), logKey, err, kv...)
	default:
		h.logAndJSONError(c, http.StatusBadRequest, err.Error(), logKey, err, kv...)
	}
}

// Request DTO for the control endpoint.
type controlRequest struct {
	Command string `json:"command" binding:"required"` // emergency_stop | led_on | led_off | pause | resume | fan_on | fan_off | disable_motors | home
}

// ControlRequest is an exported model for Swagger docs of the control payload.
type ControlRequest struct {
	// Command to execute. Allowed: emergency_stop, led_on, led_off, pause,
	// resume, fan_on, fan_off, disable_motors, home
	Command string `json:"command" example:"led_on"`
}

// Request DTO for setting a heater target.
type temperatureRequest struct {
	Target string `json:"target" binding:"required"` // nozzle | bed
	Value  int    `json:"value"`
}

// TemperatureRequest is an exported model for Swagger docs of the temperature payload.
type TemperatureRequest struct {
	// Heater to set. Allowed: nozzle, bed
	Target string `json:"target" example:"nozzle"`
	// Target temperature in Celsius (clamped to the heater's safe range)
	Value int `json:"value" example:"210"`
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      Get printer status
// @Description  Latest polled snapshot plus the remaining-time estimate for an active print
// @Tags         printer
// @Produce      json
// @Success      200  {object}  service.StatusReport
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/printer/status [get]
// @Security     BearerAuth
func (h *Handler) getStatus(c *gin.Context) {
	ctx := c.Request.Context()
	report, err := h.services.Monitoring.Status(ctx)
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errGetStatus, "printer_get_status_failed", err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// @Summary      Execute control command
// @Description  Runs a named device command such as emergency_stop or led_on
// @Tags         printer
// @Accept       json
// @Produce      json
// @Param        body  body   ControlRequest  true  "Command payload"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Failure      503   {object}  map[string]string
// @Router       /api/v1/printer/control [post]
// @Security     BearerAuth
func (h *Handler) control(c *gin.Context) {
	var req controlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	ctx := c.Request.Context()
	if err := h.services.Control.Execute(ctx, req.Command); err != nil {
		h.commandError(c, "printer_control_failed", err, "command", req.Command)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusOK, "command": req.Command})
}

// @Summary      Set heater temperature
// @Description  Target is nozzle or bed; out-of-range values are clamped
// @Tags         printer
// @Accept       json
// @Produce      json
// @Param        body  body   TemperatureRequest  true  "Temperature payload"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Failure      503   {object}  map[string]string
// @Router       /api/v1/printer/temperature [post]
// @Security     BearerAuth
func (h *Handler) setTemperature(c *gin.Context) {
	var req temperatureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	ctx := c.Request.Context()
	params := service.TemperatureParams{
		Target: req.Target,
		Value:  req.Value,
	}
	if err := h.services.Control.SetTemperature(ctx, params); err != nil {
		h.commandError(c, "printer_set_temperature_failed", err, "target", req.Target)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusOK, "target": req.Target, "value": req.Value})
}

// @Summary      Get toolhead position
// @Tags         printer
// @Produce      json
// @Success      200  {object}  printer.Position
// @Failure      401  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/v1/printer/position [get]
// @Security     BearerAuth
func (h *Handler) getPosition(c *gin.Context) {
	ctx := c.Request.Context()
	pos, err := h.services.Control.Position(ctx)
	if err != nil {
		h.commandError(c, "printer_get_position_failed", err)
		return
	}
	c.JSON(http.StatusOK, pos)
}

// @Summary      Reconnect to printer
// @Description  Tears down the control session and dials again
// @Tags         printer
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /api/v1/printer/reconnect [post]
// @Security     BearerAuth
func (h *Handler) reconnect(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.services.Control.Reconnect(ctx); err != nil {
		h.logAndJSONError(c, http.StatusBadGateway, err.Error(), "printer_reconnect_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusReconnected})
}

// @Summary      Send test notification
// @Description  Posts a test payload to the configured webhook
// @Tags         printer
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/printer/notifications/test [post]
// @Security     BearerAuth
func (h *Handler) testNotification(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.services.Notifier.Test(ctx); err != nil {
		h.logAndJSONError(c, http.StatusBadRequest, err.Error(), "notification_test_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusSent})
}

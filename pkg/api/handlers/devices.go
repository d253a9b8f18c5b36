package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"aircast/pkg/api/schema"
	"aircast/pkg/api/types"
	"aircast/pkg/store"
)

// DevicesHandler handles persisted device CRUD endpoints
type DevicesHandler struct {
	store     store.Store
	validator *schema.Validator
}

// NewDevicesHandler creates a new devices handler
func NewDevicesHandler(st store.Store, validator *schema.Validator) *DevicesHandler {
	return &DevicesHandler{store: st, validator: validator}
}

// ListDevices handles GET /api/devices
// @Summary      List all devices
// @Description  Returns all persisted device records
// @Tags         devices
// @Produce      json
// @Success      200  {array}   store.Device
// @Failure      500  {object}  types.ErrorResponse  "Store error"
// @Router       /devices [get]
func (h *DevicesHandler) ListDevices(c *gin.Context) {
	devices, err := h.store.GetAllDevices(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: "Failed to list devices"})
		return
	}
	c.JSON(http.StatusOK, devices)
}

// GetDevice handles GET /api/devices/:id
// @Summary      Get device details
// @Description  Returns a single persisted device record
// @Tags         devices
// @Produce      json
// @Param        id   path      int  true  "Device id"
// @Success      200  {object}  store.Device
// @Failure      404  {object}  types.ErrorResponse  "Device not found"
// @Router       /devices/{id} [get]
func (h *DevicesHandler) GetDevice(c *gin.Context) {
	id, ok := pathID(c, "Device not found")
	if !ok {
		return
	}

	d, err := h.store.GetDevice(c.Request.Context(), id)
	if err != nil {
		deviceStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// CreateDevice handles POST /api/devices
// @Summary      Create a device
// @Description  Validates and persists a new device record
// @Tags         devices
// @Accept       json
// @Produce      json
// @Param        request  body      store.DeviceInsert  true  "Device to create"
// @Success      200      {object}  store.Device
// @Failure      400      {object}  types.ErrorResponse  "Invalid device data"
// @Router       /devices [post]
func (h *DevicesHandler) CreateDevice(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "Invalid device data"})
		return
	}

	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "Invalid device data"})
		return
	}
	if details := h.validator.ValidateDeviceInsert(payload); details != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "Invalid device data", Details: details})
		return
	}

	var insert store.DeviceInsert
	if err := json.Unmarshal(body, &insert); err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "Invalid device data"})
		return
	}

	d, err := h.store.CreateDevice(c.Request.Context(), insert)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: "Failed to create device"})
		return
	}
	c.JSON(http.StatusOK, d)
}

// UpdateDevice handles PUT /api/devices/:id
// @Summary      Update a device
// @Description  Applies a partial update to a persisted device record
// @Tags         devices
// @Accept       json
// @Produce      json
// @Param        id       path      int                 true  "Device id"
// @Param        request  body      store.DeviceUpdate  true  "Fields to change"
// @Success      200      {object}  store.Device
// @Failure      400      {object}  types.ErrorResponse  "Invalid device data"
// @Failure      404      {object}  types.ErrorResponse  "Device not found"
// @Router       /devices/{id} [put]
func (h *DevicesHandler) UpdateDevice(c *gin.Context) {
	id, ok := pathID(c, "Device not found")
	if !ok {
		return
	}

	var update store.DeviceUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "Invalid device data"})
		return
	}

	d, err := h.store.UpdateDevice(c.Request.Context(), id, update)
	if err != nil {
		deviceStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// DeleteDevice handles DELETE /api/devices/:id
// @Summary      Delete a device
// @Description  Removes a persisted device record
// @Tags         devices
// @Produce      json
// @Param        id   path      int  true  "Device id"
// @Success      200  {object}  types.SuccessResponse
// @Failure      404  {object}  types.ErrorResponse  "Device not found"
// @Router       /devices/{id} [delete]
func (h *DevicesHandler) DeleteDevice(c *gin.Context) {
	id, ok := pathID(c, "Device not found")
	if !ok {
		return
	}

	if err := h.store.DeleteDevice(c.Request.Context(), id); err != nil {
		deviceStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, types.SuccessResponse{Success: true})
}

// DeviceSessions handles GET /api/devices/:id/sessions
// @Summary      List a device's sessions
// @Description  Returns the sessions recorded against a persisted device
// @Tags         devices
// @Produce      json
// @Param        id   path      int  true  "Device id"
// @Success      200  {array}   store.Session
// @Failure      404  {object}  types.ErrorResponse  "Device not found"
// @Router       /devices/{id}/sessions [get]
func (h *DevicesHandler) DeviceSessions(c *gin.Context) {
	id, ok := pathID(c, "Device not found")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if _, err := h.store.GetDevice(ctx, id); err != nil {
		deviceStoreError(c, err)
		return
	}

	sessions, err := h.store.GetDeviceSessions(ctx, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: "Failed to list sessions"})
		return
	}
	c.JSON(http.StatusOK, sessions)
}

func deviceStoreError(c *gin.Context, err error) {
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, types.ErrorResponse{Error: "Device not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: "Device store error"})
}

// pathID parses the :id path parameter, writing the 404 itself when the
// value is not an integer. Record ids are never non-numeric, so an
// unparseable id is just an unknown one.
func pathID(c *gin.Context, notFound string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, types.ErrorResponse{Error: notFound})
		return 0, false
	}
	return id, true
}

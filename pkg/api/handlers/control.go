package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"aircast/pkg/api/types"
	"aircast/pkg/audio"
	"aircast/pkg/bluetooth"
	"aircast/pkg/session"
)

// ControlHandler handles the live capture and Bluetooth endpoints
type ControlHandler struct {
	coordinator *session.Coordinator
	registry    *bluetooth.Registry
}

// NewControlHandler creates a new control handler
func NewControlHandler(coordinator *session.Coordinator, registry *bluetooth.Registry) *ControlHandler {
	return &ControlHandler{coordinator: coordinator, registry: registry}
}

// BluetoothDevices handles GET /api/bluetooth/devices
// @Summary      List live Bluetooth devices
// @Description  Returns the available and connected device sets
// @Tags         bluetooth
// @Produce      json
// @Success      200  {object}  types.BluetoothDevicesResponse
// @Router       /bluetooth/devices [get]
func (h *ControlHandler) BluetoothDevices(c *gin.Context) {
	c.JSON(http.StatusOK, types.BluetoothDevicesResponse{
		Supported: h.registry.Supported(),
		Scanning:  h.registry.IsScanning(),
		Available: h.registry.Available(),
		Connected: h.registry.Connected(),
	})
}

// Scan handles POST /api/bluetooth/scan
// @Summary      Scan for a device
// @Description  Surfaces the platform device picker and returns the picked device
// @Tags         bluetooth
// @Produce      json
// @Success      200  {object}  bluetooth.Device
// @Failure      404  {object}  types.ErrorResponse  "No device found"
// @Failure      409  {object}  types.ErrorResponse  "Scan already in progress"
// @Failure      503  {object}  types.ErrorResponse  "Bluetooth not supported"
// @Router       /bluetooth/scan [post]
func (h *ControlHandler) Scan(c *gin.Context) {
	d, err := h.coordinator.Scan(c.Request.Context())
	if err != nil {
		bluetoothError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// Connect handles POST /api/bluetooth/devices/:id/connect
// @Summary      Connect a device
// @Description  Connects a discovered device and starts routing audio to it
// @Tags         bluetooth
// @Produce      json
// @Param        id   path      string  true  "Live device id"
// @Success      200  {object}  types.SuccessResponse
// @Failure      404  {object}  types.ErrorResponse  "Device not found"
// @Failure      502  {object}  types.ErrorResponse  "Connection failed"
// @Router       /bluetooth/devices/{id}/connect [post]
func (h *ControlHandler) Connect(c *gin.Context) {
	if err := h.coordinator.ConnectDevice(c.Request.Context(), c.Param("id")); err != nil {
		bluetoothError(c, err)
		return
	}
	c.JSON(http.StatusOK, types.SuccessResponse{Success: true})
}

// Disconnect handles POST /api/bluetooth/devices/:id/disconnect
// @Summary      Disconnect a device
// @Description  Disconnects a connected device
// @Tags         bluetooth
// @Produce      json
// @Param        id   path      string  true  "Live device id"
// @Success      200  {object}  types.SuccessResponse
// @Failure      404  {object}  types.ErrorResponse  "Device not found"
// @Router       /bluetooth/devices/{id}/disconnect [post]
func (h *ControlHandler) Disconnect(c *gin.Context) {
	if err := h.coordinator.DisconnectDevice(c.Request.Context(), c.Param("id")); err != nil {
		bluetoothError(c, err)
		return
	}
	c.JSON(http.StatusOK, types.SuccessResponse{Success: true})
}

// DeviceVolume handles PUT /api/bluetooth/devices/:id/volume
// @Summary      Set device volume
// @Description  Sets the volume of a connected device
// @Tags         bluetooth
// @Accept       json
// @Produce      json
// @Param        id       path      string               true  "Live device id"
// @Param        request  body      types.VolumeRequest  true  "Volume 0-100"
// @Success      200      {object}  types.SuccessResponse
// @Failure      400      {object}  types.ErrorResponse  "Invalid volume"
// @Router       /bluetooth/devices/{id}/volume [put]
func (h *ControlHandler) DeviceVolume(c *gin.Context) {
	var req types.VolumeRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Volume == nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "Invalid volume"})
		return
	}

	if err := h.coordinator.SetDeviceVolume(c.Request.Context(), c.Param("id"), *req.Volume); err != nil {
		bluetoothError(c, err)
		return
	}
	c.JSON(http.StatusOK, types.SuccessResponse{Success: true})
}

// StartCapture handles POST /api/capture/start
// @Summary      Start audio capture
// @Description  Starts system audio capture, falling back to the microphone
// @Tags         capture
// @Produce      json
// @Success      200  {object}  session.Status
// @Failure      403  {object}  types.ErrorResponse  "Permission denied"
// @Failure      409  {object}  types.ErrorResponse  "Already capturing"
// @Failure      503  {object}  types.ErrorResponse  "Capture not supported"
// @Router       /capture/start [post]
func (h *ControlHandler) StartCapture(c *gin.Context) {
	if err := h.coordinator.StartCapture(c.Request.Context()); err != nil {
		captureError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.coordinator.Status())
}

// StopCapture handles POST /api/capture/stop
// @Summary      Stop audio capture
// @Description  Stops capture and closes the recorded session
// @Tags         capture
// @Produce      json
// @Success      200  {object}  session.Status
// @Router       /capture/stop [post]
func (h *ControlHandler) StopCapture(c *gin.Context) {
	h.coordinator.StopCapture(c.Request.Context())
	c.JSON(http.StatusOK, h.coordinator.Status())
}

// CaptureStatus handles GET /api/capture
// @Summary      Capture status
// @Description  Returns the capture state, current level and master volume
// @Tags         capture
// @Produce      json
// @Success      200  {object}  session.Status
// @Router       /capture [get]
func (h *ControlHandler) CaptureStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.coordinator.Status())
}

// MasterVolume handles PUT /api/capture/volume
// @Summary      Set master volume
// @Description  Sets the master output volume driving the gain stage
// @Tags         capture
// @Accept       json
// @Produce      json
// @Param        request  body      types.VolumeRequest  true  "Volume 0-100"
// @Success      200      {object}  session.Status
// @Failure      400      {object}  types.ErrorResponse  "Invalid volume"
// @Router       /capture/volume [put]
func (h *ControlHandler) MasterVolume(c *gin.Context) {
	var req types.VolumeRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Volume == nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "Invalid volume"})
		return
	}

	h.coordinator.SetMasterVolume(*req.Volume)
	c.JSON(http.StatusOK, h.coordinator.Status())
}

func bluetoothError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, bluetooth.ErrUnsupported):
		c.JSON(http.StatusServiceUnavailable, types.ErrorResponse{Error: "Bluetooth not supported"})
	case errors.Is(err, bluetooth.ErrScanInProgress):
		c.JSON(http.StatusConflict, types.ErrorResponse{Error: "Scan already in progress"})
	case errors.Is(err, bluetooth.ErrNoDeviceFound):
		c.JSON(http.StatusNotFound, types.ErrorResponse{Error: "No device found"})
	case errors.Is(err, bluetooth.ErrNotFound):
		c.JSON(http.StatusNotFound, types.ErrorResponse{Error: "Device not found"})
	case errors.Is(err, bluetooth.ErrConnectFailed):
		c.JSON(http.StatusBadGateway, types.ErrorResponse{Error: err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: err.Error()})
	}
}

func captureError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, audio.ErrAlreadyCapturing):
		c.JSON(http.StatusConflict, types.ErrorResponse{Error: "Already capturing"})
	case errors.Is(err, audio.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, types.ErrorResponse{Error: "Audio capture permission denied"})
	case errors.Is(err, audio.ErrNotSupported):
		c.JSON(http.StatusServiceUnavailable, types.ErrorResponse{Error: "Audio capture not supported"})
	case errors.Is(err, audio.ErrCancelled):
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "Capture cancelled"})
	default:
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: err.Error()})
	}
}

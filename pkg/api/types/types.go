package types

import (
	"time"

	"aircast/pkg/bluetooth"
)

// --- Request DTOs ---

// VolumeRequest is the body for the volume endpoints.
type VolumeRequest struct {
	Volume *int `json:"volume" binding:"required"`
}

// --- Response DTOs ---

// ErrorResponse represents an API error. Details carries one entry per
// offending field on validation failures.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

// SuccessResponse is returned from endpoints with no payload.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// HealthResponse is returned from GET /api/health.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// BluetoothDevicesResponse is returned from GET /api/bluetooth/devices.
type BluetoothDevicesResponse struct {
	Supported bool               `json:"supported"`
	Scanning  bool               `json:"scanning"`
	Available []bluetooth.Device `json:"available"`
	Connected []bluetooth.Device `json:"connected"`
}

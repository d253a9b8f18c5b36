package mcp

import (
	"aircast/pkg/bluetooth"
	"aircast/pkg/store"
)

// --- Health Tool ---

// GetHealthOutput is the output for the get_health tool
type GetHealthOutput struct {
	Status    string `json:"status" jsonschema:"description=Overall health status"`
	Bluetooth string `json:"bluetooth" jsonschema:"description=Bluetooth availability (supported or unsupported)"`
	Timestamp string `json:"timestamp" jsonschema:"description=ISO8601 timestamp"`
}

// --- List Devices Tool ---

// ListDevicesOutput is the output for the list_devices tool
type ListDevicesOutput struct {
	Available []bluetooth.Device `json:"available" jsonschema:"description=Discovered devices not currently connected"`
	Connected []bluetooth.Device `json:"connected" jsonschema:"description=Currently connected devices"`
	Persisted []store.Device     `json:"persisted" jsonschema:"description=Persisted device records"`
}

// --- Scan Tool ---

// ScanDevicesOutput is the output for the scan_devices tool
type ScanDevicesOutput struct {
	Device bluetooth.Device `json:"device" jsonschema:"description=The discovered device"`
}

// --- Connect / Disconnect / Volume Tools ---

// ActionOutput is the output for tools that act on a device
type ActionOutput struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

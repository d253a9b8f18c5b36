package mcp

import "github.com/mark3labs/mcp-go/mcp"

// registerTools registers all MCP tools with the server
func (s *Server) registerTools() {
	// Health check
	s.mcpServer.AddTool(
		mcp.NewTool("get_health",
			mcp.WithDescription("Check the health status of the Aircast service"),
		),
		s.handleGetHealth,
	)

	// List devices
	s.mcpServer.AddTool(
		mcp.NewTool("list_devices",
			mcp.WithDescription("List live Bluetooth devices (available and connected) and persisted device records"),
		),
		s.handleListDevices,
	)

	// Scan for devices
	s.mcpServer.AddTool(
		mcp.NewTool("scan_devices",
			mcp.WithDescription("Scan for a nearby Bluetooth audio device and add it to the available set"),
		),
		s.handleScanDevices,
	)

	// Connect device
	s.mcpServer.AddTool(
		mcp.NewTool("connect_device",
			mcp.WithDescription("Connect a discovered Bluetooth device and start routing audio to it"),
			mcp.WithString("id",
				mcp.Required(),
				mcp.Description("Live device id from scan_devices or list_devices"),
			),
		),
		s.handleConnectDevice,
	)

	// Disconnect device
	s.mcpServer.AddTool(
		mcp.NewTool("disconnect_device",
			mcp.WithDescription("Disconnect a connected Bluetooth device"),
			mcp.WithString("id",
				mcp.Required(),
				mcp.Description("Live device id"),
			),
		),
		s.handleDisconnectDevice,
	)

	// Set device volume
	s.mcpServer.AddTool(
		mcp.NewTool("set_device_volume",
			mcp.WithDescription("Set the volume of a connected Bluetooth device"),
			mcp.WithString("id",
				mcp.Required(),
				mcp.Description("Live device id"),
			),
			mcp.WithNumber("volume",
				mcp.Required(),
				mcp.Description("Volume from 0 to 100"),
			),
		),
		s.handleSetDeviceVolume,
	)

	// Start capture
	s.mcpServer.AddTool(
		mcp.NewTool("start_capture",
			mcp.WithDescription("Start system audio capture, falling back to the microphone if system audio is unavailable"),
		),
		s.handleStartCapture,
	)

	// Stop capture
	s.mcpServer.AddTool(
		mcp.NewTool("stop_capture",
			mcp.WithDescription("Stop audio capture and close the recorded session"),
		),
		s.handleStopCapture,
	)

	// Capture status
	s.mcpServer.AddTool(
		mcp.NewTool("get_capture_status",
			mcp.WithDescription("Get the current capture state, audio level and master volume"),
		),
		s.handleGetCaptureStatus,
	)
}

package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) handleGetHealth(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	bluetoothStatus := "unsupported"
	if s.registry.Supported() {
		bluetoothStatus = "supported"
	}

	out := GetHealthOutput{
		Status:    "ok",
		Bluetooth: bluetoothStatus,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	return mcp.NewToolResultText(formatJSON(out)), nil
}

func (s *Server) handleListDevices(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	persisted, err := s.store.GetAllDevices(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list devices: %s", err)), nil
	}

	out := ListDevicesOutput{
		Available: s.registry.Available(),
		Connected: s.registry.Connected(),
		Persisted: persisted,
	}

	return mcp.NewToolResultText(formatJSON(out)), nil
}

func (s *Server) handleScanDevices(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	d, err := s.coordinator.Scan(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("scan failed: %s", err)), nil
	}

	out := ScanDevicesOutput{Device: *d}
	return mcp.NewToolResultText(formatJSON(out)), nil
}

func (s *Server) handleConnectDevice(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requiredString(request, "id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := s.coordinator.ConnectDevice(ctx, id); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to connect device: %s", err)), nil
	}

	out := ActionOutput{
		Success: true,
		Message: fmt.Sprintf("Device %q connected", id),
	}
	return mcp.NewToolResultText(formatJSON(out)), nil
}

func (s *Server) handleDisconnectDevice(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requiredString(request, "id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := s.coordinator.DisconnectDevice(ctx, id); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to disconnect device: %s", err)), nil
	}

	out := ActionOutput{
		Success: true,
		Message: fmt.Sprintf("Device %q disconnected", id),
	}
	return mcp.NewToolResultText(formatJSON(out)), nil
}

func (s *Server) handleSetDeviceVolume(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requiredString(request, "id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	raw, ok := request.GetArguments()["volume"]
	if !ok {
		return mcp.NewToolResultError(`required parameter "volume" is missing`), nil
	}
	volume, ok := raw.(float64)
	if !ok {
		return mcp.NewToolResultError(`parameter "volume" must be a number`), nil
	}

	if err := s.coordinator.SetDeviceVolume(ctx, id, int(volume)); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to set device volume: %s", err)), nil
	}

	out := ActionOutput{
		Success: true,
		Message: fmt.Sprintf("Volume of device %q set to %d", id, int(volume)),
	}
	return mcp.NewToolResultText(formatJSON(out)), nil
}

func (s *Server) handleStartCapture(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.coordinator.StartCapture(ctx); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to start capture: %s", err)), nil
	}
	return mcp.NewToolResultText(formatJSON(s.coordinator.Status())), nil
}

func (s *Server) handleStopCapture(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.coordinator.StopCapture(ctx)
	return mcp.NewToolResultText(formatJSON(s.coordinator.Status())), nil
}

func (s *Server) handleGetCaptureStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(formatJSON(s.coordinator.Status())), nil
}

func requiredString(request mcp.CallToolRequest, key string) (string, error) {
	args := request.GetArguments()
	v, ok := args[key]
	if !ok || v == nil {
		return "", fmt.Errorf("required parameter %q is missing", key)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("parameter %q must be a non-empty string", key)
	}
	return s, nil
}

func formatJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error":"failed to marshal response: %s"}`, err)
	}
	return string(b)
}

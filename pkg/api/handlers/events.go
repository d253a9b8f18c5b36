package handlers

import (
	"encoding/json"
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"aircast/pkg/bluetooth"
)

// EventsHandler streams registry events over SSE
type EventsHandler struct {
	registry *bluetooth.Registry
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(registry *bluetooth.Registry) *EventsHandler {
	return &EventsHandler{registry: registry}
}

// Events handles GET /api/events (SSE stream)
// @Summary      Subscribe to device events
// @Description  Server-Sent Events stream of discovery, connection and volume events
// @Tags         events
// @Produce      text/event-stream
// @Success      200  {string}  string  "SSE event stream"
// @Router       /events [get]
func (h *EventsHandler) Events(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	eventChan := h.registry.Subscribe()
	defer h.registry.Unsubscribe(eventChan)

	sendSSEEvent(c.Writer, "connected", map[string]any{
		"timestamp": time.Now(),
		"message":   "Connected to device event stream",
	})
	c.Writer.Flush()

	clientGone := c.Request.Context().Done()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-clientGone:
			return

		case event, ok := <-eventChan:
			if !ok {
				return
			}
			sendSSEEvent(c.Writer, string(event.Type), map[string]any{
				"type":      event.Type,
				"device":    event.Device,
				"timestamp": event.Timestamp,
			})
			c.Writer.Flush()

		case <-ticker.C:
			sendSSEEvent(c.Writer, "heartbeat", map[string]any{
				"timestamp": time.Now(),
			})
			c.Writer.Flush()
		}
	}
}

// sendSSEEvent writes an SSE event to the response
func sendSSEEvent(w io.Writer, eventType string, data any) {
	jsonData, _ := json.Marshal(data)
	io.WriteString(w, "event: "+eventType+"\n")
	io.WriteString(w, "data: "+string(jsonData)+"\n\n")
}

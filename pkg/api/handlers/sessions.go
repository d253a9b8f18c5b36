package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"aircast/pkg/api/schema"
	"aircast/pkg/api/types"
	"aircast/pkg/store"
)

// SessionsHandler handles persisted session CRUD endpoints
type SessionsHandler struct {
	store     store.Store
	validator *schema.Validator
}

// NewSessionsHandler creates a new sessions handler
func NewSessionsHandler(st store.Store, validator *schema.Validator) *SessionsHandler {
	return &SessionsHandler{store: st, validator: validator}
}

// ListSessions handles GET /api/sessions
// @Summary      List all sessions
// @Description  Returns all recorded capture sessions
// @Tags         sessions
// @Produce      json
// @Success      200  {array}   store.Session
// @Failure      500  {object}  types.ErrorResponse  "Store error"
// @Router       /sessions [get]
func (h *SessionsHandler) ListSessions(c *gin.Context) {
	sessions, err := h.store.GetAllSessions(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: "Failed to list sessions"})
		return
	}
	c.JSON(http.StatusOK, sessions)
}

// ActiveSessions handles GET /api/sessions/active
// @Summary      List active sessions
// @Description  Returns sessions that have not ended yet
// @Tags         sessions
// @Produce      json
// @Success      200  {array}   store.Session
// @Failure      500  {object}  types.ErrorResponse  "Store error"
// @Router       /sessions/active [get]
func (h *SessionsHandler) ActiveSessions(c *gin.Context) {
	sessions, err := h.store.GetActiveSessions(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: "Failed to list sessions"})
		return
	}
	c.JSON(http.StatusOK, sessions)
}

// GetSession handles GET /api/sessions/:id
// @Summary      Get session details
// @Description  Returns a single recorded session
// @Tags         sessions
// @Produce      json
// @Param        id   path      int  true  "Session id"
// @Success      200  {object}  store.Session
// @Failure      404  {object}  types.ErrorResponse  "Session not found"
// @Router       /sessions/{id} [get]
func (h *SessionsHandler) GetSession(c *gin.Context) {
	id, ok := pathID(c, "Session not found")
	if !ok {
		return
	}

	s, err := h.store.GetSession(c.Request.Context(), id)
	if err != nil {
		sessionStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// CreateSession handles POST /api/sessions
// @Summary      Create a session
// @Description  Validates and records a new capture session
// @Tags         sessions
// @Accept       json
// @Produce      json
// @Param        request  body      store.SessionInsert  true  "Session to create"
// @Success      200      {object}  store.Session
// @Failure      400      {object}  types.ErrorResponse  "Invalid session data"
// @Router       /sessions [post]
func (h *SessionsHandler) CreateSession(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "Invalid session data"})
		return
	}

	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "Invalid session data"})
		return
	}
	if details := h.validator.ValidateSessionInsert(payload); details != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "Invalid session data", Details: details})
		return
	}

	var insert store.SessionInsert
	if err := json.Unmarshal(body, &insert); err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "Invalid session data"})
		return
	}

	s, err := h.store.CreateSession(c.Request.Context(), insert)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: "Failed to create session"})
		return
	}
	c.JSON(http.StatusOK, s)
}

// UpdateSession handles PUT /api/sessions/:id
// @Summary      Update a session
// @Description  Applies a partial update to a recorded session
// @Tags         sessions
// @Accept       json
// @Produce      json
// @Param        id       path      int                  true  "Session id"
// @Param        request  body      store.SessionUpdate  true  "Fields to change"
// @Success      200      {object}  store.Session
// @Failure      400      {object}  types.ErrorResponse  "Invalid session data"
// @Failure      404      {object}  types.ErrorResponse  "Session not found"
// @Router       /sessions/{id} [put]
func (h *SessionsHandler) UpdateSession(c *gin.Context) {
	id, ok := pathID(c, "Session not found")
	if !ok {
		return
	}

	var update store.SessionUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "Invalid session data"})
		return
	}

	s, err := h.store.UpdateSession(c.Request.Context(), id, update)
	if err != nil {
		sessionStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func sessionStoreError(c *gin.Context, err error) {
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, types.ErrorResponse{Error: "Session not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: "Session store error"})
}

package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/salocin93/freesign-sub000/pkg/logger"
	"github.com/salocin93/freesign-sub000/service"
)

type CallbackHandler struct {
	render   *service.RenderService
	sessions *service.SessionStore
}

func NewCallbackHandler(render *service.RenderService) *CallbackHandler {
	return &CallbackHandler{
		render:   render,
		sessions: service.GetSessionStore(),
	}
}

// CallbackContent is the payload the rasterizer serializes into the
// callback's content field.
type CallbackContent struct {
	TaskID         string  `json:"task_id"`
	DataID         string  `json:"data_id"`
	State          string  `json:"state"`
	SurfaceURL     string  `json:"surface_url,omitempty"`
	MeasuredHeight float64 `json:"measured_height,omitempty"`
	ErrorMsg       string  `json:"err_msg,omitempty"`
}

// HandleCallback receives a render completion from the rasterizer. The data
// id names the session, page and epoch the render was requested for; a
// completion for a superseded epoch is acknowledged and dropped.
func (h *CallbackHandler) HandleCallback(c *gin.Context) {
	var req service.RenderCallbackPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if !h.render.VerifyChecksum(req.Content, req.Checksum) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Checksum verification failed"})
		return
	}

	var content CallbackContent
	if err := json.Unmarshal([]byte(req.Content), &content); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid content format"})
		return
	}

	sessionID, page, epoch, err := parseRenderDataID(content.DataID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid data id"})
		return
	}

	session := h.sessions.Get(sessionID)
	if session == nil {
		// The session may have expired while the render was in flight.
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}

	switch content.State {
	case "done":
		if !session.CompletePage(page, epoch, content.MeasuredHeight) {
			logger.Debug(c.Request.Context(), "stale render callback discarded",
				"session_id", sessionID,
				"page", page,
				"epoch", epoch,
			)
		}
	case "failed":
		logger.Warn(c.Request.Context(), "page render failed",
			"session_id", sessionID,
			"page", page,
			"epoch", epoch,
			"error_msg", content.ErrorMsg,
		)
		failPage(h.render, session, page, epoch)
	}

	c.JSON(http.StatusOK, gin.H{"message": "Callback received"})
}

// parseRenderDataID splits "sessionID:page:epoch" back into its parts.
func parseRenderDataID(dataID string) (sessionID string, page int, epoch uint64, err error) {
	parts := strings.Split(dataID, ":")
	if len(parts) != 3 {
		return "", 0, 0, strconv.ErrSyntax
	}
	page, err = strconv.Atoi(parts[1])
	if err != nil {
		return "", 0, 0, err
	}
	epoch, err = strconv.ParseUint(parts[2], 10, 64)
	if err != nil {
		return "", 0, 0, err
	}
	return parts[0], page, epoch, nil
}

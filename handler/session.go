package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/salocin93/freesign-sub000/compose"
	"github.com/salocin93/freesign-sub000/config"
	"github.com/salocin93/freesign-sub000/middleware"
	"github.com/salocin93/freesign-sub000/model"
	"github.com/salocin93/freesign-sub000/pagetrack"
	"github.com/salocin93/freesign-sub000/pkg/logger"
	"github.com/salocin93/freesign-sub000/service"
)

type SessionHandler struct {
	render   *service.RenderService
	docs     *service.DocumentStore
	elements *service.ElementStore
	sessions *service.SessionStore
	profiles *config.ProfilesConfig
}

func NewSessionHandler(render *service.RenderService, elements *service.ElementStore, profiles *config.ProfilesConfig) *SessionHandler {
	return &SessionHandler{
		render:   render,
		docs:     service.GetDocumentStore(),
		elements: elements,
		sessions: service.GetSessionStore(),
		profiles: profiles,
	}
}

// CreateSession opens a viewer session on a document. The device signal in
// the body selects the interaction profile; the initial page renders are
// dispatched before the response returns.
func (h *SessionHandler) CreateSession(c *gin.Context) {
	documentID := c.Param("id")

	doc := h.docs.Get(documentID)
	if doc == nil || !h.canAccess(c, doc) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
		return
	}
	if doc.Status != model.StatusReady {
		c.JSON(http.StatusConflict, gin.H{
			"error":  "Document is not ready for viewing",
			"status": doc.Status,
		})
		return
	}

	// An empty body means no signal: desktop profile.
	var signal compose.DeviceSignal
	if err := c.ShouldBindJSON(&signal); err != nil && err != io.EOF {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid device signal"})
		return
	}

	profile := compose.ProfileFor(signal, h.profiles)
	session, requests := service.NewViewerSession(uuid.New().String(), doc, profile)
	session.RecipientID = middleware.GetSigningRecipientID(c)
	h.sessions.Save(session)

	logger.Info(c.Request.Context(), "viewer session created",
		"session_id", session.ID,
		"document_id", documentID,
		"profile", profile.Kind,
		"initial_renders", len(requests),
	)

	h.dispatchRenders(session, requests)

	c.JSON(http.StatusOK, session.Snapshot(h.elements))
}

// GetSession returns the full session snapshot: viewport state, page
// statuses and the overlay projected to screen space.
func (h *SessionHandler) GetSession(c *gin.Context) {
	session := h.accessibleSession(c)
	if session == nil {
		return
	}
	c.JSON(http.StatusOK, session.Snapshot(h.elements))
}

// PostEvent applies one viewer input event and returns the emitted intents
// plus the viewport state after the event. Render requests produced by the
// event are dispatched asynchronously.
func (h *SessionHandler) PostEvent(c *gin.Context) {
	session := h.accessibleSession(c)
	if session == nil {
		return
	}

	var ev service.Event
	if err := c.ShouldBindJSON(&ev); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event"})
		return
	}

	result := session.ApplyEvent(ev, h.elements)
	h.dispatchRenders(session, result.Requests)

	c.JSON(http.StatusOK, result)
}

// DeleteSession closes a viewer session
func (h *SessionHandler) DeleteSession(c *gin.Context) {
	session := h.accessibleSession(c)
	if session == nil {
		return
	}
	h.sessions.Delete(session.ID)
	c.JSON(http.StatusOK, gin.H{"message": "Session closed"})
}

func (h *SessionHandler) accessibleSession(c *gin.Context) *service.ViewerSession {
	session := h.sessions.Get(c.Param("id"))
	if session == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return nil
	}

	if tenant := middleware.GetTenant(c); tenant != "" && session.Tenant == tenant {
		return session
	}
	if middleware.GetSigningDocumentID(c) == session.DocumentID {
		return session
	}

	c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
	return nil
}

func (h *SessionHandler) canAccess(c *gin.Context, doc *model.Document) bool {
	if tenant := middleware.GetTenant(c); tenant != "" && doc.Tenant == tenant {
		return true
	}
	return middleware.GetSigningDocumentID(c) == doc.ID
}

// dispatchRenders submits one render task per request. Each task carries a
// data id of the form "sessionID:page:epoch" so its completion, arriving by
// callback or by polling, is routed back to the exact tracker epoch that
// asked for it.
func (h *SessionHandler) dispatchRenders(session *service.ViewerSession, requests []pagetrack.RenderRequest) {
	for _, req := range requests {
		go renderPage(h.render, session, req)
	}
}

func renderDataID(sessionID string, req pagetrack.RenderRequest) string {
	return fmt.Sprintf("%s:%d:%d", sessionID, req.Page, req.Epoch)
}

func renderPage(render *service.RenderService, session *service.ViewerSession, req pagetrack.RenderRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = context.WithValue(ctx, logger.SessionIDKey, session.ID)

	state := session.ViewportState()
	resp, err := render.CreateRenderTask(ctx, session.PDFURL, req.Page, state.Scale, state.Rotation, renderDataID(session.ID, req))
	if err != nil {
		logger.Warn(ctx, "render task creation failed",
			"page", req.Page,
			"epoch", req.Epoch,
			"error", err,
		)
		failPage(render, session, req.Page, req.Epoch)
		return
	}

	if render.UsesCallback() {
		// Completion arrives on the callback route.
		return
	}
	pollRenderTask(ctx, render, session, resp.Data.TaskID, req)
}

func pollRenderTask(ctx context.Context, render *service.RenderService, session *service.ViewerSession, taskID string, req pagetrack.RenderRequest) {
	for i := 0; i < render.PollMaxAttempts(); i++ {
		select {
		case <-ctx.Done():
			failPage(render, session, req.Page, req.Epoch)
			return
		case <-time.After(render.PollInterval()):
		}

		status, err := render.GetTaskStatus(ctx, taskID)
		if err != nil {
			logger.Warn(ctx, "render poll failed",
				"task_id", taskID,
				"attempt", i+1,
				"error", err,
			)
			continue
		}

		switch status.Data.State {
		case "done":
			if !session.CompletePage(req.Page, req.Epoch, status.Data.MeasuredHeight) {
				logger.Debug(ctx, "stale render discarded",
					"page", req.Page,
					"epoch", req.Epoch,
				)
			}
			return
		case "failed":
			logger.Warn(ctx, "page render failed",
				"page", req.Page,
				"epoch", req.Epoch,
				"error_msg", status.Data.ErrorMsg,
			)
			failPage(render, session, req.Page, req.Epoch)
			return
		}
	}

	failPage(render, session, req.Page, req.Epoch)
}

// failPage marks the page failed and re-dispatches the automatic retry while
// the page's budget lasts.
func failPage(render *service.RenderService, session *service.ViewerSession, page int, epoch uint64) {
	if retry, ok := session.FailPage(page, epoch); ok {
		go renderPage(render, session, retry)
	}
}

package handler

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/salocin93/freesign-sub000/config"
	"github.com/salocin93/freesign-sub000/middleware"
	"github.com/salocin93/freesign-sub000/model"
	"github.com/salocin93/freesign-sub000/palette"
	"github.com/salocin93/freesign-sub000/pkg/logger"
	"github.com/salocin93/freesign-sub000/service"
)

type DocumentHandler struct {
	storage  *service.StorageService
	render   *service.RenderService
	docs     *service.DocumentStore
	elements *service.ElementStore
	sessions *service.SessionStore
	authCfg  *config.AuthConfig
}

func NewDocumentHandler(storage *service.StorageService, render *service.RenderService, elements *service.ElementStore, authCfg *config.AuthConfig) *DocumentHandler {
	return &DocumentHandler{
		storage:  storage,
		render:   render,
		docs:     service.GetDocumentStore(),
		elements: elements,
		sessions: service.GetSessionStore(),
		authCfg:  authCfg,
	}
}

// Upload handles document file upload
func (h *DocumentHandler) Upload(c *gin.Context) {
	tenant := middleware.GetTenant(c)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}
	defer file.Close()

	// Signing documents are always PDF; the rasterizer accepts nothing else.
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext != ".pdf" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only PDF files are allowed"})
		return
	}

	documentID := uuid.New().String()
	objectName := fmt.Sprintf("%s/%s/%s", tenant, documentID, header.Filename)

	err = h.storage.UploadFile(c.Request.Context(), objectName, file, header.Size, "application/pdf")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upload file: " + err.Error()})
		return
	}

	// Presigned URL for the render provider
	pdfURL, err := h.storage.GetPresignedURL(c.Request.Context(), objectName)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate URL: " + err.Error()})
		return
	}

	doc := &model.Document{
		ID:         documentID,
		Filename:   header.Filename,
		Tenant:     tenant,
		ObjectName: objectName,
		PDFURL:     pdfURL,
		Status:     model.StatusPending,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	h.docs.Save(doc)

	// Register with the render provider asynchronously
	go h.registerDocument(doc)

	c.JSON(http.StatusOK, gin.H{
		"id":       documentID,
		"filename": header.Filename,
		"pdf_url":  pdfURL,
		"status":   model.StatusPending,
	})
}

// registerDocument asks the render provider for the page count. Until it
// answers, the document stays pending and no viewer session can be opened.
// A failure here is fatal for the document: it is surfaced on the status
// endpoint and never retried silently.
func (h *DocumentHandler) registerDocument(doc *model.Document) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pageCount, err := h.render.GetPageCount(ctx, doc.PDFURL)
	if err != nil {
		logger.Error(ctx, "document registration failed",
			"document_id", doc.ID,
			"error", err,
		)
		h.docs.UpdateStatus(doc.ID, model.StatusFailed, err.Error())
		return
	}
	if pageCount == 0 {
		h.docs.UpdateStatus(doc.ID, model.StatusFailed, "document has no pages")
		return
	}

	h.docs.SetPageCount(doc.ID, pageCount)
	logger.Info(ctx, "document registered",
		"document_id", doc.ID,
		"page_count", pageCount,
	)
}

// List returns all documents for the current tenant
func (h *DocumentHandler) List(c *gin.Context) {
	tenant := middleware.GetTenant(c)
	docs := h.docs.GetByTenant(tenant)

	result := make([]gin.H, len(docs))
	for i, doc := range docs {
		result[i] = gin.H{
			"id":         doc.ID,
			"filename":   doc.Filename,
			"status":     doc.Status,
			"page_count": doc.PageCount,
			"created_at": doc.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
			"updated_at": doc.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
	}

	c.JSON(http.StatusOK, gin.H{"documents": result})
}

// Get returns a single document
func (h *DocumentHandler) Get(c *gin.Context) {
	tenant := middleware.GetTenant(c)
	id := c.Param("id")

	doc := h.docs.Get(id)
	if doc == nil || doc.Tenant != tenant {
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
		return
	}

	c.JSON(http.StatusOK, doc)
}

// GetStatus returns the registration status of a document
func (h *DocumentHandler) GetStatus(c *gin.Context) {
	tenant := middleware.GetTenant(c)
	id := c.Param("id")

	doc := h.docs.Get(id)
	if doc == nil || doc.Tenant != tenant {
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":         doc.ID,
		"status":     doc.Status,
		"page_count": doc.PageCount,
		"error_msg":  doc.ErrorMsg,
	})
}

// Delete deletes a document along with its elements and open sessions
func (h *DocumentHandler) Delete(c *gin.Context) {
	tenant := middleware.GetTenant(c)
	id := c.Param("id")

	doc := h.docs.Get(id)
	if doc == nil || doc.Tenant != tenant {
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
		return
	}

	if doc.ObjectName != "" && h.storage != nil {
		if err := h.storage.DeleteFile(c.Request.Context(), doc.ObjectName); err != nil {
			// The record still goes away; the orphaned object expires with
			// its presigned URL.
			logger.Warn(c.Request.Context(), "failed to delete stored object",
				"document_id", id,
				"error", err,
			)
		}
	}

	h.docs.Delete(id)
	h.elements.RemoveDocument(id)
	h.sessions.DeleteByDocument(id)

	c.JSON(http.StatusOK, gin.H{"message": "Document deleted"})
}

type AddRecipientRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email"`
}

// AddRecipient appends a recipient to a document. Colors derive from the
// recipient's position in the list, so the response includes the color of
// every recipient, not just the new one.
func (h *DocumentHandler) AddRecipient(c *gin.Context) {
	tenant := middleware.GetTenant(c)
	id := c.Param("id")

	doc := h.docs.Get(id)
	if doc == nil || doc.Tenant != tenant {
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
		return
	}

	var req AddRecipientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	recipient := model.Recipient{
		ID:    uuid.New().String(),
		Name:  req.Name,
		Email: req.Email,
	}
	h.elements.AddRecipient(id, recipient)

	c.JSON(http.StatusOK, gin.H{
		"recipient":  recipient,
		"recipients": h.recipientsWithColors(id),
	})
}

// ListRecipients returns a document's recipients with their display colors
func (h *DocumentHandler) ListRecipients(c *gin.Context) {
	tenant := middleware.GetTenant(c)
	id := c.Param("id")

	doc := h.docs.Get(id)
	if doc == nil || doc.Tenant != tenant {
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"recipients": h.recipientsWithColors(id)})
}

func (h *DocumentHandler) recipientsWithColors(documentID string) []gin.H {
	recipients := h.elements.Recipients(documentID)
	result := make([]gin.H, len(recipients))
	for i, r := range recipients {
		result[i] = gin.H{
			"id":    r.ID,
			"name":  r.Name,
			"email": r.Email,
			"color": palette.ColorFor(recipients, r.ID),
		}
	}
	return result
}

// CreateSigningLink mints a signing token binding one recipient to one
// document. Whoever holds the token can open viewer sessions on that
// document and nothing else.
func (h *DocumentHandler) CreateSigningLink(c *gin.Context) {
	tenant := middleware.GetTenant(c)
	id := c.Param("id")
	recipientID := c.Param("rid")

	doc := h.docs.Get(id)
	if doc == nil || doc.Tenant != tenant {
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
		return
	}
	if _, ok := h.elements.FindRecipient(id, recipientID); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Recipient not found"})
		return
	}

	token, expiresAt, err := middleware.GenerateSigningToken(id, recipientID, h.authCfg)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate signing token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_at": expiresAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

// ListElements returns a document's signing elements with their recipient
// colors, in canonical coordinates.
func (h *DocumentHandler) ListElements(c *gin.Context) {
	tenant := middleware.GetTenant(c)
	id := c.Param("id")

	doc := h.docs.Get(id)
	if doc == nil || doc.Tenant != tenant {
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
		return
	}

	elements, revision := h.elements.Elements(id)
	recipients := h.elements.Recipients(id)

	result := make([]gin.H, len(elements))
	for i, el := range elements {
		result[i] = gin.H{
			"element": el,
			"color":   palette.ColorFor(recipients, el.AssignedRecipientID),
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"elements": result,
		"revision": revision,
	})
}

type SetValueRequest struct {
	Value any `json:"value"`
}

// SetElementValue fills an element's value during signing. Reachable with
// either an account token or a signing token for the document.
func (h *DocumentHandler) SetElementValue(c *gin.Context) {
	id := c.Param("id")
	elementID := c.Param("eid")

	doc := h.docs.Get(id)
	if doc == nil || !h.canAccess(c, doc) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
		return
	}

	var req SetValueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if !h.elements.SetValue(id, elementID, req.Value) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Element not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Value set"})
}

// canAccess checks document access for routes behind ViewerAuth: the owning
// tenant's account, or a signing token bound to this document.
func (h *DocumentHandler) canAccess(c *gin.Context, doc *model.Document) bool {
	if tenant := middleware.GetTenant(c); tenant != "" && doc.Tenant == tenant {
		return true
	}
	return middleware.GetSigningDocumentID(c) == doc.ID
}

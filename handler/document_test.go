package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/salocin93/freesign-sub000/config"
	"github.com/salocin93/freesign-sub000/model"
	"github.com/salocin93/freesign-sub000/service"
)

func newTestDocumentHandler() *DocumentHandler {
	return &DocumentHandler{
		docs:     service.GetDocumentStore(),
		elements: service.NewElementStore(),
		sessions: service.GetSessionStore(),
		authCfg: &config.AuthConfig{
			JWTSecret:               "test-secret",
			SigningTokenExpireHours: 72,
		},
	}
}

func TestDocumentHandlerList(t *testing.T) {
	handler := newTestDocumentHandler()

	handler.docs.Save(&model.Document{ID: "list-1", Filename: "a.pdf", Tenant: "tenant1", Status: model.StatusReady, CreatedAt: time.Now()})
	handler.docs.Save(&model.Document{ID: "list-2", Filename: "b.pdf", Tenant: "tenant1", Status: model.StatusPending, CreatedAt: time.Now()})
	handler.docs.Save(&model.Document{ID: "list-3", Filename: "c.pdf", Tenant: "tenant2", Status: model.StatusReady, CreatedAt: time.Now()})
	defer func() {
		handler.docs.Delete("list-1")
		handler.docs.Delete("list-2")
		handler.docs.Delete("list-3")
	}()

	router := gin.New()
	router.GET("/documents", func(c *gin.Context) {
		c.Set("tenant", "tenant1")
		handler.List(c)
	})

	req := httptest.NewRequest("GET", "/documents", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var response map[string][]map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if len(response["documents"]) != 2 {
		t.Errorf("Expected 2 documents for tenant1, got %d", len(response["documents"]))
	}
}

func TestDocumentHandlerGet(t *testing.T) {
	handler := newTestDocumentHandler()

	handler.docs.Save(&model.Document{
		ID:        "get-test",
		Filename:  "test.pdf",
		Tenant:    "tenant1",
		Status:    model.StatusReady,
		PageCount: 10,
		CreatedAt: time.Now(),
	})
	defer handler.docs.Delete("get-test")

	tests := []struct {
		name           string
		id             string
		tenant         string
		expectedStatus int
	}{
		{name: "valid get", id: "get-test", tenant: "tenant1", expectedStatus: http.StatusOK},
		{name: "wrong tenant", id: "get-test", tenant: "tenant2", expectedStatus: http.StatusNotFound},
		{name: "non-existent", id: "ghost", tenant: "tenant1", expectedStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.GET("/documents/:id", func(c *gin.Context) {
				c.Set("tenant", tt.tenant)
				handler.Get(c)
			})

			req := httptest.NewRequest("GET", "/documents/"+tt.id, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
		})
	}
}

func TestDocumentHandlerGetStatus(t *testing.T) {
	handler := newTestDocumentHandler()

	handler.docs.Save(&model.Document{
		ID:        "status-test",
		Tenant:    "tenant1",
		Status:    model.StatusFailed,
		ErrorMsg:  "document load failed: renderer unreachable",
		CreatedAt: time.Now(),
	})
	defer handler.docs.Delete("status-test")

	router := gin.New()
	router.GET("/documents/:id/status", func(c *gin.Context) {
		c.Set("tenant", "tenant1")
		handler.GetStatus(c)
	})

	req := httptest.NewRequest("GET", "/documents/status-test/status", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var response map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if response["status"] != model.StatusFailed {
		t.Errorf("Expected status '%s', got '%v'", model.StatusFailed, response["status"])
	}
	if response["error_msg"] == "" {
		t.Error("Expected error message in status response")
	}
}

func TestDocumentHandlerDelete(t *testing.T) {
	handler := newTestDocumentHandler()

	handler.docs.Save(&model.Document{ID: "delete-test", Tenant: "tenant1", CreatedAt: time.Now()})
	handler.elements.AddRecipient("delete-test", model.Recipient{ID: "r1", Name: "Alice"})

	router := gin.New()
	router.DELETE("/documents/:id", func(c *gin.Context) {
		c.Set("tenant", "tenant1")
		handler.Delete(c)
	})

	req := httptest.NewRequest("DELETE", "/documents/delete-test", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if handler.docs.Get("delete-test") != nil {
		t.Error("Expected document to be deleted")
	}
	if len(handler.elements.Recipients("delete-test")) != 0 {
		t.Error("Expected element state to be dropped with the document")
	}

	// Deleting again is a 404
	req = httptest.NewRequest("DELETE", "/documents/delete-test", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for repeated delete, got %d", w.Code)
	}
}

func TestDocumentHandlerUploadNoFile(t *testing.T) {
	handler := newTestDocumentHandler()

	router := gin.New()
	router.POST("/upload", func(c *gin.Context) {
		c.Set("tenant", "tenant1")
		handler.Upload(c)
	})

	req := httptest.NewRequest("POST", "/upload", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestDocumentHandlerUploadInvalidType(t *testing.T) {
	handler := newTestDocumentHandler()

	router := gin.New()
	router.POST("/upload", func(c *gin.Context) {
		c.Set("tenant", "tenant1")
		handler.Upload(c)
	})

	body := &bytes.Buffer{}
	body.WriteString("--boundary\r\n")
	body.WriteString("Content-Disposition: form-data; name=\"file\"; filename=\"test.txt\"\r\n")
	body.WriteString("Content-Type: text/plain\r\n\r\n")
	body.WriteString("test content")
	body.WriteString("\r\n--boundary--\r\n")

	req := httptest.NewRequest("POST", "/upload", body)
	req.Header.Set("Content-Type", "multipart/form-data; boundary=boundary")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestDocumentHandlerRecipients(t *testing.T) {
	handler := newTestDocumentHandler()

	handler.docs.Save(&model.Document{ID: "recip-test", Tenant: "tenant1", Status: model.StatusReady, CreatedAt: time.Now()})
	defer handler.docs.Delete("recip-test")

	router := gin.New()
	router.POST("/documents/:id/recipients", func(c *gin.Context) {
		c.Set("tenant", "tenant1")
		handler.AddRecipient(c)
	})
	router.GET("/documents/:id/recipients", func(c *gin.Context) {
		c.Set("tenant", "tenant1")
		handler.ListRecipients(c)
	})

	for _, name := range []string{"Alice", "Bob"} {
		body, _ := json.Marshal(map[string]string{"name": name, "email": name + "@example.com"})
		req := httptest.NewRequest("POST", "/documents/recip-test/recipients", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200 adding %s, got %d", name, w.Code)
		}
	}

	req := httptest.NewRequest("GET", "/documents/recip-test/recipients", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var response map[string][]map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	recipients := response["recipients"]
	if len(recipients) != 2 {
		t.Fatalf("Expected 2 recipients, got %d", len(recipients))
	}
	// Ordinal colors: first recipient green, second blue
	if recipients[0]["color"] != "#22c55e" {
		t.Errorf("Expected first recipient green, got %v", recipients[0]["color"])
	}
	if recipients[1]["color"] != "#3b82f6" {
		t.Errorf("Expected second recipient blue, got %v", recipients[1]["color"])
	}
}

func TestDocumentHandlerCreateSigningLink(t *testing.T) {
	handler := newTestDocumentHandler()

	handler.docs.Save(&model.Document{ID: "link-test", Tenant: "tenant1", Status: model.StatusReady, CreatedAt: time.Now()})
	defer handler.docs.Delete("link-test")
	handler.elements.AddRecipient("link-test", model.Recipient{ID: "r1", Name: "Alice"})

	router := gin.New()
	router.POST("/documents/:id/recipients/:rid/link", func(c *gin.Context) {
		c.Set("tenant", "tenant1")
		handler.CreateSigningLink(c)
	})

	req := httptest.NewRequest("POST", "/documents/link-test/recipients/r1/link", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var response map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if response["token"] == "" {
		t.Error("Expected signing token in response")
	}

	// Unknown recipient
	req = httptest.NewRequest("POST", "/documents/link-test/recipients/ghost/link", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for unknown recipient, got %d", w.Code)
	}
}

func TestDocumentHandlerSetElementValue(t *testing.T) {
	handler := newTestDocumentHandler()

	handler.docs.Save(&model.Document{ID: "value-test", Tenant: "tenant1", Status: model.StatusReady, CreatedAt: time.Now()})
	defer handler.docs.Delete("value-test")

	el := model.SigningElement{
		ID:       "el-1",
		Type:     model.ElementSignature,
		Position: model.Position{X: 10, Y: 20, Page: 1},
		Size:     model.Size{Width: 200, Height: 80},
	}
	handler.elements.Apply("value-test", []model.Intent{{Kind: model.IntentCreateElement, Element: &el}})

	router := gin.New()
	// Signing-token access, no account tenant
	router.POST("/documents/:id/elements/:eid/value", func(c *gin.Context) {
		c.Set("signing_document_id", "value-test")
		c.Set("signing_recipient_id", "r1")
		handler.SetElementValue(c)
	})

	body, _ := json.Marshal(map[string]any{"value": "signed"})
	req := httptest.NewRequest("POST", "/documents/value-test/elements/el-1/value", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	elements, _ := handler.elements.Elements("value-test")
	if elements[0].Value != "signed" {
		t.Errorf("Expected value to be set, got %v", elements[0].Value)
	}

	// Unknown element
	req = httptest.NewRequest("POST", "/documents/value-test/elements/ghost/value", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for unknown element, got %d", w.Code)
	}
}

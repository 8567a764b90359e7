package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func TestRequestIDGenerated(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"request_id": GetRequestID(c)})
	})

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	headerID := w.Header().Get("X-Request-ID")
	if headerID == "" {
		t.Fatal("Expected X-Request-ID header to be set")
	}
	if _, err := uuid.Parse(headerID); err != nil {
		t.Errorf("Expected a valid UUID, got %q", headerID)
	}
}

func TestRequestIDPassedThrough(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("X-Request-ID", "client-supplied-id")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "client-supplied-id" {
		t.Errorf("Expected client-supplied request ID to be kept, got %q", got)
	}
}

func TestGetRequestIDUnset(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if GetRequestID(c) != "" {
		t.Error("Expected empty request ID for unset context")
	}
}

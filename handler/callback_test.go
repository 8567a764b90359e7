package handler

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/salocin93/freesign-sub000/compose"
	"github.com/salocin93/freesign-sub000/config"
	"github.com/salocin93/freesign-sub000/model"
	"github.com/salocin93/freesign-sub000/pagetrack"
	"github.com/salocin93/freesign-sub000/service"
)

func checksumFor(content, seed string) string {
	sum := sha256.Sum256([]byte(content + seed))
	return hex.EncodeToString(sum[:])
}

func newCallbackTestSetup(t *testing.T) (*CallbackHandler, *service.ViewerSession, []pagetrack.RenderRequest) {
	t.Helper()

	// Stub task creation so auto-retry dispatches succeed; completions for
	// them would arrive on the callback route.
	stub := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"code": 0,
			"data": map[string]any{"task_id": "task-retry"},
		})
	}))
	t.Cleanup(stub.Close)

	render := service.NewRenderService(&config.RendererConfig{
		APIURL:      stub.URL,
		CallbackURL: "http://localhost/api/render/callback",
		Seed:        "test-seed",
	})
	handler := &CallbackHandler{
		render:   render,
		sessions: service.GetSessionStore(),
	}

	doc := &model.Document{
		ID:        "callback-doc",
		Tenant:    "tenant1",
		Status:    model.StatusReady,
		PageCount: 10,
		CreatedAt: time.Now(),
	}
	profile := compose.ProfileFor(compose.DeviceSignal{ViewportWidth: 1440}, nil)
	session, requests := service.NewViewerSession("callback-session", doc, profile)
	handler.sessions.Save(session)
	t.Cleanup(func() { handler.sessions.Delete("callback-session") })

	return handler, session, requests
}

func postCallback(t *testing.T, handler *CallbackHandler, content string, checksum string) *httptest.ResponseRecorder {
	t.Helper()

	router := gin.New()
	router.POST("/callback", handler.HandleCallback)

	body, _ := json.Marshal(map[string]string{
		"checksum": checksum,
		"content":  content,
	})
	req := httptest.NewRequest("POST", "/callback", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCallbackHandlerDone(t *testing.T) {
	handler, session, requests := newCallbackTestSetup(t)
	req := requests[0]

	content := fmt.Sprintf(
		`{"task_id":"task-1","data_id":"%s:%d:%d","state":"done","measured_height":842}`,
		session.ID, req.Page, req.Epoch,
	)
	w := postCallback(t, handler, content, checksumFor(content, "test-seed"))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	store := service.NewElementStore()
	snap := session.Snapshot(store)
	if snap.Pages[req.Page-1].Status != pagetrack.StatusLoaded {
		t.Errorf("Expected page %d rendered, got %s", req.Page, snap.Pages[req.Page-1].Status)
	}
	if snap.Pages[req.Page-1].Height != 842 {
		t.Errorf("Expected measured height 842, got %v", snap.Pages[req.Page-1].Height)
	}
}

func TestCallbackHandlerFailed(t *testing.T) {
	handler, session, requests := newCallbackTestSetup(t)
	req := requests[1]

	content := fmt.Sprintf(
		`{"task_id":"task-1","data_id":"%s:%d:%d","state":"failed","err_msg":"raster error"}`,
		session.ID, req.Page, req.Epoch,
	)
	w := postCallback(t, handler, content, checksumFor(content, "test-seed"))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	// The failure consumed the first attempt and the automatic retry put the
	// page back into loading.
	store := service.NewElementStore()
	snap := session.Snapshot(store)
	if snap.Pages[req.Page-1].Status != pagetrack.StatusLoading {
		t.Errorf("Expected page %d loading after auto retry, got %s", req.Page, snap.Pages[req.Page-1].Status)
	}
}

func TestCallbackHandlerBadChecksum(t *testing.T) {
	handler, session, requests := newCallbackTestSetup(t)
	req := requests[0]

	content := fmt.Sprintf(
		`{"task_id":"task-1","data_id":"%s:%d:%d","state":"done","measured_height":842}`,
		session.ID, req.Page, req.Epoch,
	)
	w := postCallback(t, handler, content, "deadbeef")

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 for bad checksum, got %d", w.Code)
	}
}

func TestCallbackHandlerUnknownSession(t *testing.T) {
	handler, _, _ := newCallbackTestSetup(t)

	content := `{"task_id":"task-1","data_id":"ghost-session:1:1","state":"done"}`
	w := postCallback(t, handler, content, checksumFor(content, "test-seed"))

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for unknown session, got %d", w.Code)
	}
}

func TestCallbackHandlerInvalidDataID(t *testing.T) {
	handler, _, _ := newCallbackTestSetup(t)

	content := `{"task_id":"task-1","data_id":"not-a-data-id","state":"done"}`
	w := postCallback(t, handler, content, checksumFor(content, "test-seed"))

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for bad data id, got %d", w.Code)
	}
}

func TestCallbackHandlerInvalidContent(t *testing.T) {
	handler, _, _ := newCallbackTestSetup(t)

	content := "invalid json"
	w := postCallback(t, handler, content, checksumFor(content, "test-seed"))

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for invalid content, got %d", w.Code)
	}
}

func TestCallbackHandlerStaleEpoch(t *testing.T) {
	handler, session, requests := newCallbackTestSetup(t)
	req := requests[0]

	// Regress the page so the in-flight render becomes stale.
	store := service.NewElementStore()
	session.ApplyEvent(service.Event{Type: service.EventPagesVisible, Pages: []int{8}}, store)

	content := fmt.Sprintf(
		`{"task_id":"task-1","data_id":"%s:%d:%d","state":"done","measured_height":842}`,
		session.ID, req.Page, req.Epoch,
	)
	w := postCallback(t, handler, content, checksumFor(content, "test-seed"))

	// Stale completions are acknowledged and dropped.
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	snap := session.Snapshot(store)
	if snap.Pages[req.Page-1].Status == pagetrack.StatusLoaded {
		t.Error("Expected stale completion to be discarded")
	}
}

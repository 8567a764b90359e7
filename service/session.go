package service

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/salocin93/freesign-sub000/compose"
	"github.com/salocin93/freesign-sub000/config"
	"github.com/salocin93/freesign-sub000/geometry"
	"github.com/salocin93/freesign-sub000/model"
	"github.com/salocin93/freesign-sub000/overlay"
	"github.com/salocin93/freesign-sub000/pagetrack"
	"github.com/salocin93/freesign-sub000/palette"
	"github.com/salocin93/freesign-sub000/viewport"
)

// Event types accepted by a viewer session. Each event is a discrete input;
// events are applied strictly in arrival order under the session lock, never
// reordered or batched, because zoom, rotate and pan are cumulative.
const (
	EventZoomIn          = "zoom_in"
	EventZoomOut         = "zoom_out"
	EventRotateLeft      = "rotate_left"
	EventRotateRight     = "rotate_right"
	EventGoToPage        = "go_to_page"
	EventNextPage        = "next_page"
	EventPrevPage        = "prev_page"
	EventResetView       = "reset_view"
	EventPan             = "pan"
	EventPagesVisible    = "pages_visible"
	EventRetryPage       = "retry_page"
	EventArmElement      = "arm_element"
	EventSelectRecipient = "select_recipient"
	EventPress           = "press"
	EventMove            = "move"
	EventRelease         = "release"
)

// Event is one discrete viewer input posted to a session.
type Event struct {
	Type        string            `json:"type" binding:"required"`
	Page        int               `json:"page,omitempty"`
	Pages       []int             `json:"pages,omitempty"`
	X           float64           `json:"x,omitempty"`
	Y           float64           `json:"y,omitempty"`
	DX          float64           `json:"dx,omitempty"`
	DY          float64           `json:"dy,omitempty"`
	ElementType model.ElementType `json:"element_type,omitempty"`
	RecipientID string            `json:"recipient_id,omitempty"`
}

// EventResult is what applying one event produced: emitted element intents,
// render requests the host must dispatch, and the viewport state after the
// event.
type EventResult struct {
	Intents  []model.Intent            `json:"intents,omitempty"`
	Requests []pagetrack.RenderRequest `json:"-"`
	State    viewport.State            `json:"viewport"`
	Selected string                    `json:"selected_element_id,omitempty"`
}

// OverlayElement is a stored element projected to screen space for display.
type OverlayElement struct {
	Element    model.SigningElement `json:"element"`
	ScreenRect geometry.Rect        `json:"screen_rect"`
	Color      string               `json:"color"`
	Selected   bool                 `json:"selected"`
	RemoveZone *geometry.Rect       `json:"remove_zone,omitempty"`
}

// SessionSnapshot is the full view state returned to the host.
type SessionSnapshot struct {
	ID         string                `json:"id"`
	DocumentID string                `json:"document_id"`
	Profile    compose.Profile       `json:"profile"`
	State      viewport.State        `json:"viewport"`
	Pages      []pagetrack.PageState `json:"pages"`
	Overlay    []OverlayElement      `json:"overlay"`
	DragGhost  *model.Position       `json:"drag_ghost,omitempty"`
}

// ViewerSession owns one composed engine instance for one open document
// view. ViewportState and placement state are exclusive to the session; no
// two sessions share any mutable state.
type ViewerSession struct {
	ID          string
	DocumentID  string
	Tenant      string
	RecipientID string // set when the view was opened through a signing link
	PDFURL      string

	mu         sync.Mutex
	engine     *compose.Engine
	elements   []model.SigningElement
	revision   uint64
	lastActive time.Time
	createdAt  time.Time
}

// NewViewerSession composes an engine for the document and returns the
// session along with the initial render requests.
func NewViewerSession(id string, doc *model.Document, profile compose.Profile) (*ViewerSession, []pagetrack.RenderRequest) {
	engine, requests := compose.NewEngine(doc.PageCount, profile)
	now := time.Now()
	return &ViewerSession{
		ID:         id,
		DocumentID: doc.ID,
		Tenant:     doc.Tenant,
		PDFURL:     doc.PDFURL,
		engine:     engine,
		lastActive: now,
		createdAt:  now,
	}, requests
}

// Profile returns the session's interaction profile.
func (s *ViewerSession) Profile() compose.Profile {
	return s.engine.Profile
}

// ViewportState returns the current viewport state.
func (s *ViewerSession) ViewportState() viewport.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Viewport.State()
}

// ApplyEvent applies one input event. Mutating element intents are forwarded
// to the element store inside the same critical section, and the session's
// element cache is refreshed wholesale afterwards.
func (s *ViewerSession) ApplyEvent(ev Event, store *ElementStore) EventResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastActive = time.Now()
	s.syncElements(store)

	e := s.engine
	var result EventResult

	switch ev.Type {
	case EventZoomIn:
		e.Viewport.ZoomIn()
	case EventZoomOut:
		e.Viewport.ZoomOut()
	case EventRotateLeft:
		e.Viewport.RotateLeft()
	case EventRotateRight:
		e.Viewport.RotateRight()
	case EventResetView:
		e.Viewport.ResetView()
	case EventPan:
		e.Viewport.Pan(ev.DX, ev.DY)
	case EventGoToPage, EventNextPage, EventPrevPage:
		before := e.Viewport.State().CurrentPage
		switch ev.Type {
		case EventGoToPage:
			e.Viewport.GoToPage(ev.Page)
		case EventNextPage:
			e.Viewport.NextPage()
		case EventPrevPage:
			e.Viewport.PrevPage()
		}
		// A navigation jump is a visibility signal for the target page.
		if after := e.Viewport.State().CurrentPage; after != before {
			result.Requests = e.Pages.SetVisible([]int{after})
		}
	case EventPagesVisible:
		result.Requests = e.Pages.SetVisible(ev.Pages)
	case EventRetryPage:
		if req, ok := e.Pages.ForceRetry(ev.Page); ok {
			result.Requests = []pagetrack.RenderRequest{req}
		}
	case EventArmElement:
		e.Overlay.ArmType(ev.ElementType)
	case EventSelectRecipient:
		e.Overlay.SetRecipient(ev.RecipientID)
	case EventPress:
		if ev.Page >= 1 && ev.Page <= e.Pages.PageCount() {
			origin := e.PageOrigin(ev.Page)
			scale := e.Viewport.State().Scale
			point := geometry.Point{X: ev.X, Y: ev.Y}
			result.Intents = e.Overlay.Press(point, ev.Page, origin, scale, s.elements)
		}
	case EventMove:
		if page, ok := e.Overlay.ActivePage(); ok {
			origin := e.PageOrigin(page)
			scale := e.Viewport.State().Scale
			e.Overlay.Move(geometry.Point{X: ev.X, Y: ev.Y}, origin, scale)
		}
	case EventRelease:
		if page, ok := e.Overlay.ActivePage(); ok {
			origin := e.PageOrigin(page)
			scale := e.Viewport.State().Scale
			result.Intents = e.Overlay.Release(geometry.Point{X: ev.X, Y: ev.Y}, origin, scale)
		}
	default:
		slog.Warn("unknown viewer event dropped",
			"session_id", s.ID,
			"event_type", ev.Type,
		)
	}

	if store.Apply(s.DocumentID, result.Intents) > 0 {
		s.syncElements(store)
	}

	result.State = e.Viewport.State()
	result.Selected = e.Overlay.SelectedID()
	return result
}

// syncElements replaces the cached element list wholesale when the store's
// revision moved. Must be called with the session lock held.
func (s *ViewerSession) syncElements(store *ElementStore) {
	if rev := store.Revision(s.DocumentID); rev != s.revision {
		s.elements, s.revision = store.Elements(s.DocumentID)
	}
}

// CompletePage routes a provider completion into the tracker. Stale results
// are discarded there.
func (s *ViewerSession) CompletePage(page int, epoch uint64, measuredHeight float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Pages.Complete(page, epoch, measuredHeight)
}

// FailPage records a provider failure and, while the page's retry budget
// lasts, schedules the automatic retry by returning its render request.
func (s *ViewerSession) FailPage(page int, epoch uint64) (pagetrack.RenderRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.engine.Pages.Fail(page, epoch) {
		return pagetrack.RenderRequest{}, false
	}
	return s.engine.Pages.Retry(page)
}

// Snapshot projects the full view state: viewport, page statuses and the
// stored elements mapped to screen space with their recipient colors.
func (s *ViewerSession) Snapshot(store *ElementStore) SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.syncElements(store)
	recipients := store.Recipients(s.DocumentID)

	e := s.engine
	state := e.Viewport.State()

	snap := SessionSnapshot{
		ID:         s.ID,
		DocumentID: s.DocumentID,
		Profile:    e.Profile,
		State:      state,
		Pages:      e.Pages.Snapshot(),
	}

	selected := e.Overlay.SelectedID()
	for _, el := range s.elements {
		origin := e.PageOrigin(el.Position.Page)
		item := OverlayElement{
			Element: el,
			ScreenRect: geometry.ScreenRect(
				geometry.Point{X: el.Position.X, Y: el.Position.Y},
				el.Size.Width, el.Size.Height, origin, state.Scale,
			),
			Color:    palette.ColorFor(recipients, el.AssignedRecipientID),
			Selected: el.ID == selected,
		}
		if item.Selected {
			zone := overlay.RemoveZone(el, origin, state.Scale)
			item.RemoveZone = &zone
		}
		snap.Overlay = append(snap.Overlay, item)
	}

	if pos, ok := e.Overlay.DragPosition(); ok {
		snap.DragGhost = &pos
	}
	return snap
}

// LastActive returns the time of the session's most recent event.
func (s *ViewerSession) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// SessionStore is an in-memory store of live viewer sessions. Sessions are
// independent views; the store only handles lookup and lifecycle.
type SessionStore struct {
	sessions    map[string]*ViewerSession
	mu          sync.RWMutex
	maxSessions int
	idleTimeout time.Duration
}

var (
	globalSessionStore *SessionStore
	sessionStoreOnce   sync.Once
)

// InitSessionStore initializes the global session store with configuration
func InitSessionStore(cfg *config.StoreConfig) {
	sessionStoreOnce.Do(func() {
		globalSessionStore = &SessionStore{
			sessions:    make(map[string]*ViewerSession),
			maxSessions: cfg.MaxSessions,
			idleTimeout: time.Duration(cfg.SessionIdleMinutes) * time.Minute,
		}
		slog.Info("session store initialized",
			"max_sessions", cfg.MaxSessions,
			"idle_minutes", cfg.SessionIdleMinutes,
		)
	})
}

// GetSessionStore returns the global session store
func GetSessionStore() *SessionStore {
	if globalSessionStore == nil {
		globalSessionStore = &SessionStore{
			sessions:    make(map[string]*ViewerSession),
			maxSessions: 500,
			idleTimeout: 30 * time.Minute,
		}
	}
	return globalSessionStore
}

func (s *SessionStore) Save(session *ViewerSession) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[session.ID] = session
	s.cleanupIfNeeded()
}

func (s *SessionStore) Get(id string) *ViewerSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[id]
}

func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// DeleteByDocument drops every session viewing a document, used when the
// document itself is deleted.
func (s *SessionStore) DeleteByDocument(documentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, session := range s.sessions {
		if session.DocumentID == documentID {
			delete(s.sessions, id)
		}
	}
}

// Count returns the number of live sessions
func (s *SessionStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// cleanupIfNeeded expires idle sessions and bounds the total count.
// Must be called with lock held
func (s *SessionStore) cleanupIfNeeded() {
	now := time.Now()
	for id, session := range s.sessions {
		if s.idleTimeout > 0 && now.Sub(session.LastActive()) > s.idleTimeout {
			slog.Info("expiring idle viewer session", "session_id", id)
			delete(s.sessions, id)
		}
	}

	if s.maxSessions <= 0 || len(s.sessions) <= s.maxSessions {
		return
	}

	sessions := make([]*ViewerSession, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, session)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].createdAt.Before(sessions[j].createdAt)
	})

	removeCount := len(sessions) - s.maxSessions
	for i := 0; i < removeCount; i++ {
		slog.Info("auto-cleaning old viewer session", "session_id", sessions[i].ID)
		delete(s.sessions, sessions[i].ID)
	}
}

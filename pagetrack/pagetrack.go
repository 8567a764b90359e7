// Package pagetrack decides which pages of a document are rendered and which
// stay lightweight placeholders, so large documents never have to be fully
// rendered at once.
package pagetrack

import (
	"sync"
)

// Status is the render lifecycle state of a single page.
type Status string

const (
	StatusPlaceholder Status = "placeholder"
	StatusLoading     Status = "loading"
	StatusLoaded      Status = "loaded"
	StatusError       Status = "error"
)

// RenderRequest asks the host to request a page from the external render
// provider. Epoch must be echoed back with the completion; a completion whose
// epoch no longer matches is discarded, which makes late and out-of-order
// provider results harmless.
type RenderRequest struct {
	Page  int
	Epoch uint64
}

// PageState is a read-only snapshot of one page.
type PageState struct {
	Page     int     `json:"page"`
	Status   Status  `json:"status"`
	Height   float64 `json:"height"`
	Attempts int     `json:"-"`
}

type pageState struct {
	status         Status
	measuredHeight float64
	attempts       int
	epoch          uint64
}

// Tracker owns the per-page render states of one document view. Pages are
// 1-based everywhere in its API.
type Tracker struct {
	mu            sync.Mutex
	buffer        int
	retryLimit    int
	defaultHeight float64
	pages         []pageState
}

// New creates a tracker for pageCount pages. The first initialLoad pages
// start in loading rather than placeholder so the first paint is not empty;
// the returned requests cover them. buffer is the number of pages kept loaded
// on each side of a visible page, retryLimit the total render attempts
// allowed per page before its error state becomes terminal.
func New(pageCount, buffer, initialLoad, retryLimit int, defaultHeight float64) (*Tracker, []RenderRequest) {
	if pageCount < 0 {
		pageCount = 0
	}
	t := &Tracker{
		buffer:        buffer,
		retryLimit:    retryLimit,
		defaultHeight: defaultHeight,
		pages:         make([]pageState, pageCount),
	}

	var requests []RenderRequest
	for i := range t.pages {
		t.pages[i].status = StatusPlaceholder
		if i < initialLoad {
			t.pages[i].status = StatusLoading
			t.pages[i].attempts = 1
			t.pages[i].epoch = 1
			requests = append(requests, RenderRequest{Page: i + 1, Epoch: 1})
		}
	}
	return t, requests
}

// SetVisible updates the tracker with the set of pages currently intersecting
// the viewport (a scroll update or a navigation jump). Every page within
// buffer distance of an intersecting page is kept or brought in; everything
// else regresses to placeholder, retaining its measured height. Returns
// render requests for pages newly entering loading.
func (t *Tracker) SetVisible(intersecting []int) []RenderRequest {
	t.mu.Lock()
	defer t.mu.Unlock()

	want := make(map[int]bool)
	for _, p := range intersecting {
		if p < 1 || p > len(t.pages) {
			continue
		}
		lo, hi := p-t.buffer, p+t.buffer
		if lo < 1 {
			lo = 1
		}
		if hi > len(t.pages) {
			hi = len(t.pages)
		}
		for i := lo; i <= hi; i++ {
			want[i] = true
		}
	}

	var requests []RenderRequest
	for i := range t.pages {
		page := i + 1
		ps := &t.pages[i]

		if want[page] {
			if ps.status == StatusPlaceholder {
				ps.status = StatusLoading
				ps.attempts = 1
				ps.epoch++
				requests = append(requests, RenderRequest{Page: page, Epoch: ps.epoch})
			}
			// loading/loaded stay as they are; an in-window error page waits
			// for an explicit retry.
			continue
		}

		if ps.status != StatusPlaceholder {
			// Bump the epoch so any in-flight render for this page is
			// discarded when it completes.
			ps.status = StatusPlaceholder
			ps.attempts = 0
			ps.epoch++
		}
	}
	return requests
}

// Complete records a successful render for page. Returns false when the
// result is stale (the page regressed or was re-requested since) and was
// discarded.
func (t *Tracker) Complete(page int, epoch uint64, measuredHeight float64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	ps := t.page(page)
	if ps == nil || ps.status != StatusLoading || ps.epoch != epoch {
		return false
	}
	ps.status = StatusLoaded
	ps.measuredHeight = measuredHeight
	return true
}

// Fail records a failed render for page, moving it to error. Stale failures
// are discarded the same way as stale completions.
func (t *Tracker) Fail(page int, epoch uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	ps := t.page(page)
	if ps == nil || ps.status != StatusLoading || ps.epoch != epoch {
		return false
	}
	ps.status = StatusError
	return true
}

// Retry re-enters loading from error while the page's retry budget lasts.
// Once attempts reach the limit it returns false and the error state is
// terminal until ForceRetry.
func (t *Tracker) Retry(page int) (RenderRequest, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	ps := t.page(page)
	if ps == nil || ps.status != StatusError || ps.attempts >= t.retryLimit {
		return RenderRequest{}, false
	}
	ps.status = StatusLoading
	ps.attempts++
	ps.epoch++
	return RenderRequest{Page: page, Epoch: ps.epoch}, true
}

/// ForceRetry is the explicit per-page retry affordance: it restarts a page in
// error with a fresh budget, regardless of how many attempts were spent.
func (t *Tracker) ForceRetry(page int) (RenderRequest, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	ps := t.page(page)
	if ps == nil || ps.status != StatusError {
		return RenderRequest{}, false
	}
	ps.status = StatusLoading
	ps.attempts = 1
	ps.epoch++
	return RenderRequest{Page: page, Epoch: ps.epoch}, true
}

// Status returns the current status of page, or placeholder for an invalid
// page number.
func (t *Tracker) Status(page int) Status {
	t.mu.Lock()
	defer t.mu.Unlock()

	ps := t.page(page)
	if ps == nil {
		return StatusPlaceholder
	}
	return ps.status
}

// HeightFor returns the height to reserve for page: the last measured height
// if the page ever loaded, otherwise the default. Keeping the measured height
// across a regression to placeholder prevents layout shift on reload.
func (t *Tracker) HeightFor(page int) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.heightLocked(page)
}

func (t *Tracker) heightLocked(page int) float64 {
	ps := t.page(page)
	if ps == nil || ps.measuredHeight == 0 {
		return t.defaultHeight
	}
	return ps.measuredHeight
}

// Snapshot returns the state of every page in order.
func (t *Tracker) Snapshot() []PageState {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]PageState, len(t.pages))
	for i := range t.pages {
		out[i] = PageState{
			Page:     i + 1,
			Status:   t.pages[i].status,
			Height:   t.heightLocked(i + 1),
			Attempts: t.pages[i].attempts,
		}
	}
	return out
}

// PageCount returns the number of tracked pages.
func (t *Tracker) PageCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pages)
}

// page must be called with the lock held.
func (t *Tracker) page(n int) *pageState {
	if n < 1 || n > len(t.pages) {
		return nil
	}
	return &t.pages[n-1]
}

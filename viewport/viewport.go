// Package viewport owns the transform state of one document view: zoom
// scale, rotation, pan offset and current page. All clamping happens inside
// the operations; no observable state ever leaves the declared domains.
package viewport

import (
	"github.com/salocin93/freesign-sub000/geometry"
)

// Scale bounds shared by every interaction profile.
const (
	MinScale     = 0.5
	MaxScale     = 3.0
	DefaultScale = 1.0
)

// Offset is an accumulated pan translation in screen pixels.
type Offset struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// State is the viewport transform at a point in time. Rotation is always a
// multiple of 90 in [0, 360); CurrentPage is within [1, pageCount] whenever
// the document has pages.
type State struct {
	Scale       float64 `json:"scale"`
	Rotation    int     `json:"rotation"`
	Pan         Offset  `json:"pan"`
	CurrentPage int     `json:"current_page"`
}

// Controller mutates a State through its operations only. It is not
// goroutine-safe on its own; the owning session serializes events.
type Controller struct {
	state      State
	pageCount  int
	zoomStep   float64
	panEnabled bool
}

// NewController creates a controller at the default view (scale 1, no
// rotation, no pan, first page). zoomStep is the per-click scale delta for
// the active profile; panEnabled is true only for the touch profile.
func NewController(pageCount int, zoomStep float64, panEnabled bool) *Controller {
	if pageCount < 0 {
		pageCount = 0
	}
	c := &Controller{
		pageCount:  pageCount,
		zoomStep:   zoomStep,
		panEnabled: panEnabled,
	}
	c.state = c.defaultState()
	return c
}

func (c *Controller) defaultState() State {
	s := State{Scale: DefaultScale}
	if c.pageCount > 0 {
		s.CurrentPage = 1
	}
	return s
}

// State returns a copy of the current viewport state.
func (c *Controller) State() State {
	return c.state
}

// ZoomIn increases scale by one step, clamped to MaxScale.
func (c *Controller) ZoomIn() {
	c.state.Scale = clampScale(c.state.Scale + c.zoomStep)
}

// ZoomOut decreases scale by one step, clamped to MinScale.
func (c *Controller) ZoomOut() {
	c.state.Scale = clampScale(c.state.Scale - c.zoomStep)
}

// RotateLeft rotates the view 90 degrees counter-clockwise.
func (c *Controller) RotateLeft() {
	c.state.Rotation = geometry.NormalizeRotation(c.state.Rotation - 90)
}

// RotateRight rotates the view 90 degrees clockwise.
func (c *Controller) RotateRight() {
	c.state.Rotation = geometry.NormalizeRotation(c.state.Rotation + 90)
}

// GoToPage navigates to page n. Out-of-range values are a no-op rather than
// an error; CurrentPage is left unchanged.
func (c *Controller) GoToPage(n int) {
	if n < 1 || n > c.pageCount {
		return
	}
	c.state.CurrentPage = n
}

// NextPage advances one page, stopping at the last.
func (c *Controller) NextPage() {
	c.GoToPage(c.state.CurrentPage + 1)
}

// PrevPage goes back one page, stopping at the first.
func (c *Controller) PrevPage() {
	c.GoToPage(c.state.CurrentPage - 1)
}

// Pan accumulates a pan delta. Profiles without pan support drop the event.
func (c *Controller) Pan(dx, dy float64) {
	if !c.panEnabled {
		return
	}
	c.state.Pan.X += dx
	c.state.Pan.Y += dy
}

// ResetView restores the default viewport state, clearing zoom, rotation and
// any accumulated pan.
func (c *Controller) ResetView() {
	c.state = c.defaultState()
}

func clampScale(s float64) float64 {
	if s < MinScale {
		return MinScale
	}
	if s > MaxScale {
		return MaxScale
	}
	return s
}

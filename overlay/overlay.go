// Package overlay turns pointer gestures into element intents: placement,
// selection, drag and removal of signing elements. It never writes element
// state itself; intents are forwarded to the external element store, and the
// store's copy is authoritative.
package overlay

import (
	"math"

	"github.com/google/uuid"

	"github.com/salocin93/freesign-sub000/geometry"
	"github.com/salocin93/freesign-sub000/model"
)

// RemoveZoneSize is the edge length, in screen pixels, of the remove
// affordance square anchored at a selected element's top-right corner.
const RemoveZoneSize = 16.0

type phase int

const (
	phaseIdle phase = iota
	phasePressed
	phaseDragging
)

// Placement is the ephemeral placement state: which element type is armed
// for placement and which recipient it will be assigned to. An element may
// only be created when both are set.
type Placement struct {
	ActiveType  model.ElementType `json:"active_type,omitempty"`
	RecipientID string            `json:"recipient_id,omitempty"`
}

// Resolver is the gesture state machine for one document view. Like the
// viewport controller it relies on the owning session to serialize events.
type Resolver struct {
	defaultSizes  map[model.ElementType]model.Size
	dragThreshold float64

	placement  Placement
	selectedID string

	gesture     phase
	pressScreen geometry.Point
	grabbed     model.SigningElement
	grabOffset  geometry.Point
	dragPos     model.Position
}

// NewResolver creates a resolver with the profile's default element sizes
// and drag threshold (screen pixels of travel before a press becomes a drag).
func NewResolver(defaultSizes map[model.ElementType]model.Size, dragThreshold float64) *Resolver {
	return &Resolver{
		defaultSizes:  defaultSizes,
		dragThreshold: dragThreshold,
	}
}

// ArmType arms an element type for placement, or disarms with "".
func (r *Resolver) ArmType(t model.ElementType) {
	if t != "" && !t.Valid() {
		return
	}
	r.placement.ActiveType = t
}

// SetRecipient selects the recipient future placements are assigned to.
func (r *Resolver) SetRecipient(id string) {
	r.placement.RecipientID = id
}

// Placement returns the current placement state.
func (r *Resolver) Placement() Placement {
	return r.placement
}

// SelectedID returns the id of the currently selected element, or "".
func (r *Resolver) SelectedID() string {
	return r.selectedID
}

// ActivePage returns the page of the element held by the current gesture,
// for resolving move/release events against the right page origin.
func (r *Resolver) ActivePage() (int, bool) {
	if r.gesture == phaseIdle {
		return 0, false
	}
	return r.grabbed.Position.Page, true
}

// Press resolves a press at screen point p on page. elements is the current
// store-backed element list; origin and scale locate the page on screen.
func (r *Resolver) Press(p geometry.Point, page int, origin geometry.Point, scale float64, elements []model.SigningElement) []model.Intent {
	r.gesture = phaseIdle

	if r.placement.ActiveType != "" {
		if r.placement.RecipientID == "" {
			// The placement gate: never create an element without a
			// recipient, signal the host to prompt for one instead.
			return []model.Intent{{Kind: model.IntentNeedRecipient}}
		}
		return r.place(p, page, origin, scale)
	}

	// Remove affordance beats element hit-testing, so the remove button of a
	// selected element works even when it overlaps another element.
	if r.selectedID != "" {
		if el, ok := findElement(elements, r.selectedID); ok && el.Position.Page == page {
			if RemoveZone(el, origin, scale).Contains(p) {
				r.selectedID = ""
				return []model.Intent{{Kind: model.IntentRemoveElement, ElementID: el.ID}}
			}
		}
	}

	// Hit-test topmost first.
	for i := len(elements) - 1; i >= 0; i-- {
		el := elements[i]
		if el.Position.Page != page {
			continue
		}
		bounds := geometry.ScreenRect(
			geometry.Point{X: el.Position.X, Y: el.Position.Y},
			el.Size.Width, el.Size.Height, origin, scale,
		)
		if !bounds.Contains(p) {
			continue
		}

		r.selectedID = el.ID
		r.gesture = phasePressed
		r.pressScreen = p
		r.grabbed = el
		canonical := geometry.ToCanonical(p, origin, scale)
		r.grabOffset = geometry.Point{
			X: canonical.X - el.Position.X,
			Y: canonical.Y - el.Position.Y,
		}
		return []model.Intent{{Kind: model.IntentSelectElement, ElementID: el.ID}}
	}

	r.selectedID = ""
	return nil
}

func (r *Resolver) place(p geometry.Point, page int, origin geometry.Point, scale float64) []model.Intent {
	canonical := geometry.ToCanonical(p, origin, scale)
	size := r.defaultSizes[r.placement.ActiveType]

	el := model.SigningElement{
		ID:   uuid.New().String(),
		Type: r.placement.ActiveType,
		Position: model.Position{
			X:    canonical.X,
			Y:    canonical.Y,
			Page: page,
		},
		Size:                size,
		Required:            true,
		AssignedRecipientID: r.placement.RecipientID,
	}

	// One placement per arm; the host re-arms for repeated placement.
	r.placement.ActiveType = ""
	r.selectedID = el.ID

	return []model.Intent{{Kind: model.IntentCreateElement, Element: &el}}
}

// Move updates an in-progress gesture. No intents are emitted while
// dragging; the canonical position is recomputed on every move but only
// written out on release, so concurrent store updates cannot feed back.
func (r *Resolver) Move(p, origin geometry.Point, scale float64) {
	switch r.gesture {
	case phasePressed:
		if distance(p, r.pressScreen) < r.dragThreshold {
			return
		}
		r.gesture = phaseDragging
		r.updateDrag(p, origin, scale)
	case phaseDragging:
		r.updateDrag(p, origin, scale)
	}
}

func (r *Resolver) updateDrag(p, origin geometry.Point, scale float64) {
	canonical := geometry.ToCanonical(p, origin, scale)
	r.dragPos = model.Position{
		X:    canonical.X - r.grabOffset.X,
		Y:    canonical.Y - r.grabOffset.Y,
		Page: r.grabbed.Position.Page,
	}
}

// Release ends the gesture, emitting a single MoveElement intent when a drag
// took place.
func (r *Resolver) Release(p, origin geometry.Point, scale float64) []model.Intent {
	defer func() { r.gesture = phaseIdle }()

	if r.gesture != phaseDragging {
		return nil
	}
	r.updateDrag(p, origin, scale)
	pos := r.dragPos
	return []model.Intent{{
		Kind:      model.IntentMoveElement,
		ElementID: r.grabbed.ID,
		Position:  &pos,
	}}
}

// DragPosition returns the current canonical drag position while a drag is
// in progress, for rendering the element ghost.
func (r *Resolver) DragPosition() (model.Position, bool) {
	if r.gesture != phaseDragging {
		return model.Position{}, false
	}
	return r.dragPos, true
}

// RemoveZone is the screen-space hit area of an element's remove affordance,
// centered on the projected top-right corner.
func RemoveZone(el model.SigningElement, origin geometry.Point, scale float64) geometry.Rect {
	bounds := geometry.ScreenRect(
		geometry.Point{X: el.Position.X, Y: el.Position.Y},
		el.Size.Width, el.Size.Height, origin, scale,
	)
	return geometry.Rect{
		X:      bounds.X + bounds.Width - RemoveZoneSize/2,
		Y:      bounds.Y - RemoveZoneSize/2,
		Width:  RemoveZoneSize,
		Height: RemoveZoneSize,
	}
}

func findElement(elements []model.SigningElement, id string) (model.SigningElement, bool) {
	for _, el := range elements {
		if el.ID == id {
			return el, true
		}
	}
	return model.SigningElement{}, false
}

func distance(a, b geometry.Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

package model

// ElementType identifies the kind of signing element placed on a page.
type ElementType string

const (
	ElementSignature ElementType = "signature"
	ElementDate      ElementType = "date"
	ElementText      ElementType = "text"
	ElementCheckbox  ElementType = "checkbox"
	ElementName      ElementType = "name"
	ElementEmail     ElementType = "email"
	ElementAddress   ElementType = "address"
	ElementTitle     ElementType = "title"
)

// Valid reports whether t is one of the known element types.
func (t ElementType) Valid() bool {
	switch t {
	case ElementSignature, ElementDate, ElementText, ElementCheckbox,
		ElementName, ElementEmail, ElementAddress, ElementTitle:
		return true
	}
	return false
}

// Position locates an element in canonical document space: coordinates are
// relative to the page's unrotated, unscaled frame. Page numbers are 1-based.
type Position struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Page int     `json:"page"`
}

// Size is an element's canonical width and height.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// SigningElement is an interactive field placed on a document page. Position
// and Size are always canonical; screen placement is derived at render time.
type SigningElement struct {
	ID                  string      `json:"id"`
	Type                ElementType `json:"type"`
	Position            Position    `json:"position"`
	Size                Size        `json:"size"`
	Value               any         `json:"value,omitempty"` // string, bool or nil
	Required            bool        `json:"required"`
	AssignedRecipientID string      `json:"assigned_recipient_id,omitempty"`
}

package model

// IntentKind names the element-intent events the overlay resolver emits.
type IntentKind string

const (
	IntentCreateElement IntentKind = "create_element"
	IntentSelectElement IntentKind = "select_element"
	IntentMoveElement   IntentKind = "move_element"
	IntentRemoveElement IntentKind = "remove_element"

	// IntentNeedRecipient is a control-flow signal, not an error: a placement
	// was attempted with an armed element type but no recipient selected.
	IntentNeedRecipient IntentKind = "need_recipient"
)

// Intent is an element mutation (or signal) produced by the overlay resolver
// and consumed by the element store. Element is set for create intents,
// Position for move intents, ElementID for select/move/remove.
type Intent struct {
	Kind      IntentKind      `json:"kind"`
	ElementID string          `json:"element_id,omitempty"`
	Element   *SigningElement `json:"element,omitempty"`
	Position  *Position       `json:"position,omitempty"`
}

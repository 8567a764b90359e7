// Package palette assigns display colors to recipients by their position in
// the document's ordered recipient list. The assignment is deterministic for
// a given (list order, id) pair; reordering recipients reassigns colors,
// which is intended behavior.
package palette

import (
	"fmt"

	"github.com/salocin93/freesign-sub000/model"
)

// Fixed colors for the first three recipients, and the neutral color used
// for unassigned or unknown recipients.
const (
	ColorFirst      = "#22c55e"
	ColorSecond     = "#3b82f6"
	ColorThird      = "#a855f7"
	ColorUnassigned = "#9ca3af"
)

// ColorFor returns the display color for recipientID within the ordered
// recipients list. Recipients past the first three get an evenly spaced hue.
func ColorFor(recipients []model.Recipient, recipientID string) string {
	idx := -1
	for i := range recipients {
		if recipients[i].ID == recipientID {
			idx = i
			break
		}
	}

	switch {
	case idx < 0:
		return ColorUnassigned
	case idx == 0:
		return ColorFirst
	case idx == 1:
		return ColorSecond
	case idx == 2:
		return ColorThird
	}

	hue := idx * 360 / len(recipients)
	return fmt.Sprintf("hsl(%d, 70%%, 50%%)", hue)
}

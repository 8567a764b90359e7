package service

import (
	"log/slog"
	"sync"

	"github.com/salocin93/freesign-sub000/model"
)

// ElementStore is the authoritative store of signing elements and recipients
// per document. Viewer sessions hold read-only caches of its element lists
// and replace them wholesale whenever the revision moves; no partial merging
// happens anywhere.
type ElementStore struct {
	mu   sync.RWMutex
	docs map[string]*documentElements
}

type documentElements struct {
	elements   []model.SigningElement
	recipients []model.Recipient
	revision   uint64
}

func NewElementStore() *ElementStore {
	return &ElementStore{
		docs: make(map[string]*documentElements),
	}
}

func (s *ElementStore) doc(documentID string) *documentElements {
	d, ok := s.docs[documentID]
	if !ok {
		d = &documentElements{}
		s.docs[documentID] = d
	}
	return d
}

// Elements returns a copy of the document's elements and the current
// revision.
func (s *ElementStore) Elements(documentID string) ([]model.SigningElement, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.docs[documentID]
	if !ok {
		return nil, 0
	}
	out := make([]model.SigningElement, len(d.elements))
	copy(out, d.elements)
	return out, d.revision
}

// Revision returns the document's element revision without copying.
func (s *ElementStore) Revision(documentID string) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if d, ok := s.docs[documentID]; ok {
		return d.revision
	}
	return 0
}

// Recipients returns a copy of the document's ordered recipient list.
func (s *ElementStore) Recipients(documentID string) []model.Recipient {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.docs[documentID]
	if !ok {
		return nil
	}
	out := make([]model.Recipient, len(d.recipients))
	copy(out, d.recipients)
	return out
}

// AddRecipient appends a recipient. Order matters: display colors derive
// from list position.
func (s *ElementStore) AddRecipient(documentID string, r model.Recipient) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := s.doc(documentID)
	d.recipients = append(d.recipients, r)
	d.revision++
}

// FindRecipient looks a recipient up by id.
func (s *ElementStore) FindRecipient(documentID, recipientID string) (model.Recipient, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if d, ok := s.docs[documentID]; ok {
		for _, r := range d.recipients {
			if r.ID == recipientID {
				return r, true
			}
		}
	}
	return model.Recipient{}, false
}

// Apply executes element intents against the store. Selection and
// need-recipient signals are not store mutations and are skipped. Returns
// the number of intents that mutated state.
func (s *ElementStore) Apply(documentID string, intents []model.Intent) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := s.doc(documentID)
	applied := 0
	for _, intent := range intents {
		switch intent.Kind {
		case model.IntentCreateElement:
			if intent.Element == nil {
				continue
			}
			d.elements = append(d.elements, *intent.Element)
			applied++
		case model.IntentMoveElement:
			if intent.Position == nil {
				continue
			}
			for i := range d.elements {
				if d.elements[i].ID == intent.ElementID {
					d.elements[i].Position = *intent.Position
					applied++
					break
				}
			}
		case model.IntentRemoveElement:
			for i := range d.elements {
				if d.elements[i].ID == intent.ElementID {
					d.elements = append(d.elements[:i], d.elements[i+1:]...)
					applied++
					break
				}
			}
		}
	}

	if applied > 0 {
		d.revision++
		slog.Debug("element intents applied",
			"document_id", documentID,
			"applied", applied,
			"revision", d.revision,
		)
	}
	return applied
}

// SetValue fills an element's value during signing interaction.
func (s *ElementStore) SetValue(documentID, elementID string, value any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.docs[documentID]
	if !ok {
		return false
	}
	for i := range d.elements {
		if d.elements[i].ID == elementID {
			d.elements[i].Value = value
			d.revision++
			return true
		}
	}
	return false
}

// RemoveDocument drops all element state for a deleted document.
func (s *ElementStore) RemoveDocument(documentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, documentID)
}

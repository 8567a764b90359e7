package model

import (
	"time"
)

// Document represents an uploaded document that can be viewed and signed.
// PageCount becomes known once the render provider reports it and is
// immutable afterwards.
type Document struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	Tenant     string    `json:"tenant"`
	ObjectName string    `json:"-"`
	PDFURL     string    `json:"pdf_url"`
	PageCount  int       `json:"page_count"`
	Status     string    `json:"status"` // pending, ready, failed
	ErrorMsg   string    `json:"error_msg,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Document status constants
const (
	StatusPending = "pending"
	StatusReady   = "ready"
	StatusFailed  = "failed"
)

// Recipient is a person expected to fill signing elements. Display color is
// derived from the recipient's position in the document's ordered recipient
// list, never stored on the recipient itself.
type Recipient struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

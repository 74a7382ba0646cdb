package models

import "time"

// Session lifecycle states.
const (
	SessionCreated       = "created"
	SessionTextExtracted = "text_extracted"
)

// Session is an uploaded resume held by the session registry. It is written once on
// upload and never mutated after its text is attached.
type Session struct {
	ID        string    `json:"resume_id"`
	Raw       []byte    `json:"-"`
	Text      string    `json:"parsed_resume,omitempty"`
	HasText   bool      `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// State reports where the session is in its lifecycle.
func (s *Session) State() string {
	if s.HasText {
		return SessionTextExtracted
	}
	return SessionCreated
}

package services

import (
	"errors"
	"fmt"
)

// Pipeline error kinds. Components wrap these with detail; callers classify with errors.Is.
var (
	// ErrDocumentParse marks bytes that are not a parseable document. Not retried.
	ErrDocumentParse = errors.New("document parse error")

	// ErrNoSession means nothing has been uploaded yet.
	ErrNoSession = errors.New("no recent resume found")

	// ErrUnknownSession means the session id is not registered.
	ErrUnknownSession = errors.New("resume session not found")

	// ErrTextNotReady means the session exists but has no extracted text attached.
	ErrTextNotReady = errors.New("parsed resume not found")

	// ErrGraphStore marks connectivity or constraint failures of the entity store.
	ErrGraphStore = errors.New("graph store error")

	// ErrRecognizer marks a failure of the entity recognizer backend.
	ErrRecognizer = errors.New("entity recognizer error")
)

// IsPrecondition reports errors caused by missing sessions or text rather than by a fault.
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrNoSession) ||
		errors.Is(err, ErrUnknownSession) ||
		errors.Is(err, ErrTextNotReady)
}

// ErrorCode is the machine-readable code reported next to the error detail.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrDocumentParse):
		return "document_parse_error"
	case errors.Is(err, ErrNoSession):
		return "no_session"
	case errors.Is(err, ErrUnknownSession):
		return "unknown_session"
	case errors.Is(err, ErrTextNotReady):
		return "text_not_ready"
	case errors.Is(err, ErrGraphStore):
		return "graph_store_error"
	case errors.Is(err, ErrRecognizer):
		return "recognizer_error"
	default:
		return "internal_error"
	}
}

func storeError(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %v", ErrGraphStore, op, err)
}

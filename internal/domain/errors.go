package domain

import (
	"errors"
	"fmt"
)

// DocumentError marks a failure that aborts processing of the current
// document or result file. Other documents in the same batch continue.
type DocumentError struct {
	Document string // metadata document or result file name
	Stage    string // section or processing stage
	Err      error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("document %s: %s: %v", e.Document, e.Stage, e.Err)
}

func (e *DocumentError) Unwrap() error { return e.Err }

// NewDocumentError wraps err as fatal to the named document.
func NewDocumentError(document, stage string, err error) *DocumentError {
	return &DocumentError{Document: document, Stage: stage, Err: err}
}

// IsDocumentError reports whether err is fatal to a document.
func IsDocumentError(err error) bool {
	var de *DocumentError
	return errors.As(err, &de)
}

// EntryError marks a failure of a single entry (material, treatment,
// condition, row). The entry is skipped and processing continues.
type EntryError struct {
	Section string
	Key     string
	Err     error
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("%s entry %q: %v", e.Section, e.Key, e.Err)
}

func (e *EntryError) Unwrap() error { return e.Err }

// NewEntryError wraps err as recoverable for the named entry.
func NewEntryError(section, key string, err error) *EntryError {
	return &EntryError{Section: section, Key: key, Err: err}
}

// ErrResolverUnavailable distinguishes an external resolver outage or
// timeout from an ordinary "no candidates" result. The two must never be
// conflated: an outage is fatal to the document, an empty result is not.
var ErrResolverUnavailable = errors.New("identifier resolver unavailable")

package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrSubjectNotFound is returned for an unknown subject name.
	ErrSubjectNotFound = errors.New("subject not found")
	// ErrChapterNotFound is returned for an unknown chapter key.
	ErrChapterNotFound = errors.New("chapter not found")
	// ErrQuestionNotFound indicates a submitted question index is outside the chapter.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrOptionNotFound indicates a submitted option index is outside the question.
	ErrOptionNotFound = errors.New("option not found")
	// ErrStaleAnswer rejects a duplicate or out-of-order answer submission.
	// It is expected and non-fatal: the submission caused no mutation.
	ErrStaleAnswer = errors.New("duplicate or stale answer")
	// ErrVersionConflict is returned by a progress store when a conditional
	// save lost a race with a concurrent writer. The prior state is intact.
	ErrVersionConflict = errors.New("progress version conflict")
	// ErrStorage marks transient infrastructure failures. Callers may retry:
	// submissions are idempotent and reads are side-effect free.
	ErrStorage = errors.New("storage unavailable")
)

// ValidationError rejects a whole question set during catalog ingestion.
// Entry is the 0-based index of the first offending question, or -1 when the
// set as a whole is malformed.
type ValidationError struct {
	Entry  int
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Entry < 0 {
		return "invalid question set: " + e.Reason
	}
	return fmt.Sprintf("invalid question set: entry %d: %s", e.Entry, e.Reason)
}

// StorageErr wraps a driver error so callers can match ErrStorage with errors.Is.
func StorageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStorage, op, err)
}

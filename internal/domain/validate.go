package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// ParseQuestionSet decodes the admin-ingested JSON exchange format: an array
// of {question, options, correct, explanation} objects. Anything else is
// rejected with a ValidationError; the decode is strict so a typo'd field
// name fails loudly instead of silently producing a zero value.
func ParseQuestionSet(data []byte) ([]Question, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var questions []Question
	if err := dec.Decode(&questions); err != nil {
		return nil, &ValidationError{Entry: -1, Reason: fmt.Sprintf("malformed JSON: %v", err)}
	}
	if dec.More() {
		return nil, &ValidationError{Entry: -1, Reason: "trailing data after question array"}
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, &ValidationError{Entry: -1, Reason: "trailing data after question array"}
	}
	if err := ValidateQuestionSet(questions); err != nil {
		return nil, err
	}
	return questions, nil
}

// ValidateQuestionSet checks a question set against the ingestion contract.
// Any violation rejects the whole set so the catalog never holds a half-valid
// chapter.
func ValidateQuestionSet(questions []Question) error {
	if len(questions) == 0 {
		return &ValidationError{Entry: -1, Reason: "question set is empty"}
	}
	for i, q := range questions {
		if strings.TrimSpace(q.Text) == "" {
			return &ValidationError{Entry: i, Reason: "question text is empty"}
		}
		if len(q.Options) < 2 {
			return &ValidationError{Entry: i, Reason: fmt.Sprintf("needs at least 2 options, got %d", len(q.Options))}
		}
		if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
			return &ValidationError{Entry: i, Reason: fmt.Sprintf("correct index %d out of range [0,%d)", q.CorrectIndex, len(q.Options))}
		}
	}
	return nil
}

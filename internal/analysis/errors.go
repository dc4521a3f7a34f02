package analysis

import "fmt"

// ClassificationError reports a failed scope classification.
type ClassificationError struct {
	Err error
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("classification failed: %v", e.Err)
}

func (e *ClassificationError) Unwrap() error { return e.Err }

// ExtractionError reports a failed structured extraction. Span is the
// zero-based index of the failed span in a multi-incident document, or
// -1 when the failure was not span-scoped.
type ExtractionError struct {
	Span int
	Err  error
}

func (e *ExtractionError) Error() string {
	if e.Span >= 0 {
		return fmt.Sprintf("extraction failed on span %d: %v", e.Span, e.Err)
	}
	return fmt.Sprintf("extraction failed: %v", e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

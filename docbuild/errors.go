package docbuild

import "fmt"

// NormalizationErrorKind classifies fatal normalization failures.
type NormalizationErrorKind string

const (
	TypeMismatch      NormalizationErrorKind = "type_mismatch"
	UnrecognizedShape NormalizationErrorKind = "unrecognized_shape"
)

// ExpectedSchema documents the canonical content payload. It rides along on
// every NormalizationError so a model-driven caller can correct its payload
// and retry without a human in the loop.
const ExpectedSchema = `{
  "title":      "optional string",
  "author":     "optional string",
  "headings":   [{"text": "string", "level": 1}],
  "paragraphs": ["string"],
  "tables":     [{"data": [["cell", "cell"], ["cell", "cell"]]}],
  "images":     [{"source": "local path or URL", "caption": "optional", "width": 4.0}],
  "page_breaks": 0
}`

// NormalizationError is fatal: returned before any document mutation.
type NormalizationError struct {
	Kind     NormalizationErrorKind
	Expected string
	Got      string
	Detail   string
}

func (e *NormalizationError) Error() string {
	msg := fmt.Sprintf("normalization failed (%s)", e.Kind)
	if e.Expected != "" || e.Got != "" {
		msg += fmt.Sprintf(": expected %s, got %s", e.Expected, e.Got)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg + "; expected content schema: " + ExpectedSchema
}

// SpecError is fatal: a top-level ContentSpec field has the wrong shape
// (e.g. "tables" is not a sequence). Detected before any append happens.
type SpecError struct {
	Field  string
	Detail string
}

func (e *SpecError) Error() string {
	return fmt.Sprintf("invalid content spec: field %q %s", e.Field, e.Detail)
}

// TableShapeError is per-element: rows are not rectangular. The orchestrator
// records it and moves on; it never aborts the batch.
type TableShapeError struct {
	Row  int
	Got  int
	Want int
}

func (e *TableShapeError) Error() string {
	return fmt.Sprintf("table row %d has %d columns, want %d", e.Row, e.Got, e.Want)
}

// ImageUnavailableError is per-element: the image source could not be
// resolved (missing local file, failed fetch, undecodable data).
type ImageUnavailableError struct {
	Source string
	Err    error
}

func (e *ImageUnavailableError) Error() string {
	return fmt.Sprintf("image unavailable: %s: %v", e.Source, e.Err)
}

func (e *ImageUnavailableError) Unwrap() error { return e.Err }

// SerializationError is fatal: finalize failed, no partial output is returned.
type SerializationError struct {
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("document serialization failed: %v", e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

// UploadError is non-fatal to generation: the document bytes were produced
// but the storage collaborator rejected them. The generation result is still
// returned with the upload marked failed.
type UploadError struct {
	Filename string
	Err      error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload failed: %s: %v", e.Filename, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

package document

import "io"

// FailureKind classifies why extraction produced no text.
type FailureKind string

const (
	FailureUnsupportedFormat FailureKind = "unsupported-format"
	FailureEmptyExtraction   FailureKind = "empty-extraction"
	FailureExtractionError   FailureKind = "extraction-error"
)

// ExtractResult is a tagged result: extractors never raise past their
// boundary, every failure becomes a kind plus a display-safe message.
// Detail carries the underlying cause for logs only.
type ExtractResult struct {
	Text    string
	Failure FailureKind
	Detail  string
}

// OK reports a successful extraction. "Success with little text" is
// still OK; minimum length is the caller's policy.
func (r ExtractResult) OK() bool {
	return r.Failure == ""
}

// Message is the short, user-facing reason for a failed extraction.
func (r ExtractResult) Message() string {
	switch r.Failure {
	case FailureUnsupportedFormat:
		return "unsupported resume format"
	case FailureEmptyExtraction:
		return "resume contained no extractable text"
	case FailureExtractionError:
		return "could not extract text from resume"
	default:
		return ""
	}
}

// Extractor port: turns a binary resume stream into plain text.
type Extractor interface {
	Extract(r io.Reader, contentType string) ExtractResult
}

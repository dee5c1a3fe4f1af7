package jobdesc

import (
	"bytes"
	"errors"
	"strings"
	"time"
)

const (
	// MinDescriptionLength keeps junk job descriptions out of the LLM.
	MinDescriptionLength = 50

	// MaxResumeBytes caps resume uploads at 10 MB.
	MaxResumeBytes = 10 << 20
)

var (
	ErrTitleRequired       = errors.New("title is required")
	ErrDescriptionTooShort = errors.New("description must be at least 50 characters")
	ErrResumeType          = errors.New("resume must be a PDF or Word document")
	ErrResumeTooLarge      = errors.New("resume is too large, maximum size is 10MB")
	ErrResumeCorrupt       = errors.New("resume file appears to be corrupted or has an invalid format")
)

// JobDescription is the parent entity. Owned by the request layer; the
// pipeline only ever reads it.
type JobDescription struct {
	ID                string    `json:"id"`
	Title             string    `json:"title"`
	Description       string    `json:"description"`
	ResumeKey         string    `json:"-"`
	ResumeFilename    string    `json:"resume_filename,omitempty"`
	ResumeContentType string    `json:"resume_content_type,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// ResumeAttached reports whether a resume artifact reference exists.
func (j *JobDescription) ResumeAttached() bool {
	return j.ResumeKey != ""
}

// Validate checks the creation invariants.
func (j *JobDescription) Validate() error {
	if strings.TrimSpace(j.Title) == "" {
		return ErrTitleRequired
	}
	if len(strings.TrimSpace(j.Description)) < MinDescriptionLength {
		return ErrDescriptionTooShort
	}
	return nil
}

var acceptedResumeTypes = map[string]struct{}{
	"application/pdf":    {},
	"application/msword": {},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {},
}

// AllowedResumeType reports whether the declared content type is accepted.
func AllowedResumeType(contentType string) bool {
	_, ok := acceptedResumeTypes[contentType]
	return ok
}

// docSignature is the OLE compound-file magic used by legacy .doc files.
var docSignature = []byte{0xD0, 0xCF, 0x11, 0xE0}

// ValidResumeSignature sniffs the first bytes of the upload so a renamed
// file cannot slip past the declared content type.
func ValidResumeSignature(head []byte) bool {
	if bytes.HasPrefix(head, []byte("%PDF")) {
		return true
	}
	if bytes.HasPrefix(head, []byte("PK")) {
		return true
	}
	return bytes.HasPrefix(head, docSignature)
}

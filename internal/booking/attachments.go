package booking

import (
	"errors"
	"fmt"
)

// MaxAttachmentSize is the per-file upload limit (10MB).
const MaxAttachmentSize = 10 * 1024 * 1024

// AllowedAttachmentTypes is the media-type allow-list for attachments:
// PDF, DOC, DOCX, PNG, JPEG, PPT and PPTX.
var AllowedAttachmentTypes = typeSet(
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"image/png",
	"image/jpeg",
	"application/vnd.ms-powerpoint",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation",
)

func typeSet(types ...string) map[string]bool {
	m := make(map[string]bool, len(types))
	for _, t := range types {
		m[t] = true
	}
	return m
}

var (
	ErrFileTooLarge      = errors.New("file too large")
	ErrUnsupportedType   = errors.New("unsupported file type")
	ErrAttachmentMissing = errors.New("no attachment at index")
)

// Attachment is a file accepted into the form. Key is the object-storage key
// when the file content was uploaded.
type Attachment struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
	Type string `json:"type"`
	Key  string `json:"key,omitempty"`
}

// AttachmentError reports one rejected file.
type AttachmentError struct {
	Name string
	Err  error
}

func (e *AttachmentError) Error() string {
	if errors.Is(e.Err, ErrFileTooLarge) {
		return fmt.Sprintf("%s exceeds 10MB limit.", e.Name)
	}
	return fmt.Sprintf("%s is not a supported file type.", e.Name)
}

func (e *AttachmentError) Unwrap() error { return e.Err }

// CheckAttachment applies the size limit, then the type allow-list.
func CheckAttachment(a Attachment) error {
	if a.Size > MaxAttachmentSize {
		return &AttachmentError{Name: a.Name, Err: ErrFileTooLarge}
	}
	if !AllowedAttachmentTypes[a.Type] {
		return &AttachmentError{Name: a.Name, Err: ErrUnsupportedType}
	}
	return nil
}

package ingest

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/memohai/roastery/internal/apperr"
	"github.com/memohai/roastery/internal/coffees"
	"github.com/memohai/roastery/internal/media"
	"github.com/memohai/roastery/internal/validation"
)

// FieldImage is the multipart field carrying the upload.
const FieldImage = "image"

// Validator checks ingestion preconditions before any external write.
type Validator struct {
	maxBytes int64
}

func NewValidator(maxBytes int64) *Validator {
	return &Validator{maxBytes: maxBytes}
}

// MaxBytes is the largest upload accepted.
func (v *Validator) MaxBytes() int64 { return v.maxBytes }

// ReadUpload drains r into an Upload. Payloads over the limit are not kept;
// Size then reports a value past the limit so the validator can reject them.
func (v *Validator) ReadUpload(filename, declaredType string, r io.Reader) (*media.Upload, error) {
	upload := &media.Upload{Filename: filename, DeclaredType: declaredType}
	data, err := media.ReadLimited(r, v.maxBytes)
	switch {
	case err == nil:
		upload.Data = data
		upload.Size = int64(len(data))
	case errors.Is(err, media.ErrAssetTooLarge):
		upload.Size = v.maxBytes + 1
	case errors.Is(err, media.ErrEmptyAsset):
	default:
		return nil, err
	}
	return upload, nil
}

// ValidateUpload checks the metadata fields and the uploaded file, reporting
// every violation at once. It returns the normalized fields.
func (v *Validator) ValidateUpload(fields coffees.Fields, upload *media.Upload) (coffees.Fields, error) {
	fields = fields.Normalize()
	violations := fields.Violations()
	if vio := v.checkUpload(upload); vio != nil {
		violations = append(violations, *vio)
	}
	if len(violations) > 0 {
		return coffees.Fields{}, apperr.Invalid(violations)
	}
	return fields, nil
}

// ValidateURL checks the metadata fields and an optional external image URL.
func (v *Validator) ValidateURL(fields coffees.Fields, imageURL string) (coffees.Fields, string, error) {
	fields = fields.Normalize()
	imageURL = strings.TrimSpace(imageURL)
	violations := fields.Violations()
	if imageURL != "" {
		if vio := validation.Var("image_url", imageURL, "url"); vio != nil {
			violations = append(violations, *vio)
		}
	}
	if len(violations) > 0 {
		return coffees.Fields{}, "", apperr.Invalid(violations)
	}
	return fields, imageURL, nil
}

func (v *Validator) checkUpload(upload *media.Upload) *apperr.Violation {
	if upload == nil {
		return &apperr.Violation{Field: FieldImage, Message: "is required"}
	}
	if upload.Size > v.maxBytes {
		return &apperr.Violation{Field: FieldImage, Message: fmt.Sprintf("must be at most %d bytes", v.maxBytes)}
	}
	if len(upload.Data) == 0 {
		return &apperr.Violation{Field: FieldImage, Message: "must not be empty"}
	}
	detected := mimetype.Detect(upload.Data)
	if !isImage(detected) {
		return &apperr.Violation{Field: FieldImage, Message: fmt.Sprintf("must be an image, got %s", detected.String())}
	}
	return nil
}

func isImage(m *mimetype.MIME) bool {
	for ; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "image/") {
			return true
		}
	}
	return false
}

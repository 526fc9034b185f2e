package coffees

import (
	"net/url"
	"strings"
	"time"

	"github.com/memohai/roastery/internal/apperr"
	"github.com/memohai/roastery/internal/storage"
	"github.com/memohai/roastery/internal/validation"
)

// Roast levels accepted by the catalog.
const (
	RoastLight  = "light"
	RoastMedium = "medium"
	RoastDark   = "dark"
)

// Coffee is a catalog item as returned to callers.
type Coffee struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Brand       string `json:"brand"`
	RoastLevel  string `json:"roast_level"`
	TasteNotes  string `json:"taste_notes"`
	Origin      string `json:"origin,omitempty"`
	Description string `json:"description,omitempty"`
	// ImageRef is the stored value: a blob storage key or an external URL.
	ImageRef string `json:"-"`
	// ImageURL is ImageRef resolved to something a client can fetch.
	ImageURL  string    `json:"image_url,omitempty"`
	CreatedBy string    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Fields are the caller-editable attributes of a catalog item.
type Fields struct {
	Name        string `json:"name" form:"name" validate:"required"`
	Brand       string `json:"brand" form:"brand" validate:"required"`
	RoastLevel  string `json:"roast_level" form:"roast_level" validate:"required,oneof=light medium dark"`
	TasteNotes  string `json:"taste_notes" form:"taste_notes" validate:"required"`
	Origin      string `json:"origin,omitempty" form:"origin"`
	Description string `json:"description,omitempty" form:"description"`
}

// Normalize trims every field.
func (f Fields) Normalize() Fields {
	return Fields{
		Name:        strings.TrimSpace(f.Name),
		Brand:       strings.TrimSpace(f.Brand),
		RoastLevel:  strings.TrimSpace(f.RoastLevel),
		TasteNotes:  strings.TrimSpace(f.TasteNotes),
		Origin:      strings.TrimSpace(f.Origin),
		Description: strings.TrimSpace(f.Description),
	}
}

// Violations returns one entry per missing or invalid field of the normalized fields.
func (f Fields) Violations() []apperr.Violation {
	return validation.Struct(f.Normalize())
}

// Record is what gets written to the metadata store.
type Record struct {
	Fields
	ImageRef string
}

// ImageKey reports whether ref names a blob in the image bucket and returns the
// key. Anything carrying a URI scheme (http, urn, mailto, file, data) or a host
// is an external reference, and the rest must be a valid storage key.
func ImageKey(ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", false
	}
	u, err := url.Parse(ref)
	if err != nil || u.Scheme != "" || u.Host != "" || u.Opaque != "" || u.Path != ref {
		return "", false
	}
	if storage.ValidateKey(ref) != nil {
		return "", false
	}
	return ref, true
}

package media

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

const maxStemLength = 48

// KeyGenerator mints storage keys for accepted uploads.
type KeyGenerator interface {
	NewKey(filenameHint string, at time.Time) (string, error)
}

// UUIDKeys composes keys as "<unix-millis>-<uuid v4>[-<slug>].jpg". The
// random UUID keeps keys distinct across concurrent calls in the same millisecond.
type UUIDKeys struct{}

var _ KeyGenerator = UUIDKeys{}

// NewKey returns a fresh, path-safe key. The filename hint only contributes a slug.
func (UUIDKeys) NewKey(filenameHint string, at time.Time) (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	key := fmt.Sprintf("%d-%s", at.UnixMilli(), id.String())
	if slug := Slug(filenameHint); slug != "" {
		key += "-" + slug
	}
	return key + CanonicalExt, nil
}

// Slug reduces a client filename to lowercase [a-z0-9-], dropping any directory
// part and extension so the result can never introduce separators or traversal.
func Slug(filename string) string {
	name := strings.ReplaceAll(filename, "\\", "/")
	name = path.Base(name)
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	name = strings.TrimSuffix(name, path.Ext(name))

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
		if b.Len() >= maxStemLength {
			break
		}
	}
	return strings.Trim(b.String(), "-")
}

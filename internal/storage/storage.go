package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// EditedPrefix is where AI-edited images live, apart from the originals.
const EditedPrefix = "edited"

var ErrNotFound = errors.New("media file not found")

// Store persists media blobs by key.
type Store interface {
	Save(ctx context.Context, key string, data []byte, contentType string) error
	Open(ctx context.Context, key string) ([]byte, error)
	// Delete removes key; a key that is already gone is not an error.
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// NewKey returns a unique key under dir with the given extension.
func NewKey(dir, ext string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", err
	}
	return path.Join(dir, id+normalizeExt(ext)), nil
}

// EditedKey derives the key for an edited copy of original, e.g.
// "media/abc.jpg" -> "edited/abc_edited_x1y2z3.png".
func EditedKey(original string) (string, error) {
	suffix, err := gonanoid.Generate("abcdefghijklmnopqrstuvwxyz0123456789", 8)
	if err != nil {
		return "", err
	}
	base := path.Base(original)
	stem := strings.TrimSuffix(base, path.Ext(base))
	return path.Join(EditedPrefix, fmt.Sprintf("%s_edited_%s.png", stem, suffix)), nil
}

func normalizeExt(ext string) string {
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		return "." + ext
	}
	return ext
}

func cleanKey(key string) (string, error) {
	cleaned := path.Clean("/" + key)
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" || cleaned == "." {
		return "", fmt.Errorf("invalid media key %q", key)
	}
	return cleaned, nil
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"
)

var (
	ErrExists   = errors.New("object already exists")
	ErrNotFound = errors.New("object not found")
)

// Object describes one stored upload. Path is the key inside the owner's
// folder and Type is the lower-case extension without the dot.
type Object struct {
	Name         string    `json:"name"`
	Path         string    `json:"path"`
	Type         string    `json:"type"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"content_type,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// Blob is the file store behind the upload endpoints. Put never replaces an
// existing key.
type Blob interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, string, error)
	List(ctx context.Context, prefix string) ([]Object, error)
	Ping(ctx context.Context) error
}

func Ext(name string) string {
	return strings.TrimPrefix(strings.ToLower(path.Ext(name)), ".")
}

// ObjectKey namespaces an upload under its owner: <owner>/<unix ms>-<name>.
func ObjectKey(ownerID, name string, now time.Time) string {
	return fmt.Sprintf("%s/%d-%s", ownerID, now.UnixMilli(), SanitizeName(name))
}

// SanitizeName keeps the base name and drops characters that would break a key.
func SanitizeName(name string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	out := strings.Trim(b.String(), ".")
	if out == "" {
		return "file"
	}
	return out
}

// ObjectFromKey describes the object stored under a key built by ObjectKey.
func ObjectFromKey(key string, size int64, contentType string, modified time.Time) Object {
	rel := path.Base(key)
	name := rel
	// strip the "<ms>-" prefix added by ObjectKey
	if i := strings.IndexByte(name, '-'); i > 0 {
		name = name[i+1:]
	}
	return Object{
		Name:         name,
		Path:         rel,
		Type:         Ext(key),
		Size:         size,
		ContentType:  contentType,
		LastModified: modified.UTC(),
	}
}

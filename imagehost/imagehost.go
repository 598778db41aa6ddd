// Package imagehost stores post images somewhere a browser can fetch them
// and reports the resulting public URL.
package imagehost

import (
	"context"
	"errors"
	"path"
	"strings"
)

// ErrDisabled is returned by Disabled for every upload.
var ErrDisabled = errors.New("imagehost: uploads disabled")

// Object is a single image to store.
type Object struct {
	Folder      string // e.g. "blog_images"
	PublicID    string // file name without extension
	Ext         string // ".jpg", ".png", ...
	ContentType string
	Data        []byte
}

// Key returns the object's path relative to the host root.
func (o Object) Key() string {
	return path.Join(o.Folder, o.PublicID+o.Ext)
}

// Host uploads an image and returns the URL it is served from.
type Host interface {
	Upload(ctx context.Context, obj Object) (string, error)
}

// Disabled is a Host that refuses every upload, so posts always fall back
// to the default image.
type Disabled struct{}

// Upload implements Host.
func (Disabled) Upload(context.Context, Object) (string, error) {
	return "", ErrDisabled
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}

package imagehost

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Local writes images below a directory that the web server also serves.
type Local struct {
	Dir     string // e.g. "public/uploads"
	BaseURL string // e.g. "/uploads"
}

// NewLocal returns a Local host rooted at dir and served under baseURL.
func NewLocal(dir, baseURL string) *Local {
	return &Local{Dir: dir, BaseURL: baseURL}
}

// servedExts are the extensions the static file server maps to image
// content types.
var servedExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true}

// Upload implements Host. Existing files are never overwritten, and only
// files with an image extension are written.
func (l *Local) Upload(ctx context.Context, obj Object) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !servedExts[strings.ToLower(obj.Ext)] {
		return "", fmt.Errorf("imagehost: refusing extension %q", obj.Ext)
	}
	dst := filepath.Join(l.Dir, filepath.FromSlash(obj.Key()))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create image: %w", err)
	}
	if _, err := f.Write(obj.Data); err != nil {
		f.Close()
		os.Remove(dst)
		return "", fmt.Errorf("write image: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	return joinURL(l.BaseURL, obj.Key()), nil
}

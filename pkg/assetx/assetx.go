// Package assetx stores user uploaded binary assets (avatars, cover images)
// and hands back the public URL they are served from.
package assetx

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/aussiebroadwan/vidtube/pkg/idx"
)

var (
	ErrNoFile     = errors.New("assetx: no local file")
	ErrUnknownURL = errors.New("assetx: url not owned by this store")
)

// Asset is a stored object.
type Asset struct {
	URL string
	Key string
}

// Store uploads local files and deletes previously stored assets.
//
// Upload always removes localPath, whether or not the upload succeeded, so
// multipart temp files never accumulate.
type Store interface {
	Upload(ctx context.Context, localPath string) (Asset, error)
	Delete(ctx context.Context, url string) error
}

// Pinger is implemented by stores that can report whether their backend is
// reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// newKey builds an object key that keeps the upload's extension.
func newKey(localPath string) string {
	return idx.New().String() + strings.ToLower(filepath.Ext(localPath))
}

// keyFromURL strips base from url and returns the remaining object key.
func keyFromURL(base, url string) (string, error) {
	base = strings.TrimSuffix(base, "/") + "/"
	key, ok := strings.CutPrefix(url, base)
	if !ok || key == "" || strings.Contains(key, "/") || strings.Contains(key, "..") {
		return "", ErrUnknownURL
	}
	return key, nil
}

func removeTemp(localPath string) {
	if localPath != "" {
		_ = os.Remove(localPath)
	}
}

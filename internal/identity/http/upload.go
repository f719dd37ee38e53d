package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

const (
	defaultMaxUploadBytes = 10 << 20
	multipartMemory       = 1 << 20
	maxJSONBytes          = 64 << 10
)

var errUnsupportedImage = errors.New("unsupported image type")

var imageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
}

// uploads tracks temp files written for one request. The asset store removes
// a file once it uploads it; cleanup catches the ones never handed over.
type uploads []string

func (u uploads) cleanup() {
	for _, p := range u {
		_ = os.Remove(p)
	}
}

// saveUpload copies multipart file field into dir and returns the temp path,
// or "" when the request has no such field.
func (u *uploads) saveUpload(r *http.Request, field, dir string) (string, error) {
	f, hdr, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	defer f.Close()

	ext := strings.ToLower(filepath.Ext(hdr.Filename))
	if !imageExts[ext] {
		return "", fmt.Errorf("%s: %w", field, errUnsupportedImage)
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(dir, "upload-*"+ext)
	if err != nil {
		return "", err
	}
	*u = append(*u, tmp.Name())

	if _, err := io.Copy(tmp, f); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	return tmp.Name(), nil
}

package assetx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// DiskStore keeps assets in a local directory served under BaseURL.
type DiskStore struct {
	dir     string
	baseURL string
}

var _ Store = (*DiskStore)(nil)

func NewDiskStore(dir, baseURL string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create asset dir: %w", err)
	}
	return &DiskStore{dir: dir, baseURL: baseURL}, nil
}

// Dir returns the directory assets are written to.
func (s *DiskStore) Dir() string { return s.dir }

func (s *DiskStore) Upload(ctx context.Context, localPath string) (Asset, error) {
	defer removeTemp(localPath)

	if localPath == "" {
		return Asset{}, ErrNoFile
	}
	if err := ctx.Err(); err != nil {
		return Asset{}, err
	}

	src, err := os.Open(localPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Asset{}, ErrNoFile
		}
		return Asset{}, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	key := newKey(localPath)
	dst, err := os.OpenFile(filepath.Join(s.dir, key), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return Asset{}, fmt.Errorf("create asset: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		_ = os.Remove(dst.Name())
		return Asset{}, fmt.Errorf("write asset: %w", err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(dst.Name())
		return Asset{}, fmt.Errorf("write asset: %w", err)
	}

	return Asset{URL: s.url(key), Key: key}, nil
}

func (s *DiskStore) Delete(ctx context.Context, url string) error {
	key, err := keyFromURL(s.baseURL, url)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.dir, key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete asset: %w", err)
	}
	return nil
}

// Ping checks that the asset directory still exists.
func (s *DiskStore) Ping(ctx context.Context) error {
	fi, err := os.Stat(s.dir)
	if err != nil {
		return err
	}
	if !fi.IsDir() {
		return fmt.Errorf("%s is not a directory", s.dir)
	}
	return nil
}

func (s *DiskStore) url(key string) string {
	if s.baseURL == "" || s.baseURL[len(s.baseURL)-1] != '/' {
		return s.baseURL + "/" + key
	}
	return s.baseURL + key
}

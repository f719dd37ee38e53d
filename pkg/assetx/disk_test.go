package assetx_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aussiebroadwan/vidtube/pkg/assetx"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestDiskStoreUpload(t *testing.T) {
	ctx := context.Background()
	store, err := assetx.NewDiskStore(t.TempDir(), "/assets")
	require.NoError(t, err)

	tmp := writeTemp(t, "Avatar.PNG", "png-bytes")

	asset, err := store.Upload(ctx, tmp)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(asset.URL, "/assets/"))
	require.True(t, strings.HasSuffix(asset.Key, ".png"))

	data, err := os.ReadFile(filepath.Join(store.Dir(), asset.Key))
	require.NoError(t, err)
	require.Equal(t, "png-bytes", string(data))

	_, err = os.Stat(tmp)
	require.ErrorIs(t, err, os.ErrNotExist, "temp file must be removed")
}

func TestDiskStoreUploadMissingFile(t *testing.T) {
	store, err := assetx.NewDiskStore(t.TempDir(), "/assets")
	require.NoError(t, err)

	_, err = store.Upload(context.Background(), "")
	require.ErrorIs(t, err, assetx.ErrNoFile)

	_, err = store.Upload(context.Background(), filepath.Join(t.TempDir(), "gone.png"))
	require.ErrorIs(t, err, assetx.ErrNoFile)
}

func TestDiskStoreUploadCancelledRemovesTemp(t *testing.T) {
	store, err := assetx.NewDiskStore(t.TempDir(), "/assets")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tmp := writeTemp(t, "cover.jpg", "jpg")
	_, err = store.Upload(ctx, tmp)
	require.ErrorIs(t, err, context.Canceled)

	_, err = os.Stat(tmp)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestDiskStoreDelete(t *testing.T) {
	ctx := context.Background()
	store, err := assetx.NewDiskStore(t.TempDir(), "/assets/")
	require.NoError(t, err)

	asset, err := store.Upload(ctx, writeTemp(t, "a.png", "x"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(asset.URL, "/assets/"))
	require.False(t, strings.Contains(asset.URL, "//"))

	require.NoError(t, store.Delete(ctx, asset.URL))
	_, err = os.Stat(filepath.Join(store.Dir(), asset.Key))
	require.ErrorIs(t, err, os.ErrNotExist)

	// Deleting twice is fine.
	require.NoError(t, store.Delete(ctx, asset.URL))

	tests := []string{
		"https://elsewhere.example/a.png",
		"/assets/",
		"/assets/../secret",
		"/assets/nested/a.png",
	}
	for _, url := range tests {
		t.Run(url, func(t *testing.T) {
			require.ErrorIs(t, store.Delete(ctx, url), assetx.ErrUnknownURL)
		})
	}
}

func TestDiskStorePing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "assets")
	s, err := assetx.NewDiskStore(dir, "/assets")
	require.NoError(t, err)
	require.NoError(t, s.Ping(context.Background()))

	require.NoError(t, os.RemoveAll(dir))
	require.Error(t, s.Ping(context.Background()))
}

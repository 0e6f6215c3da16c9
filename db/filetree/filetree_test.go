package filetree

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	photoshare "github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadFileAcrossBlocks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest")
	want := bytes.Repeat([]byte("saree"), 3000)
	require.NoError(t, os.WriteFile(path, want, 0644))

	got, err := readFile(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = readFile(filepath.Join(t.TempDir(), "absent"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestManifestLayout(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)
	defer store.Close()

	now := time.Now()
	rec := photoshare.GalleryRecord{ID: "gallery-x", Title: "Saree Collection", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, store.Put(context.Background(), rec))

	path := store.manifestPath("gallery-x")
	assert.True(t, strings.HasPrefix(path, filepath.Join(dir, dataDir)))
	assert.Equal(t, filepath.Base(path)[:2], filepath.Base(filepath.Dir(path)))
	assert.FileExists(t, path)
}

func TestIndexedWithoutManifest(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	now := time.Now()
	require.NoError(t, store.Put(context.Background(), photoshare.GalleryRecord{ID: "gallery-y", CreatedAt: now, ExpiresAt: now}))
	require.NoError(t, os.Remove(store.manifestPath("gallery-y")))

	_, err = store.Get(context.Background(), "gallery-y")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, photoshare.ErrGalleryNotFound)
}

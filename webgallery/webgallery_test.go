package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	photoshare "github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000"
	"github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000/db"
	"github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000/db/bolt"
	"github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000/gallery"
	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	handler http.Handler
	server  *GalleryServer
	clock   *clock.Mock
	store   photoshare.GalleryStore
}

func setup(t *testing.T) *fixture {
	t.Helper()
	store, err := bolt.New(filepath.Join(t.TempDir(), "galleries.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	clk := clock.NewMock()
	clk.Set(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	reg := prometheus.NewRegistry()
	gs := NewGalleryServer(store, gallery.NewReader(store, clk), zap.NewNop(), reg)
	return &fixture{handler: gs.Handler(reg, nil), server: gs, clock: clk, store: store}
}

func (f *fixture) put(t *testing.T, photos int) photoshare.GalleryRecord {
	t.Helper()
	rec := photoshare.GalleryRecord{
		ID:                  gallery.NewID(),
		Title:               gallery.DefaultTitle,
		Photos:              make([]photoshare.ShareablePhoto, photos),
		CreatedAt:           f.clock.Now(),
		ExpiresAt:           f.clock.Now().Add(gallery.DefaultExpiry),
		IncludeBusinessInfo: true,
	}
	for i := range rec.Photos {
		rec.Photos[i] = photoshare.ShareablePhoto{ID: string(rune('a' + i)), Title: "Saree", ImageURL: "https://cdn.example/x.jpg"}
	}
	require.NoError(t, f.store.Put(context.Background(), rec))
	return rec
}

func (f *fixture) get(path string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func TestGalleryFound(t *testing.T) {
	f := setup(t)
	rec := f.put(t, 3)

	rr := f.get("/gallery/" + rec.ID)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var view GalleryView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &view))
	assert.Equal(t, rec.ID, view.ID)
	assert.Equal(t, 3, view.PhotoCount)
	assert.Len(t, view.Photos, 3)
	assert.True(t, view.IncludeBusinessInfo)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.server.metrics.galleriesServed.WithLabelValues("ok")))
}

func TestGalleryNotFound(t *testing.T) {
	f := setup(t)

	rr := f.get("/gallery/" + gallery.NewID())
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = f.get("/gallery/not-a-gallery")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, 2.0, testutil.ToFloat64(f.server.metrics.galleriesServed.WithLabelValues("not_found")))
}

func TestGalleryExpired(t *testing.T) {
	f := setup(t)
	rec := f.put(t, 1)

	f.clock.Add(gallery.DefaultExpiry - time.Second)
	assert.Equal(t, http.StatusOK, f.get("/gallery/"+rec.ID).Code)

	f.clock.Add(time.Second)
	rr := f.get("/gallery/" + rec.ID)
	assert.Equal(t, http.StatusGone, rr.Code)
	assert.Contains(t, rr.Body.String(), "expired")
}

func TestListGalleries(t *testing.T) {
	f := setup(t)
	a := f.put(t, 1)
	b := f.put(t, 2)

	rr := f.get("/galleries")
	require.Equal(t, http.StatusOK, rr.Code)

	var ids []string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &ids))
	assert.ElementsMatch(t, []string{a.ID, b.ID}, ids)
}

func TestMetricsEndpoint(t *testing.T) {
	f := setup(t)
	f.get("/gallery/" + gallery.NewID())

	rr := f.get("/metrics")
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.True(t, strings.Contains(body, "webgallery_http_requests_total"))
	assert.True(t, strings.Contains(body, `webgallery_galleries_served_total{result="not_found"} 1`))
}

func TestUnknownRoute(t *testing.T) {
	f := setup(t)
	assert.Equal(t, http.StatusNotFound, f.get("/download/x").Code)
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/gallery/"+gallery.NewID(), nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestGalleryCreatedWhileServing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "galleries.db")
	writer, err := db.Open(db.TypeBolt, path)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	store := db.NewPerCall(db.TypeBolt, path)
	require.NoError(t, store.Check())
	reg := prometheus.NewRegistry()
	handler := NewGalleryServer(store, gallery.NewReader(store, nil), zap.NewNop(), reg).Handler(reg, nil)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/gallery/gallery-late", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	writer, err = db.Open(db.TypeBolt, path)
	require.NoError(t, err)
	now := time.Now()
	require.NoError(t, writer.Put(context.Background(), photoshare.GalleryRecord{
		ID:        "gallery-late",
		Title:     gallery.DefaultTitle,
		Photos:    []photoshare.ShareablePhoto{{ID: "a", Title: "Saree", ImageURL: "https://cdn.example/a.jpg"}},
		CreatedAt: now,
		ExpiresAt: now.Add(gallery.DefaultExpiry),
	}))
	require.NoError(t, writer.Close())

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/gallery/gallery-late", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestDBTypeFlagListsEveryStore(t *testing.T) {
	usage := rootCmd.Flags().Lookup("db-type").Usage
	for _, dbType := range []string{db.TypeBolt, db.TypePebble, db.TypeSQLite, db.TypeFileTree} {
		assert.Contains(t, usage, "'"+dbType+"'")
	}
}

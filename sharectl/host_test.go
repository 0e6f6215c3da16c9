package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	photoshare "github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestOutboxSurfaceWritesPayload(t *testing.T) {
	dir := t.TempDir()
	s, err := newOutboxSurface(dir, 0)
	require.NoError(t, err)

	payload := photoshare.SharePayload{
		Title: "Saree Collection (2 photos)",
		Text:  "hello",
		Files: []photoshare.PreparedFile{
			{Name: "a.jpg", Bytes: []byte("aaa"), ByteLength: 3},
			{Name: "b.jpg", Bytes: []byte("bb"), ByteLength: 2},
		},
	}
	require.True(t, s.CanShare(context.Background(), payload))
	require.NoError(t, s.Share(context.Background(), payload))
	require.NoError(t, s.Share(context.Background(), photoshare.SharePayload{Title: "second"}))

	data, err := os.ReadFile(filepath.Join(dir, "share-001", "a.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "aaa", string(data))

	var m outboxManifest
	raw, err := os.ReadFile(filepath.Join(dir, "share-001", "share.json"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Equal(t, []string{"a.jpg", "b.jpg"}, m.Files)
	assert.Equal(t, "hello", m.Text)

	assert.FileExists(t, filepath.Join(dir, "share-002", "share.json"))
}

func TestOutboxSurfaceFileLimit(t *testing.T) {
	s, err := newOutboxSurface(t.TempDir(), 1)
	require.NoError(t, err)
	two := photoshare.SharePayload{Files: make([]photoshare.PreparedFile, 2)}
	assert.False(t, s.CanShare(context.Background(), two))
}

func TestOutboxSurfaceCancelled(t *testing.T) {
	s, err := newOutboxSurface(t.TempDir(), 0)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Share(ctx, photoshare.SharePayload{}), context.Canceled)
}

func TestPrintOpener(t *testing.T) {
	var buf bytes.Buffer
	o := &printOpener{out: &buf}
	require.NoError(t, o.Open(context.Background(), "https://web.whatsapp.com/send?text=hi"))
	assert.Equal(t, "https://web.whatsapp.com/send?text=hi\n", buf.String())
}

func TestLineConfirmer(t *testing.T) {
	prompt := photoshare.Prompt{Title: "Ready for Batch 2", Message: "Sharing batch 2 of 2 (5 photos)"}
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
		{"y", true},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		c := newLineConfirmer(strings.NewReader(tt.input), &out, false)
		ok, err := c.Confirm(context.Background(), prompt)
		require.NoError(t, err)
		assert.Equal(t, tt.want, ok, "input %q", tt.input)
		assert.Contains(t, out.String(), "Ready for Batch 2")
	}
}

func TestLineConfirmerAlways(t *testing.T) {
	c := newLineConfirmer(strings.NewReader(""), &bytes.Buffer{}, true)
	ok, err := c.Confirm(context.Background(), photoshare.Prompt{})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLogNotifier(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	n := logNotifier(zap.New(core))

	n.Notify(photoshare.Notification{Kind: photoshare.NotifySuccess, Title: "Shared!"})
	n.Notify(photoshare.Notification{Kind: photoshare.NotifyFailure, Title: "Share failed", Reason: photoshare.ReasonNetwork})

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zap.InfoLevel, entries[0].Level)
	assert.Equal(t, zap.WarnLevel, entries[1].Level)
	assert.Equal(t, "network", entries[1].ContextMap()["reason"])
}

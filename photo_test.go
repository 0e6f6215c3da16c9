package photoshare

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func price(v float64) *float64 { return &v }

func TestShareablePhotoMissing(t *testing.T) {
	tests := []struct {
		name  string
		photo ShareablePhoto
		want  []string
	}{
		{"complete", ShareablePhoto{ID: "1", Title: "Silk", ImageURL: "https://x/1.jpg"}, nil},
		{"no title", ShareablePhoto{ID: "2", Title: "  ", ImageURL: "https://x/2.jpg"}, []string{"title"}},
		{"nothing", ShareablePhoto{ID: "3"}, []string{"title", "image URL"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.photo.Missing())
		})
	}
}

func TestHasPrice(t *testing.T) {
	assert.False(t, ShareablePhoto{}.HasPrice())
	assert.False(t, ShareablePhoto{Price: price(0)}.HasPrice())
	assert.True(t, ShareablePhoto{Price: price(2500)}.HasPrice())
}

func TestOutcomeSettle(t *testing.T) {
	o := NewOutcome(MethodFileShare)
	o.SucceededCount = 3
	o.Settle()
	assert.Equal(t, StatusSucceeded, o.Status)
	assert.Equal(t, ReasonNone, o.Reason)

	o.AddFailed("a", "a", "b")
	o.Settle()
	assert.Equal(t, StatusPartial, o.Status)
	assert.Equal(t, []string{"a", "b"}, o.FailedPhotoIDs)

	o.SucceededCount = 0
	o.Settle()
	assert.Equal(t, StatusFailed, o.Status)

	c := ShareOutcome{Status: StatusCancelled}
	c.Settle()
	assert.Equal(t, StatusCancelled, c.Status)
	assert.Equal(t, ReasonCancelled, c.Reason)
	assert.NotNil(t, c.FailedPhotoIDs)
}

func TestErrorKinds(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := fmt.Errorf("wrapped: %w", NewError(ErrAcquisitionFailure, "fetch", "p1", cause))

	assert.ErrorIs(t, err, ErrAcquisitionFailure)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, ErrAcquisitionFailure, KindOf(err))
	assert.Equal(t, ReasonNetwork, ReasonFor(err))
	assert.Contains(t, err.Error(), "photo p1")

	assert.True(t, IsCancelled(NewError(ErrUserCancelled, "share", "", nil)))
	assert.Nil(t, KindOf(cause))
}

func TestParseIntent(t *testing.T) {
	for _, s := range []string{"", "auto", "files", "batched", "gallery"} {
		_, err := ParseIntent(s)
		require.NoError(t, err, s)
	}
	_, err := ParseIntent("carrier-pigeon")
	require.Error(t, err)
}

func TestDescribeDistinctMessages(t *testing.T) {
	seen := map[string]Reason{}
	for _, r := range []Reason{ReasonUnsupported, ReasonNetwork, ReasonTooLarge, ReasonInvalidPhotos, ReasonHostRejected, ReasonStorage} {
		title, detail := Describe(ShareOutcome{Status: StatusFailed, Reason: r}, 3)
		require.NotEmpty(t, detail)
		prev, dup := seen[title]
		require.False(t, dup, "reasons %s and %s share a title", prev, r)
		seen[title] = r
	}

	_, detail := Describe(ShareOutcome{Status: StatusPartial, SucceededCount: 2, FailedPhotoIDs: []string{"x"}}, 3)
	assert.Equal(t, "2 of 3 shared", detail)
}

func TestGalleryRecordRoundTripAndExpiry(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	rec := GalleryRecord{
		ID:        "gallery-1",
		Title:     "Saree Collection",
		Photos:    []ShareablePhoto{{ID: "1", Title: "Silk", ImageURL: "https://x/1.jpg", Price: price(5000)}},
		CreatedAt: created,
		ExpiresAt: created.Add(48 * time.Hour),
	}
	data, err := MarshalGalleryRecord(rec)
	require.NoError(t, err)
	got, err := UnmarshalGalleryRecord(data)
	require.NoError(t, err)
	assert.True(t, got.ExpiresAt.Equal(rec.ExpiresAt))
	assert.Equal(t, rec.Photos, got.Photos)

	assert.False(t, rec.Expired(created.Add(47*time.Hour)))
	assert.True(t, rec.Expired(created.Add(48*time.Hour)))
}

func TestRecorderIsCapped(t *testing.T) {
	var forwarded int
	r := NewRecorder(2, NotifierFunc(func(Notification) { forwarded++ }))

	r.Notify(Notification{Kind: NotifyPreparing})
	r.Notify(Notification{Kind: NotifyProgress})
	r.Notify(Notification{Kind: NotifySuccess})

	assert.Equal(t, []NotificationKind{NotifyProgress, NotifySuccess}, r.Kinds())
	assert.Equal(t, 3, forwarded)

	last, ok := r.Last()
	require.True(t, ok)
	assert.Equal(t, NotifySuccess, last.Kind)

	r.Clear()
	_, ok = r.Last()
	assert.False(t, ok)
}

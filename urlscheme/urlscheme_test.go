package urlscheme

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	photoshare "github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recordingOpener struct {
	mu     sync.Mutex
	opened []string
	times  []time.Time
	fail   func(url string) error
}

func (r *recordingOpener) Open(ctx context.Context, url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opened = append(r.opened, url)
	r.times = append(r.times, time.Now())
	if r.fail != nil {
		return r.fail(url)
	}
	return nil
}

func photo(id string) photoshare.ShareablePhoto {
	return photoshare.ShareablePhoto{ID: id, Title: "Saree " + id, ImageURL: "https://cdn.example/" + id + ".jpg"}
}

func TestEncode(t *testing.T) {
	assert.Equal(t, "a%20b%26c%0A%E2%9C%A8", Encode("a b&c\n✨"))
	assert.Equal(t, "whatsapp://send?text=hi%20there", NativeURL("hi there"))
	assert.Equal(t, "https://web.whatsapp.com/send?text=hi", WebURL("hi"))
}

func TestShareTextDesktopOpensWeb(t *testing.T) {
	op := &recordingOpener{}
	c := New(op)

	require.NoError(t, c.ShareText(context.Background(), "hello"))
	assert.Equal(t, []string{WebBase + "hello"}, op.opened)
}

func TestShareTextMobilePrefersNative(t *testing.T) {
	op := &recordingOpener{}
	c := New(op, WithMobile(true))

	require.NoError(t, c.ShareText(context.Background(), "hello"))
	assert.Equal(t, []string{NativeBase + "hello"}, op.opened)
}

func TestShareTextMobileFallsBackAfterDelay(t *testing.T) {
	op := &recordingOpener{fail: func(url string) error {
		if strings.HasPrefix(url, NativeBase) {
			return errors.New("no handler for scheme")
		}
		return nil
	}}
	c := New(op, WithMobile(true), WithFallbackDelay(30*time.Millisecond))

	require.NoError(t, c.ShareText(context.Background(), "hello"))
	require.Len(t, op.opened, 2)
	assert.Equal(t, WebBase+"hello", op.opened[1])
	assert.GreaterOrEqual(t, op.times[1].Sub(op.times[0]), 30*time.Millisecond)
}

func TestShareTextFallbackHonorsContext(t *testing.T) {
	op := &recordingOpener{fail: func(string) error { return errors.New("nope") }}
	c := New(op, WithMobile(true), WithFallbackDelay(time.Hour))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := c.ShareText(ctx, "hello")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Len(t, op.opened, 1)
}

func TestSharePhoto(t *testing.T) {
	op := &recordingOpener{}
	c := New(op)

	o := c.SharePhoto(context.Background(), photo("a"))
	assert.Equal(t, photoshare.StatusSucceeded, o.Status)
	assert.Equal(t, 1, o.SucceededCount)
	assert.Equal(t, photoshare.MethodURLScheme, o.Method)
	require.Len(t, op.opened, 1)
	assert.Contains(t, op.opened[0], Encode("https://cdn.example/a.jpg"))

	o = c.SharePhoto(context.Background(), photoshare.ShareablePhoto{ID: "bad"})
	assert.Equal(t, photoshare.StatusFailed, o.Status)
	assert.Equal(t, photoshare.ReasonInvalidPhotos, o.Reason)
	assert.Equal(t, []string{"bad"}, o.FailedPhotoIDs)
}

func TestSharePhotoHostRejection(t *testing.T) {
	op := &recordingOpener{fail: func(string) error { return errors.New("blocked") }}
	o := New(op).SharePhoto(context.Background(), photo("a"))
	assert.Equal(t, photoshare.StatusFailed, o.Status)
	assert.Equal(t, photoshare.ReasonHostRejected, o.Reason)
}

func TestSharePhotoCancelled(t *testing.T) {
	op := &recordingOpener{fail: func(string) error { return photoshare.ErrUserCancelled }}
	o := New(op).SharePhoto(context.Background(), photo("a"))
	assert.Equal(t, photoshare.StatusCancelled, o.Status)
	assert.Empty(t, o.FailedPhotoIDs)
}

func TestShareEachPacesMessages(t *testing.T) {
	op := &recordingOpener{}
	rec := photoshare.NewRecorder(0, nil)
	c := New(op, WithItemDelay(25*time.Millisecond), WithNotifier(rec))

	photos := []photoshare.ShareablePhoto{photo("a"), {ID: "x"}, photo("b"), photo("c")}
	o := c.ShareEach(context.Background(), photos, "")

	assert.Equal(t, 3, o.SucceededCount)
	assert.Equal(t, []string{"x"}, o.FailedPhotoIDs)
	assert.Equal(t, photoshare.StatusPartial, o.Status)
	require.Len(t, op.times, 3)
	for i := 1; i < len(op.times); i++ {
		assert.GreaterOrEqual(t, op.times[i].Sub(op.times[i-1]), 20*time.Millisecond)
	}
	assert.Len(t, rec.Entries(), 3)
}

func TestShareEachCustomMessage(t *testing.T) {
	op := &recordingOpener{}
	c := New(op, WithItemDelay(0))

	o := c.ShareEach(context.Background(), []photoshare.ShareablePhoto{photo("a")}, "custom")
	assert.Equal(t, photoshare.StatusSucceeded, o.Status)
	assert.Equal(t, WebURL("custom\n\nhttps://cdn.example/a.jpg"), op.opened[0])
}

func TestShareEachStopsOnContextDone(t *testing.T) {
	op := &recordingOpener{}
	c := New(op, WithItemDelay(time.Hour))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	o := c.ShareEach(ctx, []photoshare.ShareablePhoto{photo("a"), photo("b"), photo("c")}, "")

	assert.Equal(t, 1, o.SucceededCount)
	assert.Equal(t, []string{"b", "c"}, o.FailedPhotoIDs)
	assert.Equal(t, photoshare.StatusPartial, o.Status)
}

func TestShareEachDismissed(t *testing.T) {
	op := &recordingOpener{fail: func(string) error { return photoshare.ErrUserCancelled }}
	o := New(op, WithItemDelay(0)).ShareEach(context.Background(), []photoshare.ShareablePhoto{photo("a"), photo("b")}, "")
	assert.Equal(t, photoshare.StatusCancelled, o.Status)
	assert.Equal(t, photoshare.ReasonCancelled, o.Reason)
	assert.Empty(t, o.FailedPhotoIDs)
}

func TestShareEachSomeDismissed(t *testing.T) {
	op := &recordingOpener{fail: func(url string) error {
		if strings.Contains(url, "b.jpg") {
			return photoshare.ErrUserCancelled
		}
		return nil
	}}
	o := New(op, WithItemDelay(0)).ShareEach(context.Background(), []photoshare.ShareablePhoto{photo("a"), photo("b")}, "")
	assert.Equal(t, 1, o.SucceededCount)
	assert.Equal(t, photoshare.StatusPartial, o.Status)
	assert.Equal(t, photoshare.ReasonCancelled, o.Reason)
	assert.Equal(t, []string{"b"}, o.FailedPhotoIDs)
}

func TestShareEachAllInvalid(t *testing.T) {
	o := New(&recordingOpener{}).ShareEach(context.Background(), []photoshare.ShareablePhoto{{ID: "x"}}, "")
	assert.Equal(t, photoshare.StatusFailed, o.Status)
	assert.Equal(t, photoshare.ReasonInvalidPhotos, o.Reason)
}

func TestShareMessage(t *testing.T) {
	op := &recordingOpener{}
	o := New(op).ShareMessage(context.Background(), "gallery", []photoshare.ShareablePhoto{photo("a"), photo("b")})
	assert.Equal(t, 2, o.SucceededCount)
	assert.Equal(t, []string{WebURL("gallery")}, op.opened)
}

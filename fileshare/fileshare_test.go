package fileshare

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	photoshare "github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000"
	"github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000/acquire"
	"github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000/capability"
	"github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000/compress"
	"github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000/urlscheme"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mb = capability.MB

// zeros backs every fake payload so large sizes cost no allocation.
var zeros = make([]byte, 32*mb)

type fakeFetcher struct {
	mu      sync.Mutex
	sizes   map[string]int
	errs    map[string]error
	fetched []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, rawURL string, opts acquire.FetchOptions) (acquire.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, rawURL)
	if err, ok := f.errs[rawURL]; ok {
		return acquire.Image{}, err
	}
	n, ok := f.sizes[rawURL]
	if !ok {
		return acquire.Image{}, errors.New("404")
	}
	return acquire.Image{Data: zeros[:n], MimeType: "image/png"}, nil
}

// fakeCompressor shrinks to 90% of the target unless the target is below floor.
type fakeCompressor struct {
	floor int64
	calls int
}

func (c *fakeCompressor) CompressToBudget(ctx context.Context, data []byte, mimeType string, target int64) (compress.Result, error) {
	c.calls++
	if int64(len(data)) <= target {
		return compress.Result{Data: data, MimeType: mimeType, Rung: -1}, nil
	}
	if target < c.floor {
		return compress.Result{}, photoshare.NewError(photoshare.ErrBudgetUnreachable, "compress", "", errors.New("too small"))
	}
	return compress.Result{Data: zeros[:target*9/10], MimeType: compress.MimeType, Rung: 0}, nil
}

type fakeSurface struct {
	files    bool
	text     bool
	shareErr error
	payloads []photoshare.SharePayload
}

func (s *fakeSurface) CanShare(ctx context.Context, p photoshare.SharePayload) bool {
	if len(p.Files) > 0 {
		return s.files
	}
	return s.text
}

func (s *fakeSurface) Share(ctx context.Context, p photoshare.SharePayload) error {
	s.payloads = append(s.payloads, p)
	return s.shareErr
}

type nopOpener struct{ opened []string }

func (o *nopOpener) Open(ctx context.Context, url string) error {
	o.opened = append(o.opened, url)
	return nil
}

func photos(sizes ...int) ([]photoshare.ShareablePhoto, *fakeFetcher) {
	f := &fakeFetcher{sizes: map[string]int{}, errs: map[string]error{}}
	var out []photoshare.ShareablePhoto
	for i, n := range sizes {
		url := fmt.Sprintf("https://cdn.example/%d.png", i)
		out = append(out, photoshare.ShareablePhoto{ID: fmt.Sprint(i), Title: fmt.Sprintf("Saree %d", i), ImageURL: url})
		f.sizes[url] = n
	}
	return out, f
}

func TestSafeNameAndExtension(t *testing.T) {
	assert.Equal(t, "Red_Silk__2_", SafeName("Red Silk (2)"))
	assert.Equal(t, "photo", SafeName(""))
	assert.Equal(t, "jpg", Extension("image/jpeg"))
	assert.Equal(t, "png", Extension("image/png"))
	assert.Equal(t, "svg", Extension("image/svg+xml"))
	assert.Equal(t, "jpg", Extension("garbage"))
}

func TestPrepareWithinLimits(t *testing.T) {
	ps, f := photos(mb, 2*mb, 3*mb)
	p := NewPreparer(f, &fakeCompressor{})

	got := p.Prepare(context.Background(), ps, capability.DefaultLimits)
	assert.Len(t, got.Files, 3)
	assert.Empty(t, got.Failed)
	assert.Equal(t, int64(6*mb), got.TotalBytes())
	assert.Equal(t, "Saree_0.png", got.Files[0].Name)
}

func TestPrepareDeduplicatesNames(t *testing.T) {
	ps, f := photos(10, 10, 10)
	for i := range ps {
		ps[i].Title = "Same"
	}
	got := NewPreparer(f, &fakeCompressor{}).Prepare(context.Background(), ps, capability.DefaultLimits)
	require.Len(t, got.Files, 3)
	assert.Equal(t, []string{"Same.png", "Same_2.png", "Same_3.png"},
		[]string{got.Files[0].Name, got.Files[1].Name, got.Files[2].Name})
}

func TestPrepareCompressesOversizedFile(t *testing.T) {
	ps, f := photos(12 * mb)
	c := &fakeCompressor{}
	got := NewPreparer(f, c).Prepare(context.Background(), ps, capability.IOSLimits)

	require.Len(t, got.Files, 1)
	assert.LessOrEqual(t, got.Files[0].ByteLength, capability.IOSLimits.MaxSingleFileBytes)
	assert.Equal(t, compress.MimeType, got.Files[0].MimeType)
	assert.Equal(t, "Saree_0.jpg", got.Files[0].Name)
	assert.Equal(t, 1, c.calls)
}

func TestPrepareRecompressesToRemainingBudget(t *testing.T) {
	// 9 + 9 fits 25MB, the third needs to shrink to the remaining 7MB.
	ps, f := photos(9*mb, 9*mb, 9*mb)
	got := NewPreparer(f, &fakeCompressor{}).Prepare(context.Background(), ps, capability.IOSLimits)

	require.Len(t, got.Files, 3)
	assert.LessOrEqual(t, got.TotalBytes(), capability.IOSLimits.MaxTotalBytes)
	assert.LessOrEqual(t, got.Files[2].ByteLength, int64(7*mb))
}

func TestPrepareExcludesFailuresAndContinues(t *testing.T) {
	ps, f := photos(mb, mb, mb, 30*mb)
	f.errs[ps[1].ImageURL] = photoshare.NewError(photoshare.ErrAcquisitionFailure, "fetch", "", errors.New("timeout"))
	ps[2].Title = ""
	c := &fakeCompressor{floor: 100 * mb}

	got := NewPreparer(f, c).Prepare(context.Background(), ps, capability.DefaultLimits)
	assert.Equal(t, []string{"1", "2", "3"}, got.Failed)
	assert.Equal(t, photoshare.ReasonNetwork, got.Reasons["1"])
	assert.Equal(t, photoshare.ReasonInvalidPhotos, got.Reasons["2"])
	assert.Equal(t, photoshare.ReasonTooLarge, got.Reasons["3"])
	require.Len(t, got.Accepted, 1)
	assert.Equal(t, "0", got.Accepted[0].ID)
	// The invalid photo is never fetched.
	assert.NotContains(t, f.fetched, ps[2].ImageURL)
}

func TestPrepareHonorsMaxFiles(t *testing.T) {
	ps, f := photos(10, 10, 10)
	got := NewPreparer(f, &fakeCompressor{}).Prepare(context.Background(), ps,
		photoshare.SizeLimits{MaxFiles: 2, MaxTotalBytes: mb, MaxSingleFileBytes: mb})
	assert.Len(t, got.Files, 2)
	assert.Equal(t, []string{"2"}, got.Failed)
}

func TestPrepareKeepsCallerOrder(t *testing.T) {
	// A large photo first starves the small one that follows.
	ps, f := photos(10*mb, 6*mb)
	c := &fakeCompressor{floor: 7 * mb}
	limits := photoshare.SizeLimits{MaxFiles: 10, MaxTotalBytes: 15 * mb, MaxSingleFileBytes: 10 * mb}

	got := NewPreparer(f, c).Prepare(context.Background(), ps, limits)
	assert.Equal(t, []string{"0"}, photoshare.IDs(got.Accepted))
	assert.Equal(t, []string{"1"}, got.Failed)
}

func TestPrepareInvariantsHoldForBothTiers(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for _, limits := range []photoshare.SizeLimits{capability.IOSLimits, capability.DefaultLimits} {
		for round := 0; round < 50; round++ {
			n := 1 + rng.Intn(14)
			sizes := make([]int, n)
			for i := range sizes {
				sizes[i] = 1 + rng.Intn(30*mb)
			}
			ps, f := photos(sizes...)
			got := NewPreparer(f, &fakeCompressor{floor: int64(rng.Intn(4 * mb))}).Prepare(context.Background(), ps, limits)

			assert.LessOrEqual(t, len(got.Files), limits.MaxFiles)
			assert.LessOrEqual(t, got.TotalBytes(), limits.MaxTotalBytes)
			for _, file := range got.Files {
				assert.LessOrEqual(t, file.ByteLength, limits.MaxSingleFileBytes)
			}
			assert.Equal(t, n, len(got.Files)+len(got.Failed))
		}
	}
}

func TestDominantReason(t *testing.T) {
	p := Prepared{Reasons: map[string]photoshare.Reason{"a": photoshare.ReasonTooLarge, "b": photoshare.ReasonInvalidPhotos}}
	assert.Equal(t, photoshare.ReasonTooLarge, p.DominantReason())
	p.Reasons["c"] = photoshare.ReasonNetwork
	assert.Equal(t, photoshare.ReasonNetwork, p.DominantReason())
	assert.Equal(t, photoshare.ReasonNothingToShare, Prepared{}.DominantReason())
}

func TestShareAllFiles(t *testing.T) {
	ps, f := photos(mb, mb, mb)
	s := &fakeSurface{files: true}
	rec := photoshare.NewRecorder(0, nil)
	c := New(s, NewPreparer(f, &fakeCompressor{}), WithNotifier(rec))

	o := c.Share(context.Background(), ps, capability.DefaultLimits)
	assert.Equal(t, photoshare.ShareOutcome{
		SucceededCount: 3,
		FailedPhotoIDs: []string{},
		Method:         photoshare.MethodFileShare,
		Status:         photoshare.StatusSucceeded,
	}, o)
	require.Len(t, s.payloads, 1)
	assert.Len(t, s.payloads[0].Files, 3)
	assert.Equal(t, "Saree Collection (3 photos)", s.payloads[0].Title)
	assert.Equal(t, []photoshare.NotificationKind{photoshare.NotifyPreparing}, rec.Kinds())
}

func TestShareSinglePayload(t *testing.T) {
	ps, f := photos(mb)
	s := &fakeSurface{files: true}
	o := New(s, NewPreparer(f, &fakeCompressor{})).Share(context.Background(), ps, capability.DefaultLimits)

	assert.Equal(t, photoshare.StatusSucceeded, o.Status)
	assert.Equal(t, "Saree 0", s.payloads[0].Title)
	assert.Contains(t, s.payloads[0].Text, "*Saree 0*")
}

func TestSharePartial(t *testing.T) {
	ps, f := photos(mb, mb)
	delete(f.sizes, ps[1].ImageURL)
	s := &fakeSurface{files: true}
	rec := photoshare.NewRecorder(0, nil)

	o := New(s, NewPreparer(f, &fakeCompressor{}), WithNotifier(rec)).Share(context.Background(), ps, capability.DefaultLimits)
	assert.Equal(t, photoshare.StatusPartial, o.Status)
	assert.Equal(t, 1, o.SucceededCount)
	assert.Equal(t, []string{"1"}, o.FailedPhotoIDs)
	assert.Contains(t, rec.Kinds(), photoshare.NotifyProgress)
}

func TestShareZeroSurvivors(t *testing.T) {
	ps, f := photos(mb, mb)
	f.sizes = map[string]int{}
	s := &fakeSurface{files: true}

	o := New(s, NewPreparer(f, &fakeCompressor{})).Share(context.Background(), ps, capability.DefaultLimits)
	assert.Equal(t, photoshare.StatusFailed, o.Status)
	assert.Equal(t, photoshare.ReasonNetwork, o.Reason)
	assert.Equal(t, []string{"0", "1"}, o.FailedPhotoIDs)
	assert.Empty(t, s.payloads)
}

func TestShareUserCancelIsNotAnError(t *testing.T) {
	ps, f := photos(mb)
	s := &fakeSurface{files: true, shareErr: fmt.Errorf("dialog: %w", photoshare.ErrUserCancelled)}

	o := New(s, NewPreparer(f, &fakeCompressor{})).Share(context.Background(), ps, capability.DefaultLimits)
	assert.Equal(t, photoshare.StatusCancelled, o.Status)
	assert.Equal(t, photoshare.ReasonCancelled, o.Reason)
	assert.Empty(t, o.FailedPhotoIDs)
}

func TestShareDegradesToText(t *testing.T) {
	ps, f := photos(mb)
	s := &fakeSurface{files: false, text: true}

	o := New(s, NewPreparer(f, &fakeCompressor{})).Share(context.Background(), ps, capability.DefaultLimits)
	assert.Equal(t, photoshare.MethodTextShare, o.Method)
	assert.Equal(t, photoshare.StatusSucceeded, o.Status)
	require.Len(t, s.payloads, 1)
	assert.Empty(t, s.payloads[0].Files)
	assert.Contains(t, s.payloads[0].Text, ps[0].ImageURL)
}

func TestShareFallsBackToLinks(t *testing.T) {
	ps, f := photos(mb, mb)
	s := &fakeSurface{}
	op := &nopOpener{}
	fallback := urlscheme.New(op, urlscheme.WithItemDelay(0))

	o := New(s, NewPreparer(f, &fakeCompressor{}), WithFallback(fallback)).Share(context.Background(), ps, capability.DefaultLimits)
	assert.Equal(t, photoshare.MethodURLScheme, o.Method)
	assert.Equal(t, 2, o.SucceededCount)
	assert.Len(t, op.opened, 2)
}

func TestShareHostRejection(t *testing.T) {
	ps, f := photos(mb)
	s := &fakeSurface{files: true, shareErr: errors.New("NotAllowedError")}

	o := New(s, NewPreparer(f, &fakeCompressor{})).Share(context.Background(), ps, capability.DefaultLimits)
	assert.Equal(t, photoshare.StatusFailed, o.Status)
	assert.Equal(t, photoshare.ReasonHostRejected, o.Reason)
	assert.Equal(t, []string{"0"}, o.FailedPhotoIDs)
}

func TestShareWithoutSurface(t *testing.T) {
	ps, f := photos(mb)
	o := New(nil, NewPreparer(f, &fakeCompressor{})).Share(context.Background(), ps, capability.DefaultLimits)
	assert.Equal(t, photoshare.ReasonUnsupported, o.Reason)
	assert.Empty(t, f.fetched)
}

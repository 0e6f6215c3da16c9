package fileshare

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	photoshare "github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000"
	"github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000/acquire"
	"github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000/compress"
	"github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000/metrics"
	"go.uber.org/zap"
)

// Fetcher downloads image bytes.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, opts acquire.FetchOptions) (acquire.Image, error)
}

// Compressor shrinks image bytes to a byte ceiling.
type Compressor interface {
	CompressToBudget(ctx context.Context, data []byte, mimeType string, targetBytes int64) (compress.Result, error)
}

var unsafeName = regexp.MustCompile(`[^a-zA-Z0-9]`)

// SafeName replaces everything but ASCII letters and digits with underscores.
func SafeName(title string) string {
	s := unsafeName.ReplaceAllString(title, "_")
	if s == "" {
		return "photo"
	}
	return s
}

// Extension maps a mime type to a file extension.
func Extension(mimeType string) string {
	_, sub, ok := strings.Cut(mimeType, "/")
	if !ok || sub == "" {
		return "jpg"
	}
	sub, _, _ = strings.Cut(sub, "+")
	if sub == "jpeg" {
		return "jpg"
	}
	return sub
}

// Prepared is the result of fitting a photo set into a capability tier.
type Prepared struct {
	Files []photoshare.PreparedFile
	// Accepted holds the photos behind Files, in the same order.
	Accepted []photoshare.ShareablePhoto
	// Failed lists excluded photo ids in input order.
	Failed  []string
	Reasons map[string]photoshare.Reason
}

// TotalBytes is the size of every accepted file combined.
func (p Prepared) TotalBytes() int64 {
	return photoshare.TotalBytes(p.Files)
}

// DominantReason picks the reason shown when nothing survived.
func (p Prepared) DominantReason() photoshare.Reason {
	counts := make(map[photoshare.Reason]int)
	for _, r := range p.Reasons {
		counts[r]++
	}
	for _, r := range []photoshare.Reason{
		photoshare.ReasonNetwork,
		photoshare.ReasonTooLarge,
		photoshare.ReasonInvalidPhotos,
	} {
		if counts[r] > 0 {
			return r
		}
	}
	if len(p.Reasons) > 0 {
		return photoshare.ReasonHostRejected
	}
	return photoshare.ReasonNothingToShare
}

type PreparerOption func(*Preparer)

func WithPreparerLogger(logger *zap.Logger) PreparerOption {
	return func(p *Preparer) {
		p.logger = logger
	}
}

func WithPreparerMetrics(m *metrics.Metrics) PreparerOption {
	return func(p *Preparer) {
		p.metrics = m
	}
}

// WithBypassCache makes every fetch skip intermediary caches.
func WithBypassCache(bypass bool) PreparerOption {
	return func(p *Preparer) {
		p.bypassCache = bypass
	}
}

// Preparer acquires and compresses photos so that the accepted set honors a
// SizeLimits tier. Photos are processed one at a time in caller order.
type Preparer struct {
	fetcher     Fetcher
	compressor  Compressor
	bypassCache bool
	logger      *zap.Logger
	metrics     *metrics.Metrics
}

func NewPreparer(fetcher Fetcher, compressor Compressor, opts ...PreparerOption) *Preparer {
	p := &Preparer{
		fetcher:    fetcher,
		compressor: compressor,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Prepare fits photos into limits. A photo that cannot be fetched or made
// small enough is excluded and the rest continue. Accepted files never exceed
// MaxSingleFileBytes each, MaxTotalBytes together or MaxFiles in count.
func (p *Preparer) Prepare(ctx context.Context, photos []photoshare.ShareablePhoto, limits photoshare.SizeLimits) Prepared {
	out := Prepared{Reasons: make(map[string]photoshare.Reason)}
	names := make(map[string]int)
	var total int64

	fail := func(photo photoshare.ShareablePhoto, reason photoshare.Reason, err error) {
		out.Failed = append(out.Failed, photo.ID)
		out.Reasons[photo.ID] = reason
		p.metrics.RecordFailedPhoto(reason)
		p.logger.Info("photo excluded from share",
			zap.String("photo_id", photo.ID),
			zap.String("reason", string(reason)),
			zap.Error(err))
	}

	for _, photo := range photos {
		if missing := photo.Missing(); len(missing) > 0 {
			fail(photo, photoshare.ReasonInvalidPhotos, fmt.Errorf("missing %s", strings.Join(missing, ", ")))
			continue
		}
		if limits.MaxFiles > 0 && len(out.Files) >= limits.MaxFiles {
			fail(photo, photoshare.ReasonTooLarge, fmt.Errorf("file limit of %d reached", limits.MaxFiles))
			continue
		}
		remaining := limits.MaxTotalBytes - total
		if remaining <= 0 {
			fail(photo, photoshare.ReasonTooLarge, fmt.Errorf("total budget of %s exhausted", photoshare.FormatBytes(limits.MaxTotalBytes)))
			continue
		}
		if err := ctx.Err(); err != nil {
			fail(photo, photoshare.ReasonNetwork, err)
			continue
		}

		file, err := p.prepareOne(ctx, photo, limits.MaxSingleFileBytes, remaining)
		if err != nil {
			fail(photo, photoshare.ReasonFor(err), err)
			continue
		}

		file.Name = uniqueName(names, SafeName(photo.Title), Extension(file.MimeType))
		total += file.ByteLength
		out.Files = append(out.Files, file)
		out.Accepted = append(out.Accepted, photo)
	}

	p.logger.Debug("photos prepared",
		zap.Int("accepted", len(out.Files)),
		zap.Int("failed", len(out.Failed)),
		zap.Int64("total_bytes", total))
	return out
}

func (p *Preparer) prepareOne(ctx context.Context, photo photoshare.ShareablePhoto, maxSingle, remaining int64) (photoshare.PreparedFile, error) {
	img, err := p.fetcher.Fetch(ctx, photo.ImageURL, acquire.FetchOptions{BypassCache: p.bypassCache})
	if err != nil {
		return photoshare.PreparedFile{}, photoshare.NewError(photoshare.ErrAcquisitionFailure, "prepare", photo.ID, err)
	}
	data, mimeType := img.Data, img.MimeType

	if maxSingle > 0 && int64(len(data)) > maxSingle {
		start := time.Now()
		res, err := p.compress(ctx, data, mimeType, maxSingle)
		if err != nil {
			return photoshare.PreparedFile{}, photoshare.NewError(photoshare.ErrBudgetUnreachable, "prepare", photo.ID, err)
		}
		p.logger.Debug("photo compressed to file ceiling",
			zap.String("photo_id", photo.ID),
			zap.Int("from", len(data)),
			zap.Int("to", len(res.Data)),
			zap.Int("rung", res.Rung),
			zap.Duration("elapsed", time.Since(start)))
		data, mimeType = res.Data, res.MimeType
	}

	if int64(len(data)) > remaining {
		target := remaining
		if maxSingle > 0 {
			target = min(target, maxSingle)
		}
		res, err := p.compress(ctx, data, mimeType, target)
		if err != nil {
			return photoshare.PreparedFile{}, photoshare.NewError(photoshare.ErrBudgetUnreachable, "prepare", photo.ID, err)
		}
		p.logger.Debug("photo compressed to remaining budget",
			zap.String("photo_id", photo.ID),
			zap.Int("from", len(data)),
			zap.Int("to", len(res.Data)),
			zap.Int64("remaining", remaining))
		data, mimeType = res.Data, res.MimeType
	}

	return photoshare.PreparedFile{
		SourcePhotoID: photo.ID,
		MimeType:      mimeType,
		Bytes:         data,
		ByteLength:    int64(len(data)),
	}, nil
}

func (p *Preparer) compress(ctx context.Context, data []byte, mimeType string, target int64) (compress.Result, error) {
	res, err := p.compressor.CompressToBudget(ctx, data, mimeType, target)
	if err != nil {
		return compress.Result{}, err
	}
	if int64(len(res.Data)) > target {
		return compress.Result{}, fmt.Errorf("compressed to %d bytes, over budget of %d", len(res.Data), target)
	}
	return res, nil
}

func uniqueName(seen map[string]int, base, ext string) string {
	key := base + "." + ext
	seen[key]++
	if n := seen[key]; n > 1 {
		return fmt.Sprintf("%s_%d.%s", base, n, ext)
	}
	return key
}

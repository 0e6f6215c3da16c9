// Package compress recompresses images until they fit a byte ceiling.
package compress

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	photoshare "github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000"
	"github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000/metrics"
	"go.uber.org/zap"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// MimeType is the normalized raster format every rung encodes to.
const MimeType = "image/jpeg"

// Rung is one step of the compression ladder.
type Rung struct {
	MaxDimension int
	Quality      float64
}

// DefaultLadder descends from mild to aggressive.
var DefaultLadder = []Rung{
	{MaxDimension: 1600, Quality: 0.85},
	{MaxDimension: 1280, Quality: 0.75},
	{MaxDimension: 1024, Quality: 0.70},
	{MaxDimension: 800, Quality: 0.65},
}

// Result is a payload that fits the requested budget.
type Result struct {
	Data     []byte
	MimeType string
	// Rung is the index of the accepted rung, or -1 when the input was
	// returned unchanged.
	Rung   int
	Width  int
	Height int
}

type Option func(*Compressor)

func WithLogger(logger *zap.Logger) Option {
	return func(c *Compressor) {
		c.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Compressor) {
		c.metrics = m
	}
}

// WithLadder replaces DefaultLadder. Rungs are tried in order.
func WithLadder(ladder []Rung) Option {
	return func(c *Compressor) {
		if len(ladder) > 0 {
			c.ladder = ladder
		}
	}
}

type Compressor struct {
	ladder  []Rung
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func New(opts ...Option) *Compressor {
	c := &Compressor{
		ladder: DefaultLadder,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CompressToBudget returns data unchanged when it already fits targetBytes.
// Otherwise it walks the ladder and accepts the first rung whose output fits.
// When no rung fits it fails with ErrBudgetUnreachable.
func (c *Compressor) CompressToBudget(ctx context.Context, data []byte, mimeType string, targetBytes int64) (Result, error) {
	if targetBytes <= 0 {
		return Result{}, c.unreachable(fmt.Errorf("no budget left (%d bytes)", targetBytes))
	}
	if int64(len(data)) <= targetBytes {
		return Result{Data: data, MimeType: mimeType, Rung: -1}, nil
	}

	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Result{}, c.unreachable(fmt.Errorf("failed to decode image: %w", err))
	}
	bounds := src.Bounds()

	for i, rung := range c.ladder {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		w, h := fit(bounds.Dx(), bounds.Dy(), rung.MaxDimension)
		out, err := encode(src, w, h, rung.Quality)
		if err != nil {
			return Result{}, c.unreachable(err)
		}

		c.logger.Debug("compression rung",
			zap.Int("rung", i),
			zap.String("source_format", format),
			zap.Int("width", w),
			zap.Int("height", h),
			zap.Int("bytes", len(out)),
			zap.Int64("target", targetBytes))

		if int64(len(out)) <= targetBytes {
			c.metrics.RecordCompression(i)
			return Result{Data: out, MimeType: MimeType, Rung: i, Width: w, Height: h}, nil
		}
	}

	return Result{}, c.unreachable(fmt.Errorf("smallest rung still exceeds %s", photoshare.FormatBytes(targetBytes)))
}

func (c *Compressor) unreachable(err error) error {
	c.metrics.RecordCompression(-1)
	return photoshare.NewError(photoshare.ErrBudgetUnreachable, "compress", "", err)
}

// fit scales w x h so the longer edge is at most maxDim. It never upscales.
func fit(w, h, maxDim int) (int, int) {
	longer := max(w, h)
	if maxDim <= 0 || longer <= maxDim {
		return w, h
	}
	scale := float64(maxDim) / float64(longer)
	nw := max(1, int(float64(w)*scale+0.5))
	nh := max(1, int(float64(h)*scale+0.5))
	return nw, nh
}

func encode(src image.Image, w, h int, quality float64) ([]byte, error) {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	// Flatten transparency onto white before dropping the alpha channel.
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	q := int(quality*100 + 0.5)
	q = min(max(q, 1), 100)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: q}); err != nil {
		return nil, fmt.Errorf("failed to encode scaled image: %w", err)
	}
	return buf.Bytes(), nil
}

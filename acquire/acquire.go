// Package acquire fetches raw image bytes over HTTP.
package acquire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	photoshare "github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000"
	"github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000/metrics"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	DefaultTimeout = 10 * time.Second
	// DefaultMaxBytes caps a single download.
	DefaultMaxBytes = 64 << 20

	cacheBustParam = "_cb"
)

// Image is a fetched, validated image payload.
type Image struct {
	Data     []byte
	MimeType string
}

// FetchOptions tune a single fetch.
type FetchOptions struct {
	// Timeout overrides the acquirer's default when positive.
	Timeout time.Duration
	// BypassCache appends a cache-busting query parameter and asks
	// intermediaries not to serve a stored copy.
	BypassCache bool
}

type Option func(*Acquirer)

func WithLogger(logger *zap.Logger) Option {
	return func(a *Acquirer) {
		a.logger = logger
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(a *Acquirer) {
		a.client = client
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Acquirer) {
		a.metrics = m
	}
}

func WithTimeout(d time.Duration) Option {
	return func(a *Acquirer) {
		a.timeout = d
	}
}

func WithMaxBytes(n int64) Option {
	return func(a *Acquirer) {
		a.maxBytes = n
	}
}

// Acquirer fetches images. It is safe for concurrent use.
type Acquirer struct {
	client   *http.Client
	timeout  time.Duration
	maxBytes int64
	logger   *zap.Logger
	metrics  *metrics.Metrics
	tracer   oteltrace.Tracer
	now      func() time.Time
}

func New(opts ...Option) *Acquirer {
	a := &Acquirer{
		client:   &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		timeout:  DefaultTimeout,
		maxBytes: DefaultMaxBytes,
		logger:   zap.NewNop(),
		tracer:   otel.Tracer("acquire"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Fetch downloads rawURL. It fails with ErrAcquisitionFailure unless the
// response is 2xx, carries an image/* content type and a non-empty body.
func (a *Acquirer) Fetch(ctx context.Context, rawURL string, opts FetchOptions) (Image, error) {
	ctx, span := a.tracer.Start(ctx, "fetch_image")
	defer span.End()

	start := time.Now()
	img, err := a.fetch(ctx, rawURL, opts)
	elapsed := time.Since(start)
	a.metrics.RecordFetch(elapsed.Seconds(), err == nil)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		a.logger.Warn("image fetch failed",
			zap.String("url", rawURL),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		return Image{}, photoshare.NewError(photoshare.ErrAcquisitionFailure, "fetch", "", err)
	}

	span.SetAttributes(
		attribute.Int("image.bytes", len(img.Data)),
		attribute.String("image.mime_type", img.MimeType),
	)
	a.logger.Debug("image fetched",
		zap.String("url", rawURL),
		zap.Int("bytes", len(img.Data)),
		zap.String("type", img.MimeType),
		zap.Duration("elapsed", elapsed))
	return img, nil
}

func (a *Acquirer) fetch(ctx context.Context, rawURL string, opts FetchOptions) (Image, error) {
	timeout := a.timeout
	if opts.Timeout > 0 {
		timeout = opts.Timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	target := rawURL
	if opts.BypassCache {
		target = CacheBust(rawURL, a.now())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Image{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "image/*")
	if opts.BypassCache {
		req.Header.Set("Cache-Control", "no-store")
		req.Header.Set("Pragma", "no-cache")
	}

	resp, err := a.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Image{}, fmt.Errorf("image fetch timed out after %v: %w", timeout, err)
		}
		return Image{}, fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Image{}, fmt.Errorf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	mimeType := mediaType(resp.Header.Get("Content-Type"))
	if !strings.HasPrefix(mimeType, "image/") {
		return Image{}, fmt.Errorf("fetched content is not an image: %q", mimeType)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, a.maxBytes+1))
	if err != nil {
		return Image{}, fmt.Errorf("failed to read image body: %w", err)
	}
	if int64(len(data)) > a.maxBytes {
		return Image{}, fmt.Errorf("image exceeds %d bytes", a.maxBytes)
	}
	if len(data) == 0 {
		return Image{}, errors.New("image body is empty")
	}
	return Image{Data: data, MimeType: mimeType}, nil
}

// CacheBust sets the cache-busting parameter on rawURL to the millisecond
// timestamp of now. Unparseable URLs get the parameter appended verbatim.
func CacheBust(rawURL string, now time.Time) string {
	stamp := strconv.FormatInt(now.UnixMilli(), 10)
	u, err := url.Parse(rawURL)
	if err != nil {
		sep := "?"
		if strings.Contains(rawURL, "?") {
			sep = "&"
		}
		return rawURL + sep + cacheBustParam + "=" + stamp
	}
	q := u.Query()
	q.Set(cacheBustParam, stamp)
	u.RawQuery = q.Encode()
	return u.String()
}

func mediaType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	}
	return mt
}

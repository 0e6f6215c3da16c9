// Package dispatch selects a share strategy for a request and reports one
// outcome.
package dispatch

import (
	"context"
	"errors"
	"time"

	photoshare "github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000"
	"github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Profiler computes a fresh capability profile.
type Profiler interface {
	Profile(ctx context.Context) photoshare.CapabilityProfile
}

// FileSharer shares a photo set as files in one host invocation.
type FileSharer interface {
	Share(ctx context.Context, photos []photoshare.ShareablePhoto, limits photoshare.SizeLimits) photoshare.ShareOutcome
}

// BatchRunner shares a photo set in confirmed batches.
type BatchRunner interface {
	Run(ctx context.Context, photos []photoshare.ShareablePhoto, profile photoshare.CapabilityProfile) (photoshare.ShareOutcome, error)
}

// LinkSharer shares a photo set as a gallery link.
type LinkSharer interface {
	Share(ctx context.Context, photos []photoshare.ShareablePhoto) photoshare.ShareOutcome
}

// Tier is the strategy chosen for a request.
type Tier string

const (
	TierSingle  Tier = "single"
	TierMulti   Tier = "multi"
	TierBatched Tier = "batched"
	TierGallery Tier = "gallery"
)

// Select maps a photo count and intent to a tier. Explicit intents override
// the count based choice.
func Select(count int, intent photoshare.Intent, th Thresholds) Tier {
	switch intent {
	case photoshare.IntentFiles:
		if count <= 1 {
			return TierSingle
		}
		return TierMulti
	case photoshare.IntentBatched:
		return TierBatched
	case photoshare.IntentGallery:
		return TierGallery
	}
	switch {
	case count <= 1:
		return TierSingle
	case count <= th.Files:
		return TierMulti
	case count <= th.Batched:
		return TierBatched
	default:
		return TierGallery
	}
}

type Option func(*Dispatcher)

func WithLogger(logger *zap.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

func WithNotifier(n photoshare.Notifier) Option {
	return func(d *Dispatcher) {
		if n != nil {
			d.notifier = n
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

func WithThresholds(th Thresholds) Option {
	return func(d *Dispatcher) {
		d.thresholds = th
	}
}

// WithNative routes file tiers to the share sheet channel when running
// inside the installed app.
func WithNative(native FileSharer) Option {
	return func(d *Dispatcher) {
		d.native = native
	}
}

func WithBatches(batches BatchRunner) Option {
	return func(d *Dispatcher) {
		d.batches = batches
	}
}

func WithGallery(gallery LinkSharer) Option {
	return func(d *Dispatcher) {
		d.gallery = gallery
	}
}

// Dispatcher runs one share request at a time. Failures never escalate to
// another tier; each channel owns its own fallback.
type Dispatcher struct {
	profiler   Profiler
	files      FileSharer
	native     FileSharer
	batches    BatchRunner
	gallery    LinkSharer
	thresholds Thresholds
	logger     *zap.Logger
	notifier   photoshare.Notifier
	metrics    *metrics.Metrics
	tracer     oteltrace.Tracer
}

func New(profiler Profiler, files FileSharer, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		profiler:   profiler,
		files:      files,
		thresholds: DefaultThresholds(),
		logger:     zap.NewNop(),
		notifier:   photoshare.NopNotifier,
		tracer:     otel.Tracer("dispatch"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Share runs the request and always returns a fully populated outcome. The
// error is non-nil only when the selected tier cannot run on this host
// (ErrCapabilityUnavailable); user cancellation is never an error.
func (d *Dispatcher) Share(ctx context.Context, photos []photoshare.ShareablePhoto, intent photoshare.Intent) (photoshare.ShareOutcome, error) {
	start := time.Now()
	tier := Select(len(photos), intent, d.thresholds)

	ctx, span := d.tracer.Start(ctx, "dispatch")
	defer span.End()
	span.SetAttributes(
		attribute.Int("photos.count", len(photos)),
		attribute.String("share.intent", string(intent)),
		attribute.String("share.tier", string(tier)),
	)

	d.logger.Info("share requested",
		zap.Int("photos", len(photos)),
		zap.String("intent", string(intent)),
		zap.String("tier", string(tier)))

	out, err := d.run(ctx, photos, tier)
	if out.FailedPhotoIDs == nil {
		out.FailedPhotoIDs = []string{}
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.SetAttributes(
		attribute.String("share.method", string(out.Method)),
		attribute.String("share.status", string(out.Status)),
		attribute.Int("photos.succeeded", out.SucceededCount),
	)

	d.metrics.RecordOutcome(out, time.Since(start))
	d.logger.Info("share finished",
		zap.String("method", string(out.Method)),
		zap.String("status", string(out.Status)),
		zap.String("reason", string(out.Reason)),
		zap.Int("succeeded", out.SucceededCount),
		zap.Int("failed", len(out.FailedPhotoIDs)),
		zap.Duration("elapsed", time.Since(start)))

	n := photoshare.NotificationFor(out, len(photos))
	n.Time = time.Now()
	d.notifier.Notify(n)
	return out, err
}

func (d *Dispatcher) run(ctx context.Context, photos []photoshare.ShareablePhoto, tier Tier) (photoshare.ShareOutcome, error) {
	if len(photos) == 0 {
		o := photoshare.NewOutcome(photoshare.MethodNone)
		o.Reason = photoshare.ReasonNothingToShare
		return o, nil
	}

	switch tier {
	case TierGallery:
		if d.gallery == nil {
			return unavailable(photos, "gallery links are not configured")
		}
		return d.gallery.Share(ctx, photos), nil

	case TierBatched:
		if d.batches == nil {
			return unavailable(photos, "batched sharing is not configured")
		}
		profile := d.profiler.Profile(ctx)
		if !profile.SupportsFileShare {
			return unavailable(photos, "file sharing not supported")
		}
		return d.batches.Run(ctx, photos, profile)

	default:
		profile := d.profiler.Profile(ctx)
		if !profile.SupportsFileShare {
			return unavailable(photos, "file sharing not supported")
		}
		sharer := d.files
		if profile.IsNativeApp && d.native != nil {
			sharer = d.native
		}
		if sharer == nil {
			return unavailable(photos, "file sharing is not configured")
		}
		return sharer.Share(ctx, photos, profile.SizeLimits), nil
	}
}

func unavailable(photos []photoshare.ShareablePhoto, msg string) (photoshare.ShareOutcome, error) {
	o := photoshare.NewOutcome(photoshare.MethodNone)
	o.AddFailed(photoshare.IDs(photos)...)
	o.Reason = photoshare.ReasonUnsupported
	return o, photoshare.NewError(photoshare.ErrCapabilityUnavailable, "dispatch", "", errors.New(msg))
}

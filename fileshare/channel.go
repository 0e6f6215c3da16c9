// Package fileshare hands acquired image files to the host share surface.
package fileshare

import (
	"context"
	"fmt"
	"time"

	photoshare "github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000"
	"github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000/caption"
	"github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000/metrics"
	"github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000/urlscheme"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type Option func(*Channel)

func WithLogger(logger *zap.Logger) Option {
	return func(c *Channel) {
		c.logger = logger
	}
}

func WithNotifier(n photoshare.Notifier) Option {
	return func(c *Channel) {
		if n != nil {
			c.notifier = n
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Channel) {
		c.metrics = m
	}
}

// WithFallback sets the link channel used when the host refuses files.
func WithFallback(fallback *urlscheme.Channel) Option {
	return func(c *Channel) {
		c.fallback = fallback
	}
}

// Channel shares one or many photos as files in a single host invocation.
type Channel struct {
	surface  photoshare.ShareSurface
	preparer *Preparer
	fallback *urlscheme.Channel
	logger   *zap.Logger
	notifier photoshare.Notifier
	metrics  *metrics.Metrics
	tracer   oteltrace.Tracer
}

func New(surface photoshare.ShareSurface, preparer *Preparer, opts ...Option) *Channel {
	c := &Channel{
		surface:  surface,
		preparer: preparer,
		logger:   zap.NewNop(),
		notifier: photoshare.NopNotifier,
		tracer:   otel.Tracer("fileshare"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Share prepares photos within limits and offers the survivors to the host
// as one set. A dismissed host dialog yields StatusCancelled, never an error.
func (c *Channel) Share(ctx context.Context, photos []photoshare.ShareablePhoto, limits photoshare.SizeLimits) photoshare.ShareOutcome {
	ctx, span := c.tracer.Start(ctx, "file_share")
	defer span.End()
	span.SetAttributes(attribute.Int("photos.count", len(photos)))

	o := photoshare.NewOutcome(photoshare.MethodFileShare)
	if len(photos) == 0 {
		o.Reason = photoshare.ReasonNothingToShare
		return o
	}
	if c.surface == nil {
		o.AddFailed(photoshare.IDs(photos)...)
		o.Reason = photoshare.ReasonUnsupported
		return o
	}

	c.notifier.Notify(photoshare.Notification{
		Kind:   photoshare.NotifyPreparing,
		Title:  "Preparing files...",
		Detail: fmt.Sprintf("Getting %d photos ready for sharing", len(photos)),
		Time:   time.Now(),
	})

	prepared := c.preparer.Prepare(ctx, photos, limits)
	o.AddFailed(prepared.Failed...)
	span.SetAttributes(
		attribute.Int("files.accepted", len(prepared.Files)),
		attribute.Int64("files.bytes", prepared.TotalBytes()),
	)

	if len(prepared.Files) == 0 {
		o.Reason = prepared.DominantReason()
		c.logger.Warn("no photos could be prepared for sharing",
			zap.Int("requested", len(photos)),
			zap.String("reason", string(o.Reason)))
		o.Settle()
		return o
	}
	if len(prepared.Failed) > 0 {
		c.notifier.Notify(photoshare.Notification{
			Kind:   photoshare.NotifyProgress,
			Title:  fmt.Sprintf("%d photos couldn't be included", len(prepared.Failed)),
			Detail: fmt.Sprintf("Sharing %d photos instead", len(prepared.Files)),
			Reason: prepared.DominantReason(),
			Time:   time.Now(),
		})
	}

	payload := buildPayload(prepared.Accepted, prepared.Files)
	if !c.surface.CanShare(ctx, payload) {
		return c.degrade(ctx, o, prepared, payload)
	}

	err := c.surface.Share(ctx, payload)
	switch {
	case err == nil:
		o.SucceededCount = len(prepared.Files)
		c.metrics.RecordBytes(prepared.TotalBytes())
		c.logger.Info("files shared",
			zap.Int("files", len(prepared.Files)),
			zap.String("bytes", photoshare.FormatBytes(prepared.TotalBytes())))
	case photoshare.IsCancelled(err):
		c.logger.Info("user cancelled the share")
		o.Status = photoshare.StatusCancelled
	default:
		c.logger.Warn("host rejected file share", zap.Error(err))
		if c.fallback != nil {
			return c.fallbackOutcome(ctx, o, prepared.Accepted)
		}
		o.AddFailed(photoshare.IDs(prepared.Accepted)...)
		o.Reason = photoshare.ReasonHostRejected
	}
	o.Settle()
	return o
}

// degrade handles a host that refuses the file payload: the caption is
// offered as text, or the link channel takes over.
func (c *Channel) degrade(ctx context.Context, o photoshare.ShareOutcome, prepared Prepared, payload photoshare.SharePayload) photoshare.ShareOutcome {
	text := photoshare.SharePayload{Title: payload.Title, Text: payload.Text}
	if len(prepared.Accepted) == 1 {
		text.Text = caption.WithLink(payload.Text, prepared.Accepted[0].ImageURL)
	}
	c.logger.Info("file sharing not supported, trying text-only share")

	if c.surface.CanShare(ctx, text) {
		o.Method = photoshare.MethodTextShare
		err := c.surface.Share(ctx, text)
		switch {
		case err == nil:
			o.SucceededCount = len(prepared.Accepted)
		case photoshare.IsCancelled(err):
			o.Status = photoshare.StatusCancelled
		default:
			c.logger.Warn("host rejected text share", zap.Error(err))
			if c.fallback != nil {
				return c.fallbackOutcome(ctx, o, prepared.Accepted)
			}
			o.AddFailed(photoshare.IDs(prepared.Accepted)...)
			o.Reason = photoshare.ReasonHostRejected
		}
		o.Settle()
		return o
	}

	if c.fallback != nil {
		return c.fallbackOutcome(ctx, o, prepared.Accepted)
	}
	o.AddFailed(photoshare.IDs(prepared.Accepted)...)
	o.Reason = photoshare.ReasonUnsupported
	o.Settle()
	return o
}

func (c *Channel) fallbackOutcome(ctx context.Context, o photoshare.ShareOutcome, accepted []photoshare.ShareablePhoto) photoshare.ShareOutcome {
	var res photoshare.ShareOutcome
	if len(accepted) == 1 {
		res = c.fallback.SharePhoto(ctx, accepted[0])
	} else {
		res = c.fallback.ShareEach(ctx, accepted, "")
	}
	res.AddFailed(o.FailedPhotoIDs...)
	res.Settle()
	return res
}

func buildPayload(accepted []photoshare.ShareablePhoto, files []photoshare.PreparedFile) photoshare.SharePayload {
	if len(accepted) == 1 {
		return photoshare.SharePayload{
			Title: accepted[0].Title,
			Text:  caption.Single(accepted[0]),
			Files: files,
		}
	}
	return photoshare.SharePayload{
		Title: fmt.Sprintf("Saree Collection (%d photos)", len(files)),
		Text:  caption.Combined(accepted),
		Files: files,
	}
}

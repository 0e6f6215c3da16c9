// Package urlscheme shares captions and links through chat deep links.
// No binary payload crosses this channel.
package urlscheme

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	photoshare "github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000"
	"github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000/caption"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	NativeBase = "whatsapp://send?text="
	WebBase    = "https://web.whatsapp.com/send?text="

	DefaultFallbackDelay = 2 * time.Second
	DefaultItemDelay     = 2 * time.Second
)

// Encode percent-encodes text for a query value. Spaces become %20.
func Encode(text string) string {
	return strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
}

func NativeURL(text string) string { return NativeBase + Encode(text) }

func WebURL(text string) string { return WebBase + Encode(text) }

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

// WithMobile selects the native deep link with a delayed web fallback instead
// of opening the web destination directly.
func WithMobile(mobile bool) Option {
	return func(c *Channel) {
		c.mobile = mobile
	}
}

func WithFallbackDelay(d time.Duration) Option {
	return func(c *Channel) {
		c.fallbackDelay = d
	}
}

// WithItemDelay sets the pause between sequential per-photo messages.
func WithItemDelay(d time.Duration) Option {
	return func(c *Channel) {
		c.itemDelay = d
	}
}

type Channel struct {
	opener        photoshare.URLOpener
	mobile        bool
	fallbackDelay time.Duration
	itemDelay     time.Duration
	logger        *zap.Logger
	notifier      photoshare.Notifier
}

func New(opener photoshare.URLOpener, opts ...Option) *Channel {
	c := &Channel{
		opener:        opener,
		fallbackDelay: DefaultFallbackDelay,
		itemDelay:     DefaultItemDelay,
		logger:        zap.NewNop(),
		notifier:      photoshare.NopNotifier,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ShareText opens a chat with text prefilled. On mobile the native scheme is
// tried first; if the host cannot open it the web destination is opened after
// the fallback delay.
func (c *Channel) ShareText(ctx context.Context, text string) error {
	if !c.mobile {
		return c.open(ctx, WebURL(text))
	}

	nativeErr := c.open(ctx, NativeURL(text))
	if nativeErr == nil {
		return nil
	}
	c.logger.Info("native chat app did not open, falling back to web",
		zap.Duration("delay", c.fallbackDelay), zap.Error(nativeErr))

	if c.fallbackDelay > 0 {
		t := time.NewTimer(c.fallbackDelay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	return c.open(ctx, WebURL(text))
}

func (c *Channel) open(ctx context.Context, target string) error {
	if c.opener == nil {
		return photoshare.NewError(photoshare.ErrCapabilityUnavailable, "open url", "", fmt.Errorf("no url opener"))
	}
	if err := c.opener.Open(ctx, target); err != nil {
		if photoshare.IsCancelled(err) {
			return err
		}
		return photoshare.NewError(photoshare.ErrHostRejection, "open url", "", err)
	}
	return nil
}

// SharePhoto shares one photo's caption and link.
func (c *Channel) SharePhoto(ctx context.Context, p photoshare.ShareablePhoto) photoshare.ShareOutcome {
	o := photoshare.NewOutcome(photoshare.MethodURLScheme)
	if len(p.Missing()) > 0 {
		o.AddFailed(p.ID)
		o.Reason = photoshare.ReasonInvalidPhotos
		o.Settle()
		return o
	}
	if err := c.ShareText(ctx, caption.WithLink(caption.Single(p), p.ImageURL)); err != nil {
		return c.failed(o, []string{p.ID}, err)
	}
	o.SucceededCount = 1
	o.Settle()
	return o
}

// ShareMessage shares a single prepared message, e.g. a gallery caption, on
// behalf of photos.
func (c *Channel) ShareMessage(ctx context.Context, message string, photos []photoshare.ShareablePhoto) photoshare.ShareOutcome {
	o := photoshare.NewOutcome(photoshare.MethodURLScheme)
	if err := c.ShareText(ctx, message); err != nil {
		return c.failed(o, photoshare.IDs(photos), err)
	}
	o.SucceededCount = len(photos)
	o.Settle()
	return o
}

// ShareEach sends every photo as its own message, paced by the item delay.
// customMessage, when set, replaces the per-photo caption.
func (c *Channel) ShareEach(ctx context.Context, photos []photoshare.ShareablePhoto, customMessage string) photoshare.ShareOutcome {
	o := photoshare.NewOutcome(photoshare.MethodURLScheme)

	valid, invalid := photoshare.SplitValid(photos)
	o.AddFailed(photoshare.IDs(invalid)...)
	if len(valid) == 0 {
		o.Reason = photoshare.ReasonInvalidPhotos
		o.Settle()
		return o
	}

	limit := rate.Inf
	if c.itemDelay > 0 {
		limit = rate.Every(c.itemDelay)
	}
	limiter := rate.NewLimiter(limit, 1)

	var lastErr error
	var dismissed []string
	for i, p := range valid {
		if err := limiter.Wait(ctx); err != nil {
			o.AddFailed(photoshare.IDs(valid[i:])...)
			lastErr = err
			break
		}

		c.notifier.Notify(photoshare.Notification{
			Kind:   photoshare.NotifyProgress,
			Title:  "Sharing photos",
			Detail: fmt.Sprintf("Photo %d of %d: %s", i+1, len(valid), p.Title),
			Time:   time.Now(),
		})

		message := customMessage
		if message == "" {
			message = caption.Individual(p)
		}
		if err := c.ShareText(ctx, caption.WithLink(message, p.ImageURL)); err != nil {
			if photoshare.IsCancelled(err) {
				dismissed = append(dismissed, p.ID)
				continue
			}
			c.logger.Warn("failed to share photo via url",
				zap.String("photo_id", p.ID), zap.Error(err))
			o.AddFailed(p.ID)
			lastErr = err
			continue
		}
		o.SucceededCount++
	}

	switch {
	case len(dismissed) > 0 && o.SucceededCount == 0:
		o.Status = photoshare.StatusCancelled
	case len(dismissed) > 0:
		o.AddFailed(dismissed...)
		o.Reason = photoshare.ReasonCancelled
	case lastErr != nil && o.SucceededCount == 0:
		o.Reason = photoshare.ReasonFor(lastErr)
	}
	o.Settle()
	c.logger.Info("url share finished",
		zap.Int("succeeded", o.SucceededCount),
		zap.Int("failed", len(o.FailedPhotoIDs)))
	return o
}

func (c *Channel) failed(o photoshare.ShareOutcome, ids []string, err error) photoshare.ShareOutcome {
	if photoshare.IsCancelled(err) {
		o.Status = photoshare.StatusCancelled
		o.Settle()
		return o
	}
	c.logger.Warn("url share failed", zap.Error(err))
	o.AddFailed(ids...)
	o.Reason = photoshare.ReasonFor(err)
	if o.Reason == photoshare.ReasonNone {
		o.Reason = photoshare.ReasonHostRejected
	}
	o.Settle()
	return o
}

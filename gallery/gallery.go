// Package gallery shares large photo sets as a time-boxed gallery link.
package gallery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	photoshare "github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000"
	"github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000/caption"
	"github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000/urlscheme"
	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	DefaultTitle  = "Saree Collection"
	DefaultExpiry = 48 * time.Hour

	idPrefix = "gallery-"
)

// Options are the display options stored with a gallery.
type Options struct {
	Title               string
	Expiry              time.Duration
	IncludeBusinessInfo bool
	Watermark           bool
}

func DefaultOptions() Options {
	return Options{
		Title:               DefaultTitle,
		Expiry:              DefaultExpiry,
		IncludeBusinessInfo: true,
	}
}

// NewID returns a fresh gallery identifier.
func NewID() string {
	return idPrefix + uuid.NewString()
}

// ValidID reports whether id looks like an identifier produced by NewID.
func ValidID(id string) bool {
	rest, ok := strings.CutPrefix(id, idPrefix)
	if !ok {
		return false
	}
	_, err := uuid.Parse(rest)
	return err == nil
}

// Link is the public URL of a gallery.
func Link(origin, id string) string {
	return strings.TrimRight(origin, "/") + "/gallery/" + id
}

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

func WithClock(clk clock.Clock) Option {
	return func(c *Channel) {
		c.clock = clk
	}
}

// WithOptions replaces DefaultOptions for every gallery created.
func WithOptions(opts Options) Option {
	return func(c *Channel) {
		c.opts = opts
	}
}

// Channel persists a manifest and shares a short link to it.
type Channel struct {
	store    photoshare.GalleryStore
	links    *urlscheme.Channel
	origin   string
	opts     Options
	clock    clock.Clock
	logger   *zap.Logger
	notifier photoshare.Notifier
	tracer   oteltrace.Tracer
	newID    func() string
}

func New(store photoshare.GalleryStore, links *urlscheme.Channel, origin string, opts ...Option) *Channel {
	c := &Channel{
		store:    store,
		links:    links,
		origin:   origin,
		opts:     DefaultOptions(),
		clock:    clock.New(),
		logger:   zap.NewNop(),
		notifier: photoshare.NopNotifier,
		tracer:   otel.Tracer("gallery"),
		newID:    NewID,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Create persists photos under a new identifier and returns the record and
// its public link.
func (c *Channel) Create(ctx context.Context, photos []photoshare.ShareablePhoto) (photoshare.GalleryRecord, string, error) {
	if c.store == nil {
		return photoshare.GalleryRecord{}, "", errors.New("no gallery store configured")
	}
	title := c.opts.Title
	if title == "" {
		title = DefaultTitle
	}
	expiry := c.opts.Expiry
	if expiry <= 0 {
		expiry = DefaultExpiry
	}

	now := c.clock.Now()
	rec := photoshare.GalleryRecord{
		ID:                  c.newID(),
		Title:               title,
		Photos:              append([]photoshare.ShareablePhoto{}, photos...),
		CreatedAt:           now,
		ExpiresAt:           now.Add(expiry),
		IncludeBusinessInfo: c.opts.IncludeBusinessInfo,
		Watermark:           c.opts.Watermark,
	}
	if err := c.store.Put(ctx, rec); err != nil {
		return photoshare.GalleryRecord{}, "", fmt.Errorf("failed to store gallery: %w", err)
	}

	link := Link(c.origin, rec.ID)
	c.logger.Info("gallery created",
		zap.String("id", rec.ID),
		zap.Int("photos", len(rec.Photos)),
		zap.Time("expires_at", rec.ExpiresAt))
	return rec, link, nil
}

// Share creates a gallery for the valid photos and shares its link with the
// gallery caption.
func (c *Channel) Share(ctx context.Context, photos []photoshare.ShareablePhoto) photoshare.ShareOutcome {
	ctx, span := c.tracer.Start(ctx, "gallery_share")
	defer span.End()
	span.SetAttributes(attribute.Int("photos.count", len(photos)))

	o := photoshare.NewOutcome(photoshare.MethodGalleryLink)
	if len(photos) == 0 {
		o.Reason = photoshare.ReasonNothingToShare
		return o
	}

	valid, invalid := photoshare.SplitValid(photos)
	o.AddFailed(photoshare.IDs(invalid)...)
	if len(valid) == 0 {
		o.Reason = photoshare.ReasonInvalidPhotos
		return o
	}

	c.notifier.Notify(photoshare.Notification{
		Kind:   photoshare.NotifyPreparing,
		Title:  "Creating gallery...",
		Detail: fmt.Sprintf("Preparing %d photos for sharing", len(valid)),
		Time:   c.clock.Now(),
	})

	rec, link, err := c.Create(ctx, valid)
	if err != nil {
		span.RecordError(err)
		c.logger.Error("gallery creation failed", zap.Error(err))
		o.AddFailed(photoshare.IDs(valid)...)
		o.Reason = photoshare.ReasonStorage
		return o
	}
	span.SetAttributes(attribute.String("gallery.id", rec.ID))

	c.notifier.Notify(photoshare.Notification{
		Kind:   photoshare.NotifyProgress,
		Title:  "Gallery created successfully!",
		Detail: fmt.Sprintf("%d photos ready to share", len(valid)),
		Time:   c.clock.Now(),
	})

	if c.links == nil {
		o.AddFailed(photoshare.IDs(valid)...)
		o.Reason = photoshare.ReasonUnsupported
		return o
	}

	res := c.links.ShareMessage(ctx, caption.Gallery(len(valid), link), valid)
	res.Method = photoshare.MethodGalleryLink
	res.AddFailed(o.FailedPhotoIDs...)
	res.Settle()
	return res
}

// Reader serves stored galleries and denies them past expiry.
type Reader struct {
	store photoshare.GalleryStore
	clock clock.Clock
}

func NewReader(store photoshare.GalleryStore, clk clock.Clock) *Reader {
	if clk == nil {
		clk = clock.New()
	}
	return &Reader{store: store, clock: clk}
}

// Open returns the gallery stored under id. Expired galleries fail with
// ErrGalleryExpired whether or not they were physically deleted.
func (r *Reader) Open(ctx context.Context, id string) (photoshare.GalleryRecord, error) {
	if !ValidID(id) {
		return photoshare.GalleryRecord{}, fmt.Errorf("gallery %s: %w", id, photoshare.ErrGalleryNotFound)
	}
	rec, err := r.store.Get(ctx, id)
	if err != nil {
		return photoshare.GalleryRecord{}, err
	}
	if rec.Expired(r.clock.Now()) {
		return photoshare.GalleryRecord{}, fmt.Errorf("gallery %s expired at %s: %w",
			id, rec.ExpiresAt.Format(time.RFC3339), photoshare.ErrGalleryExpired)
	}
	return rec, nil
}

// Package native shares files through the OS share sheet of the installed app.
package native

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	photoshare "github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000"
	"github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000/caption"
	"github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000/fileshare"
	"github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000/scratch"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	// DefaultAuthority is the Android content provider exposing scratch files.
	DefaultAuthority = "app.lovable.photogarden.guardian.fileprovider"

	SingleCleanupDelay = 5 * time.Second
	MultiCleanupDelay  = 10 * time.Second
)

var unsafeName = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// FileName builds a collision resistant scratch name for the index-th photo.
func FileName(title string, index int, now time.Time, ext string) string {
	safe := unsafeName.ReplaceAllString(title, "_")
	if safe == "" {
		safe = "photo"
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s_%d_%d_%s.%s", safe, index+1, now.UnixMilli(), suffix, ext)
}

// ProviderURI rewrites a scratch file name into a content provider reference.
func ProviderURI(authority, name string) string {
	return "content://" + authority + "/" + scratch.Subdir + "/" + url.PathEscape(name)
}

// FileURI is the raw local reference of path.
func FileURI(path string) string {
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String()
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

// WithCleanupDelays overrides the grace delays before scratch files are removed.
func WithCleanupDelays(single, multi time.Duration) Option {
	return func(c *Channel) {
		c.singleDelay = single
		c.multiDelay = multi
	}
}

// Channel persists prepared files to scratch storage and opens the OS share
// sheet with references to them.
type Channel struct {
	sheet       photoshare.ShareSheet
	preparer    *fileshare.Preparer
	store       *scratch.Store
	rt          photoshare.RuntimeContext
	singleDelay time.Duration
	multiDelay  time.Duration
	logger      *zap.Logger
	notifier    photoshare.Notifier
	tracer      oteltrace.Tracer
}

func New(sheet photoshare.ShareSheet, preparer *fileshare.Preparer, store *scratch.Store, rt photoshare.RuntimeContext, opts ...Option) *Channel {
	c := &Channel{
		sheet:       sheet,
		preparer:    preparer,
		store:       store,
		rt:          rt,
		singleDelay: SingleCleanupDelay,
		multiDelay:  MultiCleanupDelay,
		logger:      zap.NewNop(),
		notifier:    photoshare.NopNotifier,
		tracer:      otel.Tracer("native"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Share prepares photos within limits, writes them to scratch storage and
// invokes the share sheet. Cleanup is scheduled whatever the result.
func (c *Channel) Share(ctx context.Context, photos []photoshare.ShareablePhoto, limits photoshare.SizeLimits) photoshare.ShareOutcome {
	ctx, span := c.tracer.Start(ctx, "native_share")
	defer span.End()

	o := photoshare.NewOutcome(photoshare.MethodNativeShare)
	if len(photos) == 0 {
		o.Reason = photoshare.ReasonNothingToShare
		return o
	}
	if c.sheet == nil || c.store == nil {
		o.AddFailed(photoshare.IDs(photos)...)
		o.Reason = photoshare.ReasonUnsupported
		return o
	}

	c.notifier.Notify(photoshare.Notification{
		Kind:   photoshare.NotifyPreparing,
		Title:  "Preparing files...",
		Detail: fmt.Sprintf("Saving %d photos for sharing", len(photos)),
		Time:   time.Now(),
	})

	prepared := c.preparer.Prepare(ctx, photos, limits)
	o.AddFailed(prepared.Failed...)

	var (
		refs     []string
		paths    []string
		accepted []photoshare.ShareablePhoto
	)
	now := c.store.Now()
	for i, file := range prepared.Files {
		photo := prepared.Accepted[i]
		name := FileName(photo.Title, i, now, fileshare.Extension(file.MimeType))
		path, err := c.store.Write(name, file.Bytes)
		if err != nil {
			c.logger.Warn("failed to save photo to scratch storage",
				zap.String("photo_id", photo.ID), zap.Error(err))
			o.AddFailed(photo.ID)
			continue
		}
		paths = append(paths, path)
		refs = append(refs, c.reference(name, path))
		accepted = append(accepted, photo)
	}
	span.SetAttributes(attribute.Int("files.saved", len(paths)))

	if len(paths) == 0 {
		o.Reason = prepared.DominantReason()
		if len(prepared.Files) > 0 {
			o.Reason = photoshare.ReasonStorage
		}
		o.Settle()
		return o
	}

	delay := c.singleDelay
	if len(paths) > 1 {
		delay = c.multiDelay
	}
	defer c.store.ScheduleRemoval(paths, delay)

	err := c.sheet.Share(ctx, c.request(accepted, refs))
	switch {
	case err == nil:
		o.SucceededCount = len(refs)
		c.logger.Info("files shared via share sheet", zap.Int("files", len(refs)))
	case photoshare.IsCancelled(err):
		o.Status = photoshare.StatusCancelled
	default:
		c.logger.Warn("share sheet failed", zap.Error(err))
		o.AddFailed(photoshare.IDs(accepted)...)
		o.Reason = photoshare.ReasonHostRejected
	}
	o.Settle()
	return o
}

// reference returns what the share sheet receives for a scratch file. Android
// rejects raw file references, so they are rewritten to the content provider.
func (c *Channel) reference(name, path string) string {
	if c.rt.Platform == photoshare.PlatformAndroid {
		authority := c.rt.ProviderAuthority
		if authority == "" {
			authority = DefaultAuthority
		}
		return ProviderURI(authority, name)
	}
	return FileURI(path)
}

func (c *Channel) request(photos []photoshare.ShareablePhoto, refs []string) photoshare.ShareSheetRequest {
	if len(photos) == 1 {
		return photoshare.ShareSheetRequest{
			Title: "Share " + photos[0].Title,
			Text:  caption.Single(photos[0]),
			Files: refs,
		}
	}
	return photoshare.ShareSheetRequest{
		Title: fmt.Sprintf("Share %d Photos", len(photos)),
		Text:  caption.MultipleList(photos),
		Files: refs,
	}
}

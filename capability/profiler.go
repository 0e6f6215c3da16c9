// Package capability classifies the sharing capability of the host device.
package capability

import (
	"context"
	"regexp"
	"strings"

	photoshare "github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000"
	"go.uber.org/zap"
)

var (
	mobileKeywords = []string{
		"android", "webos", "iphone", "ipad", "ipod", "blackberry",
		"iemobile", "opera mini", "mobile", "windows phone",
	}
	mobilePattern = regexp.MustCompile(`(?i)mobi|android`)
	iosPattern    = regexp.MustCompile(`iPad|iPhone|iPod`)
)

// probeFile is the synthetic payload used to ask the host whether it honors files.
var probeFile = photoshare.PreparedFile{
	SourcePhotoID: "probe",
	Name:          "test.jpg",
	MimeType:      "image/jpeg",
	Bytes:         []byte("test"),
	ByteLength:    4,
}

// IsMobile classifies a user agent and viewport. Zero viewport dimensions are
// treated as unknown.
func IsMobile(userAgent string, width, height int) bool {
	ua := strings.ToLower(userAgent)
	for _, kw := range mobileKeywords {
		if strings.Contains(ua, kw) {
			return true
		}
	}
	if mobilePattern.MatchString(userAgent) {
		return true
	}
	return width > 0 && height > 0 && width <= 768 && height <= 1024
}

// IsIOS reports whether the user agent belongs to an iOS device.
func IsIOS(userAgent string) bool {
	return iosPattern.MatchString(userAgent)
}

type Option func(*Profiler)

func WithLogger(logger *zap.Logger) Option {
	return func(p *Profiler) {
		p.logger = logger
	}
}

// WithLimits overrides the iOS and default capability tiers.
func WithLimits(ios, other photoshare.SizeLimits) Option {
	return func(p *Profiler) {
		p.iosLimits = ios
		p.limits = other
	}
}

// Profiler computes CapabilityProfiles for one runtime context.
type Profiler struct {
	rt        photoshare.RuntimeContext
	surface   photoshare.ShareSurface
	iosLimits photoshare.SizeLimits
	limits    photoshare.SizeLimits
	logger    *zap.Logger
}

// New creates a Profiler. surface may be nil when the host has no share surface.
func New(rt photoshare.RuntimeContext, surface photoshare.ShareSurface, opts ...Option) *Profiler {
	p := &Profiler{
		rt:        rt,
		surface:   surface,
		iosLimits: IOSLimits,
		limits:    DefaultLimits,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Profiler) DetectMobile() bool {
	return IsMobile(p.rt.UserAgent, p.rt.ViewportWidth, p.rt.ViewportHeight)
}

func (p *Profiler) DetectIOS() bool {
	return p.rt.Platform == photoshare.PlatformIOS || IsIOS(p.rt.UserAgent)
}

// DetectFileShareSupport asks the host whether it can share a synthetic
// image file. Feature presence alone is not trusted: some hosts expose the
// share API without honoring files.
func (p *Profiler) DetectFileShareSupport(ctx context.Context) (supported bool) {
	if p.rt.NativeApp {
		return true
	}
	if p.surface == nil {
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			p.logger.Warn("file share probe panicked", zap.Any("panic", r))
			supported = false
		}
	}()
	return p.surface.CanShare(ctx, photoshare.SharePayload{
		Files: []photoshare.PreparedFile{probeFile},
	})
}

// PlatformLimits returns the capability tier for the current platform.
func (p *Profiler) PlatformLimits() photoshare.SizeLimits {
	if p.DetectIOS() {
		return p.iosLimits
	}
	return p.limits
}

// Profile computes a fresh capability profile.
func (p *Profiler) Profile(ctx context.Context) photoshare.CapabilityProfile {
	profile := photoshare.CapabilityProfile{
		IsMobile:          p.DetectMobile(),
		IsIOS:             p.DetectIOS(),
		IsStandaloneApp:   p.rt.Standalone || p.rt.NativeApp,
		IsNativeApp:       p.rt.NativeApp,
		SupportsFileShare: p.DetectFileShareSupport(ctx),
		SizeLimits:        p.PlatformLimits(),
	}
	p.logger.Debug("capability profile",
		zap.Bool("mobile", profile.IsMobile),
		zap.Bool("ios", profile.IsIOS),
		zap.Bool("native", profile.IsNativeApp),
		zap.Bool("file_share", profile.SupportsFileShare),
		zap.Int("max_files", profile.SizeLimits.MaxFiles),
		zap.Int64("max_total_bytes", profile.SizeLimits.MaxTotalBytes),
	)
	return profile
}

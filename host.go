package photoshare

import (
	"context"
	"time"
)

// RuntimeContext describes the host environment. It is resolved once by the
// host and injected at construction.
type RuntimeContext struct {
	UserAgent      string `json:"userAgent" yaml:"user_agent" toml:"user_agent"`
	ViewportWidth  int    `json:"viewportWidth" yaml:"viewport_width" toml:"viewport_width"`
	ViewportHeight int    `json:"viewportHeight" yaml:"viewport_height" toml:"viewport_height"`
	// Standalone is set when running as an installed web app.
	Standalone bool `json:"standalone" yaml:"standalone" toml:"standalone"`
	// NativeApp is set inside the installed native app runtime.
	NativeApp bool `json:"nativeApp" yaml:"native_app" toml:"native_app"`
	// Platform is "android", "ios" or "web".
	Platform          string `json:"platform" yaml:"platform" toml:"platform"`
	ProviderAuthority string `json:"providerAuthority" yaml:"provider_authority" toml:"provider_authority"`
	// Origin is the public base URL gallery links are built on.
	Origin string `json:"origin" yaml:"origin" toml:"origin"`
}

const (
	PlatformAndroid = "android"
	PlatformIOS     = "ios"
	PlatformWeb     = "web"
)

// SharePayload is what gets offered to a host share surface.
type SharePayload struct {
	Title string
	Text  string
	URL   string
	Files []PreparedFile
}

// ShareSurface is the host's share function. Share returns an error matching
// ErrUserCancelled when the user dismisses the dialog.
type ShareSurface interface {
	CanShare(ctx context.Context, payload SharePayload) bool
	Share(ctx context.Context, payload SharePayload) error
}

// URLOpener opens deep links and web destinations.
type URLOpener interface {
	Open(ctx context.Context, rawURL string) error
}

// ShareSheetRequest is a native OS share sheet invocation. Files are local or
// provider-scoped references.
type ShareSheetRequest struct {
	Title string
	Text  string
	Files []string
}

// ShareSheet is the OS share sheet of the installed-app runtime.
type ShareSheet interface {
	Share(ctx context.Context, req ShareSheetRequest) error
}

// Prompt is shown at a batch confirmation gate.
type Prompt struct {
	Title        string
	Message      string
	Batch        int
	TotalBatches int
	BatchSize    int
}

// Confirmer blocks until the user confirms or cancels. A dismissed prompt
// resolves to false.
type Confirmer interface {
	Confirm(ctx context.Context, prompt Prompt) (bool, error)
}

// ConfirmerFunc adapts a function to Confirmer.
type ConfirmerFunc func(ctx context.Context, prompt Prompt) (bool, error)

func (f ConfirmerFunc) Confirm(ctx context.Context, prompt Prompt) (bool, error) {
	return f(ctx, prompt)
}

// NotificationKind classifies a transient status notification.
type NotificationKind string

const (
	NotifyPreparing NotificationKind = "preparing"
	NotifyProgress  NotificationKind = "progress"
	NotifySuccess   NotificationKind = "success"
	NotifyPartial   NotificationKind = "partial"
	NotifyFailure   NotificationKind = "failure"
	NotifyCancelled NotificationKind = "cancelled"
)

// Notification is a transient status message for the user.
type Notification struct {
	Kind   NotificationKind
	Title  string
	Detail string
	Reason Reason
	Time   time.Time
}

// Notifier receives status notifications.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(n Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

type nopNotifier struct{}

func (nopNotifier) Notify(Notification) {}

// NopNotifier discards notifications.
var NopNotifier Notifier = nopNotifier{}

// NotificationFor converts a final outcome into the notification shown to the user.
func NotificationFor(o ShareOutcome, total int) Notification {
	title, detail := Describe(o, total)
	kind := NotifyFailure
	switch o.Status {
	case StatusSucceeded:
		kind = NotifySuccess
	case StatusPartial:
		kind = NotifyPartial
	case StatusCancelled:
		kind = NotifyCancelled
	}
	return Notification{Kind: kind, Title: title, Detail: detail, Reason: o.Reason}
}

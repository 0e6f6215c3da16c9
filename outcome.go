package photoshare

import (
	"fmt"
)

// Method names the channel that produced an outcome.
type Method string

const (
	MethodNone        Method = "none"
	MethodFileShare   Method = "file_share"
	MethodTextShare   Method = "text_share"
	MethodURLScheme   Method = "url_scheme"
	MethodNativeShare Method = "native_share"
	MethodBatched     Method = "batched"
	MethodGalleryLink Method = "gallery_link"
)

// Status is the terminal classification of a share request.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusPartial   Status = "partial"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Intent is the caller's requested strategy.
type Intent string

const (
	IntentAuto    Intent = "auto"
	IntentFiles   Intent = "files"
	IntentBatched Intent = "batched"
	IntentGallery Intent = "gallery"
)

// ParseIntent converts a user supplied string into an Intent.
func ParseIntent(s string) (Intent, error) {
	switch Intent(s) {
	case "", IntentAuto:
		return IntentAuto, nil
	case IntentFiles, IntentBatched, IntentGallery:
		return Intent(s), nil
	default:
		return "", fmt.Errorf("unknown share intent: %s (must be 'auto', 'files', 'batched', or 'gallery')", s)
	}
}

// ShareOutcome is the single result reported for a share request. Every field
// is always populated; FailedPhotoIDs is never nil.
type ShareOutcome struct {
	SucceededCount int      `json:"succeededCount"`
	FailedPhotoIDs []string `json:"failedPhotoIds"`
	Method         Method   `json:"methodUsed"`
	Status         Status   `json:"status"`
	Reason         Reason   `json:"reason"`
}

// NewOutcome returns an empty failed outcome for method.
func NewOutcome(method Method) ShareOutcome {
	return ShareOutcome{
		FailedPhotoIDs: []string{},
		Method:         method,
		Status:         StatusFailed,
		Reason:         ReasonNone,
	}
}

// Settle derives Status from the counts unless the outcome was cancelled.
func (o *ShareOutcome) Settle() {
	if o.FailedPhotoIDs == nil {
		o.FailedPhotoIDs = []string{}
	}
	if o.Status == StatusCancelled {
		if o.Reason == ReasonNone {
			o.Reason = ReasonCancelled
		}
		return
	}
	switch {
	case o.SucceededCount == 0:
		o.Status = StatusFailed
	case len(o.FailedPhotoIDs) > 0:
		o.Status = StatusPartial
		if o.Reason == ReasonNone {
			o.Reason = ReasonPartial
		}
	default:
		o.Status = StatusSucceeded
		o.Reason = ReasonNone
	}
}

// AddFailed appends ids to the failed list, skipping duplicates.
func (o *ShareOutcome) AddFailed(ids ...string) {
	seen := make(map[string]bool, len(o.FailedPhotoIDs))
	for _, id := range o.FailedPhotoIDs {
		seen[id] = true
	}
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		o.FailedPhotoIDs = append(o.FailedPhotoIDs, id)
	}
}

// OK reports whether the outcome should be presented as a non-error.
func (o ShareOutcome) OK() bool {
	return o.Status != StatusFailed
}

package photoshare

import (
	"fmt"
)

// Reason is a short classified cause attached to outcomes and notifications.
type Reason string

const (
	ReasonNone           Reason = ""
	ReasonUnsupported    Reason = "file_share_unsupported"
	ReasonNetwork        Reason = "network_error"
	ReasonTooLarge       Reason = "too_large"
	ReasonInvalidPhotos  Reason = "invalid_photos"
	ReasonHostRejected   Reason = "host_rejected"
	ReasonPartial        Reason = "partial"
	ReasonCancelled      Reason = "user_cancelled"
	ReasonNothingToShare Reason = "nothing_to_share"
	ReasonStorage        Reason = "storage_error"
)

// ReasonFor maps an error kind to the reason shown to the user.
func ReasonFor(err error) Reason {
	switch KindOf(err) {
	case ErrUserCancelled:
		return ReasonCancelled
	case ErrCapabilityUnavailable:
		return ReasonUnsupported
	case ErrBudgetUnreachable:
		return ReasonTooLarge
	case ErrAcquisitionFailure:
		return ReasonNetwork
	case ErrHostRejection:
		return ReasonHostRejected
	default:
		return ReasonNone
	}
}

// Describe returns an actionable title and detail for an outcome of a request
// that asked for total photos.
func Describe(o ShareOutcome, total int) (title, detail string) {
	switch o.Status {
	case StatusSucceeded:
		return "Photos shared!", fmt.Sprintf("%d of %d shared", o.SucceededCount, total)
	case StatusCancelled:
		return "Sharing cancelled", fmt.Sprintf("%d of %d shared before cancelling", o.SucceededCount, total)
	case StatusPartial:
		return fmt.Sprintf("%d photos couldn't be included", len(o.FailedPhotoIDs)),
			fmt.Sprintf("%d of %d shared", o.SucceededCount, total)
	}

	switch o.Reason {
	case ReasonUnsupported:
		return "File sharing not supported",
			"This device can't share files. Try a gallery link instead."
	case ReasonNetwork:
		return "Network error occurred",
			"Please check your internet connection and try again."
	case ReasonTooLarge:
		return "Photos too large",
			"The photos could not be made small enough to share. Try fewer photos or a gallery link."
	case ReasonInvalidPhotos:
		return "No valid photos to share",
			"All photos are missing required data (title or image URL)."
	case ReasonHostRejected:
		return "Sharing failed",
			"The share target refused the photos. Please try a different method."
	case ReasonNothingToShare:
		return "Nothing to share", "Select at least one photo."
	case ReasonStorage:
		return "Gallery creation failed",
			"Unable to create shareable gallery. Please try a different method."
	}
	return "Sharing failed", fmt.Sprintf("0 of %d shared", total)
}

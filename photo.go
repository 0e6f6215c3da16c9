// Package photoshare exports stored photo records to an external chat
// application. The root package holds the data model, the error taxonomy and
// the interfaces implemented by the host the pipeline runs inside.
package photoshare

import (
	"strings"
)

// ShareablePhoto is the minimal immutable description of a gallery photo
// needed to export it.
type ShareablePhoto struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	ImageURL    string   `json:"imageUrl"`
	Price       *float64 `json:"price,omitempty"`
	Description string   `json:"description,omitempty"`
}

// HasPrice reports whether the photo carries a positive price.
func (p ShareablePhoto) HasPrice() bool {
	return p.Price != nil && *p.Price > 0
}

// Missing returns the names of the fields required for sharing that are empty.
func (p ShareablePhoto) Missing() []string {
	var missing []string
	if strings.TrimSpace(p.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(p.ImageURL) == "" {
		missing = append(missing, "image URL")
	}
	return missing
}

// SplitValid separates photos that can be shared from those missing required data.
func SplitValid(photos []ShareablePhoto) (valid []ShareablePhoto, invalid []ShareablePhoto) {
	for _, p := range photos {
		if len(p.Missing()) == 0 {
			valid = append(valid, p)
		} else {
			invalid = append(invalid, p)
		}
	}
	return valid, invalid
}

// IDs returns the photo ids in order.
func IDs(photos []ShareablePhoto) []string {
	ids := make([]string, 0, len(photos))
	for _, p := range photos {
		ids = append(ids, p.ID)
	}
	return ids
}

// SizeLimits is the capability tier ceiling set of a host share surface.
type SizeLimits struct {
	MaxFiles           int   `json:"maxFiles"`
	MaxTotalBytes      int64 `json:"maxTotalBytes"`
	MaxSingleFileBytes int64 `json:"maxSingleFileBytes"`
}

// CapabilityProfile describes what the current host can do. It is computed
// fresh for every share request.
type CapabilityProfile struct {
	IsMobile          bool       `json:"isMobile"`
	IsIOS             bool       `json:"isIOS"`
	IsStandaloneApp   bool       `json:"isStandaloneApp"`
	IsNativeApp       bool       `json:"isNativeApp"`
	SupportsFileShare bool       `json:"supportsFileShare"`
	SizeLimits        SizeLimits `json:"sizeLimits"`
}

// PreparedFile is an acquired (and possibly recompressed) image ready to be
// handed to a share surface.
type PreparedFile struct {
	SourcePhotoID string
	Name          string
	MimeType      string
	Bytes         []byte
	ByteLength    int64
}

// TotalBytes sums the sizes of files.
func TotalBytes(files []PreparedFile) int64 {
	var total int64
	for _, f := range files {
		total += f.ByteLength
	}
	return total
}

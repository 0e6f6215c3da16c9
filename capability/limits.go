package capability

import (
	photoshare "github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000"
)

const MB = 1024 * 1024

// Conservative capability tiers. Share surfaces silently truncate beyond
// undocumented limits, so these stay well under what hosts advertise.
var (
	IOSLimits = photoshare.SizeLimits{
		MaxFiles:           10,
		MaxTotalBytes:      25 * MB,
		MaxSingleFileBytes: 10 * MB,
	}
	DefaultLimits = photoshare.SizeLimits{
		MaxFiles:           10,
		MaxTotalBytes:      50 * MB,
		MaxSingleFileBytes: 16 * MB,
	}
)

package dispatch

import (
	photoshare "github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000"
)

// Thresholds bound the automatic tier selection.
type Thresholds struct {
	// Files is the largest count shared as files in one invocation.
	Files int `yaml:"files" toml:"files"`
	// Batched is the largest count shared in batches automatically.
	Batched int `yaml:"batched" toml:"batched"`
	// BatchMax is the largest count batching is offered for at all.
	BatchMax int `yaml:"batch_max" toml:"batch_max"`
	// GalleryMin is the smallest count a gallery link is offered for.
	GalleryMin int `yaml:"gallery_min" toml:"gallery_min"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{Files: 10, Batched: 25, BatchMax: 50, GalleryMin: 5}
}

// Recommend returns the intent automatic selection would pick for count.
func Recommend(count int, th Thresholds) photoshare.Intent {
	switch {
	case count <= th.Files:
		return photoshare.IntentFiles
	case count <= th.Batched:
		return photoshare.IntentBatched
	default:
		return photoshare.IntentGallery
	}
}

// Choice describes one share method offered to the user.
type Choice struct {
	Intent      photoshare.Intent
	Title       string
	Recommended bool
	Available   bool
	Limitations []string
}

// Choices lists the methods a caller can present for count photos.
func Choices(count int, th Thresholds) []Choice {
	rec := Recommend(count, th)

	files := Choice{
		Intent:      photoshare.IntentFiles,
		Title:       "Share as Files",
		Recommended: rec == photoshare.IntentFiles,
		Available:   count <= th.Files,
	}
	if count > th.Files {
		files.Limitations = []string{"Too many photos to share as files"}
	}

	batched := Choice{
		Intent:      photoshare.IntentBatched,
		Title:       "Share in Batches",
		Recommended: rec == photoshare.IntentBatched,
		Available:   count > th.Files && count <= th.BatchMax,
		Limitations: []string{"Multiple messages"},
	}
	if count > th.BatchMax {
		batched.Limitations = []string{"Too many photos for batching"}
	}

	gallery := Choice{
		Intent:      photoshare.IntentGallery,
		Title:       "Create Gallery Link",
		Recommended: rec == photoshare.IntentGallery,
		Available:   count > th.GalleryMin,
		Limitations: []string{"Requires internet", "Link expires"},
	}

	return []Choice{files, batched, gallery}
}

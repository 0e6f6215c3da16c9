package photoshare

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// GalleryStore persists gallery link records.
// Different implementations store records in different engines (bbolt, pebble, sqlite).
type GalleryStore interface {
	// Put writes a new record. Records are write-once; an existing id fails with ErrGalleryExists.
	Put(ctx context.Context, rec GalleryRecord) error

	// Get returns the record stored under id or ErrGalleryNotFound.
	// Expiry is not checked here; readers must use GalleryRecord.Expired.
	Get(ctx context.Context, id string) (GalleryRecord, error)

	// List returns all stored gallery ids in key order.
	List(ctx context.Context) ([]string, error)

	// Close closes the store and releases resources
	Close() error
}

// GalleryRecord is a persisted, time-boxed photo manifest reachable via a short id.
type GalleryRecord struct {
	ID                  string           `json:"id"`
	Title               string           `json:"title"`
	Photos              []ShareablePhoto `json:"photos"`
	CreatedAt           time.Time        `json:"createdAt"`
	ExpiresAt           time.Time        `json:"expiresAt"`
	IncludeBusinessInfo bool             `json:"includeBusinessInfo"`
	Watermark           bool             `json:"watermark"`
}

// Expired reports whether the record must be denied at now.
func (r GalleryRecord) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// MarshalGalleryRecord serializes a record for key-value stores.
func MarshalGalleryRecord(rec GalleryRecord) ([]byte, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode gallery %s: %w", rec.ID, err)
	}
	return data, nil
}

// UnmarshalGalleryRecord parses a record produced by MarshalGalleryRecord.
func UnmarshalGalleryRecord(data []byte) (GalleryRecord, error) {
	var rec GalleryRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return GalleryRecord{}, fmt.Errorf("failed to decode gallery record: %w", err)
	}
	if rec.Photos == nil {
		rec.Photos = []ShareablePhoto{}
	}
	return rec, nil
}

// MarshalPhotos serializes a photo manifest.
func MarshalPhotos(photos []ShareablePhoto) ([]byte, error) {
	if photos == nil {
		photos = []ShareablePhoto{}
	}
	data, err := json.Marshal(photos)
	if err != nil {
		return nil, fmt.Errorf("failed to encode photo manifest: %w", err)
	}
	return data, nil
}

// UnmarshalPhotos parses a manifest produced by MarshalPhotos.
func UnmarshalPhotos(data []byte) ([]ShareablePhoto, error) {
	photos := []ShareablePhoto{}
	if err := json.Unmarshal(data, &photos); err != nil {
		return nil, fmt.Errorf("failed to decode photo manifest: %w", err)
	}
	if photos == nil {
		photos = []ShareablePhoto{}
	}
	return photos, nil
}

package pebble

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"
	photoshare "github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000"
)

const galleryPrefix = "gallery:"

// PebbleDB implements photoshare.GalleryStore using Pebble key-value storage
type PebbleDB struct {
	db *pebble.DB
	// serializes the existence check and write in Put
	mu sync.Mutex
}

// New creates a new PebbleDB for writing
func New(dbPath string) (*PebbleDB, error) {
	db, err := pebble.Open(dbPath, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble database: %w", err)
	}

	return &PebbleDB{
		db: db,
	}, nil
}

// NewReader creates a new PebbleDB for reading (read-only mode)
func NewReader(dbPath string) (*PebbleDB, error) {
	opts := &pebble.Options{
		ReadOnly: true,
	}
	db, err := pebble.Open(dbPath, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble database: %w", err)
	}

	return &PebbleDB{
		db: db,
	}, nil
}

func (p *PebbleDB) Close() error {
	return p.db.Close()
}

func (p *PebbleDB) galleryKey(id string) []byte {
	key := make([]byte, len(galleryPrefix)+len(id))
	copy(key, galleryPrefix)
	copy(key[len(galleryPrefix):], id)
	return key
}

func (p *PebbleDB) Put(ctx context.Context, rec photoshare.GalleryRecord) error {
	data, err := photoshare.MarshalGalleryRecord(rec)
	if err != nil {
		return err
	}
	key := p.galleryKey(rec.ID)

	p.mu.Lock()
	defer p.mu.Unlock()

	_, closer, err := p.db.Get(key)
	switch {
	case err == nil:
		closer.Close()
		return fmt.Errorf("gallery %s: %w", rec.ID, photoshare.ErrGalleryExists)
	case !errors.Is(err, pebble.ErrNotFound):
		return fmt.Errorf("failed to check gallery: %w", err)
	}

	if err := p.db.Set(key, data, pebble.Sync); err != nil {
		return fmt.Errorf("failed to set gallery data: %w", err)
	}
	return nil
}

func (p *PebbleDB) Get(ctx context.Context, id string) (photoshare.GalleryRecord, error) {
	data, closer, err := p.db.Get(p.galleryKey(id))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return photoshare.GalleryRecord{}, fmt.Errorf("gallery %s: %w", id, photoshare.ErrGalleryNotFound)
		}
		return photoshare.GalleryRecord{}, fmt.Errorf("failed to get gallery data: %w", err)
	}
	defer closer.Close()

	// Copy the data since it's only valid until closer.Close()
	recData := make([]byte, len(data))
	copy(recData, data)

	return photoshare.UnmarshalGalleryRecord(recData)
}

func (p *PebbleDB) List(ctx context.Context) ([]string, error) {
	iter, err := p.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(galleryPrefix),
		UpperBound: []byte(galleryPrefix + "\xff"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create iterator: %w", err)
	}
	defer iter.Close()

	var ids []string
	for iter.First(); iter.Valid(); iter.Next() {
		ids = append(ids, string(iter.Key()[len(galleryPrefix):]))
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("iterator error: %w", err)
	}
	return ids, nil
}

package bolt

import (
	"context"
	"errors"
	"fmt"
	"time"

	photoshare "github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000"
	bolt "go.etcd.io/bbolt"
)

const galleryBucket = "galleries"

// OpenTimeout bounds how long an open waits for another process's file lock.
const OpenTimeout = time.Second

// BoltDB implements photoshare.GalleryStore using a single bbolt file
type BoltDB struct {
	db *bolt.DB
}

// New opens (creating if needed) a BoltDB for reading and writing
func New(dbPath string) (*BoltDB, error) {
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: OpenTimeout})
	if err != nil {
		return nil, openError(dbPath, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(galleryBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}

	return &BoltDB{
		db: db,
	}, nil
}

// NewReader opens an existing BoltDB in read-only mode
func NewReader(dbPath string) (*BoltDB, error) {
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{ReadOnly: true, Timeout: OpenTimeout})
	if err != nil {
		return nil, openError(dbPath, err)
	}
	return &BoltDB{
		db: db,
	}, nil
}

func openError(dbPath string, err error) error {
	if errors.Is(err, bolt.ErrTimeout) {
		return fmt.Errorf("bbolt database %s is locked by another process: %w", dbPath, err)
	}
	return fmt.Errorf("failed to open bbolt database: %w", err)
}

func (b *BoltDB) Close() error {
	return b.db.Close()
}

func (b *BoltDB) Put(ctx context.Context, rec photoshare.GalleryRecord) error {
	data, err := photoshare.MarshalGalleryRecord(rec)
	if err != nil {
		return err
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(galleryBucket))
		if bucket.Get([]byte(rec.ID)) != nil {
			return fmt.Errorf("gallery %s: %w", rec.ID, photoshare.ErrGalleryExists)
		}
		if err := bucket.Put([]byte(rec.ID), data); err != nil {
			return fmt.Errorf("failed to update gallery bucket: %w", err)
		}
		return nil
	})
}

func (b *BoltDB) Get(ctx context.Context, id string) (photoshare.GalleryRecord, error) {
	var data []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(galleryBucket))
		if bucket == nil {
			return nil
		}
		// Values are only valid for the life of the transaction
		if v := bucket.Get([]byte(id)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if err != nil {
		return photoshare.GalleryRecord{}, fmt.Errorf("failed to read gallery: %w", err)
	}
	if data == nil {
		return photoshare.GalleryRecord{}, fmt.Errorf("gallery %s: %w", id, photoshare.ErrGalleryNotFound)
	}
	return photoshare.UnmarshalGalleryRecord(data)
}

func (b *BoltDB) List(ctx context.Context) ([]string, error) {
	var ids []string
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(galleryBucket))
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(k, _ []byte) error {
			ids = append(ids, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list galleries: %w", err)
	}
	return ids, nil
}

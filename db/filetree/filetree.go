package filetree

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	photoshare "github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000"
	"github.com/ncw/directio"
	bolt "go.etcd.io/bbolt"
)

const (
	metaBucket = "galleries"
	metaFile   = "meta"
	dataDir    = "data"

	openTimeout = time.Second
)

// FileTreeDB implements photoshare.GalleryStore using bbolt as the id index
// and one manifest file per gallery on the filesystem
type FileTreeDB struct {
	metaPath string
	dataPath string
	db       *bolt.DB
}

// New creates a new FileTreeDB for writing
func New(dbDir string) (*FileTreeDB, error) {
	metaPath := filepath.Join(dbDir, metaFile)
	dataPath := filepath.Join(dbDir, dataDir)

	if err := os.MkdirAll(dataPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := bolt.Open(metaPath, 0644, &bolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, openError(metaPath, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(metaBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	return &FileTreeDB{
		metaPath: metaPath,
		dataPath: dataPath,
		db:       db,
	}, nil
}

// NewReader creates a new FileTreeDB for reading (read-only mode)
func NewReader(dbDir string) (*FileTreeDB, error) {
	metaPath := filepath.Join(dbDir, metaFile)
	dataPath := filepath.Join(dbDir, dataDir)

	db, err := bolt.Open(metaPath, 0600, &bolt.Options{ReadOnly: true, Timeout: openTimeout})
	if err != nil {
		return nil, openError(metaPath, err)
	}

	return &FileTreeDB{
		metaPath: metaPath,
		dataPath: dataPath,
		db:       db,
	}, nil
}

func openError(metaPath string, err error) error {
	if errors.Is(err, bolt.ErrTimeout) {
		return fmt.Errorf("gallery index %s is locked by another process: %w", metaPath, err)
	}
	return fmt.Errorf("failed to open bbolt database: %w", err)
}

func (w *FileTreeDB) Close() error {
	return w.db.Close()
}

// manifestPath shards manifests by the first byte of the id hash.
func (w *FileTreeDB) manifestPath(id string) string {
	filename := fmt.Sprintf("%x", sha256.Sum256([]byte(id)))
	return filepath.Join(w.dataPath, filename[:2], filename)
}

// Put writes the manifest first and then indexes it, so an indexed id
// always has a readable manifest.
func (w *FileTreeDB) Put(ctx context.Context, rec photoshare.GalleryRecord) error {
	data, err := photoshare.MarshalGalleryRecord(rec)
	if err != nil {
		return err
	}

	exists := false
	err = w.db.View(func(tx *bolt.Tx) error {
		exists = tx.Bucket([]byte(metaBucket)).Get([]byte(rec.ID)) != nil
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to read meta database: %w", err)
	}
	if exists {
		return fmt.Errorf("gallery %s: %w", rec.ID, photoshare.ErrGalleryExists)
	}

	path := w.manifestPath(rec.ID)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest file: %w", err)
	}

	return w.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(metaBucket))
		if bucket.Get([]byte(rec.ID)) != nil {
			return fmt.Errorf("gallery %s: %w", rec.ID, photoshare.ErrGalleryExists)
		}
		expires, err := rec.ExpiresAt.MarshalText()
		if err != nil {
			return err
		}
		if err := bucket.Put([]byte(rec.ID), expires); err != nil {
			return fmt.Errorf("failed to update meta database: %w", err)
		}
		return nil
	})
}

func (w *FileTreeDB) Get(ctx context.Context, id string) (photoshare.GalleryRecord, error) {
	found := false
	err := w.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(metaBucket))
		if bucket == nil {
			return fmt.Errorf("bucket %s not found", metaBucket)
		}
		found = bucket.Get([]byte(id)) != nil
		return nil
	})
	if err != nil {
		return photoshare.GalleryRecord{}, err
	}
	if !found {
		return photoshare.GalleryRecord{}, fmt.Errorf("gallery %s: %w", id, photoshare.ErrGalleryNotFound)
	}

	data, err := readFile(w.manifestPath(id))
	if err != nil {
		return photoshare.GalleryRecord{}, err
	}
	return photoshare.UnmarshalGalleryRecord(data)
}

func (w *FileTreeDB) List(ctx context.Context) ([]string, error) {
	ids := []string{}
	err := w.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(metaBucket))
		if bucket == nil {
			return fmt.Errorf("bucket %s not found", metaBucket)
		}
		cursor := bucket.Cursor()
		for key, _ := cursor.First(); key != nil; key, _ = cursor.Next() {
			ids = append(ids, string(key))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// readFile reads a manifest with O_DIRECT, falling back to buffered reads on
// filesystems that reject direct I/O.
func readFile(path string) ([]byte, error) {
	data, err := readDirect(path)
	if err == nil {
		return data, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to open manifest file %s: %w", path, err)
	}
	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest file %s: %w", path, err)
	}
	return data, nil
}

func readDirect(path string) ([]byte, error) {
	file, err := directio.OpenFile(path, os.O_RDONLY, 0644)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	fileInfo, err := file.Stat()
	if err != nil {
		return nil, err
	}

	block := directio.AlignedBlock(directio.BlockSize)
	data := make([]byte, 0, fileInfo.Size())
	for {
		n, err := io.ReadFull(file, block)
		if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
			return nil, err
		}
		if n > 0 {
			data = append(data, block[:n]...)
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}
	}
	return data, nil
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	photoshare "github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS shared_galleries (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	photos TEXT NOT NULL,
	created_at TEXT NOT NULL,
	expires_at TEXT NOT NULL,
	include_business_info INTEGER NOT NULL DEFAULT 1,
	watermark INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_shared_galleries_expires ON shared_galleries(expires_at);
`

// SQLiteDB implements photoshare.GalleryStore using an SQLite database
type SQLiteDB struct {
	db *sql.DB
	mu sync.Mutex
}

// New opens (creating if needed) the database at path
func New(path string) (*SQLiteDB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &SQLiteDB{db: db}, nil
}

func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

func (s *SQLiteDB) Put(ctx context.Context, rec photoshare.GalleryRecord) error {
	photos, err := photoshare.MarshalPhotos(rec.Photos)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM shared_galleries WHERE id = ?`, rec.ID).Scan(&n); err != nil {
		return fmt.Errorf("failed to check gallery: %w", err)
	}
	if n > 0 {
		return fmt.Errorf("gallery %s: %w", rec.ID, photoshare.ErrGalleryExists)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO shared_galleries (id, title, photos, created_at, expires_at, include_business_info, watermark)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Title, string(photos),
		rec.CreatedAt.UTC().Format(time.RFC3339Nano),
		rec.ExpiresAt.UTC().Format(time.RFC3339Nano),
		rec.IncludeBusinessInfo, rec.Watermark,
	)
	if err != nil {
		return fmt.Errorf("failed to insert gallery: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit gallery: %w", err)
	}
	return nil
}

func (s *SQLiteDB) Get(ctx context.Context, id string) (photoshare.GalleryRecord, error) {
	var (
		rec                 photoshare.GalleryRecord
		photos              string
		created, expires    string
		business, watermark bool
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, photos, created_at, expires_at, include_business_info, watermark
		FROM shared_galleries WHERE id = ?`, id).
		Scan(&rec.ID, &rec.Title, &photos, &created, &expires, &business, &watermark)
	if errors.Is(err, sql.ErrNoRows) {
		return photoshare.GalleryRecord{}, fmt.Errorf("gallery %s: %w", id, photoshare.ErrGalleryNotFound)
	}
	if err != nil {
		return photoshare.GalleryRecord{}, fmt.Errorf("failed to query gallery: %w", err)
	}

	if rec.Photos, err = photoshare.UnmarshalPhotos([]byte(photos)); err != nil {
		return photoshare.GalleryRecord{}, err
	}
	if rec.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return photoshare.GalleryRecord{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if rec.ExpiresAt, err = time.Parse(time.RFC3339Nano, expires); err != nil {
		return photoshare.GalleryRecord{}, fmt.Errorf("failed to parse expires_at: %w", err)
	}
	rec.IncludeBusinessInfo = business
	rec.Watermark = watermark
	return rec, nil
}

func (s *SQLiteDB) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM shared_galleries ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list galleries: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan gallery id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

package db

import (
	"context"
	"errors"
	"fmt"
	"sync"

	photoshare "github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000"
)

// LazyStore opens its backend on first use and keeps it open until Close.
// Share sessions that never create a gallery never touch the store file.
type LazyStore struct {
	dbType string
	path   string

	mu    sync.Mutex
	store photoshare.GalleryStore
}

func NewLazy(dbType, path string) *LazyStore {
	return &LazyStore{dbType: dbType, path: path}
}

func (l *LazyStore) open() (photoshare.GalleryStore, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.store != nil {
		return l.store, nil
	}
	store, err := Open(l.dbType, l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open gallery store: %w", err)
	}
	l.store = store
	return store, nil
}

// Opened reports whether the backend has been opened.
func (l *LazyStore) Opened() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store != nil
}

func (l *LazyStore) Put(ctx context.Context, rec photoshare.GalleryRecord) error {
	store, err := l.open()
	if err != nil {
		return err
	}
	return store.Put(ctx, rec)
}

func (l *LazyStore) Get(ctx context.Context, id string) (photoshare.GalleryRecord, error) {
	store, err := l.open()
	if err != nil {
		return photoshare.GalleryRecord{}, err
	}
	return store.Get(ctx, id)
}

func (l *LazyStore) List(ctx context.Context) ([]string, error) {
	store, err := l.open()
	if err != nil {
		return nil, err
	}
	return store.List(ctx)
}

func (l *LazyStore) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.store == nil {
		return nil
	}
	err := l.store.Close()
	l.store = nil
	return err
}

// PerCallStore opens the backend for every call and closes it before
// returning. A long running reader built on it never holds the store lock
// between requests and sees galleries written after it started.
type PerCallStore struct {
	dbType string
	path   string
}

func NewPerCall(dbType, path string) *PerCallStore {
	return &PerCallStore{dbType: dbType, path: path}
}

// Check opens and closes the backend once, so a misconfigured store fails
// at startup rather than on the first request.
func (p *PerCallStore) Check() error {
	store, err := OpenReader(p.dbType, p.path)
	if err != nil {
		return err
	}
	return store.Close()
}

func (p *PerCallStore) Put(ctx context.Context, rec photoshare.GalleryRecord) (err error) {
	store, err := Open(p.dbType, p.path)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, store.Close())
	}()
	return store.Put(ctx, rec)
}

func (p *PerCallStore) Get(ctx context.Context, id string) (rec photoshare.GalleryRecord, err error) {
	store, err := OpenReader(p.dbType, p.path)
	if err != nil {
		return photoshare.GalleryRecord{}, err
	}
	defer func() {
		err = errors.Join(err, store.Close())
	}()
	return store.Get(ctx, id)
}

func (p *PerCallStore) List(ctx context.Context) (ids []string, err error) {
	store, err := OpenReader(p.dbType, p.path)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = errors.Join(err, store.Close())
	}()
	return store.List(ctx)
}

func (p *PerCallStore) Close() error {
	return nil
}

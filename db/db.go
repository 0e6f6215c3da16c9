// Package db opens the configured gallery store backend.
package db

import (
	"fmt"

	photoshare "github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000"
	"github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000/db/bolt"
	"github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000/db/filetree"
	"github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000/db/pebble"
	"github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000/db/sqlite"
)

// Supported store types.
const (
	TypeBolt     = "bolt"
	TypePebble   = "pebble"
	TypeSQLite   = "sqlite"
	TypeFileTree = "filetree"
)

// Open opens a gallery store of the given type for reading and writing.
func Open(dbType, path string) (photoshare.GalleryStore, error) {
	switch dbType {
	case TypeBolt:
		return bolt.New(path)
	case TypePebble:
		return pebble.New(path)
	case TypeSQLite:
		return sqlite.New(path)
	case TypeFileTree:
		return filetree.New(path)
	default:
		return nil, fmt.Errorf("unknown database type: %s (must be '%s', '%s', '%s', or '%s')", dbType, TypeBolt, TypePebble, TypeSQLite, TypeFileTree)
	}
}

// OpenReader opens an existing gallery store for serving reads.
func OpenReader(dbType, path string) (photoshare.GalleryStore, error) {
	switch dbType {
	case TypeBolt:
		return bolt.NewReader(path)
	case TypePebble:
		return pebble.NewReader(path)
	case TypeFileTree:
		return filetree.NewReader(path)
	default:
		return Open(dbType, path)
	}
}

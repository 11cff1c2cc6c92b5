// Package cache provides filesystem-based caching of downloaded documents keyed by their source.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/samber/mo"
	"github.com/vodsync/vodsync/filesystem"
	"github.com/vodsync/vodsync/log"
)

// Dir is a directory of cached documents, one file per key.
type Dir struct {
	path string
	ttl  time.Duration
}

// New returns a cache rooted at path. A zero ttl disables expiry.
func New(path string, ttl time.Duration) *Dir {
	return &Dir{path: path, ttl: ttl}
}

// Key derives a deterministic file name from a source such as a URL.
func Key(source string) string {
	hash := sha256.Sum256([]byte(strings.TrimSpace(source)))
	return hex.EncodeToString(hash[:])
}

func (d *Dir) file(source string) string {
	return filepath.Join(d.path, Key(source)+".json")
}

func (d *Dir) expired(modTime time.Time) bool {
	return d.ttl > 0 && time.Since(modTime) > d.ttl
}

// Read returns the cached bytes for source if present and fresh.
func (d *Dir) Read(source string) mo.Option[[]byte] {
	path := d.file(source)

	info, err := filesystem.API().Stat(path)
	if err != nil || d.expired(info.ModTime()) {
		return mo.None[[]byte]()
	}

	data, err := filesystem.API().ReadFile(path)
	if err != nil {
		return mo.None[[]byte]()
	}
	return mo.Some(data)
}

// Write stores data for source atomically.
func (d *Dir) Write(source string, data []byte) error {
	return filesystem.WriteAtomic(d.file(source), data)
}

// CollectGarbage removes expired entries and returns how many were pruned.
func (d *Dir) CollectGarbage() int {
	if d.ttl <= 0 {
		return 0
	}

	var pruned int
	_ = filesystem.API().Walk(d.path, func(path string, info fs.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if d.expired(info.ModTime()) {
			if filesystem.API().Remove(path) == nil {
				pruned++
			}
		}
		return nil
	})

	if pruned > 0 {
		log.Infof("cache: pruned %d expired entries from %s", pruned, d.path)
	}
	return pruned
}

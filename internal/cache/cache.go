// Package cache provides persistent, incremental-scan caching of file
// hashes.
//
// Schema is a whole-snapshot record: a "meta" bucket holds the config
// fingerprint, tool version and scan timestamp; a "files" bucket maps
// path -> gob-encoded hash record. Writes land in a new BoltDB file that
// atomically replaces the old one on a clean close.
package cache

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/user/dupefind/internal/model"
)

const (
	metaBucket  = "meta"
	filesBucket = "files"

	metaKeyConfigHash = "config_hash"
	metaKeyVersion    = "version"
	metaKeyLastScan   = "last_scan"
)

// record is the gob-encoded value stored per path in the files bucket.
// Dev/Ino are deliberately excluded: the cache format is filesystem-
// identity independent, and FileRecord re-derives them via stat on every
// scan rather than trusting a cached value.
type record struct {
	Size        int64
	ModTime     time.Time
	PartialHash string
	FullHash    string
}

// Store is a persistent cache backed by two BoltDB files: an existing,
// read-only snapshot and a freshly created one that receives this run's
// writes. Close atomically replaces the old file with the new one, so a
// run that never finishes leaves the previous cache untouched.
type Store struct {
	readDB  *bolt.DB
	writeDB *bolt.DB
	path    string
	enabled bool
}

// Open opens path for reading (if it exists) and begins a new write
// snapshot. An empty path disables the cache entirely — Load returns nil
// and Save is a no-op, so an incremental scan requested with no cache
// file configured silently runs as a full scan rather than erroring.
func Open(path string) (*Store, error) {
	if path == "" {
		return &Store{enabled: false}, nil
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &model.CacheIOError{Op: "load", Path: path, Err: err}
		}
	}

	s := &Store{path: path, enabled: true}

	if _, statErr := os.Stat(path); statErr == nil {
		if db, err := bolt.Open(path, 0o600, &bolt.Options{ReadOnly: true, Timeout: time.Second}); err == nil {
			s.readDB = db
		}
	}

	writeDB, err := bolt.Open(path+".new", 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		_ = s.Close()
		return nil, &model.CacheIOError{Op: "save", Path: path, Err: err}
	}
	s.writeDB = writeDB

	err = s.writeDB.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(metaBucket)); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists([]byte(filesBucket))
		return err
	})
	if err != nil {
		_ = s.Close()
		return nil, &model.CacheIOError{Op: "save", Path: path, Err: err}
	}

	return s, nil
}

// Close closes both databases and, if the write snapshot closed cleanly,
// atomically renames it over the previous cache file.
func (s *Store) Close() error {
	if !s.enabled {
		return nil
	}

	var firstErr error
	if s.readDB != nil {
		if err := s.readDB.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.writeDB != nil {
		if err := s.writeDB.Close(); err != nil {
			if firstErr == nil {
				firstErr = err
			}
		} else if err := os.Rename(s.path+".new", s.path); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Load reads the existing snapshot, or returns (nil, nil) if the cache is
// disabled, missing, or could not be opened as a BoltDB file. If the file
// opens but a bucket is missing or a record fails to decode, Load returns
// a *model.CacheFormatError; callers treat either outcome as "no cache"
// rather than aborting the scan.
func (s *Store) Load() (*model.CacheSnapshot, error) {
	if !s.enabled || s.readDB == nil {
		return nil, nil
	}

	snap := &model.CacheSnapshot{}
	var files []*model.FileRecord

	err := s.readDB.View(func(tx *bolt.Tx) error {
		meta := tx.Bucket([]byte(metaBucket))
		if meta == nil {
			return fmt.Errorf("missing %q bucket", metaBucket)
		}
		snap.ConfigHash = string(meta.Get([]byte(metaKeyConfigHash)))
		snap.Version = string(meta.Get([]byte(metaKeyVersion)))
		if raw := meta.Get([]byte(metaKeyLastScan)); len(raw) > 0 {
			if err := snap.LastScan.UnmarshalBinary(raw); err != nil {
				return err
			}
		}

		b := tx.Bucket([]byte(filesBucket))
		if b == nil {
			return fmt.Errorf("missing %q bucket", filesBucket)
		}
		return b.ForEach(func(k, v []byte) error {
			var r record
			if err := gob.NewDecoder(bytes.NewReader(v)).Decode(&r); err != nil {
				return err
			}
			files = append(files, &model.FileRecord{
				Path:        string(k),
				Size:        r.Size,
				ModTime:     r.ModTime,
				PartialHash: r.PartialHash,
				FullHash:    r.FullHash,
			})
			return nil
		})
	})
	if err != nil {
		return nil, &model.CacheFormatError{Path: s.path, Err: err}
	}

	snap.Files = files
	return snap, nil
}

// IsValid reports whether snap can be reused for cfg: the config
// fingerprint, tool version, and freshness window must all match.
func IsValid(snap *model.CacheSnapshot, cfg model.ScanConfig) bool {
	if snap == nil {
		return false
	}
	if snap.ConfigHash != cfg.ConfigHash() {
		return false
	}
	if snap.Version != model.Version {
		return false
	}
	return time.Since(snap.LastScan) <= model.MaxCacheAge
}

// FilterUnchanged returns the subset of snap's records whose path, size and
// mtime still match an entry in current, keyed by path. Only such records
// carry a trustworthy PartialHash/FullHash; anything else must be
// recomputed.
func FilterUnchanged(snap *model.CacheSnapshot, current []*model.FileRecord) map[string]*model.FileRecord {
	unchanged := make(map[string]*model.FileRecord)
	if snap == nil {
		return unchanged
	}

	byPath := make(map[string]*model.FileRecord, len(snap.Files))
	for _, f := range snap.Files {
		byPath[f.Path] = f
	}

	for _, c := range current {
		cached, ok := byPath[c.Path]
		if !ok {
			continue
		}
		if cached.Size == c.Size && cached.ModTime.Equal(c.ModTime) {
			unchanged[c.Path] = cached
		}
	}
	return unchanged
}

// Save writes files as the new snapshot, stamped with cfg's fingerprint,
// the running tool version, and the current time. A save failure is
// reported but never aborts the pipeline.
func (s *Store) Save(cfg model.ScanConfig, files []*model.FileRecord, now time.Time) error {
	if !s.enabled || s.writeDB == nil {
		return nil
	}

	lastScan, err := now.MarshalBinary()
	if err != nil {
		return &model.CacheIOError{Op: "save", Path: s.path, Err: err}
	}

	err = s.writeDB.Update(func(tx *bolt.Tx) error {
		meta := tx.Bucket([]byte(metaBucket))
		if err := meta.Put([]byte(metaKeyConfigHash), []byte(cfg.ConfigHash())); err != nil {
			return err
		}
		if err := meta.Put([]byte(metaKeyVersion), []byte(model.Version)); err != nil {
			return err
		}
		if err := meta.Put([]byte(metaKeyLastScan), lastScan); err != nil {
			return err
		}

		b := tx.Bucket([]byte(filesBucket))
		for _, f := range files {
			var buf bytes.Buffer
			r := record{Size: f.Size, ModTime: f.ModTime, PartialHash: f.PartialHash, FullHash: f.FullHash}
			if err := gob.NewEncoder(&buf).Encode(r); err != nil {
				return err
			}
			if err := b.Put([]byte(f.Path), buf.Bytes()); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return &model.CacheIOError{Op: "save", Path: s.path, Err: err}
	}
	return nil
}

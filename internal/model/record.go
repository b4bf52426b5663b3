// Package model holds the data types shared across the duplicate detection
// pipeline: per-file records, the scan configuration, the cache snapshot
// format, and the terminal result.
package model

import (
	"cmp"
	"slices"
	"time"
)

// Version is the tool's semantic version, embedded in cache snapshots to
// invalidate caches written by an incompatible build. Overridable via
// -ldflags the same way cmd/dupefind/main.go's build metadata is.
var Version = "dev"

// Algorithm selects a hash algorithm for the Hasher. The pipeline treats it
// as an opaque string; only cmd/dupefind's flag parsing and internal/hasher
// know the concrete set of values.
type Algorithm string

const (
	XXHash64 Algorithm = "xxhash64"
	XXHash3  Algorithm = "xxhash3"
	WyHash   Algorithm = "wyhash"
	TwoX64   Algorithm = "twox64"
	Blake3   Algorithm = "blake3"
	SHA256   Algorithm = "sha256"
	MD5      Algorithm = "md5"
	SHA1     Algorithm = "sha1"
)

// FileRecord is one candidate file discovered by the Walker or rehydrated
// from the Cache Store. PartialHash and FullHash start empty and are set
// at most once each during a pipeline run.
type FileRecord struct {
	Path        string
	Size        int64
	ModTime     time.Time
	PartialHash string
	FullHash    string

	// Dev/Ino are populated by the Walker for the cross-filesystem device
	// check. They are not part of the persisted cache record format:
	// records returned by the Cache Store's Load leave them zero, and the
	// Walker fills them from stat on every scan.
	Dev uint64
	Ino uint64
}

// DuplicateSet is a group of FileRecords sharing a full-content digest.
type DuplicateSet struct {
	Hash  string
	Files []*FileRecord
}

// TotalSize returns the sum of all member sizes (all equal, since members
// share a full-content digest).
func (d *DuplicateSet) TotalSize() int64 {
	var total int64
	for _, f := range d.Files {
		total += f.Size
	}
	return total
}

// WastedSpace returns (len(Files)-1) * size, the bytes recoverable by
// deduplicating this set.
func (d *DuplicateSet) WastedSpace() int64 {
	if len(d.Files) == 0 {
		return 0
	}
	return int64(len(d.Files)-1) * d.Files[0].Size
}

// NewDuplicateSet builds a DuplicateSet with files sorted by path, for
// deterministic iteration and output.
func NewDuplicateSet(hash string, files []*FileRecord) *DuplicateSet {
	sorted := make([]*FileRecord, len(files))
	copy(sorted, files)
	slices.SortFunc(sorted, func(a, b *FileRecord) int { return cmp.Compare(a.Path, b.Path) })
	return &DuplicateSet{Hash: hash, Files: sorted}
}

// ScanResult is the terminal value the Pipeline emits.
type ScanResult struct {
	Duplicates        []*DuplicateSet
	TotalFilesScanned int
	TotalSizeScanned  int64
	TotalWastedSpace  int64
}

// NewScanResult aggregates wasted space across duplicate sets and sorts the
// sets by their first file's path for deterministic default ordering.
func NewScanResult(duplicates []*DuplicateSet, totalFiles int, totalSize int64) *ScanResult {
	sorted := make([]*DuplicateSet, len(duplicates))
	copy(sorted, duplicates)
	slices.SortFunc(sorted, func(a, b *DuplicateSet) int {
		return cmp.Compare(firstPath(a), firstPath(b))
	})

	var wasted int64
	for _, d := range sorted {
		wasted += d.WastedSpace()
	}

	return &ScanResult{
		Duplicates:        sorted,
		TotalFilesScanned: totalFiles,
		TotalSizeScanned:  totalSize,
		TotalWastedSpace:  wasted,
	}
}

func firstPath(d *DuplicateSet) string {
	if len(d.Files) == 0 {
		return ""
	}
	return d.Files[0].Path
}

// TotalDuplicateFiles returns the number of files that could be reclaimed
// (every file in every set except one representative per set).
func (r *ScanResult) TotalDuplicateFiles() int {
	n := 0
	for _, d := range r.Duplicates {
		if len(d.Files) > 0 {
			n += len(d.Files) - 1
		}
	}
	return n
}

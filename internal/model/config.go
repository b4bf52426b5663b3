package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
)

// ScanConfig holds the parameters of one pipeline run.
type ScanConfig struct {
	Paths            []string
	FollowSymlinks   bool
	MinSize          int64
	MaxDepth         int // -1 means unlimited
	IgnorePatterns   []string
	PartialHashSize  int64
	MmapThreshold    int64
	ThreadCount      int // 0 means "let the pool decide"
	HashAlgorithm    Algorithm
	CrossFilesystem  bool
	CacheFile        string
	Incremental      bool
}

// DefaultScanConfig returns the baseline configuration a scan starts from,
// adapted to Go zero-value conventions.
func DefaultScanConfig() ScanConfig {
	return ScanConfig{
		Paths:           []string{"."},
		FollowSymlinks:  false,
		MinSize:         0,
		MaxDepth:        -1,
		PartialHashSize: 8192,
		MmapThreshold:   64 * 1024 * 1024,
		HashAlgorithm:   Blake3,
		CrossFilesystem: true,
	}
}

// ConfigHash computes a deterministic fingerprint over every field that
// affects enumeration or hashing. Ignore patterns are sorted first so
// set ordering never affects the digest.
func (c ScanConfig) ConfigHash() string {
	patterns := slices.Clone(c.IgnorePatterns)
	slices.Sort(patterns)

	h := sha256.New()
	fmt.Fprintf(h, "paths=%v\n", c.Paths)
	fmt.Fprintf(h, "follow_symlinks=%v\n", c.FollowSymlinks)
	fmt.Fprintf(h, "min_size=%d\n", c.MinSize)
	fmt.Fprintf(h, "max_depth=%d\n", c.MaxDepth)
	fmt.Fprintf(h, "ignore_patterns=%v\n", patterns)
	fmt.Fprintf(h, "partial_hash_size=%d\n", c.PartialHashSize)
	fmt.Fprintf(h, "mmap_threshold=%d\n", c.MmapThreshold)
	fmt.Fprintf(h, "thread_count=%d\n", c.ThreadCount)
	fmt.Fprintf(h, "hash_algorithm=%s\n", c.HashAlgorithm)
	fmt.Fprintf(h, "cross_filesystem=%v\n", c.CrossFilesystem)

	return hex.EncodeToString(h.Sum(nil))
}

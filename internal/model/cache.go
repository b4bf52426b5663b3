package model

import "time"

// CacheSnapshot is the persisted record a Cache Store loads and saves.
// It couples a list of FileRecords to the configuration fingerprint and
// tool version that produced them.
type CacheSnapshot struct {
	Files      []*FileRecord
	ConfigHash string
	LastScan   time.Time
	Version    string
}

// MaxCacheAge is the freshness window enforced by Cache Store.IsValid:
// snapshots older than this are treated as stale.
const MaxCacheAge = 24 * time.Hour

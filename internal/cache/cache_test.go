package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/user/dupefind/internal/model"
)

func rec(path string, size int64, modTime time.Time) *model.FileRecord {
	return &model.FileRecord{Path: path, Size: size, ModTime: modTime}
}

func TestCacheDisabled(t *testing.T) {
	s, err := Open("")
	if err != nil {
		t.Fatalf("Open(\"\") failed: %v", err)
	}
	defer func() { _ = s.Close() }()

	snap, err := s.Load()
	if err != nil || snap != nil {
		t.Errorf("Load() on disabled cache = (%v, %v), want (nil, nil)", snap, err)
	}
	if err := s.Save(model.DefaultScanConfig(), nil, time.Unix(0, 0)); err != nil {
		t.Errorf("Save() on disabled cache returned %v, want nil", err)
	}
}

func TestCacheRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	cachePath := filepath.Join(tmpDir, "cache.db")
	cfg := model.DefaultScanConfig()
	now := time.Unix(1700000000, 0)

	files := []*model.FileRecord{
		rec("/a.txt", 100, time.Unix(1, 0)),
		{Path: "/b.txt", Size: 200, ModTime: time.Unix(2, 0), PartialHash: "aa", FullHash: "bb"},
	}

	s1, err := Open(cachePath)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if err := s1.Save(cfg, files, now); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	if err := s1.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	s2, err := Open(cachePath)
	if err != nil {
		t.Fatalf("Open() second time failed: %v", err)
	}
	defer func() { _ = s2.Close() }()

	snap, err := s2.Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if snap == nil {
		t.Fatal("Load() returned nil snapshot")
	}
	if snap.ConfigHash != cfg.ConfigHash() {
		t.Errorf("ConfigHash = %q, want %q", snap.ConfigHash, cfg.ConfigHash())
	}
	if snap.Version != model.Version {
		t.Errorf("Version = %q, want %q", snap.Version, model.Version)
	}
	if !snap.LastScan.Equal(now) {
		t.Errorf("LastScan = %v, want %v", snap.LastScan, now)
	}
	if len(snap.Files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(snap.Files))
	}

	byPath := make(map[string]*model.FileRecord)
	for _, f := range snap.Files {
		byPath[f.Path] = f
	}
	if byPath["/b.txt"].FullHash != "bb" || byPath["/b.txt"].PartialHash != "aa" {
		t.Error("hashes not round-tripped for /b.txt")
	}
}

func TestIsValidRejectsConfigMismatch(t *testing.T) {
	cfg := model.DefaultScanConfig()
	snap := &model.CacheSnapshot{
		ConfigHash: "different",
		Version:    model.Version,
		LastScan:   time.Now(),
	}
	if IsValid(snap, cfg) {
		t.Error("IsValid() should reject a config hash mismatch")
	}
}

func TestIsValidRejectsVersionMismatch(t *testing.T) {
	cfg := model.DefaultScanConfig()
	snap := &model.CacheSnapshot{
		ConfigHash: cfg.ConfigHash(),
		Version:    "some-other-version",
		LastScan:   time.Now(),
	}
	if IsValid(snap, cfg) {
		t.Error("IsValid() should reject a version mismatch")
	}
}

func TestIsValidRejectsStaleSnapshot(t *testing.T) {
	cfg := model.DefaultScanConfig()
	snap := &model.CacheSnapshot{
		ConfigHash: cfg.ConfigHash(),
		Version:    model.Version,
		LastScan:   time.Now().Add(-25 * time.Hour),
	}
	if IsValid(snap, cfg) {
		t.Error("IsValid() should reject a snapshot older than MaxCacheAge")
	}
}

func TestIsValidAcceptsFreshMatchingSnapshot(t *testing.T) {
	cfg := model.DefaultScanConfig()
	snap := &model.CacheSnapshot{
		ConfigHash: cfg.ConfigHash(),
		Version:    model.Version,
		LastScan:   time.Now().Add(-time.Hour),
	}
	if !IsValid(snap, cfg) {
		t.Error("IsValid() should accept a fresh, matching snapshot")
	}
}

func TestIsValidRejectsNilSnapshot(t *testing.T) {
	if IsValid(nil, model.DefaultScanConfig()) {
		t.Error("IsValid() should reject a nil snapshot")
	}
}

func TestFilterUnchangedKeepsMatchingPathSizeModTime(t *testing.T) {
	modTime := time.Unix(1000, 0)
	snap := &model.CacheSnapshot{
		Files: []*model.FileRecord{
			{Path: "/a.txt", Size: 100, ModTime: modTime, FullHash: "cached-hash"},
		},
	}
	current := []*model.FileRecord{
		{Path: "/a.txt", Size: 100, ModTime: modTime},
	}

	unchanged := FilterUnchanged(snap, current)
	if len(unchanged) != 1 {
		t.Fatalf("expected 1 unchanged file, got %d", len(unchanged))
	}
	if unchanged["/a.txt"].FullHash != "cached-hash" {
		t.Error("expected cached hash to survive")
	}
}

func TestFilterUnchangedDropsOnMtimeChange(t *testing.T) {
	snap := &model.CacheSnapshot{
		Files: []*model.FileRecord{
			{Path: "/a.txt", Size: 100, ModTime: time.Unix(1000, 0), FullHash: "cached-hash"},
		},
	}
	current := []*model.FileRecord{
		{Path: "/a.txt", Size: 100, ModTime: time.Unix(2000, 0)},
	}

	unchanged := FilterUnchanged(snap, current)
	if len(unchanged) != 0 {
		t.Errorf("expected mtime change to drop cache entry, got %d unchanged", len(unchanged))
	}
}

func TestFilterUnchangedDropsOnSizeChange(t *testing.T) {
	modTime := time.Unix(1000, 0)
	snap := &model.CacheSnapshot{
		Files: []*model.FileRecord{
			{Path: "/a.txt", Size: 100, ModTime: modTime, FullHash: "cached-hash"},
		},
	}
	current := []*model.FileRecord{
		{Path: "/a.txt", Size: 200, ModTime: modTime},
	}

	unchanged := FilterUnchanged(snap, current)
	if len(unchanged) != 0 {
		t.Errorf("expected size change to drop cache entry, got %d unchanged", len(unchanged))
	}
}

func TestFilterUnchangedIgnoresNilSnapshot(t *testing.T) {
	unchanged := FilterUnchanged(nil, []*model.FileRecord{rec("/a.txt", 1, time.Now())})
	if len(unchanged) != 0 {
		t.Errorf("expected empty map for nil snapshot, got %d", len(unchanged))
	}
}

func TestCacheDirCreation(t *testing.T) {
	tmpDir := t.TempDir()
	nestedPath := filepath.Join(tmpDir, "a", "b", "c", "cache.db")

	s, err := Open(nestedPath)
	if err != nil {
		t.Fatalf("Open() failed with nested path: %v", err)
	}
	_ = s.Close()

	if _, err := os.Stat(filepath.Dir(nestedPath)); os.IsNotExist(err) {
		t.Error("cache directory was not created")
	}
}

func TestCacheSurvivesAbortedRun(t *testing.T) {
	tmpDir := t.TempDir()
	cachePath := filepath.Join(tmpDir, "cache.db")
	cfg := model.DefaultScanConfig()

	s1, _ := Open(cachePath)
	if err := s1.Save(cfg, []*model.FileRecord{rec("/a.txt", 1, time.Unix(1, 0))}, time.Unix(1700000000, 0)); err != nil {
		t.Fatal(err)
	}
	if err := s1.Close(); err != nil {
		t.Fatal(err)
	}

	// Open again but never Close — simulates a crash mid-run. The
	// previous, already-committed cache file must remain readable.
	s2, err := Open(cachePath)
	if err != nil {
		t.Fatalf("Open() over an existing cache failed: %v", err)
	}
	snap, err := s2.Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if snap == nil || len(snap.Files) != 1 {
		t.Fatalf("expected the previously committed snapshot to still be readable, got %v", snap)
	}
}

package walker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/user/dupefind/internal/model"
	"github.com/user/dupefind/internal/workerpool"
)

func run(t *testing.T, cfg model.ScanConfig) []*model.FileRecord {
	t.Helper()
	pool, err := workerpool.New(2)
	if err != nil {
		t.Fatal(err)
	}
	files, err := New(cfg, pool, nil).Run()
	if err != nil {
		t.Fatal(err)
	}
	return files
}

func TestWalkerBasic(t *testing.T) {
	root := t.TempDir()
	createFile(t, filepath.Join(root, "file1.txt"), 100)
	createFile(t, filepath.Join(root, "file2.txt"), 200)
	if err := os.Mkdir(filepath.Join(root, "subdir"), 0o755); err != nil {
		t.Fatal(err)
	}
	createFile(t, filepath.Join(root, "subdir", "file3.txt"), 300)

	cfg := model.DefaultScanConfig()
	cfg.Paths = []string{root}

	files := run(t, cfg)
	if len(files) != 3 {
		t.Fatalf("expected 3 files, got %d", len(files))
	}
}

func TestWalkerMinSizeFilter(t *testing.T) {
	root := t.TempDir()
	createFile(t, filepath.Join(root, "a"), 100)
	createFile(t, filepath.Join(root, "empty"), 0)

	cfg := model.DefaultScanConfig()
	cfg.Paths = []string{root}
	cfg.MinSize = 1

	files := run(t, cfg)
	if len(files) != 1 {
		t.Fatalf("expected 1 file (empty filtered), got %d", len(files))
	}
}

func TestWalkerMaxDepthZeroYieldsOnlyRootFile(t *testing.T) {
	root := t.TempDir()
	rootFile := filepath.Join(root, "f.txt")
	createFile(t, rootFile, 10)

	cfg := model.DefaultScanConfig()
	cfg.Paths = []string{rootFile}
	cfg.MaxDepth = 0

	files := run(t, cfg)
	if len(files) != 1 {
		t.Fatalf("expected 1 file, got %d", len(files))
	}
}

func TestWalkerMaxDepthLimitsSubdirs(t *testing.T) {
	root := t.TempDir()
	createFile(t, filepath.Join(root, "top.txt"), 10)
	createFile(t, filepath.Join(root, "a", "nested.txt"), 10)
	createFile(t, filepath.Join(root, "a", "b", "deep.txt"), 10)

	cfg := model.DefaultScanConfig()
	cfg.Paths = []string{root}
	cfg.MaxDepth = 1

	files := run(t, cfg)
	if len(files) != 1 {
		t.Fatalf("expected 1 file (top.txt only), got %d", len(files))
	}
	if files[0].Path != filepath.Join(root, "top.txt") {
		t.Errorf("expected top.txt to survive, got %s", files[0].Path)
	}
}

func TestWalkerMaxDepthZeroOnDirectoryRootYieldsNothing(t *testing.T) {
	root := t.TempDir()
	createFile(t, filepath.Join(root, "top.txt"), 10)

	cfg := model.DefaultScanConfig()
	cfg.Paths = []string{root}
	cfg.MaxDepth = 0

	files := run(t, cfg)
	if len(files) != 0 {
		t.Fatalf("expected 0 files (root itself is a directory, not a file), got %d", len(files))
	}
}

func TestWalkerIgnorePattern(t *testing.T) {
	root := t.TempDir()
	createFile(t, filepath.Join(root, "keep.bin"), 10)
	createFile(t, filepath.Join(root, "skip.bin"), 10)

	cfg := model.DefaultScanConfig()
	cfg.Paths = []string{root}
	cfg.IgnorePatterns = []string{"skip.bin"}

	files := run(t, cfg)
	if len(files) != 1 {
		t.Fatalf("expected 1 file, got %d", len(files))
	}
	if files[0].Path != filepath.Join(root, "keep.bin") {
		t.Errorf("expected keep.bin to survive, got %s", files[0].Path)
	}
}

func TestWalkerIgnoreDirectory(t *testing.T) {
	root := t.TempDir()
	createFile(t, filepath.Join(root, "vendor", "dep.go"), 10)
	createFile(t, filepath.Join(root, "main.go"), 10)

	cfg := model.DefaultScanConfig()
	cfg.Paths = []string{root}
	cfg.IgnorePatterns = []string{"vendor/"}

	files := run(t, cfg)
	if len(files) != 1 {
		t.Fatalf("expected 1 file, got %d", len(files))
	}
}

func TestWalkerUnreadableRootFails(t *testing.T) {
	cfg := model.DefaultScanConfig()
	cfg.Paths = []string{filepath.Join(t.TempDir(), "does-not-exist")}

	pool, _ := workerpool.New(2)
	_, err := New(cfg, pool, nil).Run()
	if err == nil {
		t.Fatal("expected WalkError for missing root")
	}
	var walkErr *model.WalkError
	if !asWalkError(err, &walkErr) {
		t.Errorf("expected *model.WalkError, got %T", err)
	}
}

func asWalkError(err error, target **model.WalkError) bool {
	we, ok := err.(*model.WalkError)
	if ok {
		*target = we
	}
	return ok
}

func TestWalkerSymlinksNotFollowedByDefault(t *testing.T) {
	root := t.TempDir()
	createFile(t, filepath.Join(root, "real.txt"), 10)
	if err := os.Symlink(filepath.Join(root, "real.txt"), filepath.Join(root, "link.txt")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	cfg := model.DefaultScanConfig()
	cfg.Paths = []string{root}

	files := run(t, cfg)
	if len(files) != 1 {
		t.Fatalf("expected 1 file (symlink not followed), got %d", len(files))
	}
}

func TestWalkerSymlinksFollowedWhenEnabled(t *testing.T) {
	root := t.TempDir()
	createFile(t, filepath.Join(root, "real.txt"), 10)
	if err := os.Symlink(filepath.Join(root, "real.txt"), filepath.Join(root, "link.txt")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	cfg := model.DefaultScanConfig()
	cfg.Paths = []string{root}
	cfg.FollowSymlinks = true

	files := run(t, cfg)
	if len(files) != 2 {
		t.Fatalf("expected 2 files (real + followed symlink), got %d", len(files))
	}
}

func createFile(t *testing.T, path string, size int64) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	content := make([]byte, size)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}
}

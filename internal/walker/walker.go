// Package walker enumerates candidate files under configured roots,
// honoring the size floor, depth limit, ignore patterns, filesystem
// boundary and symlink policy.
//
// # Architecture
//
// A fan-out/fan-in design: one goroutine is spawned per directory
// discovered, bounded by a shared workerpool.Pool, feeding a single
// collector goroutine over a buffered channel.
package walker

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"syscall"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/user/dupefind/internal/model"
	"github.com/user/dupefind/internal/workerpool"
)

// Walker discovers files matching ScanConfig's filter criteria using
// parallel directory traversal. Single-use: create with New, call Run once.
type Walker struct {
	config model.ScanConfig
	pool   *workerpool.Pool
	errCh  chan<- error

	wg        sync.WaitGroup
	resultCh  chan *model.FileRecord
	visited   sync.Map // inode -> struct{}, target inodes already reached through a followed symlink
}

// New creates a Walker for the given config. errCh, if non-nil, receives
// non-fatal per-entry errors (unreadable subtrees never fail the scan);
// it is never closed by the Walker.
func New(config model.ScanConfig, pool *workerpool.Pool, errCh chan<- error) *Walker {
	return &Walker{config: config, pool: pool, errCh: errCh}
}

// Run executes the scan and returns matching files, or a *model.WalkError
// if a root does not exist, is not a directory, or is unreadable at the
// top level.
func (w *Walker) Run() ([]*model.FileRecord, error) {
	matcher, err := compileIgnorer(w.config.IgnorePatterns)
	if err != nil {
		return nil, err
	}

	w.resultCh = make(chan *model.FileRecord, 1000)

	var results []*model.FileRecord
	var collectorWg sync.WaitGroup
	collectorWg.Add(1)
	go func() {
		defer collectorWg.Done()
		for r := range w.resultCh {
			results = append(results, r)
		}
	}()

	paths := w.config.Paths
	if len(paths) == 0 {
		paths = []string{"."}
	}

	for _, p := range paths {
		absPath, err := filepath.Abs(p)
		if err != nil {
			return nil, &model.WalkError{Path: p, Err: err}
		}

		info, err := os.Stat(absPath)
		if err != nil {
			return nil, &model.WalkError{Path: p, Err: err}
		}

		rootDev, err := deviceOf(info)
		if err != nil {
			return nil, &model.WalkError{Path: p, Err: err}
		}

		if !info.IsDir() {
			if info.Mode().IsRegular() {
				if rec := w.accept(absPath, info, rootDev); rec != nil {
					w.resultCh <- rec
				}
			}
			continue
		}

		w.walkDirectory(absPath, absPath, rootDev, 0, matcher)
	}

	w.wg.Wait()
	close(w.resultCh)
	collectorWg.Wait()

	return results, nil
}

// walkDirectory processes one directory and recursively spawns children,
// bounded by w.pool (backpressure on concurrent directory reads via a
// semaphore released before recursing into subdirectories). root is the
// scan root this subtree descends from, used to build root-relative paths
// for ignore-pattern matching (gitignore patterns anchor to a root, not to
// the filesystem's own "/").
func (w *Walker) walkDirectory(dir, root string, rootDev uint64, depth int, matcher *ignore.GitIgnore) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		w.pool.Acquire()
		entries, err := w.listDirectory(dir)
		w.pool.Release()
		if err != nil {
			w.sendError(err)
			return
		}

		atMaxDepth := w.config.MaxDepth >= 0 && depth >= w.config.MaxDepth

		for _, entry := range entries {
			fullPath := filepath.Join(dir, entry.Name())
			relForMatch := fullPath
			if rel, err := filepath.Rel(root, fullPath); err == nil {
				relForMatch = rel
			}

			if entry.IsDir() {
				if matcher != nil && matcher.MatchesPath(relForMatch+"/") {
					continue
				}
				if !atMaxDepth {
					w.walkDirectory(fullPath, root, rootDev, depth+1, matcher)
				}
				continue
			}

			// A file found while listing dir sits one level below dir, the
			// same depth a child directory would occupy — so it is subject
			// to the same max_depth cutoff as recursion above.
			if atMaxDepth {
				continue
			}

			if matcher != nil && matcher.MatchesPath(relForMatch) {
				continue
			}

			w.handleEntry(fullPath, entry, rootDev)
		}
	}()
}

// handleEntry resolves a directory entry (regular file or, if configured,
// a followed symlink) into a FileRecord and emits it if it passes filters.
// Only symlinks whose target is a regular file are followed; a symlink to
// a directory is never descended into. A followed symlink whose target
// inode was already reached through an earlier followed symlink is
// skipped.
func (w *Walker) handleEntry(fullPath string, entry os.DirEntry, rootDev uint64) {
	if entry.Type()&os.ModeSymlink != 0 {
		if !w.config.FollowSymlinks {
			return
		}
		target, err := filepath.EvalSymlinks(fullPath)
		if err != nil {
			w.sendError(err)
			return
		}
		info, err := os.Stat(target)
		if err != nil {
			w.sendError(err)
			return
		}
		if !info.Mode().IsRegular() {
			return
		}
		ino, ok := inodeOf(info)
		if ok {
			if _, loop := w.visited.LoadOrStore(ino, struct{}{}); loop {
				return
			}
		}
		// Resolved Open Question (SPEC_FULL §4.1): the device check applies
		// to the symlink's resolved target, not the link itself.
		if rec := w.accept(fullPath, info, rootDev); rec != nil {
			w.resultCh <- rec
		}
		return
	}

	if !entry.Type().IsRegular() {
		return
	}
	info, err := entry.Info()
	if err != nil {
		w.sendError(err)
		return
	}
	if rec := w.accept(fullPath, info, rootDev); rec != nil {
		w.resultCh <- rec
	}
}

// accept applies the size floor and cross-filesystem check, returning nil
// if the entry should be dropped.
func (w *Walker) accept(path string, info fs.FileInfo, rootDev uint64) *model.FileRecord {
	if info.Size() < w.config.MinSize {
		return nil
	}

	dev, err := deviceOf(info)
	if err != nil {
		w.sendError(err)
		return nil
	}
	if !w.config.CrossFilesystem && dev != rootDev {
		return nil
	}

	ino, _ := inodeOf(info)

	return &model.FileRecord{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
		Dev:     dev,
		Ino:     ino,
	}
}

// listDirectory reads one directory using batched ReadDir, bounding memory
// on directories with millions of entries.
func (w *Walker) listDirectory(dirPath string) ([]os.DirEntry, error) {
	dir, err := os.Open(dirPath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = dir.Close() }()

	const batchSize = 1000
	var all []os.DirEntry
	for {
		entries, err := dir.ReadDir(batchSize)
		if len(entries) == 0 {
			if err != nil && !errors.Is(err, io.EOF) {
				return all, err
			}
			break
		}
		all = append(all, entries...)
	}
	return all, nil
}

func (w *Walker) sendError(err error) {
	if w.errCh != nil {
		w.errCh <- err
	}
}

func compileIgnorer(patterns []string) (*ignore.GitIgnore, error) {
	if len(patterns) == 0 {
		return nil, nil
	}
	return ignore.CompileIgnoreLines(patterns...)
}

func deviceOf(info fs.FileInfo) (uint64, error) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, errors.New("platform does not expose device id")
	}
	return uint64(stat.Dev), nil
}

func inodeOf(info fs.FileInfo) (uint64, bool) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, false
	}
	return stat.Ino, true
}

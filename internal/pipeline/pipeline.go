// Package pipeline runs the size → partial-hash → full-hash duplicate
// detection funnel, the core of the system.
//
// # Architecture
//
// Each stage partitions its input by an equivalence key and discards
// singleton partitions before the next, narrowing work exponentially: most
// files are eliminated by size alone, most survivors by a short prefix hash,
// leaving only genuine content matches for a full-file hash. Cheap metadata
// grouping feeds expensive content hashing in two fixed passes rather than
// progressive head/tail/chunk probing, since the adaptive prefix table
// already fixes how much of a file to read before a verdict is possible.
//
// # Concurrency
//
// Per-group, one goroutine per file is spawned, bounded by a shared
// workerpool.Pool constructed once by the caller and shared across stages.
// A sync.WaitGroup joins each group's workers before its results are
// partitioned by hash.
package pipeline

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/user/dupefind/internal/cache"
	"github.com/user/dupefind/internal/hasher"
	"github.com/user/dupefind/internal/model"
	"github.com/user/dupefind/internal/progress"
	"github.com/user/dupefind/internal/workerpool"
)

// Pipeline runs the detection funnel over a set of already-discovered files.
// Single-use: create with New, call Run once.
type Pipeline struct {
	config model.ScanConfig
	pool   *workerpool.Pool
	hasher *hasher.Hasher
	store  *cache.Store
	sink   progress.Sink
	errCh  chan<- error
}

// New builds a Pipeline. store may be a disabled cache.Store (cache.Open(""))
// when caching is off; sink may be a no-op Sink when progress reporting is
// off. errCh, if non-nil, receives non-fatal per-file errors and is never
// closed by the Pipeline.
func New(config model.ScanConfig, pool *workerpool.Pool, store *cache.Store, sink progress.Sink, errCh chan<- error) *Pipeline {
	return &Pipeline{
		config: config,
		pool:   pool,
		hasher: hasher.New(config.MmapThreshold),
		store:  store,
		sink:   sink,
		errCh:  errCh,
	}
}

// Run executes the funnel over files (typically the Walker's output) and
// returns the aggregated result. Cache load/merge and save failures are
// reported on errCh but never abort the run; only per-file hash errors
// drop individual files from their group.
func (p *Pipeline) Run(files []*model.FileRecord) (*model.ScanResult, error) {
	files = p.mergeCached(files)

	totalFiles := len(files)
	var totalSize int64
	for _, f := range files {
		totalSize += f.Size
	}

	sizeGroups := groupBySize(files)

	var candidateCount int64
	for _, g := range sizeGroups {
		if len(g) >= 2 {
			candidateCount += int64(len(g))
		}
	}

	p.sink.Start(candidateCount * 2)
	var progressed atomic.Int64

	var partialGroups [][]*model.FileRecord
	for _, g := range sizeGroups {
		if len(g) < 2 {
			continue
		}
		byPartial := p.hashGroup(g, &progressed, func(f *model.FileRecord) (string, error) {
			if f.PartialHash != "" {
				return f.PartialHash, nil
			}
			limit := adaptivePartialHashSize(f.Size, p.config.PartialHashSize)
			h, err := p.hasher.HashPrefix(f.Path, limit, p.config.HashAlgorithm)
			if err != nil {
				return "", err
			}
			f.PartialHash = h
			return h, nil
		})
		for _, grp := range byPartial {
			if len(grp) >= 2 {
				partialGroups = append(partialGroups, grp)
			}
		}
	}

	var duplicateSets []*model.DuplicateSet
	for _, g := range partialGroups {
		byFull := p.hashGroup(g, &progressed, func(f *model.FileRecord) (string, error) {
			if f.FullHash != "" {
				return f.FullHash, nil
			}
			h, err := p.hasher.HashFull(f.Path, p.config.HashAlgorithm)
			if err != nil {
				return "", err
			}
			f.FullHash = h
			return h, nil
		})
		for hash, grp := range byFull {
			if len(grp) >= 2 {
				duplicateSets = append(duplicateSets, model.NewDuplicateSet(hash, grp))
			}
		}
	}

	p.sink.Finish()

	if err := p.store.Save(p.config, files, time.Now()); err != nil {
		p.sendError(err)
	}

	return model.NewScanResult(duplicateSets, totalFiles, totalSize), nil
}

// mergeCached overlays any still-valid cached PartialHash/FullHash onto this
// run's file records, skipping work in the two hashing stages below. Only
// attempted when incremental scanning is configured; a cache load failure
// never aborts the run, it just means nothing is reused.
func (p *Pipeline) mergeCached(files []*model.FileRecord) []*model.FileRecord {
	if !p.config.Incremental {
		return files
	}

	snap, err := p.store.Load()
	if err != nil {
		p.sendError(err)
		return files
	}
	if !cache.IsValid(snap, p.config) {
		return files
	}

	unchanged := cache.FilterUnchanged(snap, files)
	if len(unchanged) == 0 {
		return files
	}

	merged := make([]*model.FileRecord, len(files))
	for i, f := range files {
		if cached, ok := unchanged[f.Path]; ok {
			clone := *f
			clone.PartialHash = cached.PartialHash
			clone.FullHash = cached.FullHash
			merged[i] = &clone
		} else {
			merged[i] = f
		}
	}
	return merged
}

// hashGroup computes compute(f) for every file in the group concurrently,
// bounded by p.pool, and partitions the group by the resulting digest. A
// file whose compute call errors is dropped (reported on errCh) rather than
// failing the group.
func (p *Pipeline) hashGroup(files []*model.FileRecord, progressed *atomic.Int64, compute func(*model.FileRecord) (string, error)) map[string][]*model.FileRecord {
	type outcome struct {
		file *model.FileRecord
		hash string
	}

	results := make(chan outcome, len(files))
	var wg sync.WaitGroup

	for _, f := range files {
		wg.Add(1)
		go func(f *model.FileRecord) {
			defer wg.Done()
			p.pool.Go(func() {
				hash, err := compute(f)
				if err != nil {
					p.sendError(err)
					return
				}
				n := progressed.Add(1)
				p.sink.Update(n)
				results <- outcome{file: f, hash: hash}
			})
		}(f)
	}

	wg.Wait()
	close(results)

	byHash := make(map[string][]*model.FileRecord)
	for r := range results {
		byHash[r.hash] = append(byHash[r.hash], r.file)
	}
	return byHash
}

func (p *Pipeline) sendError(err error) {
	if p.errCh != nil {
		p.errCh <- err
	}
}

func groupBySize(files []*model.FileRecord) map[int64][]*model.FileRecord {
	bySize := make(map[int64][]*model.FileRecord)
	for _, f := range files {
		bySize[f.Size] = append(bySize[f.Size], f)
	}
	return bySize
}

// adaptivePartialHashSize picks how many bytes of a file's prefix to hash,
// scaling with file size. Small files are hashed in full; large ones get a
// prefix proportional to base (ScanConfig.PartialHashSize), capped so the
// prefix never exceeds the file itself.
func adaptivePartialHashSize(fileSize, base int64) int64 {
	switch {
	case fileSize <= 4096:
		return fileSize
	case fileSize <= 65536:
		return min(int64(1024), fileSize)
	case fileSize <= 1048576:
		return min(base, fileSize)
	case fileSize <= 104857600:
		return min(2*base, fileSize)
	default:
		return min(8*base, fileSize)
	}
}

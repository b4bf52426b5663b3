package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/user/dupefind/internal/cache"
	"github.com/user/dupefind/internal/model"
	"github.com/user/dupefind/internal/pipeline"
	"github.com/user/dupefind/internal/progress"
	"github.com/user/dupefind/internal/render"
	"github.com/user/dupefind/internal/walker"
	"github.com/user/dupefind/internal/workerpool"
)

// scanOptions holds CLI flags for the scan command.
type scanOptions struct {
	minSizeStr       string
	maxDepth         int
	followSymlinks   bool
	ignore           []string
	quiet            bool
	threads          int
	partialBaseStr   string
	mmapThresholdStr string
	algorithm        string
	noCrossFs        bool
	cacheFile        string
	incremental      bool
	summaryOnly      bool
	format           string
	outputFile       string
}

var algorithmNames = map[string]model.Algorithm{
	string(model.XXHash64): model.XXHash64,
	string(model.XXHash3):  model.XXHash3,
	string(model.WyHash):   model.WyHash,
	string(model.TwoX64):   model.TwoX64,
	string(model.Blake3):   model.Blake3,
	string(model.SHA256):   model.SHA256,
	string(model.MD5):      model.MD5,
	string(model.SHA1):     model.SHA1,
}

func newScanCmd() *cobra.Command {
	opts := &scanOptions{
		minSizeStr:       "0",
		maxDepth:         -1,
		partialBaseStr:   "8192",
		mmapThresholdStr: "64MiB",
		algorithm:        string(model.Blake3),
		format:           string(render.Text),
	}

	cmd := &cobra.Command{
		Use:   "scan [paths...]",
		Short: "Scan one or more paths for byte-identical duplicate files",
		Args:  cobra.ArbitraryArgs,
		RunE: func(_ *cobra.Command, args []string) error {
			return runScan(args, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.minSizeStr, "min-size", "m", opts.minSizeStr, "Minimum file size to consider (e.g. 0, 4K, 1MiB)")
	flags.IntVar(&opts.maxDepth, "max-depth", opts.maxDepth, "Maximum directory depth to recurse (-1 = unlimited)")
	flags.BoolVar(&opts.followSymlinks, "follow-symlinks", false, "Follow symbolic links")
	flags.StringSliceVarP(&opts.ignore, "ignore", "i", nil, "Gitignore-style pattern to exclude (repeatable)")
	flags.BoolVarP(&opts.quiet, "quiet", "q", false, "Disable progress output")
	flags.IntVarP(&opts.threads, "threads", "t", 0, "Worker thread count (0 = number of CPUs)")
	flags.StringVar(&opts.partialBaseStr, "partial-hash-base-bytes", opts.partialBaseStr, "Base size for adaptive partial-hash prefixes")
	flags.StringVar(&opts.mmapThresholdStr, "mmap-threshold-bytes", opts.mmapThresholdStr, "File size at or above which memory-mapped I/O is used")
	flags.StringVar(&opts.algorithm, "algorithm", opts.algorithm, "Hash algorithm: xxhash64, xxhash3, wyhash, twox64, blake3, sha256, md5, sha1")
	flags.BoolVar(&opts.noCrossFs, "no-cross-filesystem", false, "Skip files on a different filesystem than their root")
	flags.StringVar(&opts.cacheFile, "cache-file", "", "Path to a hash cache file (enables caching)")
	flags.BoolVar(&opts.incremental, "incremental", false, "Reuse cached hashes for files unchanged since the last scan")
	flags.BoolVar(&opts.summaryOnly, "summary-only", false, "Print only the summary, not individual duplicate groups")
	flags.StringVar(&opts.format, "format", opts.format, "Output format: text, json, csv, tree")
	flags.StringVarP(&opts.outputFile, "output-file", "o", "", "Write output to this file instead of stdout")

	return cmd
}

// drainErrors prints non-fatal errors as they arrive, clearing the progress
// bar's line first to avoid visual collision.
func drainErrors(errs <-chan error) {
	for err := range errs {
		fmt.Fprintf(os.Stderr, "\r\033[Kerror: %v\n", err)
	}
}

func runScan(paths []string, opts *scanOptions) error {
	cfg, err := buildConfig(paths, opts)
	if err != nil {
		return err
	}

	pool, err := workerpool.New(cfg.ThreadCount)
	if err != nil {
		return &model.ConfigError{Err: err}
	}

	store, err := cache.Open(cfg.CacheFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: cache unavailable, continuing without it: %v\n", err)
		store, _ = cache.Open("")
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: cache save failed: %v\n", err)
		}
	}()

	errCh := make(chan error, 100)
	go drainErrors(errCh)
	defer close(errCh)

	files, err := walker.New(cfg, pool, errCh).Run()
	if err != nil {
		return err
	}

	result, err := pipeline.New(cfg, pool, store, progress.New(!opts.quiet), errCh).Run(files)
	if err != nil {
		return err
	}

	out := os.Stdout
	if opts.outputFile != "" {
		f, err := os.Create(opts.outputFile)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer func() { _ = f.Close() }()
		out = f
	}

	return render.Render(out, render.Format(opts.format), result, opts.summaryOnly)
}

func buildConfig(paths []string, opts *scanOptions) (model.ScanConfig, error) {
	cfg := model.DefaultScanConfig()
	cfg.Paths = paths

	if err := validateIgnorePatterns(opts.ignore); err != nil {
		return cfg, err
	}
	cfg.IgnorePatterns = opts.ignore

	minSize, err := parseSize(opts.minSizeStr)
	if err != nil {
		return cfg, fmt.Errorf("invalid --min-size: %w", err)
	}
	cfg.MinSize = minSize

	partialBase, err := parseSize(opts.partialBaseStr)
	if err != nil {
		return cfg, fmt.Errorf("invalid --partial-hash-base-bytes: %w", err)
	}
	cfg.PartialHashSize = partialBase

	mmapThreshold, err := parseSize(opts.mmapThresholdStr)
	if err != nil {
		return cfg, fmt.Errorf("invalid --mmap-threshold-bytes: %w", err)
	}
	cfg.MmapThreshold = mmapThreshold

	algo, ok := algorithmNames[opts.algorithm]
	if !ok {
		return cfg, fmt.Errorf("unknown --algorithm %q", opts.algorithm)
	}
	cfg.HashAlgorithm = algo

	cfg.MaxDepth = opts.maxDepth
	cfg.FollowSymlinks = opts.followSymlinks
	cfg.ThreadCount = opts.threads
	cfg.CrossFilesystem = !opts.noCrossFs
	cfg.CacheFile = opts.cacheFile
	cfg.Incremental = opts.incremental

	return cfg, nil
}

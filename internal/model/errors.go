package model

import "fmt"

// WalkError means a scan root does not exist, is not a directory, or is
// unreadable at the top level. Fatal: it aborts the scan.
type WalkError struct {
	Path string
	Err  error
}

func (e *WalkError) Error() string {
	return fmt.Sprintf("walk %s: %v", e.Path, e.Err)
}

func (e *WalkError) Unwrap() error { return e.Err }

// IOError is a per-file open/read/map failure inside the Hasher.
// Non-fatal: the offending file is dropped from its group.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("hash %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// CacheIOError is a cache load or save failure. Non-fatal in both
// directions: a load failure is treated as "no cache", a save failure is
// warned about and ignored.
type CacheIOError struct {
	Op   string // "load" or "save"
	Path string
	Err  error
}

func (e *CacheIOError) Error() string {
	return fmt.Sprintf("cache %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *CacheIOError) Unwrap() error { return e.Err }

// CacheFormatError means a cache file exists but could not be parsed.
// Non-fatal: treated as if no cache were present.
type CacheFormatError struct {
	Path string
	Err  error
}

func (e *CacheFormatError) Error() string {
	return fmt.Sprintf("cache format %s: %v", e.Path, e.Err)
}

func (e *CacheFormatError) Unwrap() error { return e.Err }

// ConfigError means the worker pool could not be constructed with the
// requested thread count. Fatal.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configure worker pool: %v", e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

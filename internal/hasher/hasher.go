// Package hasher computes content digests for files, switching between
// buffered and memory-mapped I/O by file size.
package hasher

import (
	"encoding/hex"
	"hash"
	"io"
	"os"

	"github.com/edsrzf/mmap-go"

	"github.com/user/dupefind/internal/model"
)

// bufferSize is the buffered-read chunk size.
const bufferSize = 8 * 1024

// Hasher computes full-file and prefix digests, choosing memory-mapped
// I/O over buffered reads once a file reaches mmapThreshold bytes.
type Hasher struct {
	mmapThreshold int64
}

// New builds a Hasher. mmapThreshold is ScanConfig.MmapThreshold; files at
// or above it are memory-mapped rather than read in 8KiB chunks.
func New(mmapThreshold int64) *Hasher {
	return &Hasher{mmapThreshold: mmapThreshold}
}

// HashFull digests an entire file under algo.
func (h *Hasher) HashFull(path string, algo model.Algorithm) (string, error) {
	return h.hash(path, algo, -1)
}

// HashPrefix digests the first byteLimit bytes of a file under algo (or the
// whole file, if it is shorter than byteLimit).
func (h *Hasher) HashPrefix(path string, byteLimit int64, algo model.Algorithm) (string, error) {
	return h.hash(path, algo, byteLimit)
}

func (h *Hasher) hash(path string, algo model.Algorithm, limit int64) (string, error) {
	digest, err := newHash(algo)
	if err != nil {
		return "", &model.IOError{Path: path, Err: err}
	}

	f, err := os.Open(path)
	if err != nil {
		return "", &model.IOError{Path: path, Err: err}
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return "", &model.IOError{Path: path, Err: err}
	}

	useMmap := info.Size() > 0 && info.Size() >= h.mmapThreshold
	if useMmap {
		err = hashMapped(f, digest, limit)
	} else {
		err = hashBuffered(f, digest, limit)
	}
	if err != nil {
		return "", &model.IOError{Path: path, Err: err}
	}

	return hex.EncodeToString(digest.Sum(nil)), nil
}

// hashBuffered streams the file through digest in bufferSize chunks.
func hashBuffered(f *os.File, digest hash.Hash, limit int64) error {
	var reader io.Reader = f
	if limit >= 0 {
		reader = io.LimitReader(f, limit)
	}
	buf := make([]byte, bufferSize)
	_, err := io.CopyBuffer(digest, reader, buf)
	return err
}

// hashMapped feeds a memory-mapped view of the file to digest in one write,
// avoiding the read(2) copy for files large enough that it matters.
func hashMapped(f *os.File, digest hash.Hash, limit int64) (err error) {
	mapped, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return err
	}
	defer func() {
		if uerr := mapped.Unmap(); err == nil {
			err = uerr
		}
	}()

	data := []byte(mapped)
	if limit >= 0 && limit < int64(len(data)) {
		data = data[:limit]
	}
	_, err = digest.Write(data)
	return err
}

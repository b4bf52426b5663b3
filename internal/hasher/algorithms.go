package hasher

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"hash"

	oneofone "github.com/OneOfOne/xxhash"
	cespare "github.com/cespare/xxhash/v2"
	"github.com/dgryski/go-wyhash"
	"github.com/zeebo/blake3"
	"github.com/zeebo/xxh3"

	"github.com/user/dupefind/internal/model"
)

// newHash returns a fresh streaming hash.Hash for algo. The core treats
// algorithm selection as opaque; this is the one place that maps the
// external algorithm names onto concrete implementations.
func newHash(algo model.Algorithm) (hash.Hash, error) {
	switch algo {
	case model.XXHash64:
		return cespare.New(), nil
	case model.XXHash3:
		return xxh3.New(), nil
	case model.TwoX64:
		return oneofone.New64(), nil
	case model.WyHash:
		return newWyHashDigest(), nil
	case model.Blake3:
		return blake3.New(), nil
	case model.SHA256:
		return sha256.New(), nil
	case model.MD5:
		return md5.New(), nil
	case model.SHA1:
		return sha1.New(), nil
	default:
		return nil, fmt.Errorf("unsupported hash algorithm %q", algo)
	}
}

// wyHashDigest adapts dgryski/go-wyhash's one-shot Sum64(seed, data) into
// the streaming hash.Hash interface the rest of the Hasher is built around.
// wyhash has no incremental state machine in this package, so every byte
// written is kept in memory and hashed on Sum(). This holds for both I/O
// paths: a memory-mapped file is copied into the buffer in full, so a
// wyhash digest holds as many bytes as it hashes (the prefix, or the whole
// file).
type wyHashDigest struct {
	buf []byte
}

func newWyHashDigest() hash.Hash { return &wyHashDigest{} }

func (w *wyHashDigest) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	return len(p), nil
}

func (w *wyHashDigest) Sum(b []byte) []byte {
	sum := wyhash.Sum64(0, w.buf)
	var out [8]byte
	binary.BigEndian.PutUint64(out[:], sum)
	return append(b, out[:]...)
}

func (w *wyHashDigest) Reset()         { w.buf = w.buf[:0] }
func (w *wyHashDigest) Size() int      { return 8 }
func (w *wyHashDigest) BlockSize() int { return 1 }

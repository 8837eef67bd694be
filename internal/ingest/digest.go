package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"

	"github.com/pkg/errors"
)

// Digest identifies the bytes of an imported document.
type Digest struct {
	SHA256 string
	Size   int64
}

// copyDigest copies src into dst and digests the bytes on the way through,
// so a download is hashed without reading the stored file back.
func copyDigest(dst io.Writer, src io.Reader) (Digest, error) {
	c := &countingHash{h: sha256.New()}
	if _, err := io.Copy(io.MultiWriter(dst, c), src); err != nil {
		return Digest{}, errors.WithStack(err)
	}
	return Digest{SHA256: hex.EncodeToString(c.h.Sum(nil)), Size: c.n}, nil
}

type countingHash struct {
	h hash.Hash
	n int64
}

func (c *countingHash) Write(p []byte) (int, error) {
	c.n += int64(len(p))
	return c.h.Write(p)
}

package fs

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/gabriel-vasile/mimetype"
)

// Digest is what ingestion needs to know about a file's bytes.
type Digest struct {
	MD5         string // lowercase hex
	ContentType string
	Size        int64
}

// DigestReader reads r to the end, hashing every byte and sniffing the
// content type from the leading bytes.
func DigestReader(r io.Reader) (Digest, error) {
	h := md5.New()
	counter := &countingWriter{}
	tee := io.TeeReader(r, io.MultiWriter(h, counter))

	mtype, err := mimetype.DetectReader(tee)
	if err != nil {
		return Digest{}, fmt.Errorf("detecting content type: %w", err)
	}
	if _, err := io.Copy(io.Discard, tee); err != nil {
		return Digest{}, fmt.Errorf("hashing content: %w", err)
	}

	return Digest{
		MD5:         hex.EncodeToString(h.Sum(nil)),
		ContentType: mtype.String(),
		Size:        counter.n,
	}, nil
}

type countingWriter struct {
	n int64
}

func (w *countingWriter) Write(p []byte) (int, error) {
	w.n += int64(len(p))
	return len(p), nil
}

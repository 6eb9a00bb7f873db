package optimizer

import (
	"bytes"
	"context"
	"strings"

	"github.com/disintegration/imaging"
)

const contentTypeJPEG = "image/jpeg"

// objectStorage defines the interface for the object store backend
// (e.g., MinIO or S3) the optimizer reads sources from and writes
// results to.
type objectStorage interface {
	Get(ctx context.Context, bucket, key string) ([]byte, error)
	Put(ctx context.Context, bucket, key string, data []byte, contentType string) error
}

// Config holds the optimizer options. All three are fixed for the
// lifetime of the process.
type Config struct {
	SourcePrefix string // only keys under this prefix are processed
	DestPrefix   string // replaces SourcePrefix in the output key
	Quality      int    // JPEG quality of the re-encode, 1-100
}

// Optimizer recompresses uploaded images. It fetches the source object,
// re-encodes it as JPEG at a reduced quality, and stores the result
// under the destination prefix in the same bucket.
type Optimizer struct {
	storage objectStorage
	cfg     Config
}

// New creates an Optimizer with the given storage backend and options.
func New(storage objectStorage, cfg Config) *Optimizer {
	return &Optimizer{storage: storage, cfg: cfg}
}

// Accepts reports whether the object key falls under the source prefix.
// Keys outside it are skipped by the caller, which is a normal path and
// not a failure.
func (o *Optimizer) Accepts(key string) bool {
	return strings.HasPrefix(key, o.cfg.SourcePrefix)
}

// DestinationKey derives the output key by replacing the first
// occurrence of the source prefix with the destination prefix.
func (o *Optimizer) DestinationKey(key string) string {
	return strings.Replace(key, o.cfg.SourcePrefix, o.cfg.DestPrefix, 1)
}

// Optimize runs the fetch -> decode -> re-encode -> store sequence for
// one object and returns the destination key it wrote. Any failure is
// returned as an *Error tagged with the stage it happened in; no
// partial output is written, the store call is the last step. An
// existing destination object is silently overwritten: the transform is
// deterministic, so reprocessing a redelivered notification converges
// on the same bytes.
func (o *Optimizer) Optimize(ctx context.Context, bucket, key string) (string, error) {
	data, err := o.storage.Get(ctx, bucket, key)
	if err != nil {
		return "", &Error{Kind: KindFetch, Bucket: bucket, Key: key, Err: err}
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return "", &Error{Kind: KindCodec, Bucket: bucket, Key: key, Err: err}
	}

	// Re-encode into an in-memory buffer, trading fidelity for size.
	buf := bytes.NewBuffer(nil)
	if err := imaging.Encode(buf, img, imaging.JPEG, imaging.JPEGQuality(o.cfg.Quality)); err != nil {
		return "", &Error{Kind: KindCodec, Bucket: bucket, Key: key, Err: err}
	}

	dstKey := o.DestinationKey(key)
	if err := o.storage.Put(ctx, bucket, dstKey, buf.Bytes(), contentTypeJPEG); err != nil {
		return "", &Error{Kind: KindStore, Bucket: bucket, Key: dstKey, Err: err}
	}

	return dstKey, nil
}

package optimizer

import "fmt"

// Kind classifies a failure to one stage of the per-message pipeline.
// Every kind is message-scoped: the batch handler logs it and moves on,
// it is never fatal for the batch.
type Kind int

const (
	// KindDecode means the message body was not parseable JSON.
	KindDecode Kind = iota
	// KindShape means required fields were missing from the parsed body.
	KindShape
	// KindFetch means the source object could not be retrieved.
	KindFetch
	// KindCodec means the image could not be decoded or re-encoded.
	KindCodec
	// KindStore means the destination write failed.
	KindStore
)

// String returns the stage name used in diagnostics.
func (k Kind) String() string {
	switch k {
	case KindDecode:
		return "decode"
	case KindShape:
		return "shape"
	case KindFetch:
		return "fetch"
	case KindCodec:
		return "codec"
	case KindStore:
		return "store"
	default:
		return "unknown"
	}
}

// Error is a stage failure tagged with its Kind and, when known, the
// object the pipeline was working on.
type Error struct {
	Kind   Kind
	Bucket string
	Key    string
	Err    error
}

func (e *Error) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}

	return fmt.Sprintf("%s %s/%s: %v", e.Kind, e.Bucket, e.Key, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

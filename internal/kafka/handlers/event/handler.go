package event

import (
	"context"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/image-optimizer/internal/model"
	"github.com/aliskhannn/image-optimizer/internal/optimizer"
)

// imageOptimizer defines the interface for the transform pipeline
// applied to each accepted object.
type imageOptimizer interface {
	Accepts(key string) bool
	Optimize(ctx context.Context, bucket, key string) (string, error)
}

// Response is the acknowledgment returned after a batch run. It is the
// same fixed value regardless of how many messages in the batch failed,
// including for an empty batch; individual failures are only visible in
// the diagnostics.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// BatchHandler processes a batch of storage-change notifications. Each
// message is handled independently: a failure is logged and the rest of
// the batch proceeds.
type BatchHandler struct {
	optimizer imageOptimizer
}

// NewBatchHandler creates a new handler with the given optimizer.
func NewBatchHandler(o imageOptimizer) *BatchHandler {
	return &BatchHandler{optimizer: o}
}

// Handle processes every message in the batch in order and returns the
// fixed acknowledgment. No per-message error propagates to the caller.
func (h *BatchHandler) Handle(ctx context.Context, msgs []kafka.Message) Response {
	for _, msg := range msgs {
		if err := h.handleMessage(ctx, msg); err != nil {
			var oerr *optimizer.Error
			if errors.As(err, &oerr) {
				zlog.Logger.Err(err).
					Str("stage", oerr.Kind.String()).
					Str("message", string(msg.Value)).
					Msg("failed to process message")
				continue
			}

			zlog.Logger.Err(err).
				Str("message", string(msg.Value)).
				Msg("failed to process message")
		}
	}

	return Response{StatusCode: 200, Body: "Batch processed"}
}

// handleMessage decodes one notification and runs the optimizer for
// every change record it carries. Records are independent units: a
// failing record is logged and the remaining records of the same
// message are still attempted.
func (h *BatchHandler) handleMessage(ctx context.Context, msg kafka.Message) error {
	ev, err := model.ParseStorageEvent(msg.Value)
	if err != nil {
		return &optimizer.Error{Kind: optimizer.KindDecode, Err: err}
	}

	if len(ev.Records) == 0 {
		return &optimizer.Error{Kind: optimizer.KindShape, Err: errors.New("no records in event")}
	}

	for _, rec := range ev.Records {
		if err := h.handleRecord(ctx, rec); err != nil {
			var oerr *optimizer.Error
			if errors.As(err, &oerr) {
				zlog.Logger.Err(err).
					Str("stage", oerr.Kind.String()).
					Str("bucket", oerr.Bucket).
					Str("key", oerr.Key).
					Msg("failed to process record")
				continue
			}

			zlog.Logger.Err(err).Msg("failed to process record")
		}
	}

	return nil
}

// handleRecord applies the source-prefix policy and runs the transform
// for one change record.
func (h *BatchHandler) handleRecord(ctx context.Context, rec model.Record) error {
	bucket := rec.S3.Bucket.Name
	key := rec.S3.Object.Key

	if bucket == "" || key == "" {
		return &optimizer.Error{
			Kind:   optimizer.KindShape,
			Bucket: bucket,
			Key:    key,
			Err:    fmt.Errorf("record is missing bucket name or object key"),
		}
	}

	// Keys outside the source prefix are not errors, just not ours.
	if !h.optimizer.Accepts(key) {
		zlog.Logger.Info().
			Str("bucket", bucket).
			Str("key", key).
			Msg("skipping key outside source prefix")
		return nil
	}

	zlog.Logger.Info().
		Str("bucket", bucket).
		Str("key", key).
		Msg("processing object")

	dstKey, err := h.optimizer.Optimize(ctx, bucket, key)
	if err != nil {
		return err
	}

	zlog.Logger.Info().
		Str("bucket", bucket).
		Str("key", dstKey).
		Msg("optimized object stored")

	return nil
}

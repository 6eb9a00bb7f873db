package event

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/image-optimizer/internal/model"
	"github.com/aliskhannn/image-optimizer/internal/optimizer"
)

func TestMain(m *testing.M) {
	zlog.Init()
	m.Run()
}

// fakeOptimizer records the keys it was asked to optimize and fails the
// ones listed in failKeys.
type fakeOptimizer struct {
	calls    []string
	failKeys map[string]error
}

func (f *fakeOptimizer) Accepts(key string) bool {
	return strings.HasPrefix(key, "uploads/")
}

func (f *fakeOptimizer) Optimize(_ context.Context, bucket, key string) (string, error) {
	f.calls = append(f.calls, bucket+"/"+key)

	if err := f.failKeys[key]; err != nil {
		return "", err
	}

	return strings.Replace(key, "uploads/", "optimized/", 1), nil
}

func eventMessage(t *testing.T, records ...model.Record) kafka.Message {
	t.Helper()

	body, err := json.Marshal(model.StorageEvent{Records: records})
	require.NoError(t, err)

	return kafka.Message{Value: body}
}

func record(bucket, key string) model.Record {
	return model.Record{
		EventName: "s3:ObjectCreated:Put",
		S3: model.S3Entry{
			Bucket: model.Bucket{Name: bucket},
			Object: model.Object{Key: key},
		},
	}
}

func TestBatchHandler_ProcessesAcceptedKey(t *testing.T) {
	fo := &fakeOptimizer{}
	h := NewBatchHandler(fo)

	resp := h.Handle(context.Background(), []kafka.Message{
		eventMessage(t, record("images", "uploads/photo.jpg")),
	})

	require.Equal(t, Response{StatusCode: 200, Body: "Batch processed"}, resp)
	require.Equal(t, []string{"images/uploads/photo.jpg"}, fo.calls)
}

func TestBatchHandler_SkipsKeyOutsidePrefix(t *testing.T) {
	fo := &fakeOptimizer{}
	h := NewBatchHandler(fo)

	resp := h.Handle(context.Background(), []kafka.Message{
		eventMessage(t, record("images", "thumbnails/photo.jpg")),
	})

	require.Equal(t, Response{StatusCode: 200, Body: "Batch processed"}, resp)
	require.Empty(t, fo.calls)
}

func TestBatchHandler_MalformedBody(t *testing.T) {
	fo := &fakeOptimizer{}
	h := NewBatchHandler(fo)

	resp := h.Handle(context.Background(), []kafka.Message{
		{Value: []byte("{not json")},
	})

	require.Equal(t, Response{StatusCode: 200, Body: "Batch processed"}, resp)
	require.Empty(t, fo.calls)
}

func TestBatchHandler_MissingRecords(t *testing.T) {
	fo := &fakeOptimizer{}
	h := NewBatchHandler(fo)

	resp := h.Handle(context.Background(), []kafka.Message{
		{Value: []byte(`{"Records": []}`)},
		{Value: []byte(`{}`)},
	})

	require.Equal(t, Response{StatusCode: 200, Body: "Batch processed"}, resp)
	require.Empty(t, fo.calls)
}

func TestBatchHandler_MissingFields(t *testing.T) {
	fo := &fakeOptimizer{}
	h := NewBatchHandler(fo)

	resp := h.Handle(context.Background(), []kafka.Message{
		eventMessage(t, record("", "uploads/photo.jpg")),
		eventMessage(t, record("images", "")),
	})

	require.Equal(t, Response{StatusCode: 200, Body: "Batch processed"}, resp)
	require.Empty(t, fo.calls)
}

func TestBatchHandler_FailureIsolation(t *testing.T) {
	fo := &fakeOptimizer{
		failKeys: map[string]error{
			"uploads/broken.jpg": &optimizer.Error{
				Kind:   optimizer.KindFetch,
				Bucket: "images",
				Key:    "uploads/broken.jpg",
				Err:    errors.New("object not found"),
			},
		},
	}
	h := NewBatchHandler(fo)

	// The first message fails at the fetch stage; the second must still
	// be attempted and succeed.
	resp := h.Handle(context.Background(), []kafka.Message{
		eventMessage(t, record("images", "uploads/broken.jpg")),
		eventMessage(t, record("images", "uploads/ok.jpg")),
	})

	require.Equal(t, Response{StatusCode: 200, Body: "Batch processed"}, resp)
	require.Equal(t, []string{"images/uploads/broken.jpg", "images/uploads/ok.jpg"}, fo.calls)
}

func TestBatchHandler_MultiRecordMessage(t *testing.T) {
	fo := &fakeOptimizer{
		failKeys: map[string]error{
			"uploads/bad.jpg": &optimizer.Error{
				Kind: optimizer.KindCodec,
				Err:  errors.New("corrupt image"),
			},
		},
	}
	h := NewBatchHandler(fo)

	// Every record of a multi-record notification is an independent
	// unit: a failing record does not stop its siblings.
	resp := h.Handle(context.Background(), []kafka.Message{
		eventMessage(t,
			record("images", "uploads/bad.jpg"),
			record("images", "skipped/other.jpg"),
			record("images", "uploads/good.jpg"),
		),
	})

	require.Equal(t, Response{StatusCode: 200, Body: "Batch processed"}, resp)
	require.Equal(t, []string{"images/uploads/bad.jpg", "images/uploads/good.jpg"}, fo.calls)
}

func TestBatchHandler_EmptyBatch(t *testing.T) {
	fo := &fakeOptimizer{}
	h := NewBatchHandler(fo)

	resp := h.Handle(context.Background(), nil)

	require.Equal(t, Response{StatusCode: 200, Body: "Batch processed"}, resp)
	require.Empty(t, fo.calls)
}

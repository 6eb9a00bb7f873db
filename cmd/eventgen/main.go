package main

import (
	"context"
	"flag"
	"time"

	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/image-optimizer/internal/config"
	"github.com/aliskhannn/image-optimizer/internal/infra/kafka/producer"
	"github.com/aliskhannn/image-optimizer/internal/model"
)

// eventgen publishes a synthetic storage-change notification to the
// worker's topic, for exercising a local setup without a real bucket
// notification pipeline.
func main() {
	bucket := flag.String("bucket", "images", "bucket name to report in the event")
	key := flag.String("key", "uploads/example.jpg", "object key to report in the event")
	flag.Parse()

	zlog.Init()
	cfg := config.MustLoad("./config")

	strategy := retry.Strategy{
		Attempts: cfg.Retry.Attempts,
		Delay:    cfg.Retry.Delay,
		Backoff:  cfg.Retry.Backoff,
	}

	p := producer.New(&cfg.Kafka, strategy)

	ev := model.StorageEvent{
		Records: []model.Record{
			{
				EventName: "s3:ObjectCreated:Put",
				EventTime: time.Now().UTC().Format(time.RFC3339),
				S3: model.S3Entry{
					Bucket: model.Bucket{Name: *bucket},
					Object: model.Object{Key: *key},
				},
			},
		},
	}

	if err := p.Produce(context.Background(), ev); err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to publish event")
	}

	zlog.Logger.Info().
		Str("bucket", *bucket).
		Str("key", *key).
		Msg("event published")
}

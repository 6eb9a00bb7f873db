package model

import (
	"encoding/json"
	"fmt"
)

// StorageEvent is a bucket-notification payload carried in a queue message
// body. Both AWS S3 and MinIO emit this shape, so the worker can consume
// notifications from either without translation.
type StorageEvent struct {
	Records []Record `json:"Records"`
}

// Record describes a single change to an object in a bucket.
type Record struct {
	EventName string  `json:"eventName"`
	EventTime string  `json:"eventTime"`
	S3        S3Entry `json:"s3"`
}

// S3Entry holds the bucket and object identification of a Record.
type S3Entry struct {
	Bucket Bucket `json:"bucket"`
	Object Object `json:"object"`
}

// Bucket identifies the bucket the change happened in.
type Bucket struct {
	Name string `json:"name"`
	ARN  string `json:"arn"`
}

// Object identifies the changed object. Key is used exactly as delivered;
// the worker does not percent-decode it.
type Object struct {
	Key  string `json:"key"`
	Size int64  `json:"size"`
	ETag string `json:"eTag"`
}

// ParseStorageEvent decodes a raw message body into a StorageEvent.
func ParseStorageEvent(body []byte) (StorageEvent, error) {
	var ev StorageEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return StorageEvent{}, fmt.Errorf("unmarshal storage event: %w", err)
	}

	return ev, nil
}

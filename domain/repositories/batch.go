package repositories

import (
	"context"

	"github.com/satriahrh/radiocaption/domain/entities"
)

// ObjectStorage abstracts the bucket store used to stage batch input
type ObjectStorage interface {
	CreateBucket(ctx context.Context, bucket string) error
	Upload(ctx context.Context, bucket, key, path string) error
	DeleteObject(ctx context.Context, bucket, key string) error
	DeleteBucket(ctx context.Context, bucket string) error
}

// JobState is the polled state of a batch transcription job
type JobState struct {
	Status        entities.JobStatus
	FailureReason string
	TranscriptURI string
}

// BatchTranscriber runs asynchronous transcription jobs over stored media
type BatchTranscriber interface {
	StartJob(ctx context.Context, job *entities.TranscriptionJob) error
	GetJob(ctx context.Context, name string) (JobState, error)
}

// ResultFetcher downloads the result document of a finished job
type ResultFetcher interface {
	Fetch(ctx context.Context, uri string) ([]byte, error)
}

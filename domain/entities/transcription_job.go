package entities

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// JobStatus mirrors the states reported by the batch transcription service
type JobStatus string

const (
	JobStatusQueued     JobStatus = "QUEUED"
	JobStatusInProgress JobStatus = "IN_PROGRESS"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusFailed     JobStatus = "FAILED"
)

// IsTerminal reports whether polling can stop
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// TranscriptionJob describes one batch transcription of a local file
type TranscriptionJob struct {
	Name          string    `json:"name"`
	InputFile     string    `json:"input_file"`
	Bucket        string    `json:"bucket"`
	Key           string    `json:"key"`
	Language      string    `json:"language"`
	MediaFormat   string    `json:"media_format"`
	Status        JobStatus `json:"status"`
	FailureReason string    `json:"failure_reason,omitempty"`
	TranscriptURI string    `json:"transcript_uri,omitempty"`
	Transcript    string    `json:"transcript,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewTranscriptionJob names the job and its temporary bucket after fresh
// UUIDs and derives the object key and media format from the file name.
func NewTranscriptionJob(inputFile, language string) *TranscriptionJob {
	return &TranscriptionJob{
		Name:        "test-transcription-" + uuid.NewString(),
		InputFile:   inputFile,
		Bucket:      "transcribe-test-" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		Key:         filepath.Base(inputFile),
		Language:    language,
		MediaFormat: strings.TrimPrefix(strings.ToLower(filepath.Ext(inputFile)), "."),
		Status:      JobStatusQueued,
		CreatedAt:   time.Now(),
	}
}

// MediaURI returns the object-store location of the uploaded file
func (j *TranscriptionJob) MediaURI() string {
	return fmt.Sprintf("s3://%s/%s", j.Bucket, j.Key)
}
